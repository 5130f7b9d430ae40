package wikidata

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Precision is Wikidata's time precision code.
type Precision uint8

const (
	PrecisionBillionYears Precision = iota
	PrecisionHundredMillionYears
	PrecisionTenMillionYears
	PrecisionMillionYears
	PrecisionHundredThousandYears
	PrecisionTenThousandYears
	PrecisionMillennium
	PrecisionCentury
	PrecisionDecade
	PrecisionYear
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
)

var precisionNames = [...]string{
	"billion years", "hundred million years", "ten million years", "million years",
	"hundred thousand years", "ten thousand years", "millennium", "century", "decade",
	"year", "month", "day", "hour", "minute", "second",
}

func (p Precision) String() string {
	if int(p) < len(precisionNames) {
		return precisionNames[p]
	}
	return "precision(" + strconv.Itoa(int(p)) + ")"
}

// ParsePrecision maps a raw precision code. Codes outside 0..14 are rejected.
func ParsePrecision(code int64) (Precision, bool) {
	if code < int64(PrecisionBillionYears) || code > int64(PrecisionSecond) {
		return 0, false
	}
	return Precision(code), true
}

// Time is a point in time as Wikidata encodes it. Month and Day are 0 when the
// precision is coarser than a month or day. Year is negative for BCE dates.
// Timezone is the offset from UTC in minutes; Before and After are the
// uncertainty in units of Precision.
type Time struct {
	Year      int64
	Month     uint8
	Day       uint8
	Hour      uint8
	Minute    uint8
	Second    uint8
	Precision Precision
	Timezone  int
	Before    int
	After     int
	Calendar  EntityID
}

// Datatype implements Value.
func (Time) Datatype() Datatype { return DatatypeTime }
func (Time) isValue()           {}

// Timestamp renders the time in Wikidata's "+YYYY-MM-DDThh:mm:ssZ" form, with
// at least four year digits.
func (t Time) Timestamp() string {
	sign := "+"
	year := t.Year
	if year < 0 {
		sign = "-"
		year = -year
	}
	return fmt.Sprintf("%s%04d-%02d-%02dT%02d:%02d:%02dZ", sign, year, t.Month, t.Day, t.Hour, t.Minute, t.Second)
}

// GoTime converts to a time.Time in the value's timezone. Month/day 0 become 1.
// The calendar model is not applied. ok is false for years a time.Time cannot hold.
func (t Time) GoTime() (tm time.Time, ok bool) {
	const maxYear = 1_000_000_000
	if t.Year > maxYear || t.Year < -maxYear {
		return time.Time{}, false
	}
	month, day := int(t.Month), int(t.Day)
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	loc := time.UTC
	if t.Timezone != 0 {
		loc = time.FixedZone("", t.Timezone*60)
	}
	return time.Date(int(t.Year), time.Month(month), day, int(t.Hour), int(t.Minute), int(t.Second), 0, loc), true
}

// Accepts the canonical form as well as the truncated forms seen in old
// records: "+2001-12-31", "+2001-12", "-12561".
var timestampPattern = regexp.MustCompile(`^([+-]?)([0-9]{1,16})(?:-([0-9]{1,2})(?:-([0-9]{1,2})(?:T([0-9]{1,2}):([0-9]{1,2})(?::([0-9]{1,2}))?Z?)?)?)?$`)

type timestamp struct {
	year                       int64
	month, day, hour, min, sec uint8
}

func parseTimestamp(s string) (timestamp, error) {
	m := timestampPattern.FindStringSubmatch(s)
	if m == nil {
		return timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
	}
	year, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return timestamp{}, fmt.Errorf("year out of range in %q", s)
	}
	if m[1] == "-" {
		year = -year
	}
	ts := timestamp{year: year}
	fields := []struct {
		raw  string
		max  uint64
		dst  *uint8
		name string
	}{
		{m[3], 12, &ts.month, "month"},
		{m[4], 31, &ts.day, "day"},
		{m[5], 23, &ts.hour, "hour"},
		{m[6], 59, &ts.min, "minute"},
		{m[7], 59, &ts.sec, "second"},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, _ := strconv.ParseUint(f.raw, 10, 8)
		if v > f.max {
			return timestamp{}, fmt.Errorf("%s %d out of range in %q", f.name, v, s)
		}
		*f.dst = uint8(v)
	}
	return ts, nil
}
