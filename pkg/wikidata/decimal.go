package wikidata

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Wikidata writes amounts as signed decimal strings ("+12.500", "-3", "+0.25").
// The sign is optional on input; exponents are not allowed.
var decimalPattern = regexp.MustCompile(`^[+-]?[0-9]+(\.[0-9]+)?$`)

// Decimal is an exact decimal number kept as its original text, so "+12.500"
// stays "+12.500". The empty Decimal means "absent".
type Decimal string

// ParseDecimal validates s and returns it unchanged as a Decimal.
func ParseDecimal(s string) (Decimal, error) {
	if !decimalPattern.MatchString(s) {
		return "", newError(MalformedNumber, "", "", "not a decimal: %q", s)
	}
	return Decimal(s), nil
}

// IsZero reports whether the decimal is absent.
func (d Decimal) IsZero() bool { return d == "" }

func (d Decimal) String() string { return string(d) }

// Decimal returns the value as an arbitrary-precision decimal.
func (d Decimal) Decimal() (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimPrefix(string(d), "+"))
}

// Float64 converts to float64. Precision may be lost; prefer Decimal for arithmetic.
func (d Decimal) Float64() (float64, error) {
	v, err := d.Decimal()
	if err != nil {
		return 0, err
	}
	f, _ := v.Float64()
	return f, nil
}

// Equal compares numerically, so "+1.50" equals "1.5".
func (d Decimal) Equal(o Decimal) bool {
	a, errA := d.Decimal()
	b, errB := o.Decimal()
	if errA != nil || errB != nil {
		return d == o
	}
	return a.Equal(b)
}
