package wikidata

import (
	"math"
	"strconv"

	"github.com/tidwall/gjson"
)

const dimensionlessUnit = "1"

// DecodeValue decodes a datavalue object ({"value": ..., "type": ...}) for the
// declared datatype. It returns a complete Value or a *DecodeError, never both.
func DecodeValue(dt Datatype, datavalue gjson.Result) (Value, error) {
	v, err := decodeValue(dt, datavalue)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeValueJSON is DecodeValue for raw bytes.
func DecodeValueJSON(dt Datatype, datavalue []byte) (Value, error) {
	if !gjson.ValidBytes(datavalue) {
		return nil, newError(MalformedJSON, dt, "datavalue", "invalid JSON")
	}
	return DecodeValue(dt, gjson.ParseBytes(datavalue))
}

func decodeValue(dt Datatype, datavalue gjson.Result) (Value, *DecodeError) {
	expected, known := datatypeValueTypes[dt]
	if !known {
		return nil, newError(UnknownDatatype, dt, "datatype", "unsupported datatype %q", dt)
	}
	if !datavalue.IsObject() {
		return nil, newError(MissingRequiredField, dt, "datavalue", "datavalue is not an object")
	}

	typ := datavalue.Get("type")
	if typ.Type != gjson.String {
		return nil, newError(MissingRequiredField, dt, "type", "datavalue has no type")
	}
	if typ.Str != expected {
		if knownValueTypes[typ.Str] {
			return nil, newError(DatatypeMismatch, dt, "type", "datatype %s expects value type %s, got %s", dt, expected, typ.Str)
		}
		return nil, newError(UnknownDatatype, dt, "type", "unknown value type %q", typ.Str)
	}

	value := datavalue.Get("value")
	if !value.Exists() {
		return nil, newError(MissingRequiredField, dt, "value", "datavalue has no value")
	}

	switch expected {
	case valueTypeString:
		if value.Type != gjson.String {
			return nil, newError(DatatypeMismatch, dt, "value", "expected a string, got %s", value.Type)
		}
		v, _ := stringValue(dt, value.Str)
		return v, nil
	case valueTypeMonolingualText:
		return decodeMonolingualText(dt, value)
	case valueTypeQuantity:
		return decodeQuantity(dt, value)
	case valueTypeGlobeCoordinate:
		return decodeGlobeCoordinate(dt, value)
	case valueTypeTime:
		return decodeTime(dt, value)
	case valueTypeEntityID:
		return decodeEntityRef(dt, value)
	}
	return nil, newError(UnknownDatatype, dt, "type", "no decoder for value type %q", expected)
}

func decodeMonolingualText(dt Datatype, value gjson.Result) (Value, *DecodeError) {
	text, err := requiredString(dt, value, "text")
	if err != nil {
		return nil, err
	}
	lang, err := requiredString(dt, value, "language")
	if err != nil {
		return nil, err
	}
	return MonolingualText{Language: lang, Text: text}, nil
}

func decodeQuantity(dt Datatype, value gjson.Result) (Value, *DecodeError) {
	if !value.IsObject() {
		return nil, newError(MissingRequiredField, dt, "value", "quantity value is not an object")
	}
	amount, present, err := decimalField(dt, value, "amount")
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, newError(MissingRequiredField, dt, "amount", "quantity has no amount")
	}
	q := Quantity{Amount: amount}

	if q.UpperBound, _, err = decimalField(dt, value, "upperBound"); err != nil {
		return nil, err
	}
	if q.LowerBound, _, err = decimalField(dt, value, "lowerBound"); err != nil {
		return nil, err
	}

	unit := value.Get("unit")
	switch {
	case !unit.Exists() || unit.Type == gjson.Null:
	case unit.Type != gjson.String:
		return nil, newError(MissingRequiredField, dt, "unit", "unit is not a string")
	case unit.Str == dimensionlessUnit:
	default:
		id, perr := ParseConceptURI(unit.Str)
		if perr != nil {
			return nil, asDecodeError(perr).withDatatype(dt).withField("unit")
		}
		q.Unit = id
	}
	return q, nil
}

func decodeGlobeCoordinate(dt Datatype, value gjson.Result) (Value, *DecodeError) {
	if !value.IsObject() {
		return nil, newError(MissingRequiredField, dt, "value", "coordinate value is not an object")
	}
	var c GlobeCoordinate
	var present bool
	var err *DecodeError

	if c.Latitude, present, err = floatField(dt, value, "latitude"); err != nil {
		return nil, err
	} else if !present {
		return nil, newError(MissingRequiredField, dt, "latitude", "coordinate has no latitude")
	}
	if !validLatitude(c.Latitude) {
		return nil, newError(MalformedCoordinate, dt, "latitude", "latitude %v out of range", c.Latitude)
	}

	if c.Longitude, present, err = floatField(dt, value, "longitude"); err != nil {
		return nil, err
	} else if !present {
		return nil, newError(MissingRequiredField, dt, "longitude", "coordinate has no longitude")
	}
	if !validLongitude(c.Longitude) {
		return nil, newError(MalformedCoordinate, dt, "longitude", "longitude %v out of range", c.Longitude)
	}

	if c.Precision, c.HasPrecision, err = floatField(dt, value, "precision"); err != nil {
		return nil, err
	}
	if c.HasPrecision && c.Precision < 0 {
		return nil, newError(MalformedCoordinate, dt, "precision", "negative precision %v", c.Precision)
	}

	if c.Globe, err = requiredEntityURI(dt, value, "globe"); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeTime(dt Datatype, value gjson.Result) (Value, *DecodeError) {
	if !value.IsObject() {
		return nil, newError(MissingRequiredField, dt, "value", "time value is not an object")
	}
	raw := value.Get("time")
	if !raw.Exists() {
		return nil, newError(MissingRequiredField, dt, "time", "time value has no timestamp")
	}
	if raw.Type != gjson.String {
		return nil, newError(MalformedDate, dt, "time", "timestamp is not a string")
	}
	ts, perr := parseTimestamp(raw.Str)
	if perr != nil {
		return nil, wrapError(MalformedDate, dt, "time", perr, "bad timestamp")
	}

	code, present, err := intField(dt, value, "precision")
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, newError(MissingRequiredField, dt, "precision", "time value has no precision")
	}
	precision, ok := ParsePrecision(code)
	if !ok {
		return nil, newError(UnknownDatatype, dt, "precision", "unknown time precision %d", code)
	}

	t := Time{
		Year:      ts.year,
		Month:     ts.month,
		Day:       ts.day,
		Hour:      ts.hour,
		Minute:    ts.min,
		Second:    ts.sec,
		Precision: precision,
	}
	for _, f := range []struct {
		name string
		dst  *int
	}{{"timezone", &t.Timezone}, {"before", &t.Before}, {"after", &t.After}} {
		n, _, err := intField(dt, value, f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = int(n)
	}

	if t.Calendar, err = requiredEntityURI(dt, value, "calendarmodel"); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeEntityRef(dt Datatype, value gjson.Result) (Value, *DecodeError) {
	if !value.IsObject() {
		return nil, newError(MissingRequiredField, dt, "value", "entity value is not an object")
	}

	var id EntityID
	if raw := value.Get("id"); raw.Type == gjson.String {
		parsed, err := ParseEntityID(raw.Str)
		if err != nil {
			return nil, asDecodeError(err).withDatatype(dt)
		}
		id = parsed
	} else {
		// Older dumps only carry entity-type and numeric-id.
		typ := value.Get("entity-type")
		if typ.Type != gjson.String {
			return nil, newError(MissingRequiredField, dt, "id", "entity value has neither id nor entity-type")
		}
		kind, ok := parseIDKind(typ.Str)
		if !ok || kind == Form || kind == Sense {
			return nil, newError(UnknownEntityPrefix, dt, "entity-type", "cannot build id for entity-type %q", typ.Str)
		}
		num := value.Get("numeric-id")
		if num.Type != gjson.Number {
			return nil, newError(MissingRequiredField, dt, "numeric-id", "entity value has no numeric-id")
		}
		n, err := strconv.ParseUint(num.Raw, 10, 64)
		if err != nil {
			return nil, wrapError(MalformedNumber, dt, "numeric-id", err, "bad numeric-id %s", num.Raw)
		}
		id = EntityID{Kind: kind, Num: n}
	}

	if want := entityDatatypes[dt]; id.Kind != want {
		return nil, newError(DatatypeMismatch, dt, "id", "%s refers to a %s, expected a %s", id, id.Kind, want)
	}
	return EntityRef{ID: id}, nil
}

func requiredString(dt Datatype, obj gjson.Result, name string) (string, *DecodeError) {
	r := obj.Get(name)
	if r.Type != gjson.String {
		return "", newError(MissingRequiredField, dt, name, "%s is missing or not a string", name)
	}
	return r.Str, nil
}

func requiredEntityURI(dt Datatype, obj gjson.Result, name string) (EntityID, *DecodeError) {
	uri, err := requiredString(dt, obj, name)
	if err != nil {
		return EntityID{}, err
	}
	id, perr := ParseConceptURI(uri)
	if perr != nil {
		return EntityID{}, asDecodeError(perr).withDatatype(dt).withField(name)
	}
	return id, nil
}

// numberText returns the literal text of a JSON number, or of a string holding one.
func numberText(r gjson.Result) (string, bool) {
	switch r.Type {
	case gjson.Number:
		return r.Raw, true
	case gjson.String:
		return r.Str, true
	}
	return "", false
}

func decimalField(dt Datatype, obj gjson.Result, name string) (Decimal, bool, *DecodeError) {
	r := obj.Get(name)
	if !r.Exists() || r.Type == gjson.Null {
		return "", false, nil
	}
	text, ok := numberText(r)
	if !ok {
		return "", true, newError(MalformedNumber, dt, name, "%s is not a number", name)
	}
	d, err := ParseDecimal(text)
	if err != nil {
		return "", true, asDecodeError(err).withDatatype(dt).withField(name)
	}
	return d, true, nil
}

func intField(dt Datatype, obj gjson.Result, name string) (int64, bool, *DecodeError) {
	r := obj.Get(name)
	if !r.Exists() || r.Type == gjson.Null {
		return 0, false, nil
	}
	text, ok := numberText(r)
	if !ok {
		return 0, true, newError(MalformedNumber, dt, name, "%s is not a number", name)
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, true, wrapError(MalformedNumber, dt, name, err, "%s is not an integer", name)
	}
	return n, true, nil
}

func floatField(dt Datatype, obj gjson.Result, name string) (float64, bool, *DecodeError) {
	r := obj.Get(name)
	if !r.Exists() || r.Type == gjson.Null {
		return 0, false, nil
	}
	text, ok := numberText(r)
	if !ok {
		return 0, true, newError(MalformedCoordinate, dt, name, "%s is not a number", name)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, true, wrapError(MalformedCoordinate, dt, name, err, "%s is not a number", name)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, true, newError(MalformedCoordinate, dt, name, "%s is not finite", name)
	}
	return f, true, nil
}
