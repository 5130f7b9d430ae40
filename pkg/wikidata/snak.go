package wikidata

import (
	"github.com/tidwall/gjson"
)

// SnakType is the value state of a snak.
type SnakType uint8

const (
	// SnakValue carries a concrete Value.
	SnakValue SnakType = iota
	// SnakSomeValue means a value exists but is unknown.
	SnakSomeValue
	// SnakNoValue means the property has no value.
	SnakNoValue
)

func (t SnakType) String() string {
	switch t {
	case SnakValue:
		return "value"
	case SnakSomeValue:
		return "somevalue"
	case SnakNoValue:
		return "novalue"
	}
	return "unknown"
}

// ParseSnakType maps the raw snaktype string.
func ParseSnakType(s string) (SnakType, bool) {
	switch s {
	case "value":
		return SnakValue, true
	case "somevalue":
		return SnakSomeValue, true
	case "novalue":
		return SnakNoValue, true
	}
	return 0, false
}

// Snak is a (property, value state) pair. Value is nil unless Type is SnakValue.
// Snaks compare with ==.
type Snak struct {
	Property EntityID
	Type     SnakType
	Datatype Datatype
	Value    Value
}

// ValueSnak builds a value snak; the datatype is taken from v.
func ValueSnak(property EntityID, v Value) Snak {
	return Snak{Property: property, Type: SnakValue, Datatype: v.Datatype(), Value: v}
}

// HasValue reports whether the snak carries a concrete value.
func (s Snak) HasValue() bool { return s.Type == SnakValue && s.Value != nil }

// DecodeSnak decodes one raw snak object.
func DecodeSnak(raw gjson.Result) (Snak, error) {
	s, err := decodeSnak(raw)
	if err != nil {
		return Snak{}, err
	}
	return s, nil
}

func decodeSnak(raw gjson.Result) (Snak, *DecodeError) {
	if !raw.IsObject() {
		return Snak{}, newError(MissingRequiredField, "", "snak", "snak is not an object")
	}

	prop := raw.Get("property")
	if prop.Type != gjson.String {
		return Snak{}, newError(MissingRequiredField, "", "property", "snak has no property")
	}
	pid, err := ParseEntityID(prop.Str)
	if err != nil {
		return Snak{}, asDecodeError(err).withField("property")
	}
	if !pid.IsProperty() {
		return Snak{}, newError(UnknownEntityPrefix, "", "property", "snak property %s is not a property id", pid)
	}
	at := Location{SnakProperty: pid}

	st := raw.Get("snaktype")
	if st.Type != gjson.String {
		return Snak{}, newError(MissingRequiredField, "", "snaktype", "snak has no snaktype").locate(at)
	}
	typ, ok := ParseSnakType(st.Str)
	if !ok {
		return Snak{}, newError(UnknownSnakType, "", "snaktype", "unknown snaktype %q", st.Str).locate(at)
	}

	s := Snak{Property: pid, Type: typ}
	if dt := raw.Get("datatype"); dt.Type == gjson.String {
		s.Datatype = Datatype(dt.Str)
	}
	if typ != SnakValue {
		// A stray datavalue on somevalue/novalue snaks is ignored.
		return s, nil
	}

	if s.Datatype == "" {
		return Snak{}, newError(MissingRequiredField, "", "datatype", "value snak has no datatype").locate(at)
	}
	v, derr := decodeValue(s.Datatype, raw.Get("datavalue"))
	if derr != nil {
		return Snak{}, derr.locate(at)
	}
	s.Value = v
	return s, nil
}
