package wikidata

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a DecodeError.
type ErrorKind uint8

const (
	// UnknownDatatype: the datatype, value type or time precision is not one Wikidata defines.
	UnknownDatatype ErrorKind = iota + 1
	// MalformedNumber: an amount, bound, id number or integer field does not parse.
	MalformedNumber
	// MalformedDate: a timestamp does not parse or is out of range.
	MalformedDate
	// MalformedCoordinate: latitude/longitude/precision missing shape or out of range.
	MalformedCoordinate
	// UnknownRank: rank present but not preferred/normal/deprecated.
	UnknownRank
	// UnknownEntityPrefix: an id whose kind is not known (or not allowed here).
	UnknownEntityPrefix
	// DatatypeMismatch: the declared datatype does not match the decoded value.
	DatatypeMismatch
	// MissingRequiredField: a field the encoding requires is absent or has the wrong JSON type.
	MissingRequiredField
	// UnknownSnakType: snaktype other than value/somevalue/novalue.
	UnknownSnakType
	// MalformedJSON: the record is not valid JSON or not an object.
	MalformedJSON
	// KindConflict: two fields of a record disagree, e.g. type vs id prefix.
	KindConflict
)

var kindNames = map[ErrorKind]string{
	UnknownDatatype:      "unknown datatype",
	MalformedNumber:      "malformed number",
	MalformedDate:        "malformed date",
	MalformedCoordinate:  "malformed coordinate",
	UnknownRank:          "unknown rank",
	UnknownEntityPrefix:  "unknown entity prefix",
	DatatypeMismatch:     "datatype mismatch",
	MissingRequiredField: "missing required field",
	UnknownSnakType:      "unknown snak type",
	MalformedJSON:        "malformed json",
	KindConflict:         "conflicting fields",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Sentinels for errors.Is. Matching is by kind only.
var (
	ErrUnknownDatatype      = &DecodeError{Kind: UnknownDatatype}
	ErrMalformedNumber      = &DecodeError{Kind: MalformedNumber}
	ErrMalformedDate        = &DecodeError{Kind: MalformedDate}
	ErrMalformedCoordinate  = &DecodeError{Kind: MalformedCoordinate}
	ErrUnknownRank          = &DecodeError{Kind: UnknownRank}
	ErrUnknownEntityPrefix  = &DecodeError{Kind: UnknownEntityPrefix}
	ErrDatatypeMismatch     = &DecodeError{Kind: DatatypeMismatch}
	ErrMissingRequiredField = &DecodeError{Kind: MissingRequiredField}
	ErrUnknownSnakType      = &DecodeError{Kind: UnknownSnakType}
	ErrMalformedJSON        = &DecodeError{Kind: MalformedJSON}
	ErrKindConflict         = &DecodeError{Kind: KindConflict}
)

// DecodeError describes why a part of a record could not be decoded and where.
type DecodeError struct {
	Kind     ErrorKind
	Datatype Datatype // empty when the failure is not inside a value
	Field    string   // e.g. "amount", "time", "rank"
	Location Location
	Msg      string
	Err      error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("wikidata: ")
	b.WriteString(e.Kind.String())
	if e.Datatype != "" || e.Field != "" {
		b.WriteString(" (")
		if e.Datatype != "" {
			b.WriteString(string(e.Datatype))
			if e.Field != "" {
				b.WriteByte('.')
			}
		}
		b.WriteString(e.Field)
		b.WriteByte(')')
	}
	if loc := e.Location.String(); loc != "" {
		b.WriteString(" at ")
		b.WriteString(loc)
	}
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is matches any *DecodeError of the same kind, so the Err* sentinels work with errors.Is.
func (e *DecodeError) Is(target error) bool {
	t, ok := target.(*DecodeError)
	return ok && t.Kind == e.Kind
}

func newError(kind ErrorKind, dt Datatype, field, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Datatype: dt, Field: field, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(kind ErrorKind, dt Datatype, field string, err error, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Datatype: dt, Field: field, Msg: fmt.Sprintf(format, args...), Err: err}
}

// asDecodeError keeps *DecodeError values and classifies anything else as malformed JSON.
func asDecodeError(err error) *DecodeError {
	if de, ok := err.(*DecodeError); ok {
		return de
	}
	return &DecodeError{Kind: MalformedJSON, Err: err}
}

// withDatatype fills in the datatype if an inner layer did not know it.
func (e *DecodeError) withDatatype(dt Datatype) *DecodeError {
	if e.Datatype == "" {
		e.Datatype = dt
	}
	return e
}

// withField names the field the error belongs to, replacing an inner layer's guess.
func (e *DecodeError) withField(field string) *DecodeError {
	e.Field = field
	return e
}

// locate merges outer context into the error's location. Fields already set by
// an inner layer win.
func (e *DecodeError) locate(outer Location) *DecodeError {
	e.Location = e.Location.merge(outer)
	return e
}
