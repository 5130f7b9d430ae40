package wikidata

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	conceptBaseURI    = "http://www.wikidata.org/entity/"
	entityDataBaseURL = "https://www.wikidata.org/wiki/Special:EntityData/"
)

// IDKind identifies what an EntityID refers to.
type IDKind uint8

const (
	// Item is a Q-id.
	Item IDKind = iota + 1
	// Property is a P-id.
	Property
	// Lexeme is an L-id.
	Lexeme
	// Form is a lexeme form, e.g. L7-F2.
	Form
	// Sense is a lexeme sense, e.g. L7-S1.
	Sense
)

func (k IDKind) String() string {
	switch k {
	case Item:
		return "item"
	case Property:
		return "property"
	case Lexeme:
		return "lexeme"
	case Form:
		return "form"
	case Sense:
		return "sense"
	default:
		return "unknown"
	}
}

// parseIDKind maps the "entity-type" names used in wikibase-entityid values.
func parseIDKind(s string) (IDKind, bool) {
	switch s {
	case "item":
		return Item, true
	case "property":
		return Property, true
	case "lexeme":
		return Lexeme, true
	case "form":
		return Form, true
	case "sense":
		return Sense, true
	}
	return 0, false
}

// EntityID is a Wikidata identifier. The zero value is not a valid id.
// Sub is only used by forms and senses (the number after -F / -S).
type EntityID struct {
	Kind IDKind
	Num  uint64
	Sub  uint64
}

// QID returns the item id Q<n>.
func QID(n uint64) EntityID { return EntityID{Kind: Item, Num: n} }

// PID returns the property id P<n>.
func PID(n uint64) EntityID { return EntityID{Kind: Property, Num: n} }

// LID returns the lexeme id L<n>.
func LID(n uint64) EntityID { return EntityID{Kind: Lexeme, Num: n} }

// IsZero reports whether the id is unset.
func (id EntityID) IsZero() bool { return id.Kind == 0 }

// IsItem reports whether the id is a Q-id.
func (id EntityID) IsItem() bool { return id.Kind == Item }

// IsProperty reports whether the id is a P-id.
func (id EntityID) IsProperty() bool { return id.Kind == Property }

func (id EntityID) String() string {
	switch id.Kind {
	case Item:
		return "Q" + strconv.FormatUint(id.Num, 10)
	case Property:
		return "P" + strconv.FormatUint(id.Num, 10)
	case Lexeme:
		return "L" + strconv.FormatUint(id.Num, 10)
	case Form:
		return "L" + strconv.FormatUint(id.Num, 10) + "-F" + strconv.FormatUint(id.Sub, 10)
	case Sense:
		return "L" + strconv.FormatUint(id.Num, 10) + "-S" + strconv.FormatUint(id.Sub, 10)
	default:
		return ""
	}
}

// ConceptURI returns the RDF concept URI, as used for units, globes and calendars.
func (id EntityID) ConceptURI() string {
	return conceptBaseURI + id.String()
}

// JSONURL returns the Special:EntityData URL serving the entity as JSON.
func (id EntityID) JSONURL() string {
	return entityDataBaseURL + id.String() + ".json"
}

// MarshalText implements encoding.TextMarshaler.
func (id EntityID) MarshalText() ([]byte, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("wikidata: cannot marshal zero entity id")
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *EntityID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseEntityID parses Q42, P31, L7, L7-F2 or L7-S1.
// An unknown leading letter is an UnknownEntityPrefix error, a bad number a MalformedNumber error.
func ParseEntityID(s string) (EntityID, error) {
	if s == "" {
		return EntityID{}, newError(MissingRequiredField, "", "id", "empty entity id")
	}

	var kind IDKind
	switch s[0] {
	case 'Q':
		kind = Item
	case 'P':
		kind = Property
	case 'L':
		kind = Lexeme
	default:
		return EntityID{}, newError(UnknownEntityPrefix, "", "id", "unknown entity prefix in %q", s)
	}

	body := s[1:]
	var sub string
	if kind == Lexeme {
		if i := strings.IndexByte(body, '-'); i >= 0 {
			sub = body[i+1:]
			body = body[:i]
			if sub == "" {
				return EntityID{}, newError(MalformedNumber, "", "id", "missing form/sense number in %q", s)
			}
			switch sub[0] {
			case 'F':
				kind = Form
			case 'S':
				kind = Sense
			default:
				return EntityID{}, newError(UnknownEntityPrefix, "", "id", "unknown lexeme sub-entity prefix in %q", s)
			}
			sub = sub[1:]
		}
	}

	num, err := parseIDNumber(body)
	if err != nil {
		return EntityID{}, wrapError(MalformedNumber, "", "id", err, "malformed entity id %q", s)
	}
	id := EntityID{Kind: kind, Num: num}
	if kind == Form || kind == Sense {
		if id.Sub, err = parseIDNumber(sub); err != nil {
			return EntityID{}, wrapError(MalformedNumber, "", "id", err, "malformed entity id %q", s)
		}
	}
	return id, nil
}

// parseIDNumber accepts plain decimal digits only (no sign, no spaces).
func parseIDNumber(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("no digits")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("invalid digit %q", s[i])
		}
	}
	return strconv.ParseUint(s, 10, 64)
}

// ParseConceptURI extracts the entity id from a concept URI such as
// http://www.wikidata.org/entity/Q2. Only the last path segment is inspected,
// so URIs of other Wikibase instances are accepted as well.
func ParseConceptURI(uri string) (EntityID, error) {
	i := strings.LastIndexByte(uri, '/')
	if i < 0 || i == len(uri)-1 {
		return EntityID{}, newError(UnknownEntityPrefix, "", "uri", "not an entity concept URI: %q", uri)
	}
	return ParseEntityID(uri[i+1:])
}
