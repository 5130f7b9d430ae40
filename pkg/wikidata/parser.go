package wikidata

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// Mode selects how decode errors below the record level are handled.
type Mode uint8

const (
	// Strict aborts the record on the first error.
	Strict Mode = iota
	// Lenient drops the offending claim or snak, collects the error and carries on.
	Lenient
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case Lenient:
		return "lenient"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts "strict" or "lenient", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strict":
		return Strict, nil
	case "lenient":
		return Lenient, nil
	}
	return 0, fmt.Errorf("wikidata: unknown parse mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler, so modes can be set from config files.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options configures a Parser.
type Options struct {
	Mode   Mode
	Logger *slog.Logger // nil uses slog.Default()
}

// Parser decodes entity records. It holds no mutable state and may be shared
// between goroutines.
type Parser struct {
	mode Mode
	log  *slog.Logger
}

// NewParser returns a parser for the given options.
func NewParser(opts Options) *Parser {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Parser{mode: opts.Mode, log: log.With("component", "wikidata")}
}

// Mode returns the parser's error mode.
func (p *Parser) Mode() Mode { return p.mode }

// Parse decodes one entity record: either a bare entity object or a
// Special:EntityData envelope holding exactly one entity.
//
// In strict mode a non-nil error means no entity. In lenient mode the returned
// slice lists every claim, snak or term that was left out; the error is only
// set for failures that make the record unusable (invalid JSON, missing or
// unknown id, type/id conflict).
func (p *Parser) Parse(data []byte) (*Entity, []*DecodeError, error) {
	if !gjson.ValidBytes(data) {
		return nil, nil, newError(MalformedJSON, "", "", "invalid JSON").locate(Location{Section: SectionEntity})
	}
	root := gjson.ParseBytes(data)
	if isEnvelope(root) {
		var records []gjson.Result
		root.Get("entities").ForEach(func(_, v gjson.Result) bool {
			records = append(records, v)
			return true
		})
		if len(records) != 1 {
			return nil, nil, newError(MalformedJSON, "", "entities", "envelope holds %d entities, want 1", len(records)).locate(Location{Section: SectionEntity})
		}
		root = records[0]
	}
	return p.ParseResult(root)
}

// ParseResult decodes an already-parsed entity object.
func (p *Parser) ParseResult(root gjson.Result) (*Entity, []*DecodeError, error) {
	rep := &reporter{lenient: p.mode == Lenient}
	b := builder{rep: rep, log: p.log}

	if root.Get("missing").Exists() {
		return nil, nil, newError(MissingRequiredField, "", "entity", "entity %s does not exist", root.Get("id").Str).locate(Location{Section: SectionEntity})
	}

	e, err := b.build(root)
	if err != nil {
		p.log.Debug("entity rejected", "id", root.Get("id").Str, "mode", p.mode, "error", err)
		return nil, nil, err
	}
	if len(rep.errs) > 0 {
		p.log.Debug("entity decoded with issues", "id", e.ID, "issues", len(rep.errs))
	}
	return e, rep.errs, nil
}

// Result is the outcome for one entity of an envelope.
type Result struct {
	Raw    []byte // the record's own JSON, without the envelope
	Entity *Entity
	Issues []*DecodeError
	Err    error
}

// ParseAll decodes every entity of a Special:EntityData or wbgetentities
// envelope, in document order. A bare entity object yields one result. The
// returned error is only set when data is not JSON.
func (p *Parser) ParseAll(data []byte) ([]Result, error) {
	if !gjson.ValidBytes(data) {
		return nil, newError(MalformedJSON, "", "", "invalid JSON").locate(Location{Section: SectionEntity})
	}
	root := gjson.ParseBytes(data)
	if !isEnvelope(root) {
		e, issues, err := p.ParseResult(root)
		return []Result{{Raw: data, Entity: e, Issues: issues, Err: err}}, nil
	}

	var results []Result
	root.Get("entities").ForEach(func(_, v gjson.Result) bool {
		e, issues, err := p.ParseResult(v)
		results = append(results, Result{Raw: []byte(v.Raw), Entity: e, Issues: issues, Err: err})
		return true
	})
	return results, nil
}

func isEnvelope(root gjson.Result) bool {
	return root.IsObject() && !root.Get("id").Exists() && root.Get("entities").IsObject()
}

// Parse decodes one record with a default-logger parser in the given mode.
func Parse(data []byte, mode Mode) (*Entity, []*DecodeError, error) {
	return NewParser(Options{Mode: mode}).Parse(data)
}
