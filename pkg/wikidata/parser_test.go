package wikidata

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	return b
}

func quietParser(mode Mode) *Parser {
	return NewParser(Options{Mode: mode, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
}

var entityCmpOpts = cmp.AllowUnexported(MultilingualText{}, AliasMap{}, SnakGroups{}, ClaimMap{}, SitelinkMap{})

func TestParse_Item(t *testing.T) {
	e, issues, err := quietParser(Strict).Parse(readFixture(t, "item.json"))
	require.NoError(t, err)
	assert.Empty(t, issues)

	assert.Equal(t, QID(42), e.ID)
	assert.Equal(t, Item, e.Kind())
	assert.True(t, e.IsItem())

	label, ok := e.Label("de", "en")
	assert.True(t, ok)
	assert.Equal(t, "Douglas Adams", label)
	desc, _ := e.Description("en")
	assert.Equal(t, "English writer and humorist", desc)
	aliases, _ := e.Aliases.Get("en")
	assert.Equal(t, []string{"Douglas Noel Adams", "DNA"}, aliases)

	assert.Equal(t, []EntityID{Human}, e.Instances())

	born, ok := e.StartTime()
	require.True(t, ok)
	assert.Equal(t, "+1952-03-11T00:00:00Z", born.Timestamp())
	_, ok = e.EndTime()
	assert.False(t, ok, "the only P570 claim is deprecated")

	p31 := e.ClaimsFor(InstanceOf)
	require.Len(t, p31, 1)
	assert.Equal(t, []EntityID{PID(580), PID(582)}, p31[0].Qualifiers.Keys())
	require.Len(t, p31[0].References, 1)
	assert.Equal(t, []EntityID{ReferenceURL, ImportedFrom}, p31[0].References[0].Snaks.Keys())

	dod := e.ClaimsFor(DateOfDeath)
	require.Len(t, dod, 1)
	assert.Equal(t, SnakSomeValue, dod[0].MainSnak.Type)
	assert.Nil(t, dod[0].MainSnak.Value)
	assert.Equal(t, RankDeprecated, dod[0].Rank)

	coord := e.ClaimsFor(CoordinateLocation)[0].MainSnak.Value.(GlobeCoordinate)
	assert.InDelta(t, -0.1275, coord.Point().Lon(), 1e-9)
	assert.InDelta(t, 51.5, coord.Point().Lat(), 1e-9)

	height := e.ClaimsFor(PID(2048))[0].MainSnak.Value.(Quantity)
	suffix, _ := UnitSuffix(height.Unit)
	assert.Equal(t, "+1.96 m", height.Amount.String()+" "+suffix)

	link, ok := e.Sitelinks.Get("enwiki")
	require.True(t, ok)
	assert.Equal(t, "Douglas Adams", link.Title)
	assert.Equal(t, []EntityID{QID(17437798)}, link.Badges)
	assert.Equal(t, []string{"enwiki", "frwiki"}, e.Sitelinks.Keys())

	assert.Equal(t, uint64(1234567890), e.LastRevID)
	assert.Equal(t, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC), e.Modified)
}

func TestParse_ClaimKeysMatchInput(t *testing.T) {
	data := readFixture(t, "item.json")
	e, _, err := quietParser(Strict).Parse(data)
	require.NoError(t, err)

	var want []EntityID
	gjson.GetBytes(data, "claims").ForEach(func(k, _ gjson.Result) bool {
		id, err := ParseEntityID(k.Str)
		require.NoError(t, err)
		want = append(want, id)
		return true
	})
	assert.Equal(t, want, e.Claims.Keys())
}

func TestParse_PropertyNeverHasSitelinks(t *testing.T) {
	for _, mode := range []Mode{Strict, Lenient} {
		e, issues, err := quietParser(mode).Parse(readFixture(t, "property.json"))
		require.NoError(t, err)
		assert.Empty(t, issues)
		assert.True(t, e.IsProperty())
		assert.Equal(t, DatatypeItem, e.Datatype)
		assert.Equal(t, 0, e.Sitelinks.Len())
	}
}

// tenClaims builds an item whose P31 holds ten claims; the last one has an unknown rank.
func tenClaims() []byte {
	var claims []string
	for i := 1; i <= 10; i++ {
		rank := "normal"
		if i == 10 {
			rank = "top"
		}
		claims = append(claims, fmt.Sprintf(`{"mainsnak":%s,"type":"statement","id":"Q1$%d","rank":"%s"}`, itemSnakP31, i, rank))
	}
	return []byte(`{"type":"item","id":"Q1","claims":{"P31":[` + strings.Join(claims, ",") + `]}}`)
}

func TestParse_LenientKeepsValidClaims(t *testing.T) {
	e, issues, err := quietParser(Lenient).Parse(tenClaims())
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Len(t, e.ClaimsFor(InstanceOf), 9)

	require.Len(t, issues, 1)
	assert.Equal(t, UnknownRank, issues[0].Kind)
	assert.Equal(t, "Q1$10", issues[0].Location.ClaimID)
	assert.Equal(t, "claims/P31[Q1$10]/rank", issues[0].Location.String())
}

func TestParse_StrictRejectsRecord(t *testing.T) {
	e, issues, err := quietParser(Strict).Parse(tenClaims())
	assert.Nil(t, e)
	assert.Empty(t, issues)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownRank)
	assert.Contains(t, err.Error(), "Q1$10")
}

func TestParse_LenientDropsEmptiedProperty(t *testing.T) {
	raw := `{"type":"item","id":"Q1","claims":{
		"P31":[{"mainsnak":` + itemSnakP31 + `,"id":"Q1$ok"}],
		"P569":[{"mainsnak":` + timeSnak("P569", "+1952-03-99T00:00:00Z") + `,"id":"Q1$bad"}],
		"P570":[]
	}}`
	e, issues, err := quietParser(Lenient).Parse([]byte(raw))
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "claims/P569[Q1$bad]/mainsnak", issues[0].Location.String())
	assert.Equal(t, []EntityID{InstanceOf, DateOfDeath}, e.Claims.Keys())
}

func TestParse_StructuralErrorsAreFatal(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"invalid json", `{"id":"Q1",`, ErrMalformedJSON},
		{"not an object", `["Q1"]`, ErrMalformedJSON},
		{"missing id", `{"type":"item"}`, ErrMissingRequiredField},
		{"unknown prefix", `{"id":"X1"}`, ErrUnknownEntityPrefix},
		{"lexeme entity", `{"id":"L1","type":"lexeme"}`, ErrUnknownEntityPrefix},
		{"unknown type", `{"id":"Q1","type":"widget"}`, ErrUnknownEntityPrefix},
		{"type conflicts with id", `{"id":"Q1","type":"property"}`, ErrKindConflict},
		{"missing entity", `{"entities":{"Q404":{"id":"Q404","missing":""}}}`, ErrMissingRequiredField},
		{"envelope with two entities", `{"entities":{"Q1":{"id":"Q1"},"Q2":{"id":"Q2"}}}`, ErrMalformedJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _, err := quietParser(Lenient).Parse([]byte(tt.raw))
			assert.Nil(t, e)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParse_TypeFallsBackToIDPrefix(t *testing.T) {
	e, _, err := Parse([]byte(`{"id":"P2","datatype":"string"}`), Strict)
	require.NoError(t, err)
	assert.Equal(t, Property, e.Kind())
	assert.Equal(t, DatatypeString, e.Datatype)
}

func TestParse_LenientTerms(t *testing.T) {
	raw := `{"id":"Q1","labels":{"en":{"language":"en","value":"one"},"de":{"language":"de"}},
		"aliases":{"en":[{"language":"en","value":"1"},{"language":"en"}]},
		"sitelinks":{"enwiki":{"site":"enwiki","title":"One","badges":["P1"]},"dewiki":{"site":"dewiki"}}}`

	e, issues, err := quietParser(Lenient).Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, []string{"en"}, e.Labels.Keys())
	aliases, _ := e.Aliases.Get("en")
	assert.Equal(t, []string{"1"}, aliases)
	assert.Equal(t, []string{"enwiki"}, e.Sitelinks.Keys())

	var locs []string
	for _, is := range issues {
		locs = append(locs, is.Location.String())
	}
	assert.Equal(t, []string{"labels/de", "aliases/en", "sitelinks/enwiki", "sitelinks/dewiki"}, locs)

	_, _, err = quietParser(Strict).Parse([]byte(raw))
	assert.ErrorIs(t, err, ErrMissingRequiredField)
}

func TestParseAll_Envelope(t *testing.T) {
	results, err := quietParser(Strict).ParseAll(readFixture(t, "envelope.json"))
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.NoError(t, results[0].Err)
	assert.Equal(t, QID(1), results[0].Entity.ID)
	assert.Equal(t, 0, results[0].Entity.Claims.Len())
	assert.Equal(t, "Q1", gjson.GetBytes(results[0].Raw, "id").Str, "raw is the entity, not the envelope")

	assert.ErrorIs(t, results[1].Err, ErrMissingRequiredField)
	assert.Nil(t, results[1].Entity)

	require.NoError(t, results[2].Err)
	label, _ := results[2].Entity.Label("en")
	assert.Equal(t, "sample", label)
}

func TestParse_SingleEntityEnvelope(t *testing.T) {
	item := readFixture(t, "item.json")
	wrapped := append(append([]byte(`{"entities":{"Q42":`), item...), []byte(`}}`)...)
	e, _, err := quietParser(Strict).Parse(wrapped)
	require.NoError(t, err)
	assert.Equal(t, QID(42), e.ID)
}

func TestEncodeEntity_RoundTrip(t *testing.T) {
	for _, name := range []string{"item.json", "property.json"} {
		t.Run(name, func(t *testing.T) {
			p := quietParser(Strict)
			first, _, err := p.Parse(readFixture(t, name))
			require.NoError(t, err)

			encoded, err := EncodeEntity(first)
			require.NoError(t, err)
			require.True(t, gjson.ValidBytes(encoded), string(encoded))

			second, _, err := p.Parse(encoded)
			require.NoError(t, err, string(encoded))
			if diff := cmp.Diff(first, second, entityCmpOpts); diff != "" {
				t.Errorf("round trip mismatch (-first +second):\n%s", diff)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Lenient ")
	require.NoError(t, err)
	assert.Equal(t, Lenient, m)

	var decoded Mode
	require.NoError(t, decoded.UnmarshalText([]byte("strict")))
	assert.Equal(t, Strict, decoded)

	_, err = ParseMode("loose")
	assert.Error(t, err)
}

func TestParser_ConcurrentUse(t *testing.T) {
	p := quietParser(Lenient)
	data := readFixture(t, "item.json")

	errs := make(chan error, 8)
	for range 8 {
		go func() {
			_, _, err := p.Parse(data)
			errs <- err
		}()
	}
	for range 8 {
		assert.NoError(t, <-errs)
	}
}
