package cli

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikidatago/pkg/store"
	"wikidatago/pkg/wikidata"
)

func init() {
	color.NoColor = true
}

func parseFixture(t *testing.T, mode wikidata.Mode, name string) []wikidata.Result {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "pkg", "wikidata", "testdata", name))
	require.NoError(t, err)
	p := wikidata.NewParser(wikidata.Options{Mode: mode, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	results, err := p.ParseAll(data)
	require.NoError(t, err)
	return results
}

func TestRenderResults_Summary(t *testing.T) {
	var out, errOut bytes.Buffer
	rejected := renderResults(&out, &errOut, parseFixture(t, wikidata.Strict, "item.json"), "summary", true)
	assert.Equal(t, 0, rejected)

	s := out.String()
	assert.True(t, strings.HasPrefix(s, "Q42 Douglas Adams\n"), s)
	assert.Contains(t, s, "instance of: Q5")
	assert.Contains(t, s, "start: +1952-03-11T00:00:00Z /day")
	assert.Contains(t, s, "P2048 +1.96 m")
	assert.Contains(t, s, "P570 ✗ <some value>")
	assert.Empty(t, errOut.String())
}

func TestRenderResults_EnvelopeWithRejection(t *testing.T) {
	var out, errOut bytes.Buffer
	rejected := renderResults(&out, &errOut, parseFixture(t, wikidata.Lenient, "envelope.json"), "summary", false)
	assert.Equal(t, 1, rejected)
	assert.Contains(t, errOut.String(), "rejected: ")
	assert.Contains(t, out.String(), "P2 sample")
}

func TestRenderResults_JSON(t *testing.T) {
	var out, errOut bytes.Buffer
	renderResults(&out, &errOut, parseFixture(t, wikidata.Strict, "property.json"), "json", false)

	again, _, err := wikidata.Parse(bytes.TrimSpace(out.Bytes()), wikidata.Strict)
	require.NoError(t, err)
	assert.Equal(t, wikidata.PID(31), again.ID)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    wikidata.Value
		want string
	}{
		{wikidata.EntityRef{ID: wikidata.Human}, "Q5"},
		{wikidata.MonolingualText{Language: "fr", Text: "bonjour"}, `"bonjour"@fr`},
		{wikidata.Quantity{Amount: "+3"}, "+3"},
		{wikidata.Quantity{Amount: "+3", Unit: wikidata.QID(123456789)}, "+3 Q123456789"},
		{wikidata.GlobeCoordinate{Latitude: 1.5, Longitude: -2, Globe: wikidata.Moon}, "1.5, -2 on Q405"},
		{wikidata.String("plain"), "plain"},
		{nil, "<nil>"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.v))
	}
}

func TestPrintStoredIssues(t *testing.T) {
	var buf bytes.Buffer
	printStoredIssues(&buf, []store.Issue{
		{Source: "a.json", EntityID: "Q1", Kind: "unknown rank", Location: "claims/P31[Q1$x]/rank"},
		{Source: "Q9", EntityID: "Q9", Kind: "load failed", Fatal: true},
	})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "warning  a.json Q1 unknown rank at claims/P31[Q1$x]/rank", lines[0])
	assert.Equal(t, "rejected Q9 load failed", lines[1])
}

func TestPrintKindCounts(t *testing.T) {
	var buf bytes.Buffer
	printKindCounts(&buf, map[string]int{"malformed date": 1, "unknown rank": 3, "datatype mismatch": 1})
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "unknown rank")
	assert.Contains(t, lines[1], "datatype mismatch")
	assert.Contains(t, lines[2], "malformed date")
}
