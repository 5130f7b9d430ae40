package cli

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"wikidatago/pkg/store"
	"wikidatago/pkg/tracker"
	"wikidatago/pkg/wikidata"
)

var (
	errColor  = color.New(color.FgRed)
	warnColor = color.New(color.FgYellow)
	idColor   = color.New(color.FgCyan)
	dimColor  = color.New(color.Faint)
	okColor   = color.New(color.FgGreen)
)

// summaryLangs is the label fallback chain used in summaries.
var summaryLangs = []string{"en", "mul"}

// printEntity writes a short human-readable summary of e.
func printEntity(w io.Writer, e *wikidata.Entity) {
	idColor.Fprint(w, e.ID)
	if label, ok := e.Label(summaryLangs...); ok {
		fmt.Fprintf(w, " %s", label)
	} else if k := e.Labels.Keys(); len(k) > 0 {
		label, _ := e.Labels.Get(k[0])
		fmt.Fprintf(w, " %s (%s)", label, k[0])
	}
	if e.IsProperty() {
		dimColor.Fprintf(w, " [%s]", e.Datatype)
	}
	fmt.Fprintln(w)

	if desc, ok := e.Description(summaryLangs...); ok {
		fmt.Fprintf(w, "  %s\n", desc)
	}
	if inst := e.Instances(); len(inst) > 0 {
		fmt.Fprintf(w, "  instance of: %s\n", joinIDs(inst))
	}
	if t, ok := e.StartTime(); ok {
		fmt.Fprintf(w, "  start: %s\n", formatValue(t))
	}
	if t, ok := e.EndTime(); ok {
		fmt.Fprintf(w, "  end: %s\n", formatValue(t))
	}

	claims := 0
	for _, cs := range e.Claims.All() {
		claims += len(cs)
	}
	fmt.Fprintf(w, "  %d labels, %d descriptions, %d properties, %d claims, %d sitelinks\n",
		e.Labels.Len(), e.Descriptions.Len(), e.Claims.Len(), claims, e.Sitelinks.Len())
}

// printClaims lists every claim's main snak, one per line.
func printClaims(w io.Writer, e *wikidata.Entity) {
	for pid, cs := range e.Claims.All() {
		for _, c := range cs {
			fmt.Fprintf(w, "  %s ", pid)
			switch c.Rank {
			case wikidata.RankPreferred:
				okColor.Fprint(w, "★ ")
			case wikidata.RankDeprecated:
				dimColor.Fprint(w, "✗ ")
			}
			fmt.Fprint(w, formatSnak(c.MainSnak))
			if n := c.Qualifiers.Len(); n > 0 {
				dimColor.Fprintf(w, " (+%d qualifiers)", n)
			}
			if n := len(c.References); n > 0 {
				dimColor.Fprintf(w, " [%d refs]", n)
			}
			fmt.Fprintln(w)
		}
	}
}

func formatSnak(s wikidata.Snak) string {
	switch s.Type {
	case wikidata.SnakSomeValue:
		return "<some value>"
	case wikidata.SnakNoValue:
		return "<no value>"
	}
	return formatValue(s.Value)
}

// formatValue renders a value the way the Wikidata UI roughly would.
func formatValue(v wikidata.Value) string {
	switch v := v.(type) {
	case wikidata.EntityRef:
		return v.ID.String()
	case wikidata.MonolingualText:
		return strconv.Quote(v.Text) + "@" + v.Language
	case wikidata.Quantity:
		s := v.Amount.String()
		if !v.Dimensionless() {
			if suffix, ok := wikidata.UnitSuffix(v.Unit); ok {
				s += " " + suffix
			} else {
				s += " " + v.Unit.String()
			}
		}
		return s
	case wikidata.Time:
		s := v.Timestamp()
		if v.Calendar == wikidata.Julian {
			s += " (Julian)"
		}
		return s + " /" + v.Precision.String()
	case wikidata.GlobeCoordinate:
		s := strconv.FormatFloat(v.Latitude, 'f', -1, 64) + ", " + strconv.FormatFloat(v.Longitude, 'f', -1, 64)
		if v.Globe != wikidata.Earth {
			s += " on " + v.Globe.String()
		}
		return s
	case nil:
		return "<nil>"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func joinIDs(ids []wikidata.EntityID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return strings.Join(parts, ", ")
}

// printDecodeIssues writes lenient-mode issues in yellow.
func printDecodeIssues(w io.Writer, issues []*wikidata.DecodeError) {
	for _, de := range issues {
		warnColor.Fprintf(w, "  warning: %s", de.Kind)
		fmt.Fprintf(w, " at %s: %s\n", de.Location, de.Error())
	}
}

// printStoredIssues writes persisted issues; fatal ones in red.
func printStoredIssues(w io.Writer, issues []store.Issue) {
	for _, is := range issues {
		c := warnColor
		label := "warning"
		if is.Fatal {
			c, label = errColor, "rejected"
		}
		c.Fprintf(w, "%-8s ", label)
		fmt.Fprintf(w, "%s", is.Source)
		if is.EntityID != "" && is.EntityID != is.Source {
			idColor.Fprintf(w, " %s", is.EntityID)
		}
		fmt.Fprintf(w, " %s", is.Kind)
		if is.Location != "" {
			dimColor.Fprintf(w, " at %s", is.Location)
		}
		fmt.Fprintln(w)
	}
}

func printRun(w io.Writer, r *store.Run) {
	idColor.Fprintf(w, "%s", shortID(r.ID))
	fmt.Fprintf(w, " %s %s", r.StartedAt.Local().Format("2006-01-02 15:04:05"), r.Mode)
	if r.FinishedAt.IsZero() {
		warnColor.Fprint(w, " (unfinished)")
	}
	fmt.Fprintf(w, " records=%d", r.Records)
	if r.Failed > 0 {
		errColor.Fprintf(w, " rejected=%d", r.Failed)
	} else {
		fmt.Fprint(w, " rejected=0")
	}
	fmt.Fprintf(w, " issues=%d\n", r.Issues)
}

// printStats writes per-provider HTTP counters and decode outcomes.
func printStats(w io.Writer, tr *tracker.Tracker) {
	snap := tr.Snapshot()
	providers := make([]string, 0, len(snap))
	for p := range snap {
		providers = append(providers, p)
	}
	slices.Sort(providers)
	for _, p := range providers {
		s := snap[p]
		dimColor.Fprintf(w, "%s: %d requests (%d failed), cache %d hits / %d misses\n",
			p, s.APISuccess+s.APIFailures, s.APIFailures, s.CacheHits, s.CacheMisses)
	}

	d := tr.DecodeSnapshot()
	dimColor.Fprintf(w, "decoded %d, rejected %d\n", d.Parsed, d.Rejected)
}
