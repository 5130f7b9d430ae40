package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikidatago/pkg/db"
	"wikidatago/pkg/store"
	"wikidatago/pkg/tracker"
	"wikidatago/pkg/wikidata"
)

const (
	goodItem = `{"type":"item","id":"Q1","labels":{"en":{"language":"en","value":"universe"}},"claims":{}}`
	// The second P31 claim has an unknown rank.
	badRankItem = `{"type":"item","id":"Q2","claims":{"P31":[
		{"mainsnak":{"snaktype":"value","property":"P31","datatype":"wikibase-item","datavalue":{"value":{"entity-type":"item","numeric-id":5,"id":"Q5"},"type":"wikibase-entityid"}},"id":"Q2$a","rank":"normal"},
		{"mainsnak":{"snaktype":"value","property":"P31","datatype":"wikibase-item","datavalue":{"value":{"entity-type":"item","numeric-id":5,"id":"Q5"},"type":"wikibase-entityid"}},"id":"Q2$b","rank":"top"}]}}`
)

type fixture struct {
	store   *store.SQLiteStore
	tracker *tracker.Tracker
	dir     string
	runs    int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "ingest.db"))
	require.NoError(t, err)
	s := store.NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return &fixture{store: s, tracker: tracker.New(), dir: t.TempDir()}
}

func (f *fixture) write(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func (f *fixture) runner(mode wikidata.Mode, opts Options) *Runner {
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts.Logger = quiet
	p := wikidata.NewParser(wikidata.Options{Mode: mode, Logger: quiet})
	r := NewRunner(p, f.store, f.store, f.tracker, opts)
	r.newID = func() string { f.runs++; return fmt.Sprintf("run-%d", f.runs) }
	return r
}

func TestRun_Lenient(t *testing.T) {
	f := newFixture(t)
	files := []string{
		f.write(t, "good.json", goodItem),
		f.write(t, "rank.json", badRankItem),
		f.write(t, "broken.json", `{"id":"Q3",`),
		filepath.Join(f.dir, "absent.json"),
	}

	var mu sync.Mutex
	var accepted []string
	r := f.runner(wikidata.Lenient, Options{Workers: 3, StoreRaw: true, OnEntity: func(_ string, e *wikidata.Entity) {
		mu.Lock()
		defer mu.Unlock()
		accepted = append(accepted, e.ID.String())
	}})

	run, err := r.Run(context.Background(), Files(files...))
	require.NoError(t, err)
	assert.Equal(t, "run-1", run.ID)
	assert.Equal(t, 4, run.Records)
	assert.Equal(t, 2, run.Failed)
	assert.Equal(t, 3, run.Issues)
	assert.ElementsMatch(t, []string{"Q1", "Q2"}, accepted)

	ctx := context.Background()
	issues, err := f.store.GetIssues(ctx, run.ID)
	require.NoError(t, err)
	byKind := map[string]store.Issue{}
	for _, is := range issues {
		byKind[is.Kind] = is
	}
	rank := byKind[wikidata.UnknownRank.String()]
	assert.Equal(t, "Q2", rank.EntityID)
	assert.Equal(t, "claims/P31[Q2$b]/rank", rank.Location)
	assert.False(t, rank.Fatal)
	assert.True(t, byKind[wikidata.MalformedJSON.String()].Fatal)
	assert.True(t, byKind[KindLoadFailed].Fatal)

	stored, err := f.store.ListEntityIDs(ctx, wikidata.Item)
	require.NoError(t, err)
	assert.Equal(t, []wikidata.EntityID{wikidata.QID(1), wikidata.QID(2)}, stored)

	persisted, err := f.store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, persisted.Records)
	assert.False(t, persisted.FinishedAt.IsZero())

	stats := f.tracker.DecodeSnapshot()
	assert.Equal(t, int64(2), stats.Parsed)
	assert.Equal(t, int64(2), stats.Rejected)
}

func TestRun_StrictRejectsWholeRecord(t *testing.T) {
	f := newFixture(t)
	r := f.runner(wikidata.Strict, Options{Workers: 2})

	run, err := r.Run(context.Background(), Files(f.write(t, "good.json", goodItem), f.write(t, "rank.json", badRankItem)))
	require.NoError(t, err)
	assert.Equal(t, wikidata.Strict, run.Mode)
	assert.Equal(t, 1, run.Failed)

	issues, err := f.store.GetIssues(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.True(t, issues[0].Fatal)
	assert.Equal(t, wikidata.UnknownRank.String(), issues[0].Kind)
}

func TestRun_StopOnError(t *testing.T) {
	f := newFixture(t)
	r := f.runner(wikidata.Strict, Options{Workers: 1, StopOnError: true})

	var paths []string
	paths = append(paths, f.write(t, "bad.json", `nope`))
	for i := range 5 {
		paths = append(paths, f.write(t, fmt.Sprintf("good%d.json", i), goodItem))
	}

	run, err := r.Run(context.Background(), Files(paths...))
	assert.ErrorIs(t, err, ErrStopped)
	require.NotNil(t, run)
	assert.Less(t, run.Records, len(paths))

	persisted, gerr := f.store.GetRun(context.Background(), run.ID)
	require.NoError(t, gerr)
	assert.False(t, persisted.FinishedAt.IsZero())
}

func TestRun_Envelope(t *testing.T) {
	f := newFixture(t)
	env := `{"entities":{"Q1":` + goodItem + `,"Q404":{"id":"Q404","missing":""}}}`
	r := f.runner(wikidata.Lenient, Options{StoreRaw: true})

	run, err := r.Run(context.Background(), Files(f.write(t, "env.json", env)))
	require.NoError(t, err)
	assert.Equal(t, 2, run.Records)
	assert.Equal(t, 1, run.Failed)

	rec, err := f.store.GetEntity(context.Background(), wikidata.QID(1))
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.JSONEq(t, goodItem, string(rec.Raw), "stored without the envelope")
}

type fakeFetcher map[wikidata.EntityID]string

func (ff fakeFetcher) GetEntity(_ context.Context, id wikidata.EntityID) ([]byte, error) {
	if raw, ok := ff[id]; ok {
		return []byte(raw), nil
	}
	return nil, errors.New("entity not found")
}

func (ff fakeFetcher) GetEntitiesBatch(_ context.Context, ids []wikidata.EntityID) (map[wikidata.EntityID][]byte, error) {
	out := make(map[wikidata.EntityID][]byte)
	for _, id := range ids {
		if raw, ok := ff[id]; ok {
			out[id] = []byte(raw)
		}
	}
	return out, nil
}

func TestRun_Batch(t *testing.T) {
	f := newFixture(t)
	ff := fakeFetcher{wikidata.QID(1): goodItem}
	r := f.runner(wikidata.Strict, Options{Workers: 2})

	run, err := r.Run(context.Background(), Batch(ff, wikidata.QID(1), wikidata.QID(9)))
	require.NoError(t, err)
	assert.Equal(t, 2, run.Records)
	assert.Equal(t, 1, run.Failed)

	issues, err := f.store.GetIssues(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "Q9", issues[0].Source)
	assert.Equal(t, KindLoadFailed, issues[0].Kind)
}

func TestRun_FetchAndStored(t *testing.T) {
	f := newFixture(t)
	ff := fakeFetcher{wikidata.QID(1): goodItem, wikidata.QID(2): badRankItem}
	r := f.runner(wikidata.Lenient, Options{Workers: 2, StoreRaw: true})

	run, err := r.Run(context.Background(), IDs(ff, wikidata.QID(1), wikidata.QID(2), wikidata.QID(9)))
	require.NoError(t, err)
	assert.Equal(t, 3, run.Records)
	assert.Equal(t, 1, run.Failed)

	issues, err := f.store.GetIssues(context.Background(), run.ID)
	require.NoError(t, err)
	var sources []string
	for _, is := range issues {
		sources = append(sources, is.Source)
	}
	assert.ElementsMatch(t, []string{"Q2", "Q9"}, sources)

	// Re-parse what the first run stored, strictly this time.
	strict := f.runner(wikidata.Strict, Options{})
	rerun, err := strict.Run(context.Background(), Stored(f.store))
	require.NoError(t, err)
	assert.Equal(t, 2, rerun.Records)
	assert.Equal(t, 1, rerun.Failed, "Q2 was stored raw, so its bad rank is seen again")
}

func TestConcat_StopsEarly(t *testing.T) {
	src := Concat(Files("a", "b"), Files("c"))
	var seen []string
	err := src(context.Background(), func(j Job) bool {
		seen = append(seen, j.Source)
		return len(seen) < 2
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}
