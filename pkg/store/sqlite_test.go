package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wikidatago/pkg/db"
	"wikidatago/pkg/wikidata"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	d, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}
	s := NewSQLiteStore(d)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore_Entities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	raw := []byte(`{"type":"item","id":"Q42","labels":{"en":{"language":"en","value":"Douglas Adams"}}}`)
	require.NoError(t, s.SaveEntity(ctx, &EntityRecord{ID: wikidata.QID(42), Raw: raw, LastRevID: 7}))
	require.NoError(t, s.SaveEntity(ctx, &EntityRecord{ID: wikidata.QID(5), Raw: []byte(`{"id":"Q5"}`)}))
	require.NoError(t, s.SaveEntity(ctx, &EntityRecord{ID: wikidata.PID(31), Raw: []byte(`{"id":"P31"}`)}))

	got, err := s.GetEntity(ctx, wikidata.QID(42))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, raw, got.Raw)
	assert.Equal(t, uint64(7), got.LastRevID)
	assert.WithinDuration(t, time.Now(), got.FetchedAt, time.Minute)

	missing, err := s.GetEntity(ctx, wikidata.QID(1))
	require.NoError(t, err)
	assert.Nil(t, missing)

	items, err := s.ListEntityIDs(ctx, wikidata.Item)
	require.NoError(t, err)
	assert.Equal(t, []wikidata.EntityID{wikidata.QID(5), wikidata.QID(42)}, items)

	all, err := s.ListEntityIDs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, s.DeleteEntity(ctx, wikidata.QID(5)))
	items, err = s.ListEntityIDs(ctx, wikidata.Item)
	require.NoError(t, err)
	assert.Equal(t, []wikidata.EntityID{wikidata.QID(42)}, items)

	assert.Error(t, s.SaveEntity(ctx, &EntityRecord{Raw: raw}))
}

func TestSQLiteStore_UncompressedRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.db.ExecContext(ctx, `INSERT INTO entities (id, kind, raw) VALUES ('Q9', 'item', ?)`, []byte(`{"id":"Q9"}`))
	require.NoError(t, err)

	got, err := s.GetEntity(ctx, wikidata.QID(9))
	require.NoError(t, err)
	assert.Equal(t, `{"id":"Q9"}`, string(got.Raw))
	assert.Zero(t, got.LastRevID)
}

func TestSQLiteStore_Runs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run := &Run{ID: "run-1", Mode: wikidata.Lenient, StartedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateRun(ctx, run))
	require.NoError(t, s.CreateRun(ctx, &Run{ID: "run-2", Mode: wikidata.Strict}))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, wikidata.Lenient, got.Mode)
	assert.True(t, got.FinishedAt.IsZero())

	run.Records, run.Failed, run.Issues = 10, 1, 3
	require.NoError(t, s.FinishRun(ctx, run))
	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 10, got.Records)
	assert.Equal(t, 1, got.Failed)
	assert.Equal(t, 3, got.Issues)
	assert.False(t, got.FinishedAt.IsZero())

	assert.Error(t, s.FinishRun(ctx, &Run{ID: "nope"}))

	unknown, err := s.GetRun(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, unknown)

	runs, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID, "newest first")
}

func TestSQLiteStore_Issues(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateRun(ctx, &Run{ID: "r", Mode: wikidata.Lenient}))

	issues := []Issue{
		{RunID: "r", EntityID: "Q1", Source: "a.json", Kind: wikidata.UnknownRank.String(), Location: "claims/P31[Q1$1]/rank", Message: "bad rank"},
		{RunID: "r", EntityID: "Q2", Source: "b.json", Kind: wikidata.MalformedDate.String(), Location: "claims/P569", Message: "bad date"},
		{RunID: "r", Source: "c.json", Kind: wikidata.MalformedJSON.String(), Message: "truncated", Fatal: true},
	}
	require.NoError(t, s.SaveIssues(ctx, issues))
	require.NoError(t, s.SaveIssues(ctx, nil))

	got, err := s.GetIssues(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, issues, got)

	counts, err := s.CountIssuesByKind(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"unknown rank": 1, "malformed date": 1, "malformed json": 1}, counts)

	none, err := s.GetIssues(ctx, "other")
	require.NoError(t, err)
	assert.Empty(t, none)
}
