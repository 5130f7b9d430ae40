package maintenance

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"wikidatago/pkg/db"
	"wikidatago/pkg/store"
	"wikidatago/pkg/wikidata"
)

func TestMaintenance(t *testing.T) {
	// Setup DB
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "maint_test.db")
	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	// Insert old entry (40 days old)
	oldDeadline := time.Now().Add(-40 * 24 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	_, err = d.Exec("INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", "old-key", "old-val", oldDeadline)
	if err != nil {
		t.Fatal(err)
	}
	// Insert new entry (1 day old)
	newDeadline := time.Now().Add(-1 * 24 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	_, err = d.Exec("INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", "new-key", "new-val", newDeadline)
	if err != nil {
		t.Fatal(err)
	}

	// Three runs, an hour apart, each with one issue.
	for i := range 3 {
		id := fmt.Sprintf("run-%d", i)
		run := &store.Run{ID: id, Mode: wikidata.Lenient, StartedAt: time.Now().Add(time.Duration(i-3) * time.Hour)}
		if err := s.CreateRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		if err := s.SaveIssues(ctx, []store.Issue{{RunID: id, Kind: "unknown rank"}}); err != nil {
			t.Fatal(err)
		}
	}

	rep, err := Run(ctx, d, Options{CacheAge: 30 * 24 * time.Hour, KeepRuns: 2})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if rep.CacheEntries != 1 || rep.Runs != 1 || rep.Issues != 1 {
		t.Errorf("unexpected report: %+v", rep)
	}

	// Verify Pruning
	var count int
	if err := d.QueryRow("SELECT count(*) FROM cache WHERE key = ?", "new-key").Scan(&count); err != nil {
		t.Errorf("Failed to query cache count: %v", err)
	}
	if count != 1 {
		t.Error("New cache entry was incorrectly pruned")
	}

	if old, err := s.GetRun(ctx, "run-0"); err != nil || old != nil {
		t.Errorf("oldest run should be gone: %+v, %v", old, err)
	}
	issues, err := s.GetIssues(ctx, "run-2")
	if err != nil || len(issues) != 1 {
		t.Errorf("recent run lost its issues: %v, %v", issues, err)
	}

	// Zero options do nothing.
	rep, err = Run(ctx, d, Options{})
	if err != nil || rep != (Report{}) {
		t.Errorf("expected no-op, got %+v, %v", rep, err)
	}
}
