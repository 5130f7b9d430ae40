package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"wikidatago/pkg/db"
)

// Options controls what Run removes. Zero values skip the step.
type Options struct {
	CacheAge time.Duration // drop cached responses older than this
	KeepRuns int           // keep this many most recent ingest runs and their issues
}

// Report says how many rows each step removed.
type Report struct {
	CacheEntries int64
	Runs         int64
	Issues       int64
}

// Run executes all maintenance tasks. It blocks until completion and stops at
// the first failing step.
func Run(ctx context.Context, d *db.DB, opts Options) (Report, error) {
	var rep Report
	slog.Info("Starting database maintenance...")

	if opts.CacheAge > 0 {
		n, err := d.PruneCache(opts.CacheAge)
		if err != nil {
			return rep, fmt.Errorf("cache pruning failed: %w", err)
		}
		rep.CacheEntries = n
		slog.Info("Cache pruning completed", "removed", n)
	}

	if opts.KeepRuns > 0 {
		runs, issues, err := pruneRuns(ctx, d, opts.KeepRuns)
		if err != nil {
			return rep, fmt.Errorf("run pruning failed: %w", err)
		}
		rep.Runs, rep.Issues = runs, issues
		slog.Info("Run pruning completed", "runs", runs, "issues", issues)
	}

	return rep, nil
}

// pruneRuns deletes every ingest run older than the keep most recent ones,
// issues first.
func pruneRuns(ctx context.Context, d *db.DB, keep int) (runs, issues int64, err error) {
	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	const stale = `SELECT id FROM ingest_runs ORDER BY started_at DESC LIMIT -1 OFFSET ?`

	res, err := tx.ExecContext(ctx, `DELETE FROM ingest_issues WHERE run_id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, 0, err
	}
	issues, _ = res.RowsAffected()

	res, err = tx.ExecContext(ctx, `DELETE FROM ingest_runs WHERE id IN (`+stale+`)`, keep)
	if err != nil {
		return 0, 0, err
	}
	runs, _ = res.RowsAffected()

	return runs, issues, tx.Commit()
}
