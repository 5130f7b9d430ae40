package store

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"wikidatago/pkg/db"
	"wikidatago/pkg/wikidata"
)

// Store defines the repository interface.
// Consumers should depend on the sub-interfaces when possible.
type Store interface {
	EntityStore
	IssueStore

	// Close closes the store connection.
	Close() error
}

// SQLiteStore implements Store.
type SQLiteStore struct {
	db *db.DB
}

// NewSQLiteStore creates a new store.
func NewSQLiteStore(d *db.DB) *SQLiteStore {
	return &SQLiteStore{db: d}
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Entities ---

func (s *SQLiteStore) SaveEntity(ctx context.Context, rec *EntityRecord) error {
	if rec.ID.IsZero() {
		return errors.New("save entity: empty id")
	}
	raw, err := compress(rec.Raw)
	if err != nil {
		return fmt.Errorf("compress %s: %w", rec.ID, err)
	}
	fetched := rec.FetchedAt
	if fetched.IsZero() {
		fetched = time.Now()
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO entities (id, kind, raw, lastrevid, fetched_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID.String(), rec.ID.Kind.String(), raw, int64(rec.LastRevID), fetched.UTC())
	return err
}

// GetEntity returns nil, nil when the entity is not stored.
func (s *SQLiteStore) GetEntity(ctx context.Context, id wikidata.EntityID) (*EntityRecord, error) {
	var (
		raw     []byte
		revID   sql.NullInt64
		fetched time.Time
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT raw, lastrevid, fetched_at FROM entities WHERE id = ?`, id.String()).Scan(&raw, &revID, &fetched)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	// SaveEntity always compresses; rows loaded by other tools may hold plain JSON.
	if isGzip(raw) {
		if raw, err = decompress(raw); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", id, err)
		}
	}
	rec := &EntityRecord{ID: id, Raw: raw, FetchedAt: fetched}
	if revID.Valid {
		rec.LastRevID = uint64(revID.Int64)
	}
	return rec, nil
}

// ListEntityIDs returns stored ids of one kind, or of every kind for 0, in id order.
func (s *SQLiteStore) ListEntityIDs(ctx context.Context, kind wikidata.IDKind) ([]wikidata.EntityID, error) {
	query := `SELECT id FROM entities ORDER BY kind, length(id), id`
	var args []any
	if kind != 0 {
		query = `SELECT id FROM entities WHERE kind = ? ORDER BY length(id), id`
		args = append(args, kind.String())
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []wikidata.EntityID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := wikidata.ParseEntityID(raw)
		if err != nil {
			return nil, fmt.Errorf("stored id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) DeleteEntity(ctx context.Context, id wikidata.EntityID) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM entities WHERE id = ?", id.String())
	return err
}

// --- Compression Pooling ---

var (
	// Pool for gzip writers to reuse flate state
	gzipWriterPool = sync.Pool{
		New: func() interface{} {
			return gzip.NewWriter(io.Discard)
		},
	}
	// Pool for generic byte buffers
	bufferPool = sync.Pool{
		New: func() interface{} {
			return new(bytes.Buffer)
		},
	}
)

func isGzip(b []byte) bool {
	return len(b) > 2 && b[0] == 0x1f && b[1] == 0x8b
}

func compress(data []byte) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer bufferPool.Put(buf)

	w := gzipWriterPool.Get().(*gzip.Writer)
	defer gzipWriterPool.Put(w)
	w.Reset(buf)

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	// Must copy because buf is returned to pool
	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

func decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// --- Ingest runs ---

func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, mode, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Mode.String(), run.StartedAt.UTC())
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *Run) error {
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET finished_at = ?, records = ?, failed = ?, issues = ? WHERE id = ?`,
		run.FinishedAt.UTC(), run.Records, run.Failed, run.Issues, run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run %s: no such run", run.ID)
	}
	return nil
}

const runColumns = `id, mode, started_at, finished_at, records, failed, issues`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r        Run
		mode     string
		finished sql.NullTime
	)
	if err := row.Scan(&r.ID, &mode, &r.StartedAt, &finished, &r.Records, &r.Failed, &r.Issues); err != nil {
		return nil, err
	}
	m, err := wikidata.ParseMode(mode)
	if err != nil {
		return nil, err
	}
	r.Mode = m
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return &r, nil
}

// GetRun returns nil, nil for an unknown id.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	r, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM ingest_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// --- Issues ---

func (s *SQLiteStore) SaveIssues(ctx context.Context, issues []Issue) error {
	if len(issues) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO ingest_issues (run_id, entity_id, source, kind, location, message, fatal) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range issues {
		is := &issues[i]
		if _, err := stmt.ExecContext(ctx, is.RunID, is.EntityID, is.Source, is.Kind, is.Location, is.Message, is.Fatal); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetIssues returns a run's issues in the order they were saved.
func (s *SQLiteStore) GetIssues(ctx context.Context, runID string) ([]Issue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, entity_id, source, kind, location, message, fatal FROM ingest_issues WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Issue
	for rows.Next() {
		var (
			is                          Issue
			entityID, source, loc, msg sql.NullString
		)
		if err := rows.Scan(&is.RunID, &entityID, &source, &is.Kind, &loc, &msg, &is.Fatal); err != nil {
			return nil, err
		}
		is.EntityID, is.Source, is.Location, is.Message = entityID.String, source.String, loc.String, msg.String
		out = append(out, is)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) CountIssuesByKind(ctx context.Context, runID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, count(*) FROM ingest_issues WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			kind string
			n    int
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, err
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}
