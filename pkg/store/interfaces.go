package store

import (
	"context"
	"time"

	"wikidatago/pkg/wikidata"
)

// EntityRecord is a raw entity document as fetched or read from disk.
type EntityRecord struct {
	ID        wikidata.EntityID
	Raw       []byte
	LastRevID uint64
	FetchedAt time.Time
}

// EntityStore persists raw entity JSON so later runs can re-parse without the network.
type EntityStore interface {
	SaveEntity(ctx context.Context, rec *EntityRecord) error
	GetEntity(ctx context.Context, id wikidata.EntityID) (*EntityRecord, error)
	ListEntityIDs(ctx context.Context, kind wikidata.IDKind) ([]wikidata.EntityID, error)
	DeleteEntity(ctx context.Context, id wikidata.EntityID) error
}

// Run summarises one ingest run.
type Run struct {
	ID         string
	Mode       wikidata.Mode
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Records    int
	Failed     int
	Issues     int
}

// Issue is one persisted decode problem. Fatal issues rejected their record.
type Issue struct {
	RunID    string
	EntityID string // may be empty when the record had no usable id
	Source   string // file path or entity URL
	Kind     string
	Location string
	Message  string
	Fatal    bool
}

// IssueStore persists ingest runs and the decode issues they collected.
type IssueStore interface {
	CreateRun(ctx context.Context, run *Run) error
	FinishRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	SaveIssues(ctx context.Context, issues []Issue) error
	GetIssues(ctx context.Context, runID string) ([]Issue, error)
	CountIssuesByKind(ctx context.Context, runID string) (map[string]int, error)
}
