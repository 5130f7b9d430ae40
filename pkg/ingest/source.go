package ingest

import (
	"context"
	"fmt"
	"os"

	"wikidatago/pkg/store"
	"wikidatago/pkg/wikidata"
)

// Job is one unit of work: something that yields a record or an envelope of records.
type Job struct {
	Source string // reported with every issue, e.g. a path or an entity id
	Load   func(ctx context.Context) ([]byte, error)
}

// Source produces jobs until exhausted or until emit returns false.
type Source func(ctx context.Context, emit func(Job) bool) error

// Fetcher is the part of fetch.Client the runner needs.
type Fetcher interface {
	GetEntity(ctx context.Context, id wikidata.EntityID) ([]byte, error)
}

// Files reads each path as a single entity or an entities envelope.
func Files(paths ...string) Source {
	return func(_ context.Context, emit func(Job) bool) error {
		for _, path := range paths {
			job := Job{Source: path, Load: func(context.Context) ([]byte, error) {
				return os.ReadFile(path)
			}}
			if !emit(job) {
				return nil
			}
		}
		return nil
	}
}

// IDs fetches each id through f.
func IDs(f Fetcher, ids ...wikidata.EntityID) Source {
	return func(_ context.Context, emit func(Job) bool) error {
		for _, id := range ids {
			job := Job{Source: id.String(), Load: func(ctx context.Context) ([]byte, error) {
				return f.GetEntity(ctx, id)
			}}
			if !emit(job) {
				return nil
			}
		}
		return nil
	}
}

// BatchFetcher is the part of fetch.Client used by Batch.
type BatchFetcher interface {
	GetEntitiesBatch(ctx context.Context, ids []wikidata.EntityID) (map[wikidata.EntityID][]byte, error)
}

// Batch fetches all ids up front through wbgetentities and emits one job per
// id. Ids the API did not return fail to load.
func Batch(f BatchFetcher, ids ...wikidata.EntityID) Source {
	return func(ctx context.Context, emit func(Job) bool) error {
		raws, err := f.GetEntitiesBatch(ctx, ids)
		if err != nil {
			return fmt.Errorf("batch fetch: %w", err)
		}
		for _, id := range ids {
			raw, ok := raws[id]
			job := Job{Source: id.String(), Load: func(context.Context) ([]byte, error) {
				if !ok {
					return nil, fmt.Errorf("%s: no such entity", id)
				}
				return raw, nil
			}}
			if !emit(job) {
				return nil
			}
		}
		return nil
	}
}

// Stored re-reads raw entities saved by an earlier run. With no ids every
// stored entity is used.
func Stored(s store.EntityStore, ids ...wikidata.EntityID) Source {
	return func(ctx context.Context, emit func(Job) bool) error {
		list := ids
		if len(list) == 0 {
			all, err := s.ListEntityIDs(ctx, 0)
			if err != nil {
				return fmt.Errorf("list stored entities: %w", err)
			}
			list = all
		}
		for _, id := range list {
			job := Job{Source: "store:" + id.String(), Load: func(ctx context.Context) ([]byte, error) {
				rec, err := s.GetEntity(ctx, id)
				if err != nil {
					return nil, err
				}
				if rec == nil {
					return nil, fmt.Errorf("%s is not stored", id)
				}
				return rec.Raw, nil
			}}
			if !emit(job) {
				return nil
			}
		}
		return nil
	}
}

// Concat runs sources one after the other.
func Concat(sources ...Source) Source {
	return func(ctx context.Context, emit func(Job) bool) error {
		stopped := false
		for _, src := range sources {
			err := src(ctx, func(j Job) bool {
				if !emit(j) {
					stopped = true
					return false
				}
				return true
			})
			if err != nil || stopped {
				return err
			}
		}
		return nil
	}
}
