// Package ingest parses many entity records concurrently and keeps a
// persistent record of what went wrong.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	"wikidatago/pkg/logging"
	"wikidatago/pkg/store"
	"wikidatago/pkg/tracker"
	"wikidatago/pkg/wikidata"
)

// KindLoadFailed marks issues for records that could not be read or fetched.
const KindLoadFailed = "load failed"

// ErrStopped is returned when StopOnError aborted a run.
var ErrStopped = errors.New("ingest stopped on first rejected record")

// Options tunes a Runner.
type Options struct {
	Workers     int  // concurrent records, default 1
	StopOnError bool // abort the run on the first rejected record
	StoreRaw    bool // save accepted records' raw JSON to the entity store
	Logger      *slog.Logger

	// OnEntity, when set, is called from worker goroutines for each accepted entity.
	OnEntity func(source string, e *wikidata.Entity)
}

// Runner drives one Parser over a Source.
type Runner struct {
	parser   *wikidata.Parser
	entities store.EntityStore
	issues   store.IssueStore
	tracker  *tracker.Tracker
	opts     Options
	logger   *slog.Logger
	newID    func() string
}

// NewRunner creates a Runner. entities may be nil when Options.StoreRaw is off.
func NewRunner(p *wikidata.Parser, entities store.EntityStore, issues store.IssueStore, t *tracker.Tracker, opts Options) *Runner {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if t == nil {
		t = tracker.New()
	}
	return &Runner{
		parser:   p,
		entities: entities,
		issues:   issues,
		tracker:  t,
		opts:     opts,
		logger:   opts.Logger.With("component", "ingest"),
		newID:    uuid.NewString,
	}
}

// runState accumulates counters for one run.
type runState struct {
	mu  sync.Mutex
	run store.Run
}

func (s *runState) add(accepted bool, issues int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run.Records++
	if !accepted {
		s.run.Failed++
	}
	s.run.Issues += issues
}

// Run processes every job of src and returns the finished run. The run and
// its issues are persisted even when the run is cut short; the returned error
// then says why.
func (r *Runner) Run(ctx context.Context, src Source) (*store.Run, error) {
	state := &runState{run: store.Run{ID: r.newID(), Mode: r.parser.Mode(), StartedAt: time.Now()}}
	if err := r.issues.CreateRun(ctx, &state.run); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}
	r.logger.Info("Ingest started", "run", state.run.ID, "mode", state.run.Mode, "workers", r.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

	srcErr := src(gctx, func(j Job) bool {
		if gctx.Err() != nil {
			return false
		}
		g.Go(func() error {
			return r.process(gctx, state, j)
		})
		return true
	})
	runErr := g.Wait()
	if runErr == nil {
		runErr = srcErr
	}
	if runErr == nil {
		runErr = ctx.Err()
	}

	state.run.FinishedAt = time.Now()
	// The parent context may be gone; finishing the run must still land.
	if err := r.issues.FinishRun(context.WithoutCancel(ctx), &state.run); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("finish run: %w", err))
	}

	r.logger.Info("Ingest finished",
		"run", state.run.ID,
		"records", state.run.Records,
		"failed", state.run.Failed,
		"issues", state.run.Issues,
		"duration", state.run.FinishedAt.Sub(state.run.StartedAt).Round(time.Millisecond))
	return &state.run, runErr
}

// process handles one job. It returns an error only to abort the whole run.
func (r *Runner) process(ctx context.Context, state *runState, j Job) error {
	data, err := j.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.logger.Warn("Record could not be loaded", "source", j.Source, "error", err)
		r.tracker.TrackRejected(KindLoadFailed)
		state.add(false, 1)
		issue := store.Issue{RunID: state.run.ID, Source: j.Source, Kind: KindLoadFailed, Message: err.Error(), Fatal: true}
		if serr := r.issues.SaveIssues(ctx, []store.Issue{issue}); serr != nil {
			return fmt.Errorf("save issues: %w", serr)
		}
		return r.stop()
	}

	results, err := r.parser.ParseAll(data)
	if err != nil {
		results = []wikidata.Result{{Raw: data, Err: err}}
	}

	for i := range results {
		if err := r.handle(ctx, state, j.Source, &results[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) handle(ctx context.Context, state *runState, source string, res *wikidata.Result) error {
	entityID := gjson.GetBytes(res.Raw, "id").Str
	var issues []store.Issue

	if res.Err != nil {
		kind := KindLoadFailed
		var de *wikidata.DecodeError
		if errors.As(res.Err, &de) {
			kind = de.Kind.String()
		}
		r.tracker.TrackRejected(kind)
		r.logger.Debug("Record rejected", "source", source, "id", entityID, "error", res.Err)
		issues = append(issues, toIssue(state.run.ID, entityID, source, res.Err, true))
	} else {
		kinds := make([]string, 0, len(res.Issues))
		for _, de := range res.Issues {
			kinds = append(kinds, de.Kind.String())
			issues = append(issues, toIssue(state.run.ID, entityID, source, de, false))
		}
		r.tracker.TrackParsed(kinds...)
		logging.Trace(r.logger, "Record parsed", "source", source, "id", entityID, "issues", len(res.Issues))

		if r.opts.StoreRaw && r.entities != nil {
			rec := &store.EntityRecord{ID: res.Entity.ID, Raw: res.Raw, LastRevID: res.Entity.LastRevID, FetchedAt: time.Now()}
			if err := r.entities.SaveEntity(ctx, rec); err != nil {
				return fmt.Errorf("save %s: %w", res.Entity.ID, err)
			}
		}
		if r.opts.OnEntity != nil {
			r.opts.OnEntity(source, res.Entity)
		}
	}

	state.add(res.Err == nil, len(issues))
	if err := r.issues.SaveIssues(ctx, issues); err != nil {
		return fmt.Errorf("save issues: %w", err)
	}
	if res.Err != nil {
		return r.stop()
	}
	return nil
}

func (r *Runner) stop() error {
	if r.opts.StopOnError {
		return ErrStopped
	}
	return nil
}

func toIssue(runID, entityID, source string, err error, fatal bool) store.Issue {
	is := store.Issue{RunID: runID, EntityID: entityID, Source: source, Message: err.Error(), Fatal: fatal}
	var de *wikidata.DecodeError
	if errors.As(err, &de) {
		is.Kind = de.Kind.String()
		is.Location = de.Location.String()
	} else {
		is.Kind = KindLoadFailed
	}
	return is
}
