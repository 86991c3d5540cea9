// Package session runs generation requests one at a time. A new request
// cancels the one in flight, and only a request that completes without
// being superseded replaces the current asset.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"compositor/models"
	"compositor/player"
)

// Outcome is how a generation request ended.
type Outcome int

const (
	OutcomeSucceeded Outcome = iota
	OutcomeFailed
	OutcomeCancelled
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Request asks for one generation.
type Request struct {
	// ID is assigned by the store.
	ID     string
	Source string
	Output string
}

// Result reports one request. Asset is set only when Outcome is
// OutcomeSucceeded; Err only when it is OutcomeFailed.
type Result struct {
	ID      string
	Outcome Outcome
	Asset   *models.ComposedAsset
	Err     error
}

// Generator does the work for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (*models.ComposedAsset, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (*models.ComposedAsset, error)

func (f GeneratorFunc) Generate(ctx context.Context, req Request) (*models.ComposedAsset, error) {
	return f(ctx, req)
}

// Stager is a Generator whose output becomes visible in a separate step.
// The store calls Stage instead of Generate, then Commit under its lock for
// a request that is still the active one, and Discard for any other staged
// asset. Commit must not block on the store.
type Stager interface {
	Generator
	Stage(ctx context.Context, req Request) (*models.ComposedAsset, error)
	Commit(req Request, asset *models.ComposedAsset) error
	Discard(req Request, asset *models.ComposedAsset)
}

// State is the session's shared state.
type State struct {
	// Current is the last successfully generated asset.
	Current *models.ComposedAsset
	// Generation counts successful replacements of Current.
	Generation uint64
	// Active is the id of the request in flight, if any.
	Active string
}

// Store owns the session state.
type Store struct {
	gen       Generator
	presenter player.Presenter
	logger    *slog.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	presentMu sync.Mutex
}

// NewStore creates a Store. presenter may be nil.
func NewStore(gen Generator, presenter player.Presenter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{gen: gen, presenter: presenter, logger: logger}
}

// State returns a snapshot of the session state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the current asset, or nil before the first success.
func (s *Store) Current() *models.ComposedAsset {
	return s.State().Current
}

// Generate runs req, cancelling any request already in flight, and blocks
// until it ends.
func (s *Store) Generate(ctx context.Context, req Request) Result {
	s.wg.Add(1)
	defer s.wg.Done()
	return s.generate(ctx, req)
}

// Start runs req in the background. The returned channel receives exactly
// one Result.
func (s *Store) Start(ctx context.Context, req Request) <-chan Result {
	out := make(chan Result, 1)

	// Register before returning so a following Start supersedes this one.
	s.wg.Add(1)
	runCtx, id := s.begin(ctx)
	go func() {
		defer s.wg.Done()
		out <- s.run(ctx, runCtx, id, req)
	}()
	return out
}

// Cancel stops the request in flight, if any.
func (s *Store) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every started request has ended.
func (s *Store) Wait() {
	s.wg.Wait()
}

// Close cancels the request in flight and waits for it.
func (s *Store) Close() error {
	s.Cancel()
	s.Wait()
	return nil
}

func (s *Store) generate(ctx context.Context, req Request) Result {
	runCtx, id := s.begin(ctx)
	return s.run(ctx, runCtx, id, req)
}

func (s *Store) begin(ctx context.Context) (context.Context, string) {
	id := uuid.NewString()
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.logger.InfoContext(ctx, "superseding request", "previous", s.state.Active, "next", id)
		s.cancel()
	}
	s.cancel = cancel
	s.state.Active = id
	s.mu.Unlock()

	return runCtx, id
}

func (s *Store) run(parent, runCtx context.Context, id string, req Request) Result {
	req.ID = id
	log := s.logger.With("request_id", id)
	log.InfoContext(runCtx, "generation started", "source", req.Source)

	stager, staged := s.gen.(Stager)
	var (
		asset *models.ComposedAsset
		err   error
	)
	if staged {
		asset, err = stager.Stage(runCtx, req)
	} else {
		asset, err = s.gen.Generate(runCtx, req)
	}

	s.mu.Lock()
	superseded := s.state.Active != id
	cancelled := runCtx.Err() != nil
	if !superseded {
		s.cancel()
		s.cancel = nil
		s.state.Active = ""
	}

	res := Result{ID: id}
	switch {
	case superseded:
		res.Outcome = OutcomeSuperseded
	case err == nil && asset == nil:
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("generator returned no asset")
	case err == nil && staged && cancelled:
		res.Outcome = OutcomeCancelled
	case err == nil && staged:
		if cerr := stager.Commit(req, asset); cerr != nil {
			res.Outcome = OutcomeFailed
			res.Err = cerr
			break
		}
		res.Outcome = OutcomeSucceeded
	case err == nil:
		res.Outcome = OutcomeSucceeded
	case parent.Err() != nil || errors.Is(err, context.Canceled):
		res.Outcome = OutcomeCancelled
	default:
		res.Outcome = OutcomeFailed
		res.Err = err
	}
	if res.Outcome == OutcomeSucceeded {
		res.Asset = asset
		s.state.Current = asset
		s.state.Generation++
	}
	generation := s.state.Generation
	s.mu.Unlock()

	if staged && asset != nil && res.Outcome != OutcomeSucceeded && res.Outcome != OutcomeFailed {
		stager.Discard(req, asset)
	}

	switch res.Outcome {
	case OutcomeSucceeded:
		log.InfoContext(parent, "generation succeeded", "path", asset.Path, "generation", generation)
		s.present(parent, asset, generation)
	case OutcomeFailed:
		log.ErrorContext(parent, "generation failed", "error", res.Err)
	default:
		log.InfoContext(parent, "generation ended", "outcome", res.Outcome.String())
	}
	return res
}

// present hands asset to the presenter unless a newer success has already
// replaced it.
func (s *Store) present(ctx context.Context, asset *models.ComposedAsset, generation uint64) {
	if s.presenter == nil {
		return
	}
	s.presentMu.Lock()
	defer s.presentMu.Unlock()

	if s.State().Generation != generation {
		return
	}
	if err := s.presenter.Present(ctx, asset); err != nil {
		s.logger.WarnContext(ctx, "presenter failed", "path", asset.Path, "error", err)
	}
}
