// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package engine composes the personalization components behind one
// facade: profile building, content-based scoring, learned-scorer
// prediction and training, and the real-time learning loop. The engine
// owns the rating list and the current profile; collaborators (catalog
// lookup, persistence) are injected.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/cache"
	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/config"
	"github.com/cinelens/cinelens/internal/learning"
	"github.com/cinelens/cinelens/internal/neural"
	"github.com/cinelens/cinelens/internal/profile"
	"github.com/cinelens/cinelens/internal/scoring"
	"github.com/cinelens/cinelens/internal/store"
)

// trainTimeout bounds a background training run triggered by the
// learning loop.
const trainTimeout = 2 * time.Minute

// Engine is the personalization engine facade. All methods are safe for
// concurrent use.
type Engine struct {
	cfg    *config.Config
	st     *store.Store
	logger zerolog.Logger

	builder *profile.Builder
	scorer  *scoring.Scorer
	neural  *neural.Scorer
	loop    *learning.Loop

	// mu guards the rating list and current profile.
	mu      sync.Mutex
	ratings []profile.Rating
	profile *profile.UserProfile

	// trainInFlight coalesces background retrains: a trigger while one
	// is running is dropped, not queued.
	trainInFlight atomic.Bool
	wg            sync.WaitGroup
}

// New builds an engine over the injected catalog lookup and store.
// The lookup is wrapped with a circuit breaker and a bounded LRU cache;
// st may be nil for a fully in-memory engine.
func New(cfg *config.Config, lookup catalog.Lookup, st *store.Store, logger zerolog.Logger) *Engine {
	protected := catalog.NewBreakerLookup(lookup, catalog.BreakerConfig{
		FailureThreshold: cfg.Lookup.BreakerFailureThreshold,
		Timeout:          cfg.Lookup.BreakerTimeout,
	})
	cached := catalog.NewCachedLookup(protected, cache.NewLRU[*catalog.Metadata](cfg.Cache.Capacity, cfg.Cache.TTL))
	fetcher := catalog.NewBatchFetcher(cached, cfg.Lookup.BatchSize, cfg.Lookup.BatchPause, logger)

	e := &Engine{
		cfg:     cfg,
		st:      st,
		logger:  logger.With().Str("component", "engine").Logger(),
		builder: profile.NewBuilder(fetcher, cfg.Profile, logger),
		scorer:  scoring.NewScorer(cfg.Scoring, logger),
		neural:  neural.NewScorer(cfg.Neural, fetcher, st, nil, logger),
	}
	e.loop = learning.NewLoop(cfg.Learning, e.builder, st, logger)

	// A build that resolves enough items retrains the model eagerly so
	// predictions improve in the same pass.
	e.builder.OnEagerTrain = func(ctx context.Context, ratings []profile.Rating, p *profile.UserProfile) error {
		err := e.neural.Train(ctx, ratings, p)
		if errors.Is(err, neural.ErrInsufficientData) {
			return nil
		}
		return err
	}

	return e
}

// Restore loads persisted state: ratings, profile, learned model, event
// log, and adaptive config. Missing state is not an error.
func (e *Engine) Restore(ctx context.Context) {
	if e.st == nil {
		return
	}

	e.mu.Lock()
	var ratings []profile.Rating
	if err := e.st.GetJSON(ctx, store.KeyRatings, &ratings); err == nil {
		e.ratings = ratings
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		e.logger.Warn().Err(err).Msg("failed to restore ratings")
	}

	var p profile.UserProfile
	if err := e.st.GetJSON(ctx, store.KeyProfile, &p); err == nil {
		e.profile = &p
	} else if !errors.Is(err, store.ErrKeyNotFound) {
		e.logger.Warn().Err(err).Msg("failed to restore profile")
	}
	e.mu.Unlock()

	e.neural.LoadModel(ctx)
	e.loop.Restore(ctx)
}

// Close waits for any background training to finish.
func (e *Engine) Close() {
	e.wg.Wait()
}

// Ratings returns a copy of the current rating list.
func (e *Engine) Ratings() []profile.Rating {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]profile.Rating(nil), e.ratings...)
}

// Profile returns the current profile, or nil when not enough data
// exists yet.
func (e *Engine) Profile() *profile.UserProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.profile
}

// BuildProfile runs a full profile build over the current ratings and
// persists the result. A nil profile with nil error means "not enough
// data".
func (e *Engine) BuildProfile(ctx context.Context) (*profile.UserProfile, error) {
	e.mu.Lock()
	ratings := append([]profile.Rating(nil), e.ratings...)
	e.mu.Unlock()

	p, err := e.builder.Build(ctx, ratings)
	if err != nil {
		return nil, err
	}
	if p != nil {
		e.setProfile(ctx, p)
	}
	return p, nil
}

// ScoreCandidates ranks candidates against the current profile with the
// content-based scorer. Without a profile it returns nil: "not enough
// data" is an answer.
func (e *Engine) ScoreCandidates(candidates []*catalog.Metadata) []scoring.ScoredCandidate {
	p := e.Profile()
	if p == nil {
		return nil
	}
	return e.scorer.ScoreCandidates(p, candidates)
}

// Predict returns the learned scorer's rating prediction for an item,
// or the heuristic fallback without a trained model or profile.
func (e *Engine) Predict(md *catalog.Metadata) float64 {
	p := e.Profile()
	if p == nil {
		return neural.FallbackPrediction(md.Rating, 0)
	}
	return e.neural.Predict(md, p)
}

// Recommend runs the learned scorer over candidates and returns ranked,
// filtered recommendations.
func (e *Engine) Recommend(candidates []*catalog.Metadata, count int) []neural.Recommendation {
	p := e.Profile()
	if p == nil {
		return nil
	}
	return e.neural.Recommend(candidates, p, count)
}

// TrainModel trains the learned scorer on the current ratings and
// profile. Builds the profile first if none exists.
func (e *Engine) TrainModel(ctx context.Context) error {
	p := e.Profile()
	if p == nil {
		built, err := e.BuildProfile(ctx)
		if err != nil {
			return err
		}
		if built == nil {
			return neural.ErrInsufficientData
		}
		p = built
	}

	e.mu.Lock()
	ratings := append([]profile.Rating(nil), e.ratings...)
	e.mu.Unlock()

	e.neural.SetLearningRate(e.loop.LearningRate())
	return e.neural.Train(ctx, ratings, p)
}

// Rate records a rating (new or replacing) and runs it through the
// learning loop. The returned outcome carries the updated profile,
// insights, and the retrain decision; when a retrain is due it has
// already been started in the background.
func (e *Engine) Rate(ctx context.Context, ref catalog.Ref, value profile.Value) (*learning.Outcome, error) {
	e.mu.Lock()
	updated, old := profile.Upsert(e.ratings, profile.Rating{Ref: ref, Value: value, Timestamp: time.Now()})
	e.ratings = updated
	e.persistRatingsLocked(ctx)
	e.mu.Unlock()

	kind := learning.EventAdded
	var oldValue *profile.Value
	if old != nil {
		kind = learning.EventUpdated
		v := old.Value
		oldValue = &v
	}
	newValue := value
	return e.processEvent(ctx, learning.NewEvent(kind, ref, oldValue, &newValue))
}

// RemoveRating deletes the rating for ref, if any, and runs the removal
// through the learning loop. Removing an unrated item is a no-op.
func (e *Engine) RemoveRating(ctx context.Context, ref catalog.Ref) (*learning.Outcome, error) {
	e.mu.Lock()
	updated, old := profile.Remove(e.ratings, ref)
	e.ratings = updated
	if old != nil {
		e.persistRatingsLocked(ctx)
	}
	e.mu.Unlock()

	if old == nil {
		return nil, nil
	}
	v := old.Value
	return e.processEvent(ctx, learning.NewEvent(learning.EventRemoved, ref, &v, nil))
}

// ProcessRatingEvent feeds an externally constructed event through the
// learning loop against the engine's current state.
func (e *Engine) ProcessRatingEvent(ctx context.Context, ev learning.Event) (*learning.Outcome, error) {
	return e.processEvent(ctx, ev)
}

func (e *Engine) processEvent(ctx context.Context, ev learning.Event) (*learning.Outcome, error) {
	e.mu.Lock()
	current := e.profile
	ratings := append([]profile.Rating(nil), e.ratings...)
	e.mu.Unlock()

	out, err := e.loop.Process(ctx, ev, current, ratings)
	if err != nil {
		return nil, err
	}

	if out.UpdatedProfile != nil {
		e.setProfile(ctx, out.UpdatedProfile)
	}
	if out.ShouldRetrain {
		e.triggerTrain()
	}
	return out, nil
}

// Analytics returns the learning loop's activity snapshot.
func (e *Engine) Analytics() learning.Analytics {
	return e.loop.Analytics()
}

// Insights returns narrative insights for the current state.
func (e *Engine) Insights() []string {
	e.mu.Lock()
	p := e.profile
	ratings := append([]profile.Rating(nil), e.ratings...)
	e.mu.Unlock()
	return learning.Insights(p, ratings)
}

// ClearData wipes all persisted engine state and resets in-memory state.
// This is the only path that deletes a profile.
func (e *Engine) ClearData(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st != nil {
		if err := e.st.Wipe(ctx); err != nil {
			return err
		}
	}
	e.ratings = nil
	e.profile = nil
	e.logger.Info().Msg("all engine data cleared")
	return nil
}

// setProfile publishes and persists a new profile.
func (e *Engine) setProfile(ctx context.Context, p *profile.UserProfile) {
	e.mu.Lock()
	e.profile = p
	e.mu.Unlock()
	if e.st != nil {
		e.st.BestEffortSetJSON(ctx, store.KeyProfile, p)
	}
}

func (e *Engine) persistRatingsLocked(ctx context.Context) {
	if e.st != nil {
		e.st.BestEffortSetJSON(ctx, store.KeyRatings, e.ratings)
	}
}

// triggerTrain starts a background training run unless one is already in
// flight; concurrent triggers coalesce into the running one.
func (e *Engine) triggerTrain() {
	if !e.trainInFlight.CompareAndSwap(false, true) {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.trainInFlight.Store(false)

		ctx, cancel := context.WithTimeout(context.Background(), trainTimeout)
		defer cancel()

		if err := e.TrainModel(ctx); err != nil && !errors.Is(err, neural.ErrInsufficientData) {
			e.logger.Warn().Err(err).Msg("background retrain failed")
		}
	}()
}
