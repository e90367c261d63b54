// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package learning

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/config"
	"github.com/cinelens/cinelens/internal/metrics"
	"github.com/cinelens/cinelens/internal/profile"
	"github.com/cinelens/cinelens/internal/store"
)

// Confidence-delta components. The alignment signal is a constant
// placeholder until a real prediction-vs-rating alignment feed exists.
const (
	deltaBase            = 0.01
	deltaExtreme         = 0.02
	deltaPhaseTransition = 0.05
	alignmentPlaceholder = 0.5
	deltaMin             = -0.05
	deltaMax             = 0.10
)

// minRatingsForProfile mirrors the Profile Builder's minimum; below it
// the incremental phase stays initial.
const minRatingsForProfile = 5

// AdaptiveConfig is the self-tuned learning state persisted across
// sessions.
type AdaptiveConfig struct {
	LearningRate float64 `json:"learning_rate"`
}

// Outcome is the result of processing one rating event.
type Outcome struct {
	// UpdatedProfile is the profile after the incremental patch and any
	// full rebuild. Nil when no profile exists yet.
	UpdatedProfile *profile.UserProfile `json:"updated_profile"`

	// Insights are narrative observations about the user's rating
	// behavior, suitable for direct display.
	Insights []string `json:"insights"`

	// ConfidenceDelta is the bounded confidence adjustment this event
	// contributes.
	ConfidenceDelta float64 `json:"confidence_delta"`

	// ShouldRetrain signals the caller to retrain the learned scorer.
	ShouldRetrain bool `json:"should_retrain"`
}

// Loop is the real-time learning loop. It owns the event log and the
// adaptive learning rate; the profile and rating list stay owned by the
// caller and are passed through Process.
type Loop struct {
	cfg     config.LearningConfig
	builder *profile.Builder
	st      *store.Store
	logger  zerolog.Logger

	mu          sync.Mutex
	events      []Event
	lastEventAt time.Time
	phase       profile.Phase
	adaptive    AdaptiveConfig
}

// NewLoop creates a learning loop. st may be nil for a purely in-memory
// loop.
func NewLoop(cfg config.LearningConfig, builder *profile.Builder, st *store.Store, logger zerolog.Logger) *Loop {
	return &Loop{
		cfg:      cfg,
		builder:  builder,
		st:       st,
		logger:   logger.With().Str("component", "learning").Logger(),
		phase:    profile.PhaseInitial,
		adaptive: AdaptiveConfig{LearningRate: cfg.RateMin},
	}
}

// Restore loads the persisted event log and adaptive config. Missing
// keys are not an error; corrupt state is discarded with a warning.
func (l *Loop) Restore(ctx context.Context) {
	if l.st == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var events []Event
	if err := l.st.GetJSON(ctx, store.KeyLearningEvents, &events); err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			l.logger.Warn().Err(err).Msg("failed to restore event log, starting empty")
		}
	} else {
		if excess := len(events) - l.cfg.MaxEvents; excess > 0 {
			events = events[excess:]
		}
		l.events = events
		if len(events) > 0 {
			l.lastEventAt = events[len(events)-1].Timestamp
		}
	}

	var adaptive AdaptiveConfig
	if err := l.st.GetJSON(ctx, store.KeyAdaptiveConfig, &adaptive); err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			l.logger.Warn().Err(err).Msg("failed to restore adaptive config, using defaults")
		}
	} else if adaptive.LearningRate >= l.cfg.RateMin && adaptive.LearningRate <= l.cfg.RateMax {
		l.adaptive = adaptive
	}
}

// LearningRate returns the current self-tuned learning rate.
func (l *Loop) LearningRate() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.adaptive.LearningRate
}

// PhaseForCount returns the incremental-path learning phase for a
// valid-rating count. The thresholds intentionally differ from the
// Profile Builder's; both promotion paths are live.
func PhaseForCount(validCount, testingThreshold, optimizingThreshold int) profile.Phase {
	switch {
	case validCount < minRatingsForProfile:
		return profile.PhaseInitial
	case validCount < testingThreshold:
		return profile.PhaseProfiling
	case validCount < optimizingThreshold:
		return profile.PhaseTesting
	default:
		return profile.PhaseOptimizing
	}
}

// Process records one rating event and returns the updated profile, the
// confidence delta, narrative insights, and the retrain decision.
//
// The immediate patch (average score, total ratings, phase, last
// updated) is computed without fetching any metadata. When enough valid
// ratings exist a full rebuild runs as well, with the immediate fields
// winning the merge; a rebuild failure degrades to the patched profile
// rather than failing the event.
func (l *Loop) Process(ctx context.Context, ev Event, current *profile.UserProfile, ratings []profile.Rating) (*Outcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	previousEventAt := l.lastEventAt
	l.events = appendCapped(l.events, ev, l.cfg.MaxEvents)
	l.lastEventAt = ev.Timestamp
	if l.st != nil {
		l.st.BestEffortSetJSON(ctx, store.KeyLearningEvents, l.events)
	}
	metrics.LearningEvents.WithLabelValues(string(ev.Kind)).Inc()

	valid := profile.Valid(ratings)
	phaseBefore := profile.PhaseInitial
	if current != nil {
		phaseBefore = current.Phase
	}

	updated := l.applyPatch(current, valid, ratings)
	if len(valid) >= l.cfg.RebuildThreshold {
		updated = l.rebuild(ctx, updated, ratings, valid)
	}

	phaseAfter := phaseBefore
	if updated != nil {
		phaseAfter = updated.Phase
	}
	l.phase = phaseAfter
	metrics.LearningPhase.Set(float64(phaseAfter.Ordinal()))

	delta := confidenceDelta(ev, phaseBefore, phaseAfter)
	l.tuneLearningRate(ctx, delta)

	retrain := l.shouldRetrain(ev, previousEventAt, len(valid))
	if retrain {
		metrics.RetrainsTriggered.Inc()
	}

	l.logger.Debug().
		Str("event", string(ev.Kind)).
		Str("item", ev.Ref.Key()).
		Int("valid_ratings", len(valid)).
		Float64("confidence_delta", delta).
		Bool("retrain", retrain).
		Msg("rating event processed")

	return &Outcome{
		UpdatedProfile:  updated,
		Insights:        Insights(updated, ratings),
		ConfidenceDelta: delta,
		ShouldRetrain:   retrain,
	}, nil
}

// applyPatch computes the cheap incremental update: a copy of the
// current profile with the fields derivable from the rating list alone.
// With no existing profile there is nothing to patch; the caller gets a
// profile only once a rebuild produces one.
func (l *Loop) applyPatch(current *profile.UserProfile, valid, ratings []profile.Rating) *profile.UserProfile {
	if current == nil {
		return nil
	}
	patched := *current
	patched.AverageScore = profile.AverageValue(ratings)
	patched.TotalRatings = len(valid)
	patched.Phase = PhaseForCount(len(valid), l.cfg.TestingThreshold, l.cfg.OptimizingThreshold)
	patched.LastUpdated = time.Now()
	return &patched
}

// rebuild runs the full Profile Builder and merges the immediate patch
// over the result.
func (l *Loop) rebuild(ctx context.Context, patched *profile.UserProfile, ratings []profile.Rating, valid []profile.Rating) *profile.UserProfile {
	rebuilt, err := l.builder.Build(ctx, ratings)
	if err != nil {
		l.logger.Warn().Err(err).Msg("full rebuild failed, keeping incremental patch")
		return patched
	}
	if rebuilt == nil {
		return patched
	}

	// Immediate fields win the merge.
	rebuilt.AverageScore = profile.AverageValue(ratings)
	rebuilt.TotalRatings = len(valid)
	rebuilt.Phase = PhaseForCount(len(valid), l.cfg.TestingThreshold, l.cfg.OptimizingThreshold)
	rebuilt.LastUpdated = time.Now()
	return rebuilt
}

// confidenceDelta computes the bounded per-event confidence adjustment.
func confidenceDelta(ev Event, phaseBefore, phaseAfter profile.Phase) float64 {
	delta := deltaBase
	if ev.NewValue != nil && ev.NewValue.Extreme() {
		delta += deltaExtreme
	}
	delta += alignmentPlaceholder * deltaBase
	if phaseAfter != phaseBefore {
		delta += deltaPhaseTransition
	}
	return math.Max(deltaMin, math.Min(deltaMax, delta))
}

// shouldRetrain applies the retrain gate: enough valid ratings, and
// either enough time since the previous event or a significant change.
// The first event ever counts as past the interval.
func (l *Loop) shouldRetrain(ev Event, previousEventAt time.Time, validCount int) bool {
	if validCount < l.cfg.RetrainMinRatings {
		return false
	}
	if previousEventAt.IsZero() || ev.Timestamp.Sub(previousEventAt) >= l.cfg.RetrainInterval {
		return true
	}
	return l.significant(ev)
}

// significant reports whether an event is a strong enough signal to
// retrain ahead of the interval: a new extreme rating, or a value change
// of at least the configured delta.
func (l *Loop) significant(ev Event) bool {
	if ev.NewValue != nil && ev.NewValue.Extreme() {
		return true
	}
	if ev.Kind == EventUpdated && ev.OldValue != nil && ev.NewValue != nil {
		change := int(*ev.NewValue) - int(*ev.OldValue)
		if change < 0 {
			change = -change
		}
		return change >= l.cfg.SignificantDelta
	}
	return false
}

// tuneLearningRate nudges the stored learning rate toward the
// confidence trend and persists it.
func (l *Loop) tuneLearningRate(ctx context.Context, delta float64) {
	switch {
	case delta > 0:
		l.adaptive.LearningRate = math.Min(l.cfg.RateMax, l.adaptive.LearningRate+l.cfg.RateStepUp)
	case delta < 0:
		l.adaptive.LearningRate = math.Max(l.cfg.RateMin, l.adaptive.LearningRate-l.cfg.RateStepDown)
	}
	if l.st != nil {
		l.st.BestEffortSetJSON(ctx, store.KeyAdaptiveConfig, l.adaptive)
	}
}
