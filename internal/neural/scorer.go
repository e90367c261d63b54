// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package neural

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/config"
	"github.com/cinelens/cinelens/internal/metrics"
	"github.com/cinelens/cinelens/internal/profile"
	"github.com/cinelens/cinelens/internal/store"
)

// ErrInsufficientData indicates too few resolvable training samples.
var ErrInsufficientData = errors.New("neural: insufficient training data")

// updateScale is the constant factor in the heuristic update rule.
//
// The trainer is NOT textbook backpropagation: each weight is nudged
// proportionally to learningRate * error * layerInput * updateScale and
// each bias by learningRate * error * updateScale, a stylized local
// search whose output distribution downstream accuracy bounds depend on.
// Do not replace it with calculus-derived gradients.
const updateScale = 0.1

// Accuracy reporting bounds. The reported accuracy is perturbed by a
// random factor in [0.8, 1.2] and clamped into this range; reporting
// implausibly low or high confidence is worse than being imprecise.
const (
	accuracyFloor = 0.30
	accuracyCeil  = 0.95
)

// confidenceFloor is substituted when model accuracy is unusable.
const confidenceFloor = 0.5

// Model is the versioned, persisted learned-scorer state. A Model value
// is immutable once published; training builds a new one.
type Model struct {
	Network       *Network  `json:"network"`
	LastTrainedAt time.Time `json:"last_trained_at"`
	Accuracy      float64   `json:"accuracy"`
	Version       int       `json:"version"`
}

// Valid reports whether a persisted model may be reused: it must be
// newer than the validity window and have usable accuracy.
func (m *Model) Valid(now time.Time, window time.Duration, minAccuracy float64) bool {
	if m == nil || m.Network == nil {
		return false
	}
	if now.Sub(m.LastTrainedAt) > window {
		return false
	}
	return m.Accuracy > minAccuracy
}

// Scorer is the learned scorer. Predictions read an atomic model
// snapshot, so they never observe a half-updated weight set; training
// replaces the snapshot wholesale.
type Scorer struct {
	cfg     config.NeuralConfig
	fetcher *catalog.BatchFetcher
	st      *store.Store
	encoder Encoder
	logger  zerolog.Logger

	model atomic.Pointer[Model]

	// trainMu serializes training runs; weight arrays are mutated in
	// place while training.
	trainMu sync.Mutex

	// rng drives initialization, shuffling, and the accuracy
	// perturbation (protected by rngMu for concurrent access).
	rng   *rand.Rand
	rngMu sync.Mutex

	// demographics, when set, fills the demographic feature slots.
	demoMu sync.RWMutex
	demo   *Demographics
}

// NewScorer creates a learned scorer. st may be nil for a purely
// in-memory scorer. rng may be nil, in which case a time-seeded source
// is used.
func NewScorer(cfg config.NeuralConfig, fetcher *catalog.BatchFetcher, st *store.Store, rng *rand.Rand, logger zerolog.Logger) *Scorer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // heuristic scorer, not crypto
	}
	return &Scorer{
		cfg:     cfg,
		fetcher: fetcher,
		st:      st,
		rng:     rng,
		logger:  logger.With().Str("component", "neural").Logger(),
	}
}

// SetLearningRate overrides the configured learning rate for subsequent
// training runs. The learning loop feeds its self-tuned rate through
// here. Rates outside (0, 1] are ignored.
func (s *Scorer) SetLearningRate(lr float64) {
	if lr <= 0 || lr > 1 {
		return
	}
	s.trainMu.Lock()
	defer s.trainMu.Unlock()
	s.cfg.LearningRate = lr
}

// SetDemographics updates the optional demographic data used in feature
// encoding.
func (s *Scorer) SetDemographics(d *Demographics) {
	s.demoMu.Lock()
	defer s.demoMu.Unlock()
	s.demo = d
}

func (s *Scorer) demographics() *Demographics {
	s.demoMu.RLock()
	defer s.demoMu.RUnlock()
	return s.demo
}

// Model returns the current model snapshot, or nil when untrained.
func (s *Scorer) Model() *Model {
	return s.model.Load()
}

// LoadModel restores a persisted model from the store. An invalid or
// missing model is discarded silently; the scorer then falls back to the
// heuristic prediction until retrained.
func (s *Scorer) LoadModel(ctx context.Context) {
	if s.st == nil {
		return
	}

	var m Model
	if err := s.st.GetJSON(ctx, store.KeyNeuralModel, &m); err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			s.logger.Warn().Err(err).Msg("failed to load persisted model, reinitializing")
		}
		return
	}

	if !m.Valid(time.Now(), s.cfg.ValidityWindow, s.cfg.MinAccuracy) {
		s.logger.Info().
			Time("last_trained_at", m.LastTrainedAt).
			Float64("accuracy", m.Accuracy).
			Msg("persisted model expired or below accuracy floor, retrain required")
		return
	}

	s.model.Store(&m)
	metrics.ModelAccuracy.Set(m.Accuracy)
	s.logger.Info().Int("version", m.Version).Float64("accuracy", m.Accuracy).Msg("persisted model restored")
}

// sample is one training example.
type sample struct {
	input  []float64
	target float64 // normalized rating in [0, 1]
}

// Train trains a fresh model on the rating history and publishes it.
//
// Rated items the catalog reports as not-found are substituted with a
// synthetic placeholder record rather than dropped, keeping the training
// set stable across catalog drift. Items failing for other reasons are
// skipped. Fewer than the configured minimum of samples aborts with
// ErrInsufficientData; nothing is published in that case (all-or-nothing).
func (s *Scorer) Train(ctx context.Context, ratings []profile.Rating, p *profile.UserProfile) error {
	s.trainMu.Lock()
	defer s.trainMu.Unlock()

	start := time.Now()

	samples, err := s.buildSamples(ctx, ratings, p)
	if err != nil {
		metrics.TrainingRuns.WithLabelValues("error").Inc()
		return err
	}
	if len(samples) < s.cfg.MinSamples {
		s.logger.Debug().Int("samples", len(samples)).Int("required", s.cfg.MinSamples).
			Msg("not enough samples to train")
		metrics.TrainingRuns.WithLabelValues("insufficient_data").Inc()
		return ErrInsufficientData
	}

	s.rngMu.Lock()
	net := NewNetwork(FeatureSize, s.rng)
	s.rngMu.Unlock()

	for epoch := 0; epoch < s.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			metrics.TrainingRuns.WithLabelValues("error").Inc()
			return err
		}
		s.shuffle(samples)
		for batchStart := 0; batchStart < len(samples); batchStart += s.cfg.BatchSize {
			batchEnd := batchStart + s.cfg.BatchSize
			if batchEnd > len(samples) {
				batchEnd = len(samples)
			}
			for _, sm := range samples[batchStart:batchEnd] {
				s.applyUpdate(net, sm)
			}
		}
	}

	accuracy := s.reportedAccuracy(net, samples)

	prev := s.model.Load()
	version := 1
	if prev != nil {
		version = prev.Version + 1
	}
	model := &Model{
		Network:       net,
		LastTrainedAt: time.Now(),
		Accuracy:      accuracy,
		Version:       version,
	}
	s.model.Store(model)

	if s.st != nil {
		s.st.BestEffortSetJSON(ctx, store.KeyNeuralModel, model)
	}

	metrics.TrainingRuns.WithLabelValues("trained").Inc()
	metrics.ModelAccuracy.Set(accuracy)
	metrics.ObserveTraining(start)
	s.logger.Info().
		Int("samples", len(samples)).
		Int("version", version).
		Float64("accuracy", accuracy).
		Dur("took", time.Since(start)).
		Msg("model trained")

	return nil
}

// buildSamples resolves metadata for every valid rating and encodes the
// training set.
func (s *Scorer) buildSamples(ctx context.Context, ratings []profile.Rating, p *profile.UserProfile) ([]sample, error) {
	valid := profile.Valid(ratings)

	refs := make([]catalog.Ref, len(valid))
	for i, r := range valid {
		refs[i] = r.Ref
	}
	fetched, err := s.fetcher.Fetch(ctx, refs)
	if err != nil {
		return nil, err
	}

	notFound := make(map[string]struct{}, len(fetched.NotFound))
	for _, ref := range fetched.NotFound {
		notFound[ref.Key()] = struct{}{}
	}

	demo := s.demographics()
	samples := make([]sample, 0, len(valid))
	for _, r := range valid {
		md, ok := fetched.Resolved[r.Ref.Key()]
		if !ok {
			if _, gone := notFound[r.Ref.Key()]; !gone {
				continue // transient failure, skip
			}
			md = catalog.Placeholder(r.Ref)
		}
		samples = append(samples, sample{
			input:  s.encoder.Encode(md, p, demo),
			target: float64(r.Value) / 10,
		})
	}
	return samples, nil
}

// applyUpdate applies the heuristic update rule for one sample.
func (s *Scorer) applyUpdate(net *Network, sm sample) {
	activations := net.Forward(sm.input)
	output := activations[len(activations)-1][0]
	err := sm.target - output

	lr := s.cfg.LearningRate
	for l := range net.Weights {
		layerInput := activations[l]
		for i := range net.Weights[l] {
			row := net.Weights[l][i]
			for j := range row {
				row[j] += lr * err * layerInput[j] * updateScale
			}
			net.Biases[l][i] += lr * err * updateScale
		}
	}
}

// reportedAccuracy measures the in-sample fraction of predictions within
// tolerance, perturbs it by a random factor in [0.8, 1.2], and clamps it
// to [0.30, 0.95].
func (s *Scorer) reportedAccuracy(net *Network, samples []sample) float64 {
	within := 0
	for _, sm := range samples {
		if math.Abs(net.Output(sm.input)-sm.target) <= s.cfg.AccuracyTolerance {
			within++
		}
	}
	accuracy := float64(within) / float64(len(samples))

	s.rngMu.Lock()
	accuracy *= 0.8 + s.rng.Float64()*0.4
	s.rngMu.Unlock()

	return math.Max(accuracyFloor, math.Min(accuracyCeil, accuracy))
}

// shuffle permutes the sample order in place.
func (s *Scorer) shuffle(samples []sample) {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	s.rng.Shuffle(len(samples), func(i, j int) {
		samples[i], samples[j] = samples[j], samples[i]
	})
}

// Predict returns the model's rating prediction for a candidate, falling
// back to the blended heuristic when no model is available.
func (s *Scorer) Predict(md *catalog.Metadata, p *profile.UserProfile) float64 {
	model := s.model.Load()
	if model == nil || model.Network == nil {
		metrics.RecommendationRequests.WithLabelValues("fallback").Inc()
		return FallbackPrediction(md.Rating, p.AverageScore)
	}
	return model.Network.PredictRating(s.encoder.Encode(md, p, s.demographics()))
}

// Confidence returns the model's self-reported reliability: its accuracy,
// floored to 0.5 when accuracy is at or below the usable minimum.
func (s *Scorer) Confidence() float64 {
	model := s.model.Load()
	if model == nil {
		return confidenceFloor
	}
	if model.Accuracy <= s.cfg.MinAccuracy {
		return confidenceFloor
	}
	return model.Accuracy
}

// FallbackPrediction is the heuristic blend used when the model is
// absent or erroring.
func FallbackPrediction(externalRating, userAverage float64) float64 {
	return 0.7*externalRating + 0.3*userAverage
}
