// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package metrics provides Prometheus instrumentation for the engine:
// profile builds, catalog lookups, model training, recommendation requests,
// and the real-time learning loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Profile Builder metrics
	ProfileBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinelens_profile_build_duration_seconds",
			Help:    "Duration of full profile builds in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ProfileBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinelens_profile_builds_total",
			Help: "Total number of profile build attempts",
		},
		[]string{"outcome"}, // "built", "insufficient_data", "error"
	)

	// Catalog lookup metrics
	LookupCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinelens_lookup_cache_hits_total",
			Help: "Total number of catalog metadata cache hits",
		},
	)

	LookupCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinelens_lookup_cache_misses_total",
			Help: "Total number of catalog metadata cache misses",
		},
	)

	LookupErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinelens_lookup_errors_total",
			Help: "Total number of catalog lookup failures",
		},
		[]string{"kind"}, // "not_found", "breaker_open", "other"
	)

	// Learned Scorer metrics
	TrainingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinelens_model_training_duration_seconds",
			Help:    "Duration of learned-scorer training runs in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	TrainingRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinelens_model_training_runs_total",
			Help: "Total number of learned-scorer training attempts",
		},
		[]string{"outcome"}, // "trained", "insufficient_data", "error"
	)

	ModelAccuracy = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinelens_model_accuracy",
			Help: "Reported accuracy of the current learned-scorer model",
		},
	)

	// Recommendation metrics
	RecommendationRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinelens_recommendation_requests_total",
			Help: "Total number of recommendation requests",
		},
		[]string{"scorer"}, // "content", "neural", "fallback"
	)

	RecommendationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cinelens_recommendation_duration_seconds",
			Help:    "Duration of recommendation generation in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Real-time learning loop metrics
	LearningEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinelens_learning_events_total",
			Help: "Total number of processed rating events",
		},
		[]string{"kind"}, // "added", "updated", "removed"
	)

	RetrainsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cinelens_retrains_triggered_total",
			Help: "Total number of retrain decisions taken by the learning loop",
		},
	)

	LearningPhase = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cinelens_learning_phase",
			Help: "Current learning phase as an ordinal (0=initial, 1=profiling, 2=testing, 3=optimizing)",
		},
	)

	// Persistence metrics
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cinelens_store_operations_total",
			Help: "Total number of key-value store operations",
		},
		[]string{"operation", "outcome"}, // get/set/delete, ok/error/miss
	)
)

// ObserveProfileBuild records the duration of a full profile build.
func ObserveProfileBuild(start time.Time) {
	ProfileBuildDuration.Observe(time.Since(start).Seconds())
}

// ObserveTraining records the duration of a training run.
func ObserveTraining(start time.Time) {
	TrainingDuration.Observe(time.Since(start).Seconds())
}

// ObserveRecommendation records the duration of recommendation generation.
func ObserveRecommendation(start time.Time) {
	RecommendationDuration.Observe(time.Since(start).Seconds())
}
