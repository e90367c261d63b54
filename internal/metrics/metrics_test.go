// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package metrics

import (
	"testing"
	"time"
)

// Metrics are package-level promauto collectors; these tests verify the
// helpers and labeled collectors accept the label values used by callers
// without panicking (promauto panics on registration conflicts at init).
func TestObserveHelpers(t *testing.T) {
	start := time.Now().Add(-10 * time.Millisecond)
	ObserveProfileBuild(start)
	ObserveTraining(start)
	ObserveRecommendation(start)
}

func TestLabeledCollectors(t *testing.T) {
	for _, outcome := range []string{"built", "insufficient_data", "error"} {
		ProfileBuilds.WithLabelValues(outcome).Inc()
	}
	for _, kind := range []string{"not_found", "breaker_open", "other"} {
		LookupErrors.WithLabelValues(kind).Inc()
	}
	for _, kind := range []string{"added", "updated", "removed"} {
		LearningEvents.WithLabelValues(kind).Inc()
	}
	StoreOperations.WithLabelValues("get", "miss").Inc()
	ModelAccuracy.Set(0.75)
	LearningPhase.Set(2)
}
