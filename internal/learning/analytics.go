// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package learning

import (
	"fmt"
	"time"

	"github.com/cinelens/cinelens/internal/profile"
)

// Recent-event window bounds.
const (
	recentWindow    = 7 * 24 * time.Hour
	recentMaxEvents = 50
)

// Trend and consistency thresholds for insight text.
const (
	trendMargin        = 0.5
	trendSampleSize    = 10
	varianceConsistent = 2.0
	varianceEclectic   = 6.0
	diverseGenreCount  = 8
	narrowGenreCount   = 3
)

// Analytics is a point-in-time snapshot of learning activity.
type Analytics struct {
	// TotalEvents is the current event-log length (bounded by the cap).
	TotalEvents int `json:"total_events"`

	// EventCounts breaks the log down by event kind.
	EventCounts map[EventKind]int `json:"event_counts"`

	// RecentEvents counts events inside the recency window, capped at
	// the most recent 50.
	RecentEvents int `json:"recent_events"`

	// LearningRate is the current self-tuned learning rate.
	LearningRate float64 `json:"learning_rate"`

	// Phase is the incremental-path phase at the last processed event.
	Phase profile.Phase `json:"phase"`

	// LastEventAt is the timestamp of the most recent event, zero when
	// the log is empty.
	LastEventAt time.Time `json:"last_event_at"`
}

// Analytics returns a snapshot of the learning loop's activity.
func (l *Loop) Analytics() Analytics {
	l.mu.Lock()
	defer l.mu.Unlock()

	counts := make(map[EventKind]int, 3)
	recent := 0
	cutoff := time.Now().Add(-recentWindow)
	for i := len(l.events) - 1; i >= 0; i-- {
		counts[l.events[i].Kind]++
		if recent < recentMaxEvents && l.events[i].Timestamp.After(cutoff) {
			recent++
		}
	}

	return Analytics{
		TotalEvents:  len(l.events),
		EventCounts:  counts,
		RecentEvents: recent,
		LearningRate: l.adaptive.LearningRate,
		Phase:        l.phase,
		LastEventAt:  l.lastEventAt,
	}
}

// Insights builds narrative observations from the profile and rating
// history: recent trend against the historical average, a
// variance-based consistency read, phase guidance, and genre-diversity
// commentary. p may be nil while no profile exists.
func Insights(p *profile.UserProfile, ratings []profile.Rating) []string {
	valid := profile.Valid(ratings)
	if len(valid) == 0 {
		return []string{"Rate a few titles to start building your taste profile."}
	}

	insights := make([]string, 0, 4)

	if trend := trendInsight(valid); trend != "" {
		insights = append(insights, trend)
	}
	insights = append(insights, consistencyInsight(valid))
	if p != nil {
		insights = append(insights, phaseInsight(p.Phase))
		if genre := genreInsight(p); genre != "" {
			insights = append(insights, genre)
		}
	}

	return insights
}

// trendInsight compares the mean of the most recent ratings against the
// overall average.
func trendInsight(valid []profile.Rating) string {
	if len(valid) <= trendSampleSize {
		return ""
	}

	overall := 0.0
	for _, r := range valid {
		overall += float64(r.Value)
	}
	overall /= float64(len(valid))

	recent := 0.0
	tail := valid[len(valid)-trendSampleSize:]
	for _, r := range tail {
		recent += float64(r.Value)
	}
	recent /= float64(len(tail))

	switch {
	case recent > overall+trendMargin:
		return fmt.Sprintf("Your recent ratings (%.1f avg) are running above your overall average of %.1f.", recent, overall)
	case recent < overall-trendMargin:
		return fmt.Sprintf("Your recent ratings (%.1f avg) are running below your overall average of %.1f.", recent, overall)
	default:
		return ""
	}
}

// consistencyInsight reads the rating variance as taste consistency.
func consistencyInsight(valid []profile.Rating) string {
	mean := 0.0
	for _, r := range valid {
		mean += float64(r.Value)
	}
	mean /= float64(len(valid))

	variance := 0.0
	for _, r := range valid {
		d := float64(r.Value) - mean
		variance += d * d
	}
	variance /= float64(len(valid))

	switch {
	case variance < varianceConsistent:
		return "Your ratings are very consistent, which makes predictions more reliable."
	case variance > varianceEclectic:
		return "Your ratings vary widely, suggesting eclectic taste; predictions may take longer to settle."
	default:
		return "Your rating pattern is moderately varied."
	}
}

// phaseInsight gives phase-specific guidance.
func phaseInsight(phase profile.Phase) string {
	switch phase {
	case profile.PhaseProfiling:
		return "Still mapping your broad preferences; keep rating across different genres."
	case profile.PhaseTesting:
		return "Your profile is taking shape; predictions are now being validated against your ratings."
	case profile.PhaseOptimizing:
		return "Your profile is mature; recommendations are being fine-tuned."
	default:
		return "Not enough ratings yet for a full profile."
	}
}

// genreInsight comments on the breadth of the genre distribution.
func genreInsight(p *profile.UserProfile) string {
	populated := 0
	for _, pct := range p.GenreDistribution {
		if pct > 0 {
			populated++
		}
	}
	switch {
	case populated >= diverseGenreCount:
		return fmt.Sprintf("You enjoy a broad mix of %d genres.", populated)
	case populated > 0 && populated <= narrowGenreCount:
		return "Your taste is concentrated in a few genres; exploratory picks may surprise you."
	default:
		return ""
	}
}
