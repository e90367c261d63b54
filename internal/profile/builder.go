// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package profile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/config"
	"github.com/cinelens/cinelens/internal/metrics"
)

// topCastCount is how many cast credits per item contribute to actor
// affinity.
const topCastCount = 3

// Builder aggregates a rating history plus catalog metadata into a
// UserProfile. It holds no mutable state of its own; every Build is a
// full recompute.
type Builder struct {
	fetcher *catalog.BatchFetcher
	cfg     config.ProfileConfig
	logger  zerolog.Logger

	// OnEagerTrain, when set, is invoked after a build that resolved at
	// least EagerTrainThreshold items, with the same ratings and the
	// freshly built profile. The engine wires this to learned-scorer
	// training. Errors are logged, never propagated.
	OnEagerTrain func(ctx context.Context, ratings []Rating, p *UserProfile) error
}

// NewBuilder creates a profile builder.
func NewBuilder(fetcher *catalog.BatchFetcher, cfg config.ProfileConfig, logger zerolog.Logger) *Builder {
	return &Builder{
		fetcher: fetcher,
		cfg:     cfg,
		logger:  logger.With().Str("component", "profile").Logger(),
	}
}

// resolvedRating pairs a valid rating with its fetched metadata.
type resolvedRating struct {
	rating Rating
	md     *catalog.Metadata
}

// Build computes a full profile from the rating list.
//
// It returns (nil, nil) when fewer than the configured minimum of valid
// ratings exist, or when fewer items resolve through the catalog:
// "not enough data" is an answer, not an error. Individual metadata
// failures are skipped. Only context cancellation returns an error.
func (b *Builder) Build(ctx context.Context, ratings []Rating) (*UserProfile, error) {
	start := time.Now()

	valid := Valid(ratings)
	if len(valid) < b.cfg.MinRatings {
		b.logger.Debug().Int("valid", len(valid)).Int("required", b.cfg.MinRatings).
			Msg("not enough valid ratings for a profile")
		metrics.ProfileBuilds.WithLabelValues("insufficient_data").Inc()
		return nil, nil
	}

	refs := make([]catalog.Ref, len(valid))
	for i, r := range valid {
		refs[i] = r.Ref
	}

	fetched, err := b.fetcher.Fetch(ctx, refs)
	if err != nil {
		metrics.ProfileBuilds.WithLabelValues("error").Inc()
		return nil, err
	}

	resolved := make([]resolvedRating, 0, len(valid))
	for _, r := range valid {
		if md, ok := fetched.Resolved[r.Ref.Key()]; ok {
			resolved = append(resolved, resolvedRating{rating: r, md: md})
		}
	}
	if len(resolved) < b.cfg.MinRatings {
		b.logger.Warn().Int("resolved", len(resolved)).Int("required", b.cfg.MinRatings).
			Msg("not enough resolvable items for a profile")
		metrics.ProfileBuilds.WithLabelValues("insufficient_data").Inc()
		return nil, nil
	}

	p := &UserProfile{
		GenreNames:        make(map[int]string),
		FavoriteActors:    make(map[int]Person),
		FavoriteDirectors: make(map[int]Person),
		AverageScore:      AverageValue(valid),
		TotalRatings:      len(valid),
		Phase: PhaseForCount(len(valid), b.cfg.MinRatings,
			b.cfg.ProfilingThreshold, b.cfg.TestingSpan),
		LastUpdated: time.Now(),
	}

	b.buildGenreDistributions(p, resolved)
	b.buildPeriodPreference(p, resolved)
	b.buildFavoritePeople(p, resolved)

	if p.Phase == PhaseTesting || p.Phase == PhaseOptimizing {
		acc := b.accuracyScore(p, resolved)
		p.AccuracyScore = &acc
	}

	if len(resolved) >= b.cfg.EagerTrainThreshold && b.OnEagerTrain != nil {
		if err := b.OnEagerTrain(ctx, ratings, p); err != nil {
			b.logger.Warn().Err(err).Msg("eager retrain after profile build failed")
		}
	}

	b.logger.Info().
		Int("valid_ratings", len(valid)).
		Int("resolved", len(resolved)).
		Str("phase", string(p.Phase)).
		Msg("profile rebuilt")
	metrics.ProfileBuilds.WithLabelValues("built").Inc()
	metrics.ObserveProfileBuild(start)
	metrics.LearningPhase.Set(float64(p.Phase.Ordinal()))

	return p, nil
}

// QualityAdjustment weights a genre by how the user's taste diverges from
// the external consensus. Loving a genre the critics pan is a strong
// affinity signal (1.2); disliking a genre the critics praise is a strong
// aversion signal (0.8). The +-2 boundaries are strict.
func QualityAdjustment(avgUser, avgExternal float64) float64 {
	diff := avgUser - avgExternal
	switch {
	case diff > 2:
		return 1.2
	case diff < -2:
		return 0.8
	default:
		return 1.0
	}
}

// genreAccumulator collects paired user/external ratings per genre.
type genreAccumulator struct {
	userSum     float64
	externalSum float64
	count       int
}

// buildGenreDistributions computes the renormalized genre preference
// distribution and the raw genre quality statistics.
func (b *Builder) buildGenreDistributions(p *UserProfile, resolved []resolvedRating) {
	acc := make(map[int]*genreAccumulator)
	for _, rr := range resolved {
		for _, g := range rr.md.Genres {
			a, ok := acc[g.ID]
			if !ok {
				a = &genreAccumulator{}
				acc[g.ID] = a
				p.GenreNames[g.ID] = g.Name
			}
			a.userSum += float64(rr.rating.Value)
			a.externalSum += rr.md.Rating
			a.count++
		}
	}

	total := float64(len(resolved))
	raw := make(map[int]float64, len(acc))
	p.GenreQuality = make(map[int]GenreQuality, len(acc))

	for id, a := range acc {
		avgUser := a.userSum / float64(a.count)
		avgExternal := a.externalSum / float64(a.count)
		frequency := float64(a.count) / total

		p.GenreQuality[id] = GenreQuality{
			AverageExternal: avgExternal,
			AverageUser:     avgUser,
			Count:           a.count,
		}
		raw[id] = (avgUser / 10) * frequency * 100 * QualityAdjustment(avgUser, avgExternal)
	}

	p.GenreDistribution = normalizeToHundred(raw)
}

// buildPeriodPreference computes the decade preference distribution.
// Same normalize-to-100 pattern as genres, without quality adjustment.
func (b *Builder) buildPeriodPreference(p *UserProfile, resolved []resolvedRating) {
	type decadeAcc struct {
		userSum float64
		count   int
	}
	acc := make(map[string]*decadeAcc)
	counted := 0
	for _, rr := range resolved {
		decade := rr.md.Decade()
		if decade == "" {
			continue
		}
		a, ok := acc[decade]
		if !ok {
			a = &decadeAcc{}
			acc[decade] = a
		}
		a.userSum += float64(rr.rating.Value)
		a.count++
		counted++
	}

	raw := make(map[string]float64, len(acc))
	for decade, a := range acc {
		avgUser := a.userSum / float64(a.count)
		frequency := float64(a.count) / float64(counted)
		raw[decade] = (avgUser / 10) * frequency * 100
	}

	p.PeriodPreference = normalizeToHundred(raw)
}

// buildFavoritePeople accumulates rating values onto the top-billed cast
// and all director credits of each resolved item.
func (b *Builder) buildFavoritePeople(p *UserProfile, resolved []resolvedRating) {
	for _, rr := range resolved {
		value := float64(rr.rating.Value)

		for _, c := range rr.md.TopCast(topCastCount) {
			entry := p.FavoriteActors[c.ID]
			entry.Name = c.Name
			entry.Weight += value
			p.FavoriteActors[c.ID] = entry
		}
		for _, d := range rr.md.Directors() {
			entry := p.FavoriteDirectors[d.ID]
			entry.Name = d.Name
			entry.Weight += value
			p.FavoriteDirectors[d.ID] = entry
		}
	}
}

// accuracyScore re-predicts each resolved rating from the just-built
// profile and reports the fraction within the configured tolerance.
// The predictor is the per-genre average user rating, falling back to the
// overall average for items with no measured genres.
func (b *Builder) accuracyScore(p *UserProfile, resolved []resolvedRating) float64 {
	if len(resolved) == 0 {
		return 0
	}

	within := 0
	for _, rr := range resolved {
		predicted := b.predictFromProfile(p, rr.md)
		diff := predicted - float64(rr.rating.Value)
		if diff < 0 {
			diff = -diff
		}
		if diff <= b.cfg.AccuracyTolerance {
			within++
		}
	}
	return float64(within) / float64(len(resolved))
}

// predictFromProfile estimates a rating for an item using only profile
// statistics.
func (b *Builder) predictFromProfile(p *UserProfile, md *catalog.Metadata) float64 {
	sum, n := 0.0, 0
	for _, g := range md.Genres {
		if q, ok := p.GenreQuality[g.ID]; ok {
			sum += q.AverageUser
			n++
		}
	}
	if n == 0 {
		return p.AverageScore
	}
	return sum / float64(n)
}

// normalizeToHundred rescales a raw score map so its values sum to 100.
// An all-zero or empty map is returned unchanged.
func normalizeToHundred[K comparable](raw map[K]float64) map[K]float64 {
	var sum float64
	for _, v := range raw {
		sum += v
	}
	if sum == 0 {
		return raw
	}
	out := make(map[K]float64, len(raw))
	for k, v := range raw {
		out[k] = v / sum * 100
	}
	return out
}
