// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// BatchFetcher resolves metadata for many items in fixed-size batches with
// a pause between batches. The pacing is a deliberate backpressure measure
// against the external metadata provider, not an incidental delay.
type BatchFetcher struct {
	lookup    Lookup
	batchSize int
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// BatchResult is the outcome of a batched fetch.
type BatchResult struct {
	// Resolved maps item keys to fetched metadata.
	Resolved map[string]*Metadata

	// NotFound lists refs the catalog reported as unknown.
	NotFound []Ref

	// Failed lists refs that failed for reasons other than not-found.
	// These are skipped, never fatal.
	Failed []Ref
}

// NewBatchFetcher creates a batch fetcher over the given lookup.
// batchSize defaults to 5 and pause to 100ms when zero.
func NewBatchFetcher(lookup Lookup, batchSize int, pause time.Duration, logger zerolog.Logger) *BatchFetcher {
	if batchSize <= 0 {
		batchSize = 5
	}
	if pause <= 0 {
		pause = 100 * time.Millisecond
	}
	return &BatchFetcher{
		lookup:    lookup,
		batchSize: batchSize,
		limiter:   rate.NewLimiter(rate.Every(pause), 1),
		logger:    logger,
	}
}

// Fetch resolves all refs, batch by batch. Individual failures are
// recorded and skipped; only context cancellation aborts the whole fetch.
func (f *BatchFetcher) Fetch(ctx context.Context, refs []Ref) (*BatchResult, error) {
	result := &BatchResult{Resolved: make(map[string]*Metadata, len(refs))}

	for start := 0; start < len(refs); start += f.batchSize {
		if start > 0 {
			// Inter-batch pause bounds burst concurrency on the provider.
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		end := start + f.batchSize
		if end > len(refs) {
			end = len(refs)
		}

		for _, ref := range refs[start:end] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			md, err := f.lookup.Details(ctx, ref)
			switch {
			case errors.Is(err, ErrNotFound):
				result.NotFound = append(result.NotFound, ref)
			case err != nil:
				f.logger.Debug().Err(err).Str("item", ref.Key()).Msg("metadata fetch failed, skipping")
				result.Failed = append(result.Failed, ref)
			default:
				result.Resolved[ref.Key()] = md
			}
		}
	}

	return result, nil
}
