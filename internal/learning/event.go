// CineLens - Personal Media Taste Engine
// Copyright 2026 CineLens Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/cinelens/cinelens

// Package learning implements the real-time learning loop: it consumes
// rating events, applies cheap incremental profile patches immediately,
// decides when a full rebuild or model retrain is warranted, and exposes
// learning analytics and narrative insights.
package learning

import (
	"time"

	"github.com/google/uuid"

	"github.com/cinelens/cinelens/internal/catalog"
	"github.com/cinelens/cinelens/internal/profile"
)

// EventKind is the kind of rating change an event describes.
type EventKind string

const (
	// EventAdded means a new rating was recorded.
	EventAdded EventKind = "added"
	// EventUpdated means an existing rating's value changed.
	EventUpdated EventKind = "updated"
	// EventRemoved means a rating was deleted.
	EventRemoved EventKind = "removed"
)

// Event is one entry in the append-only learning-event log.
type Event struct {
	ID        string      `json:"id"`
	Kind      EventKind   `json:"kind"`
	Ref       catalog.Ref `json:"ref"`
	Timestamp time.Time   `json:"timestamp"`

	// OldValue is the previous rating value; nil for added events.
	OldValue *profile.Value `json:"old_value,omitempty"`

	// NewValue is the new rating value; nil for removed events.
	NewValue *profile.Value `json:"new_value,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current time.
// oldValue and newValue may be nil depending on kind.
func NewEvent(kind EventKind, ref catalog.Ref, oldValue, newValue *profile.Value) Event {
	return Event{
		ID:        uuid.NewString(),
		Kind:      kind,
		Ref:       ref,
		Timestamp: time.Now(),
		OldValue:  oldValue,
		NewValue:  newValue,
	}
}

// appendCapped appends ev and drops the oldest entries when the log
// exceeds maxEvents. Eviction is FIFO, not LRU: order of arrival is the
// only criterion.
func appendCapped(events []Event, ev Event, maxEvents int) []Event {
	events = append(events, ev)
	if excess := len(events) - maxEvents; excess > 0 {
		events = append(events[:0], events[excess:]...)
	}
	return events
}
