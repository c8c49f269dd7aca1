package schedule

import "admincal/internal/model"

// Merge returns a new slice holding existing followed by incoming.
//
// Order of both inputs is kept and nothing is de-duplicated: merging the
// same batch twice yields it twice. existing is never written to, so callers
// holding the previous slice keep seeing the previous collection.
func Merge(existing, incoming []model.Event) []model.Event {
	out := make([]model.Event, 0, len(existing)+len(incoming))
	out = append(out, existing...)
	return append(out, incoming...)
}

// ReplaceSource drops every event of source from existing and appends
// incoming. This is the refresh form of Merge: applying the same fetch twice
// leaves a single copy of that source's events.
func ReplaceSource(existing []model.Event, source model.SourceType, incoming []model.Event) []model.Event {
	kept := make([]model.Event, 0, len(existing))
	for _, ev := range existing {
		if ev.Source != source {
			kept = append(kept, ev)
		}
	}
	return Merge(kept, incoming)
}

// Find returns the index of the first event with the given key, or -1.
func Find(events []model.Event, key model.Key) int {
	for i, ev := range events {
		if ev.Source == key.Source && ev.ID == key.ID {
			return i
		}
	}
	return -1
}

// Replace returns a copy of events with the entry at i swapped for ev.
func Replace(events []model.Event, i int, ev model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	out[i] = ev
	return out
}
