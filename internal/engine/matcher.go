package engine

import (
	"time"

	"github.com/galois26/eventclash/internal/model"
)

const (
	// venues with unrelated names only pair when this close
	unrelatedVenueSimilarity = 0.3
	unrelatedVenueKm         = 0.1
)

// FindOptions controls one FindConflicts call.
type FindOptions struct {
	// TimeBuffer widens every event symmetrically before testing overlap.
	TimeBuffer time.Duration

	// VenueProximityKm is the maximum venue distance for a conflict. Nil
	// means the cutoff is estimated from venue density.
	VenueProximityKm *float64

	// SkipDuplicateFilter is set when events were already filtered.
	SkipDuplicateFilter bool
}

// DefaultFindOptions returns options with the default buffer and a dynamic threshold.
func DefaultFindOptions() FindOptions {
	return defaultEngine.FindOptions()
}

// FindOptions returns options with the configured buffer and a dynamic threshold.
func (e *Engine) FindOptions() FindOptions {
	return FindOptions{TimeBuffer: e.cfg.DefaultTimeBuffer}
}

// FindConflicts runs the pipeline with DefaultConfig.
func FindConflicts(events []model.Event, opts FindOptions) []model.Conflict {
	return defaultEngine.FindConflicts(events, opts)
}

// FindConflicts returns every pair of events that overlap in time (widened
// by opts.TimeBuffer) at venues within the proximity threshold. Each pair is
// reported once no matter how the input is ordered.
func (e *Engine) FindConflicts(events []model.Event, opts FindOptions) []model.Conflict {
	unique := events
	if !opts.SkipDuplicateFilter {
		unique = e.FilterDuplicates(events)
	}
	threshold := e.resolveThreshold(unique, opts.VenueProximityKm)
	return e.matchPairs(unique, opts.TimeBuffer, threshold)
}

func (e *Engine) resolveThreshold(events []model.Event, manual *float64) float64 {
	if manual != nil {
		return *manual
	}
	return e.DynamicThreshold(events)
}

type pairKey struct{ lo, hi string }

func keyFor(a, b string) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

func (e *Engine) matchPairs(events []model.Event, buffer time.Duration, thresholdKm float64) []model.Conflict {
	conflicts := make([]model.Conflict, 0)
	processed := make(map[pairKey]struct{})

	for i := 0; i < len(events); i++ {
		a := events[i]
		if !a.Matchable() {
			continue
		}
		for j := i + 1; j < len(events); j++ {
			b := events[j]
			if !b.Matchable() || a.ID == b.ID {
				continue
			}
			key := keyFor(a.ID, b.ID)
			if _, done := processed[key]; done {
				continue
			}
			if !timesOverlap(a, b, buffer) {
				continue
			}
			if !withinProximity(a, b, thresholdKm) {
				continue
			}
			conflicts = append(conflicts, model.Conflict{
				Events:       [2]model.Event{a, b},
				ConflictType: DetermineConflictType(a, b),
				TimeSlot:     FormatTimeSlot(a, b),
				Severity:     CalculateSeverity(a, b),
				SharedGenres: SharedGenres(a, b),
			})
			processed[key] = struct{}{}
		}
	}
	return conflicts
}

// timesOverlap is symmetric: each range is widened by buffer on both sides.
func timesOverlap(a, b model.Event, buffer time.Duration) bool {
	return !a.Start.After(b.End.Add(buffer)) && !a.End.Before(b.Start.Add(-buffer))
}

func withinProximity(a, b model.Event, thresholdKm float64) bool {
	dist, ok := VenueDistanceKm(a, b)
	if !ok {
		return false
	}
	limit := thresholdKm
	if dist > unrelatedVenueKm && VenueSimilarity(a.VenueName(), b.VenueName()) < unrelatedVenueSimilarity {
		limit = unrelatedVenueKm
	}
	return dist <= limit
}
