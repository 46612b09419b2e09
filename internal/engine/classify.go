package engine

import (
	"sort"
	"strings"
	"time"

	"github.com/galois26/eventclash/internal/model"
)

const (
	sameVenueKm         = 0.05
	sameVenueSimilarity = 0.7

	highOverlapPercent   = 50
	mediumOverlapPercent = 25

	// TimeSlotLayout renders the start of the earlier event of a pair.
	TimeSlotLayout = "Mon, Jan 2, 3:04 PM"
)

// IsSameVenue reports whether two events are at one venue: equal names, or
// near-identical coordinates with similar names. Coordinates alone are not
// enough because distinct venues often share rounded geocodes.
func IsSameVenue(a, b model.Event) bool {
	na := strings.ToLower(strings.TrimSpace(a.VenueName()))
	nb := strings.ToLower(strings.TrimSpace(b.VenueName()))
	if na != "" && na == nb {
		return true
	}
	dist, ok := VenueDistanceKm(a, b)
	if !ok {
		return false
	}
	return dist < sameVenueKm && VenueSimilarity(a.VenueName(), b.VenueName()) > sameVenueSimilarity
}

// DetermineConflictType labels a pair by venue identity and source.
func DetermineConflictType(a, b model.Event) model.ConflictType {
	sameVenue := IsSameVenue(a, b)
	crossPlatform := a.Source != b.Source
	switch {
	case sameVenue && crossPlatform:
		return model.ConflictCrossPlatformDuplicate
	case sameVenue:
		return model.ConflictSameVenue
	case crossPlatform:
		return model.ConflictCrossPlatformProximity
	default:
		return model.ConflictTimeVenue
	}
}

// CalculateSeverity grades a pair by how much of their combined duration
// overlaps: above 50% is high, above 25% medium, anything else low.
func CalculateSeverity(a, b model.Event) model.Severity {
	pct := OverlapPercentage(a, b)
	switch {
	case pct > highOverlapPercent:
		return model.SeverityHigh
	case pct > mediumOverlapPercent:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// OverlapPercentage is the overlap window as a percentage of both durations
// summed. A pair with no total duration scores 0.
func OverlapPercentage(a, b model.Event) float64 {
	overlapStart := latest(a.Start.Time, b.Start.Time)
	overlapEnd := earliest(a.End.Time, b.End.Time)
	overlap := overlapEnd.Sub(overlapStart)
	if overlap < 0 {
		overlap = 0
	}
	total := a.End.Sub(a.Start.Time) + b.End.Sub(b.Start.Time)
	if total <= 0 {
		return 0
	}
	return float64(overlap) / float64(total) * 100
}

// FormatTimeSlot renders the start of whichever event begins first.
func FormatTimeSlot(a, b model.Event) string {
	first := a.Start.Time
	if b.Start.Before(first) {
		first = b.Start.Time
	}
	return first.Format(TimeSlotLayout)
}

// SharedGenres returns the genres both events carry, lowercased and sorted.
func SharedGenres(a, b model.Event) []string {
	if len(a.Genres) == 0 || len(b.Genres) == 0 {
		return nil
	}
	have := make(map[string]struct{}, len(a.Genres))
	for _, g := range a.Genres {
		if g = strings.ToLower(strings.TrimSpace(g)); g != "" {
			have[g] = struct{}{}
		}
	}
	var shared []string
	for _, g := range b.Genres {
		g = strings.ToLower(strings.TrimSpace(g))
		if _, ok := have[g]; ok {
			shared = append(shared, g)
			delete(have, g)
		}
	}
	sort.Strings(shared)
	return shared
}

func latest(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earliest(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
