package engine

import (
	"strings"
	"time"

	"github.com/galois26/eventclash/internal/model"
)

const (
	duplicateStartWindow = 5 * time.Minute

	// co-located postings within the start window
	nearVenueKm        = 0.05
	nearNameSimilarity = 0.85

	// postings at adjacent addresses whose time ranges overlap
	adjacentVenueKm        = 0.10
	adjacentNameSimilarity = 0.80
)

// signature is the comparison key of one kept event during filtering.
type signature struct {
	name           string
	normalizedName string
	venueName      string
	hasCoords      bool
	lat, lon       float64
	start, end     time.Time
}

func (e *Engine) signatureOf(ev model.Event) signature {
	sig := signature{
		name:           strings.ToLower(strings.TrimSpace(ev.Name)),
		normalizedName: NormalizeEventName(ev.Name),
		venueName:      strings.ToLower(strings.TrimSpace(ev.VenueName())),
		start:          ev.Start.Time,
		end:            ev.End.Time,
	}
	if sig.end.IsZero() && !sig.start.IsZero() {
		sig.end = sig.start.Add(e.cfg.AssumedEventDuration)
	}
	if ev.HasCoordinates() {
		sig.hasCoords = true
		sig.lat, sig.lon = ev.Coordinates()
	}
	return sig
}

// IsDuplicateEvent reports whether b is a repost of a, using DefaultConfig.
func IsDuplicateEvent(a, b model.Event) bool {
	return defaultEngine.IsDuplicateEvent(a, b)
}

// IsDuplicateEvent reports whether two postings describe the same real-world
// event. The relation is symmetric.
func (e *Engine) IsDuplicateEvent(a, b model.Event) bool {
	if a.Start.IsZero() || b.Start.IsZero() {
		return false
	}
	return isDuplicate(e.signatureOf(a), e.signatureOf(b))
}

func isDuplicate(a, b signature) bool {
	startGap := a.start.Sub(b.start)
	if startGap < 0 {
		startGap = -startGap
	}
	closeStart := startGap <= duplicateStartWindow

	if closeStart && a.venueName == b.venueName {
		if a.name == b.name || a.normalizedName == b.normalizedName {
			return true
		}
	}

	if !a.hasCoords || !b.hasCoords {
		return false
	}
	dist := HaversineKm(a.lat, a.lon, b.lat, b.lon)
	if dist >= adjacentVenueKm {
		return false
	}

	similarity := NameSimilarity(a.normalizedName, b.normalizedName)
	if dist < nearVenueKm && closeStart && similarity > nearNameSimilarity {
		return true
	}
	overlaps := a.start.Before(b.end) && b.start.Before(a.end)
	return overlaps && similarity > adjacentNameSimilarity
}

// FilterDuplicates removes incomplete events and duplicates using DefaultConfig.
func FilterDuplicates(events []model.Event) []model.Event {
	return defaultEngine.FilterDuplicates(events)
}

// FilterDuplicates drops events missing times or coordinates, exact id
// repeats, and near-duplicate postings. The first occurrence of each logical
// event is kept and input order is preserved.
func (e *Engine) FilterDuplicates(events []model.Event) []model.Event {
	seen := make(map[string]struct{}, len(events))
	kept := make([]signature, 0, len(events))
	out := make([]model.Event, 0, len(events))

	for _, ev := range events {
		if !ev.Matchable() {
			continue
		}
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		sig := e.signatureOf(ev)
		duplicate := false
		for _, k := range kept {
			if isDuplicate(k, sig) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen[ev.ID] = struct{}{}
		kept = append(kept, sig)
		out = append(out, ev)
	}
	return out
}
