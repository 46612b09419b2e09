package engine

import (
	"sort"

	"github.com/galois26/eventclash/internal/model"
)

const (
	// pairs farther apart than this say nothing about local density
	densityHorizonKm = 1.0

	denseMedianKm    = 0.2
	denseThresholdKm = 0.15
	urbanMedianKm    = 0.5
	urbanThresholdKm = 0.20
)

// CalculateDynamicThreshold estimates a proximity cutoff with DefaultConfig.
func CalculateDynamicThreshold(events []model.Event, baseThresholdKm float64) float64 {
	return defaultEngine.CalculateDynamicThreshold(events, baseThresholdKm)
}

// DynamicThreshold estimates a proximity cutoff using the configured base.
func (e *Engine) DynamicThreshold(events []model.Event) float64 {
	return e.CalculateDynamicThreshold(events, e.cfg.BaseThresholdKm)
}

// CalculateDynamicThreshold maps the median distance between nearby venues to
// a proximity cutoff in km. Dense clusters get a tighter radius so that
// neighbouring but unrelated venues are not paired. Only the first
// DensitySampleSize events with coordinates are sampled.
func (e *Engine) CalculateDynamicThreshold(events []model.Event, baseThresholdKm float64) float64 {
	sample := make([]model.Event, 0, e.cfg.DensitySampleSize)
	for _, ev := range events {
		if len(sample) == e.cfg.DensitySampleSize {
			break
		}
		if ev.HasCoordinates() {
			sample = append(sample, ev)
		}
	}

	var distances []float64
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			d, _ := VenueDistanceKm(sample[i], sample[j])
			if d < densityHorizonKm {
				distances = append(distances, d)
			}
		}
	}
	if len(distances) == 0 {
		return baseThresholdKm
	}

	sort.Float64s(distances)
	median := distances[len(distances)/2]
	switch {
	case median < denseMedianKm:
		return denseThresholdKm
	case median < urbanMedianKm:
		return urbanThresholdKm
	default:
		return baseThresholdKm
	}
}
