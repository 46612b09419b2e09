package engine

import (
	"github.com/galois26/eventclash/internal/model"
)

// ThresholdMode records where the proximity threshold came from.
type ThresholdMode string

const (
	ThresholdManual  ThresholdMode = "manual"
	ThresholdDynamic ThresholdMode = "dynamic"
)

// Report is the outcome of one Analyze call.
type Report struct {
	Conflicts          []model.Conflict `json:"conflicts"`
	TotalEvents        int              `json:"totalEvents"`
	UniqueEvents       int              `json:"uniqueEvents"`
	DuplicatesFiltered int              `json:"duplicatesFiltered"`
	ConflictCount      int              `json:"conflictCount"`

	// TimeBuffer is in minutes, VenueProximityThreshold in km.
	TimeBuffer              float64       `json:"timeBuffer"`
	VenueProximityThreshold float64       `json:"venueProximityThreshold"`
	ThresholdMode           ThresholdMode `json:"thresholdMode"`
}

// Analyze runs the pipeline with DefaultConfig.
func Analyze(events []model.Event, opts FindOptions) Report {
	return defaultEngine.Analyze(events, opts)
}

// Analyze filters events, resolves the threshold once and matches pairs,
// returning the conflicts together with the counts callers report.
// DuplicatesFiltered counts every dropped event, incomplete ones included.
func (e *Engine) Analyze(events []model.Event, opts FindOptions) Report {
	unique := events
	if !opts.SkipDuplicateFilter {
		unique = e.FilterDuplicates(events)
	}

	mode := ThresholdDynamic
	if opts.VenueProximityKm != nil {
		mode = ThresholdManual
	}
	threshold := e.resolveThreshold(unique, opts.VenueProximityKm)
	conflicts := e.matchPairs(unique, opts.TimeBuffer, threshold)

	return Report{
		Conflicts:               conflicts,
		TotalEvents:             len(events),
		UniqueEvents:            len(unique),
		DuplicatesFiltered:      len(events) - len(unique),
		ConflictCount:           len(conflicts),
		TimeBuffer:              opts.TimeBuffer.Minutes(),
		VenueProximityThreshold: threshold,
		ThresholdMode:           mode,
	}
}
