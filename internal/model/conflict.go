package model

// ConflictType labels why two events clash.
type ConflictType string

const (
	ConflictSameVenue              ConflictType = "same_venue_conflict"
	ConflictCrossPlatformDuplicate ConflictType = "cross_platform_duplicate"
	ConflictCrossPlatformProximity ConflictType = "cross_platform_proximity"
	ConflictTimeVenue              ConflictType = "time_venue_conflict"
)

// Severity is the overlap-intensity tier of a conflict.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities so that low < medium < high.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Conflict is a pair of events that cannot both be attended.
// Events always holds exactly two distinct events.
type Conflict struct {
	Events       [2]Event     `json:"events"`
	ConflictType ConflictType `json:"conflictType"`
	TimeSlot     string       `json:"timeSlot"`
	Severity     Severity     `json:"severity"`
	SharedGenres []string     `json:"sharedGenres,omitempty"`
}

// Key identifies a conflict independent of event order.
func (c Conflict) Key() string {
	a := c.Events[0].Source + ":" + c.Events[0].ID
	b := c.Events[1].Source + ":" + c.Events[1].ID
	if b < a {
		a, b = b, a
	}
	return string(c.ConflictType) + "|" + a + "|" + b
}
