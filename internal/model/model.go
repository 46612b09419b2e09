package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Venue is where an event takes place. Lat/Lon are nil when the source did not
// provide coordinates. Events without a venue name or coordinates never take
// part in matching.
type Venue struct {
	Name string   `json:"name"`
	Lat  *float64 `json:"lat"`
	Lon  *float64 `json:"lon"`
}

// Event is the normalized representation for all sources.
type Event struct {
	ID     string    `json:"id"`     // stable per source
	Name   string    `json:"name"`
	Start  Timestamp `json:"start"`
	End    Timestamp `json:"end"`
	Venue  *Venue    `json:"venue,omitempty"`
	Source string    `json:"source"` // e.g. "ticketmaster"
	Genres []string  `json:"genres,omitempty"`
}

// HasTimes reports whether both start and end are set.
func (e Event) HasTimes() bool {
	return !e.Start.IsZero() && !e.End.IsZero()
}

// HasCoordinates reports whether the venue carries a usable lat/lon pair.
func (e Event) HasCoordinates() bool {
	return e.Venue != nil && e.Venue.Lat != nil && e.Venue.Lon != nil
}

// HasVenue reports whether the venue is named and located.
func (e Event) HasVenue() bool {
	return e.HasCoordinates() && strings.TrimSpace(e.Venue.Name) != ""
}

// Matchable is true when the event has everything the matcher needs.
func (e Event) Matchable() bool {
	return e.HasTimes() && e.HasVenue()
}

// VenueName returns the venue name or "" when there is no venue.
func (e Event) VenueName() string {
	if e.Venue == nil {
		return ""
	}
	return e.Venue.Name
}

// Coordinates returns lat, lon. Callers must check HasCoordinates first.
func (e Event) Coordinates() (float64, float64) {
	return *e.Venue.Lat, *e.Venue.Lon
}

// Coord is a convenience for building venue coordinates in literals.
func Coord(v float64) *float64 { return &v }

// Timestamp wraps time.Time and accepts the handful of layouts sources send:
// RFC3339, zone-less date-times (read as UTC), plain dates and epoch seconds or milliseconds.
type Timestamp struct {
	time.Time
}

// At builds a Timestamp from a time.Time.
func At(t time.Time) Timestamp { return Timestamp{Time: t} }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	if !strings.HasPrefix(s, `"`) {
		// bare number: epoch seconds or milliseconds
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("unsupported time: %s", s)
		}
		t.Time = FromEpoch(n)
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// epochMillisCutoff is 1e12: as seconds that is past the year 33000, as
// milliseconds it is September 2001.
const epochMillisCutoff = 1_000_000_000_000

// FromEpoch reads n as epoch milliseconds when its magnitude reaches 1e12 and
// as epoch seconds otherwise.
func FromEpoch(n int64) time.Time {
	if n >= epochMillisCutoff || n <= -epochMillisCutoff {
		return time.UnixMilli(n).UTC()
	}
	return time.Unix(n, 0).UTC()
}

// ParseTime parses timestamps in a few common formats (RFC3339, epoch seconds
// or milliseconds, common layouts). Offsets from RFC3339 input are preserved.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if len(s) >= 10 {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return FromEpoch(n), nil
		}
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time: %s", s)
}
