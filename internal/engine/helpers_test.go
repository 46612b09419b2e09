package engine

import (
	"math"
	"time"

	"github.com/galois26/eventclash/internal/model"
)

// Blue Note, Greenwich Village
const (
	blueNoteLat = 40.73094
	blueNoteLon = -74.00065
)

var eightPM = time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)

// kmNorth moves a latitude north by km along a meridian.
func kmNorth(lat, km float64) float64 {
	return lat + km/(EarthRadiusKm*math.Pi/180)
}

func newEvent(id, name, venue string, lat, lon float64, start time.Time, dur time.Duration, source string) model.Event {
	return model.Event{
		ID:     id,
		Name:   name,
		Start:  model.At(start),
		End:    model.At(start.Add(dur)),
		Venue:  &model.Venue{Name: venue, Lat: model.Coord(lat), Lon: model.Coord(lon)},
		Source: source,
	}
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, ev := range events {
		out[i] = ev.ID
	}
	return out
}

func pairKeys(conflicts []model.Conflict) map[pairKey]int {
	out := make(map[pairKey]int, len(conflicts))
	for _, c := range conflicts {
		out[keyFor(c.Events[0].ID, c.Events[1].ID)]++
	}
	return out
}

func reversed(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}
