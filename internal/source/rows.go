package source

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/galois26/eventclash/internal/model"
)

// decodeRows accepts a bare array of rows or an object wrapping one under
// events, results, data or items.
func decodeRows(raw []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}

	var arr []any
	switch tv := doc.(type) {
	case []any:
		arr = tv
	case map[string]any:
		for _, key := range []string{"events", "results", "data", "items"} {
			if inner, ok := tv[key].([]any); ok {
				arr = inner
				break
			}
			// {"data": {"events": [...]}}
			if nested, ok := tv[key].(map[string]any); ok {
				if inner, ok := nested["events"].([]any); ok {
					arr = inner
					break
				}
			}
		}
		if arr == nil {
			return nil, fmt.Errorf("unrecognized response shape (len=%d)", len(raw))
		}
	default:
		return nil, fmt.Errorf("unrecognized response shape (len=%d)", len(raw))
	}

	flat := make([]map[string]any, 0, len(arr))
	for _, it := range arr {
		if m, ok := it.(map[string]any); ok {
			flat = append(flat, m)
		}
	}
	return flat, nil
}

// mapRow maps one loosely-typed row onto an Event. Rows without an id or a
// name are skipped; missing times or coordinates are left empty for the
// engine to exclude.
func mapRow(m map[string]any, sourceName string) (model.Event, bool) {
	id := pickStr(m, "id", "event_id", "uid")
	name := pickStr(m, "name", "title", "event_name")
	if id == "" || name == "" {
		return model.Event{}, false
	}

	ev := model.Event{
		ID:     id,
		Name:   name,
		Start:  model.At(pickTime(m, "start", "start_time", "starts_at", "startDate")),
		End:    model.At(pickTime(m, "end", "end_time", "ends_at", "endDate")),
		Source: pickStr(m, "source", "platform"),
		Genres: pickStrings(m, "genres", "genre", "categories", "category"),
	}
	if ev.Source == "" {
		ev.Source = sourceName
	}

	venue := &model.Venue{}
	if vm, ok := m["venue"].(map[string]any); ok {
		venue.Name = pickStr(vm, "name", "title")
		venue.Lat = pickFloat(vm, "lat", "latitude")
		venue.Lon = pickFloat(vm, "lon", "lng", "longitude")
		if loc, ok := vm["location"].(map[string]any); ok && venue.Lat == nil {
			venue.Lat = pickFloat(loc, "lat", "latitude")
			venue.Lon = pickFloat(loc, "lon", "lng", "longitude")
		}
	} else if s, ok := m["venue"].(string); ok {
		venue.Name = s
	}
	if venue.Name == "" {
		venue.Name = pickStr(m, "venue_name", "location_name")
	}
	if venue.Lat == nil {
		venue.Lat = pickFloat(m, "lat", "latitude", "venue_lat")
	}
	if venue.Lon == nil {
		venue.Lon = pickFloat(m, "lon", "lng", "longitude", "venue_lon")
	}
	if venue.Name != "" || venue.Lat != nil || venue.Lon != nil {
		ev.Venue = venue
	}
	return ev, true
}

func mapRows(rows []map[string]any, sourceName string) []model.Event {
	out := make([]model.Event, 0, len(rows))
	for _, m := range rows {
		if ev, ok := mapRow(m, sourceName); ok {
			out = append(out, ev)
		}
	}
	return out
}
