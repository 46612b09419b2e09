package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/sink"
	"github.com/galois26/eventclash/internal/source"
	"github.com/galois26/eventclash/internal/store"
)

const eventsJSON = `{"events": [
  {"id": "tm-jazz", "name": "Jazz Concert", "start": "2024-06-01T20:00:00Z", "end": "2024-06-01T22:00:00Z",
   "venue": {"name": "Blue Note", "lat": 40.7309, "lon": -74.0006}, "source": "ticketmaster"},
  {"id": "eb-jazz", "title": "Jazz Night", "start_time": "2024-06-01T20:30:00Z", "end_time": "2024-06-01T22:30:00Z",
   "venue": {"name": "Blue Note", "latitude": 40.7309, "longitude": -74.0006}, "platform": "eventbrite"},
  {"id": "tm-dup", "name": "JAZZ CONCERT", "start": "2024-06-01T20:03:00Z", "end": "2024-06-01T22:00:00Z",
   "venue": {"name": "Blue Note", "lat": 40.7309, "lon": -74.0006}, "source": "seatgeek"},
  {"id": "no-venue", "name": "Mystery Gig", "start": "2024-06-01T20:00:00Z", "end": "2024-06-01T22:00:00Z"}
]}`

func writeEvents(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte(eventsJSON), 0o644))
	return path
}

func TestRunDetectJSON(t *testing.T) {
	var out bytes.Buffer
	err := runDetect(context.Background(), &out, detectOptions{
		file:       writeEvents(t),
		timeBuffer: 30 * time.Minute,
		asJSON:     true,
	})
	require.NoError(t, err)

	var rep engine.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &rep))
	assert.Equal(t, 4, rep.TotalEvents)
	assert.Equal(t, 2, rep.UniqueEvents)
	assert.Equal(t, 2, rep.DuplicatesFiltered)
	assert.Equal(t, 1, rep.ConflictCount)
	assert.Equal(t, engine.ThresholdDynamic, rep.ThresholdMode)
}

func TestRunDetectTable(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	threshold := 0.5
	var out bytes.Buffer
	require.NoError(t, runDetect(context.Background(), &out, detectOptions{
		file:        writeEvents(t),
		timeBuffer:  15 * time.Minute,
		thresholdKm: &threshold,
	}))

	text := out.String()
	assert.Contains(t, text, "=== Event Conflicts ===")
	assert.Contains(t, text, "[medium] cross_platform_duplicate  Sat, Jun 1, 8:00 PM")
	assert.Contains(t, text, "Jazz Night @ Blue Note (eventbrite)")
	assert.Contains(t, text, "Threshold: 0.50 km (manual), buffer 15 min")
}

func TestRunDetectErrors(t *testing.T) {
	neg := -1.0
	tests := []struct {
		name string
		opts detectOptions
	}{
		{name: "missing file", opts: detectOptions{file: filepath.Join(t.TempDir(), "nope.json")}},
		{name: "negative buffer", opts: detectOptions{file: writeEvents(t), timeBuffer: -time.Minute}},
		{name: "negative threshold", opts: detectOptions{file: writeEvents(t), thresholdKm: &neg}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, runDetect(context.Background(), io.Discard, tt.opts))
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug", "json")
	require.NoError(t, err)
	logger.Debug("hello", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

type fixedSource struct {
	name   string
	events []model.Event
	err    error
}

func (f fixedSource) Name() string { return f.name }

func (f fixedSource) Fetch(context.Context, source.Query) ([]model.Event, error) {
	return f.events, f.err
}

type failingSink struct{ err error }

func (f failingSink) Name() string { return "failing" }

func (f failingSink) Push(context.Context, []model.Conflict) error { return f.err }

func scanEvents() []model.Event {
	at := func(h, m int) model.Timestamp {
		return model.At(time.Date(2024, 6, 1, h, m, 0, 0, time.UTC))
	}
	venue := func() *model.Venue {
		return &model.Venue{Name: "Blue Note", Lat: model.Coord(40.7309), Lon: model.Coord(-74.0006)}
	}
	return []model.Event{
		{ID: "tm-jazz", Name: "Jazz Concert", Start: at(20, 0), End: at(22, 0), Venue: venue(), Source: "ticketmaster"},
		{ID: "eb-jazz", Name: "Jazz Night", Start: at(20, 30), End: at(22, 30), Venue: venue()},
	}
}

func newTestScanner(t *testing.T, sinks []sink.Sink, sources ...source.Source) *scanner {
	t.Helper()
	clock := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	sc := &scanner{
		engine:    engine.Default(),
		sources:   sources,
		sinks:     sinks,
		query:     source.Query{Lat: 40.73, Lon: -74, RadiusKm: 2},
		repush:    time.Hour,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:       func() time.Time { return clock },
		statePath: filepath.Join(t.TempDir(), "state.json"),
	}
	require.NoError(t, sc.loadState())
	return sc
}

func TestScannerPushesOnlyNewConflicts(t *testing.T) {
	var out bytes.Buffer
	sc := newTestScanner(t, []sink.Sink{sink.NewWriter(&out)}, fixedSource{name: "eventbrite", events: scanEvents()})

	assert.Equal(t, 1, sc.runOnce(context.Background()))
	assert.Contains(t, out.String(), `"conflictType":"cross_platform_duplicate"`)

	out.Reset()
	assert.Equal(t, 0, sc.runOnce(context.Background()), "already published")
	assert.Empty(t, out.String())

	saved, err := store.LoadPushLog(sc.statePath)
	require.NoError(t, err)
	assert.Contains(t, saved.Pushed, "cross_platform_duplicate|eventbrite:eb-jazz|ticketmaster:tm-jazz")

	// a restarted scanner picks up the saved state
	restarted := newTestScanner(t, []sink.Sink{sink.NewWriter(&out)}, fixedSource{name: "eventbrite", events: scanEvents()})
	restarted.statePath = sc.statePath
	require.NoError(t, restarted.loadState())
	assert.Equal(t, 0, restarted.runOnce(context.Background()))
}

func TestScannerRetriesAfterSinkFailure(t *testing.T) {
	sc := newTestScanner(t, []sink.Sink{failingSink{err: errors.New("loki down")}}, fixedSource{name: "eventbrite", events: scanEvents()})
	assert.Equal(t, 0, sc.runOnce(context.Background()))
	assert.Empty(t, sc.state.Pushed)

	var out bytes.Buffer
	sc.sinks = []sink.Sink{sink.NewWriter(&out)}
	assert.Equal(t, 1, sc.runOnce(context.Background()))
}

func TestScannerAllSourcesFailing(t *testing.T) {
	var out bytes.Buffer
	sc := newTestScanner(t, []sink.Sink{sink.NewWriter(&out)}, fixedSource{name: "feed", err: errors.New("timeout")})
	assert.Equal(t, 0, sc.runOnce(context.Background()))
	assert.Empty(t, out.String())
}
