package source

import (
	"context"
	"fmt"
	"os"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/model"
)

// fileSource serves events from a JSON file on disk. The file is re-read on
// every fetch so edits show up without a restart.
type fileSource struct {
	cfg config.SourceConfig
}

func NewFileSource(cfg config.SourceConfig) *fileSource {
	return &fileSource{cfg: cfg}
}

func (f *fileSource) Name() string { return f.cfg.Name }

// Fetch returns the events whose venue lies within q.RadiusKm of the query
// point. A non-positive radius returns every event.
func (f *fileSource) Fetch(ctx context.Context, q Query) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(f.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	events := mapRows(rows, f.Name())
	if q.RadiusKm <= 0 {
		return events, nil
	}

	out := events[:0]
	for _, ev := range events {
		if !ev.HasCoordinates() {
			continue
		}
		lat, lon := ev.Coordinates()
		if engine.HaversineKm(q.Lat, q.Lon, lat, lon) <= q.RadiusKm {
			out = append(out, ev)
		}
	}
	return out, nil
}
