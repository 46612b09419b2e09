package sink

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
)

// Sink is the minimal interface all sinks must implement.
type Sink interface {
	Name() string
	Push(ctx context.Context, conflicts []model.Conflict) error
}

// FromConfig builds every sink with a configured URL.
func FromConfig(loki config.LokiConfig, victoria config.VictoriaConfig) []Sink {
	var sinks []Sink
	if strings.TrimSpace(loki.URL) != "" {
		sinks = append(sinks, NewLoki(loki))
	}
	if strings.TrimSpace(victoria.URL) != "" {
		sinks = append(sinks, NewVictoria(victoria))
	}
	return sinks
}

// conflictLine is the compact record written for one conflict.
type conflictLine struct {
	ConflictType model.ConflictType `json:"conflictType"`
	Severity     model.Severity     `json:"severity"`
	TimeSlot     string             `json:"timeSlot"`
	Events       [2]lineEvent       `json:"events"`
	SharedGenres []string           `json:"sharedGenres,omitempty"`
}

type lineEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Source string `json:"source"`
	Venue  string `json:"venue"`
	Start  string `json:"start"`
}

func toLine(c model.Conflict) conflictLine {
	line := conflictLine{
		ConflictType: c.ConflictType,
		Severity:     c.Severity,
		TimeSlot:     c.TimeSlot,
		SharedGenres: c.SharedGenres,
	}
	for i, ev := range c.Events {
		line.Events[i] = lineEvent{
			ID:     ev.ID,
			Name:   ev.Name,
			Source: ev.Source,
			Venue:  ev.VenueName(),
			Start:  ev.Start.Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return line
}

type writerSink struct {
	w io.Writer
}

// NewWriter writes one JSON line per conflict to w.
func NewWriter(w io.Writer) Sink { return &writerSink{w: w} }

func (s *writerSink) Name() string { return "stdout" }

func (s *writerSink) Push(_ context.Context, conflicts []model.Conflict) error {
	enc := json.NewEncoder(s.w)
	for _, c := range conflicts {
		if err := enc.Encode(toLine(c)); err != nil {
			return err
		}
	}
	return nil
}
