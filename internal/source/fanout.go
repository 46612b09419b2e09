package source

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/galois26/eventclash/internal/metrics"
	"github.com/galois26/eventclash/internal/model"
)

// Batch is the merged result of querying several sources.
type Batch struct {
	Events []model.Event
	// Counts holds the number of events per successful source.
	Counts map[string]int
	// Errors holds the error message per failed source; nil when none failed.
	Errors map[string]string
}

// Failed reports whether every queried source returned an error.
func (b *Batch) Failed() bool {
	return len(b.Errors) > 0 && len(b.Counts) == 0
}

// ErrorSummary joins the per-source errors in name order.
func (b *Batch) ErrorSummary() string {
	names := make([]string, 0, len(b.Errors))
	for name := range b.Errors {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+b.Errors[name])
	}
	return strings.Join(parts, "; ")
}

// FetchAll queries every source concurrently. A failing source is recorded in
// Errors and does not cancel the others. Events keep source order, and events
// without a source are attributed to the source that returned them.
func FetchAll(ctx context.Context, sources []Source, q Query) *Batch {
	type outcome struct {
		events []model.Event
		err    error
	}
	outcomes := make([]outcome, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		g.Go(func() error {
			events, err := src.Fetch(ctx, q)
			outcomes[i] = outcome{events: events, err: err}
			return nil
		})
	}
	_ = g.Wait()

	logger := slog.Default().With("module", "source")
	b := &Batch{Counts: make(map[string]int, len(sources))}
	for i, src := range sources {
		o := outcomes[i]
		if o.err != nil {
			if b.Errors == nil {
				b.Errors = make(map[string]string)
			}
			b.Errors[src.Name()] = o.err.Error()
			metrics.SourceFetches.WithLabelValues(src.Name(), "error").Inc()
			logger.WarnContext(ctx, "source fetch failed",
				"operation", "source_fetch",
				"outcome", "failure",
				"source", src.Name(),
				"error", o.err.Error(),
			)
			continue
		}
		metrics.SourceFetches.WithLabelValues(src.Name(), "ok").Inc()
		b.Counts[src.Name()] = len(o.events)
		for _, ev := range o.events {
			if ev.Source == "" {
				ev.Source = src.Name()
			}
			b.Events = append(b.Events, ev)
		}
	}
	return b
}
