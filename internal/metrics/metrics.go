package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/galois26/eventclash/internal/engine"
)

const namespace = "eventclash"

// Registry holds every eventclash collector. It is private so tests and
// embedded uses do not collide with the global default registry.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern and status code",
	}, []string{"route", "status"})

	EventsReceived = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_received_total",
		Help:      "Events handed to the conflict engine",
	})

	DuplicatesFiltered = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_filtered_total",
		Help:      "Events dropped as duplicates or incomplete before matching",
	})

	ConflictsDetected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "conflicts_detected_total",
		Help:      "Conflicts found by type and severity",
	}, []string{"type", "severity"})

	AnalyzeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "analyze_duration_seconds",
		Help:      "Time spent in one engine analysis",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	SourceFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_fetch_total",
		Help:      "Source fetches by source name and status",
	}, []string{"source", "status"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Source cache lookups by result (hit, miss, error)",
	}, []string{"result"})
)

func init() {
	Registry.MustRegister(
		HTTPRequests, EventsReceived, DuplicatesFiltered,
		ConflictsDetected, AnalyzeDuration, SourceFetches, CacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveReport records one engine run.
func ObserveReport(r engine.Report, took time.Duration) {
	EventsReceived.Add(float64(r.TotalEvents))
	DuplicatesFiltered.Add(float64(r.DuplicatesFiltered))
	for _, c := range r.Conflicts {
		ConflictsDetected.WithLabelValues(string(c.ConflictType), string(c.Severity)).Inc()
	}
	AnalyzeDuration.Observe(took.Seconds())
}

// Dump returns a human-readable snapshot of the eventclash counters (for logging).
func Dump() string {
	families, err := Registry.Gather()
	if err != nil {
		return ""
	}
	var out []string
	for _, mf := range families {
		name := mf.GetName()
		if !strings.HasPrefix(name, namespace+"_") {
			continue
		}
		for _, m := range mf.GetMetric() {
			out = append(out, fmt.Sprintf("%s{%s} %g", name, labelString(m.GetLabel()), sampleValue(m)))
		}
	}
	sort.Strings(out)
	return strings.Join(out, "\n")
}

func labelString(pairs []*dto.LabelPair) string {
	b := strings.Builder{}
	for i, lp := range pairs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(lp.GetName())
		b.WriteByte('=')
		b.WriteString(lp.GetValue())
	}
	return b.String()
}

func sampleValue(m *dto.Metric) float64 {
	switch {
	case m.GetCounter() != nil:
		return m.GetCounter().GetValue()
	case m.GetGauge() != nil:
		return m.GetGauge().GetValue()
	case m.GetHistogram() != nil:
		return float64(m.GetHistogram().GetSampleCount())
	default:
		return 0
	}
}
