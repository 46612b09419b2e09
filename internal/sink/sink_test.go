package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
)

var detectedAt = time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)

func conflict(typ model.ConflictType, sev model.Severity, srcA, srcB string) model.Conflict {
	start := time.Date(2024, 6, 1, 20, 0, 0, 0, time.UTC)
	return model.Conflict{
		Events: [2]model.Event{
			{ID: "a", Name: "Jazz Night", Start: model.At(start), Source: srcA, Venue: &model.Venue{Name: "Blue Note"}},
			{ID: "b", Name: "Late Set", Start: model.At(start.Add(time.Hour)), Source: srcB, Venue: &model.Venue{Name: "Smalls"}},
		},
		ConflictType: typ,
		Severity:     sev,
		TimeSlot:     "Sat, Jun 1, 8:00 PM",
		SharedGenres: []string{"jazz"},
	}
}

type captured struct {
	path    string
	headers http.Header
	body    []byte
}

func captureServer(t *testing.T, status int) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.headers = r.Header.Clone()
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestLokiPush(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)

	s := NewLoki(config.LokiConfig{URL: srv.URL + "/", TenantID: "team-a", UserAgent: "eventclash-test"}).(*lokiSink)
	s.now = func() time.Time { return detectedAt }

	err := s.Push(context.Background(), []model.Conflict{
		conflict(model.ConflictSameVenue, model.SeverityMedium, "tm", "tm"),
		conflict(model.ConflictCrossPlatformProximity, model.SeverityLow, "tm", "eb"),
		conflict(model.ConflictSameVenue, model.SeverityMedium, "tm", "tm"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/loki/api/v1/push", got.path)
	assert.Equal(t, "team-a", got.headers.Get("X-Scope-OrgID"))
	assert.Equal(t, "eventclash-test", got.headers.Get("User-Agent"))

	var payload struct {
		Streams []lokiStream `json:"streams"`
	}
	require.NoError(t, json.Unmarshal(got.body, &payload))
	require.Len(t, payload.Streams, 2)

	first := payload.Streams[0]
	assert.Equal(t, map[string]string{"job": "eventclash", "conflict_type": "same_venue_conflict", "severity": "medium"}, first.Stream)
	require.Len(t, first.Values, 2)
	assert.NotEqual(t, first.Values[0][0], first.Values[1][0])

	var line conflictLine
	require.NoError(t, json.Unmarshal([]byte(first.Values[0][1]), &line))
	assert.Equal(t, "Blue Note", line.Events[0].Venue)
	assert.Equal(t, "2024-06-01T20:00:00Z", line.Events[0].Start)
	assert.Equal(t, []string{"jazz"}, line.SharedGenres)
}

func TestLokiPushFailure(t *testing.T) {
	srv, _ := captureServer(t, http.StatusBadRequest)
	s := NewLoki(config.LokiConfig{URL: srv.URL})

	err := s.Push(context.Background(), []model.Conflict{conflict(model.ConflictTimeVenue, model.SeverityLow, "tm", "tm")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 400")
}

func TestPushNothingSkipsRequest(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()

	for _, s := range FromConfig(config.LokiConfig{URL: srv.URL}, config.VictoriaConfig{URL: srv.URL}) {
		require.NoError(t, s.Push(context.Background(), nil))
	}
	assert.Zero(t, calls)
}

func TestVictoriaPush(t *testing.T) {
	srv, got := captureServer(t, http.StatusNoContent)
	s := NewVictoria(config.VictoriaConfig{URL: srv.URL}).(*victoriaSink)
	s.now = func() time.Time { return detectedAt }

	err := s.Push(context.Background(), []model.Conflict{
		conflict(model.ConflictCrossPlatformDuplicate, model.SeverityMedium, "tm", "eb"),
		conflict(model.ConflictCrossPlatformDuplicate, model.SeverityMedium, "eb", "tm"),
		conflict(model.ConflictSameVenue, model.SeverityLow, "tm", "tm"),
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/import/prometheus", got.path)
	lines := strings.Split(strings.TrimSpace(string(got.body)), "\n")
	ms := detectedAt.UnixMilli()
	assert.Equal(t, []string{
		`eventclash_conflicts_batch{conflict_type="cross_platform_duplicate",severity="medium",sources="eb+tm"} 2 ` + itoa(ms),
		`eventclash_conflicts_batch{conflict_type="same_venue_conflict",severity="low",sources="tm"} 1 ` + itoa(ms),
	}, lines)
}

func TestWriterSink(t *testing.T) {
	var buf bytes.Buffer
	s := NewWriter(&buf)
	require.NoError(t, s.Push(context.Background(), []model.Conflict{
		conflict(model.ConflictSameVenue, model.SeverityMedium, "tm", "tm"),
		conflict(model.ConflictTimeVenue, model.SeverityLow, "tm", "tm"),
	}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], `"conflictType":"time_venue_conflict"`)
}

func TestFromConfig(t *testing.T) {
	assert.Empty(t, FromConfig(config.LokiConfig{}, config.VictoriaConfig{}))

	sinks := FromConfig(config.LokiConfig{URL: "http://loki:3100"}, config.VictoriaConfig{URL: "http://vm:8428"})
	require.Len(t, sinks, 2)
	assert.Equal(t, "loki", sinks[0].Name())
	assert.Equal(t, "victoria", sinks[1].Name())
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `a\"b\\c`, escape(`a"b\c`))
}
