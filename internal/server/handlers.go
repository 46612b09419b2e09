package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/metrics"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/source"
	"github.com/galois26/eventclash/internal/store"
)

type detectRequest struct {
	Events []model.Event `json:"events"`
	// TimeBuffer is in minutes, VenueProximityThreshold in km.
	TimeBuffer              *float64 `json:"timeBuffer"`
	VenueProximityThreshold *float64 `json:"venueProximityThreshold"`
}

func (s *Server) detect(w http.ResponseWriter, r *http.Request) {
	const op = "conflicts_detect"
	ctx := r.Context()

	var req detectRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidRequest, "invalid request body: "+err.Error(), err)
		return
	}
	if req.Events == nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidRequest, "events must be an array", nil)
		return
	}
	opts, err := s.findOptions(req.TimeBuffer, req.VenueProximityThreshold)
	if err != nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidParameter, err.Error(), nil)
		return
	}

	rep := s.analyze(s.post.Apply(req.Events), opts)
	httpLogger().InfoContext(ctx, "conflicts detected",
		"operation", op,
		"outcome", "success",
		"request_id", requestIDFromContext(ctx),
		"total_events", rep.TotalEvents,
		"conflicts", rep.ConflictCount,
		"threshold_km", rep.VenueProximityThreshold,
		"threshold_mode", rep.ThresholdMode,
	)
	writeJSON(w, http.StatusOK, rep)
}

type locationInfo struct {
	Lat    float64 `json:"lat"`
	Lon    float64 `json:"lon"`
	Radius float64 `json:"radius"`
}

type locationReport struct {
	engine.Report
	Location     locationInfo      `json:"location"`
	Sources      map[string]int    `json:"sources"`
	SourceErrors map[string]string `json:"sourceErrors,omitempty"`
	ConflictRate string            `json:"conflictRate"`
}

func (s *Server) location(w http.ResponseWriter, r *http.Request) {
	const op = "conflicts_location"
	ctx := r.Context()
	q := r.URL.Query()

	lat, err := queryFloat(q, "lat")
	if err != nil || lat == nil || *lat < -90 || *lat > 90 {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidLocation, "lat must be a number between -90 and 90", err)
		return
	}
	lon, err := queryFloat(q, "lon")
	if err != nil || lon == nil || *lon < -180 || *lon > 180 {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidLocation, "lon must be a number between -180 and 180", err)
		return
	}

	radius := s.cfg.Location.DefaultRadiusKm
	v, err := queryFloat(q, "radius")
	if err != nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidParameter, "radius must be a number", err)
		return
	}
	if v != nil {
		radius = *v
	}
	if maxR := s.cfg.Location.MaxRadiusKm; radius <= 0 || (maxR > 0 && radius > maxR) {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidParameter,
			fmt.Sprintf("radius must be positive and at most %g km", maxR), nil)
		return
	}

	tb, err := queryFloat(q, "timeBuffer")
	if err != nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidParameter, "timeBuffer must be a number", err)
		return
	}
	threshold, err := queryFloat(q, "venueProximityThreshold")
	if err != nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidParameter, "venueProximityThreshold must be a number", err)
		return
	}
	opts, err := s.findOptions(tb, threshold)
	if err != nil {
		fail(ctx, w, op, http.StatusBadRequest, codeInvalidParameter, err.Error(), nil)
		return
	}

	if len(s.sources) == 0 {
		fail(ctx, w, op, http.StatusServiceUnavailable, codeNoSources, "no event sources configured", nil)
		return
	}

	query := source.Query{Lat: *lat, Lon: *lon, RadiusKm: radius}
	res, _, _ := s.flight.Do(store.EventsKey("all", query.Lat, query.Lon, query.RadiusKm), func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout())
		defer cancel()
		return source.FetchAll(fctx, s.sources, query), nil
	})
	batch := res.(*source.Batch)

	if batch.Failed() {
		fail(ctx, w, op, http.StatusBadGateway, codeSourcesUnavailable,
			"all event sources failed: "+batch.ErrorSummary(), nil)
		return
	}

	rep := s.analyze(s.post.Apply(batch.Events), opts)
	out := locationReport{
		Report:       rep,
		Location:     locationInfo{Lat: query.Lat, Lon: query.Lon, Radius: query.RadiusKm},
		Sources:      batch.Counts,
		SourceErrors: batch.Errors,
		ConflictRate: conflictRate(rep),
	}
	httpLogger().InfoContext(ctx, "location scanned",
		"operation", op,
		"outcome", "success",
		"request_id", requestIDFromContext(ctx),
		"lat", query.Lat,
		"lon", query.Lon,
		"radius_km", query.RadiusKm,
		"total_events", rep.TotalEvents,
		"conflicts", rep.ConflictCount,
		"failed_sources", len(batch.Errors),
	)
	writeJSON(w, http.StatusOK, out)
}

// maxTimeBuffer bounds the buffer so the minute value fits a time.Duration.
const maxTimeBuffer = 7 * 24 * time.Hour

// findOptions turns request parameters into engine options. Nil values keep
// the engine defaults.
func (s *Server) findOptions(timeBufferMin, thresholdKm *float64) (engine.FindOptions, error) {
	opts := s.engine.FindOptions()
	if timeBufferMin != nil {
		if *timeBufferMin < 0 {
			return opts, errors.New("timeBuffer cannot be negative")
		}
		if *timeBufferMin > maxTimeBuffer.Minutes() {
			return opts, fmt.Errorf("timeBuffer cannot exceed %g minutes", maxTimeBuffer.Minutes())
		}
		opts.TimeBuffer = time.Duration(*timeBufferMin * float64(time.Minute))
	}
	if thresholdKm != nil {
		if *thresholdKm < 0 {
			return opts, errors.New("venueProximityThreshold cannot be negative")
		}
		km := *thresholdKm
		opts.VenueProximityKm = &km
	}
	return opts, nil
}

func (s *Server) analyze(events []model.Event, opts engine.FindOptions) engine.Report {
	start := time.Now()
	rep := s.engine.Analyze(events, opts)
	metrics.ObserveReport(rep, time.Since(start))
	return rep
}

func conflictRate(rep engine.Report) string {
	if rep.UniqueEvents == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(rep.ConflictCount)/float64(rep.UniqueEvents)*100)
}

// queryFloat parses an optional numeric query parameter. A missing or empty
// parameter yields nil.
func queryFloat(q url.Values, name string) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%s: not a finite number", name)
	}
	return &v, nil
}
