package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/singleflight"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/metrics"
	"github.com/galois26/eventclash/internal/postprocess"
	"github.com/galois26/eventclash/internal/source"
)

// maxBodyBytes bounds POST /conflicts/detect payloads.
const maxBodyBytes = 8 << 20

// Server exposes the conflict engine over HTTP.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	post    *postprocess.Engine
	sources []source.Source

	// flight coalesces identical concurrent location scans.
	flight singleflight.Group

	srv *http.Server
}

// New wires the router. post may be nil and sources may be empty, in which
// case location scans answer 503.
func New(cfg *config.Config, eng *engine.Engine, post *postprocess.Engine, sources []source.Source) *Server {
	s := &Server{cfg: cfg, engine: eng, post: post, sources: sources}
	s.srv = &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Handler returns the chi router with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middlewareStack...)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/conflicts", func(r chi.Router) {
		r.Post("/detect", s.detect)
		r.Get("/location", s.location)
	})
	return r
}

func (s *Server) Serve() error                       { return s.srv.ListenAndServe() }
func (s *Server) Shutdown(ctx context.Context) error { return s.srv.Shutdown(ctx) }

// fetchTimeout bounds one coalesced source fan-out. It is detached from the
// request that started it, since other callers may be waiting on the result.
func (s *Server) fetchTimeout() time.Duration {
	if s.cfg.Server.WriteTimeout > 0 {
		return s.cfg.Server.WriteTimeout
	}
	return 30 * time.Second
}
