package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/metrics"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/postprocess"
	"github.com/galois26/eventclash/internal/sink"
	"github.com/galois26/eventclash/internal/source"
	"github.com/galois26/eventclash/internal/store"
)

var (
	scanConfig    string
	scanLat       float64
	scanLon       float64
	scanRadius    float64
	scanInterval  time.Duration
	scanOnce      bool
	scanVerbose   bool
	scanStatePath string
	scanRepushTTL time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Periodically scan an area and publish new conflicts",
	Long: `Fetches events around a point from every configured source, detects conflicts
and pushes the ones not published before to the configured sinks (Loki,
VictoriaMetrics). Without sinks, conflicts are printed as JSON lines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := buildApp(ctx, scanConfig)
		if err != nil {
			return err
		}
		defer a.Close()
		if len(a.sources) == 0 {
			return fmt.Errorf("no sources configured")
		}

		radius := scanRadius
		if radius <= 0 {
			radius = a.cfg.Location.DefaultRadiusKm
		}
		sc := &scanner{
			engine:    a.engine,
			post:      a.post,
			sources:   a.sources,
			sinks:     sink.FromConfig(a.cfg.Loki, a.cfg.Victoria),
			query:     source.Query{Lat: scanLat, Lon: scanLon, RadiusKm: radius},
			repush:    scanRepushTTL,
			verbose:   scanVerbose,
			logger:    slog.Default().With("module", "scan"),
			now:       time.Now,
			statePath: scanStatePath,
		}
		if len(sc.sinks) == 0 {
			sc.logger.Info("no sinks configured, printing conflicts to stdout")
			sc.sinks = []sink.Sink{sink.NewWriter(cmd.OutOrStdout())}
		}
		if err := sc.loadState(); err != nil {
			return err
		}

		sc.logger.Info("eventclash scan started",
			"version", Version,
			"sources", len(sc.sources),
			"sinks", len(sc.sinks),
			"lat", sc.query.Lat, "lon", sc.query.Lon, "radius_km", sc.query.RadiusKm,
			"interval", scanInterval.String(),
		)
		sc.runOnce(ctx)
		if scanOnce {
			return nil
		}

		ticker := time.NewTicker(scanInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				sc.logger.Info("stopping", "reason", ctx.Err())
				return nil
			case <-ticker.C:
				sc.runOnce(ctx)
			}
		}
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanConfig, "config", "/config.yml", "path to YAML config")
	scanCmd.Flags().Float64Var(&scanLat, "lat", 0, "latitude of the scan center (required)")
	scanCmd.Flags().Float64Var(&scanLon, "lon", 0, "longitude of the scan center (required)")
	scanCmd.Flags().Float64Var(&scanRadius, "radius", 0, "scan radius in km (default: location.default_radius_km)")
	scanCmd.Flags().DurationVar(&scanInterval, "interval", 15*time.Minute, "run interval")
	scanCmd.Flags().BoolVar(&scanOnce, "once", false, "run a single cycle then exit")
	scanCmd.Flags().BoolVar(&scanVerbose, "verbose", false, "log a metrics snapshot after each cycle")
	scanCmd.Flags().StringVar(&scanStatePath, "state", "", "file remembering published conflicts across restarts")
	scanCmd.Flags().DurationVar(&scanRepushTTL, "repush-after", 24*time.Hour, "publish a conflict again after this long")
	_ = scanCmd.MarkFlagRequired("lat")
	_ = scanCmd.MarkFlagRequired("lon")
	rootCmd.AddCommand(scanCmd)
}

// scanner runs one fetch, analyze and publish cycle at a time.
type scanner struct {
	engine  *engine.Engine
	post    *postprocess.Engine
	sources []source.Source
	sinks   []sink.Sink
	query   source.Query
	repush  time.Duration
	verbose bool
	logger  *slog.Logger
	now     func() time.Time

	statePath string
	state     *store.PushLog
}

func (s *scanner) loadState() error {
	if s.statePath == "" {
		s.state = &store.PushLog{Pushed: map[string]time.Time{}}
		return nil
	}
	st, err := store.LoadPushLog(s.statePath)
	if err != nil {
		return fmt.Errorf("load scan state: %w", err)
	}
	s.state = st
	s.logger.Info("scan state loaded", "path", s.statePath, "known_conflicts", len(st.Pushed))
	return nil
}

// runOnce returns the number of conflicts published in this cycle.
func (s *scanner) runOnce(ctx context.Context) int {
	start := s.now()

	batch := source.FetchAll(ctx, s.sources, s.query)
	if batch.Failed() {
		s.logger.Error("all sources failed", "operation", "scan", "outcome", "failure", "errors", batch.ErrorSummary())
		return 0
	}

	events := s.post.Apply(batch.Events)
	analyzeStart := time.Now()
	rep := s.engine.Analyze(events, s.engine.FindOptions())
	metrics.ObserveReport(rep, time.Since(analyzeStart))

	fresh := make([]model.Conflict, 0, len(rep.Conflicts))
	for _, c := range rep.Conflicts {
		if !s.state.Seen(c.Key(), start, s.repush) {
			fresh = append(fresh, c)
		}
	}
	s.logger.Debug("conflicts analyzed",
		"events", rep.TotalEvents,
		"unique", rep.UniqueEvents,
		"conflicts", rep.ConflictCount,
		"new", len(fresh),
		"threshold_km", rep.VenueProximityThreshold,
	)

	pushed := 0
	if len(fresh) > 0 && s.push(ctx, fresh) {
		for _, c := range fresh {
			s.state.Mark(c.Key(), start)
		}
		pushed = len(fresh)
	}
	s.state.Prune(start, s.repush)
	s.state.LastRun = start
	if s.statePath != "" {
		if err := store.SavePushLog(s.statePath, s.state); err != nil {
			s.logger.Warn("save scan state failed", "path", s.statePath, "error", err)
		}
	}

	if s.verbose {
		if snap := metrics.Dump(); snap != "" {
			fmt.Fprintln(os.Stderr, "METRICS SNAPSHOT:\n"+snap)
		}
	}
	s.logger.Info("cycle finished",
		"operation", "scan",
		"outcome", "success",
		"duration", time.Since(start).Truncate(time.Millisecond).String(),
		"events", rep.TotalEvents,
		"conflicts", rep.ConflictCount,
		"pushed", pushed,
		"failed_sources", len(batch.Errors),
	)
	return pushed
}

// push fans the conflicts out to every sink. On any sink error nothing is
// marked as published, so the next cycle retries.
func (s *scanner) push(ctx context.Context, conflicts []model.Conflict) bool {
	var wg sync.WaitGroup
	errCh := make(chan error, len(s.sinks))
	for _, sk := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sk.Push(ctx, conflicts); err != nil {
				errCh <- fmt.Errorf("push -> %s: %w", sk.Name(), err)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	ok := true
	for err := range errCh {
		ok = false
		s.logger.Error("sink push failed", "operation", "sink_push", "outcome", "failure", "error", err)
	}
	return ok
}
