package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/util"
)

const maxFeedBody = 8 << 20

// feedSource pulls events from a JSON HTTP API that accepts lat, lon and
// radius (km) query parameters.
type feedSource struct {
	cfg     config.SourceConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewFeedSource(cfg config.SourceConfig) *feedSource {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "X-API-Key"
	}
	return &feedSource{
		cfg:     cfg,
		client:  util.NewHTTPClient(defaultDur(cfg.HTTP.Timeout, 10*time.Second)),
		limiter: rate.NewLimiter(limit, burst),
	}
}

func (f *feedSource) Name() string { return f.cfg.Name }

// Fetch retrieves events around q. 4xx answers other than 429 are not retried.
func (f *feedSource) Fetch(ctx context.Context, q Query) ([]model.Event, error) {
	endpoint, err := f.endpoint(q)
	if err != nil {
		return nil, err
	}

	var raw []byte
	attempts := f.cfg.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	err = util.Retry(ctx, attempts, defaultDur(f.cfg.Backoff, 500*time.Millisecond), defaultDur(f.cfg.MaxBackoff, 5*time.Second), func() error {
		if err := f.limiter.Wait(ctx); err != nil {
			return util.Permanent(err)
		}
		// Fresh request for every retry attempt.
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return util.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if s := strings.TrimSpace(f.cfg.APIKey); s != "" {
			req.Header.Set(f.cfg.APIKeyHeader, s)
		}
		if ua := f.cfg.HTTP.UserAgent; ua != "" {
			req.Header.Set("User-Agent", ua)
		}

		resp, err := f.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBody))
		if err != nil {
			return err
		}
		if resp.StatusCode/100 != 2 {
			snippet := string(body)
			if len(snippet) > 256 {
				snippet = snippet[:256]
			}
			statusErr := fmt.Errorf("%s %d: %s", f.Name(), resp.StatusCode, strings.TrimSpace(snippet))
			if !util.RetryableStatus(resp.StatusCode) {
				return util.Permanent(statusErr)
			}
			return statusErr
		}
		raw = body
		return nil
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Name(), err)
	}
	events := mapRows(rows, f.Name())
	slog.Default().Debug("feed fetched",
		"module", "source",
		"source", f.Name(),
		"rows", len(rows),
		"events", len(events),
	)
	return events, nil
}

func (f *feedSource) endpoint(q Query) (string, error) {
	u, err := url.Parse(strings.TrimSpace(f.cfg.BaseURL))
	if err != nil {
		return "", fmt.Errorf("%s: parse base_url: %w", f.Name(), err)
	}
	vals := u.Query()
	vals.Set("lat", strconv.FormatFloat(q.Lat, 'f', 6, 64))
	vals.Set("lon", strconv.FormatFloat(q.Lon, 'f', 6, 64))
	vals.Set("radius", strconv.FormatFloat(q.RadiusKm, 'f', -1, 64))
	u.RawQuery = vals.Encode()
	return u.String(), nil
}
