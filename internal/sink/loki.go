package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/util"
)

type lokiSink struct {
	cfg    config.LokiConfig
	client *http.Client
	now    func() time.Time
}

func NewLoki(cfg config.LokiConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	if cfg.Job == "" {
		cfg.Job = "eventclash"
	}
	return &lokiSink{cfg: cfg, client: util.NewHTTPClient(to), now: time.Now}
}

func (l *lokiSink) Name() string { return "loki" }

type lokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Push sends one log line per conflict, grouped into streams by type and
// severity. Lines carry the detection time since Loki rejects entries far in
// the future.
func (l *lokiSink) Push(ctx context.Context, conflicts []model.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}

	// Loki expects ns timestamp as a decimal string
	ts := l.now().UnixNano()
	streams := make(map[string]*lokiStream)
	var order []string
	for i, c := range conflicts {
		line, err := json.Marshal(toLine(c))
		if err != nil {
			return fmt.Errorf("encode conflict: %w", err)
		}
		key := string(c.ConflictType) + "/" + string(c.Severity)
		st, ok := streams[key]
		if !ok {
			st = &lokiStream{Stream: map[string]string{
				"job":           l.cfg.Job,
				"conflict_type": string(c.ConflictType),
				"severity":      string(c.Severity),
			}}
			streams[key] = st
			order = append(order, key)
		}
		// distinct timestamps keep lines of one stream from being deduplicated
		st.Values = append(st.Values, [2]string{strconv.FormatInt(ts+int64(i), 10), string(line)})
	}

	payload := struct {
		Streams []lokiStream `json:"streams"`
	}{}
	for _, key := range order {
		payload.Streams = append(payload.Streams, *streams[key])
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(l.cfg.URL, "/")+"/loki/api/v1/push", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.TenantID != "" {
		req.Header.Set("X-Scope-OrgID", l.cfg.TenantID)
	}
	if ua := l.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("loki push failed http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
