package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
	"github.com/galois26/eventclash/internal/util"
)

type victoriaSink struct {
	cfg    config.VictoriaConfig
	client *http.Client
	now    func() time.Time
}

func NewVictoria(cfg config.VictoriaConfig) Sink {
	to := cfg.Timeout
	if to == 0 {
		to = 10 * time.Second
	}
	return &victoriaSink{cfg: cfg, client: util.NewHTTPClient(to), now: time.Now}
}

func (v *victoriaSink) Name() string { return "victoria" }

// Push imports one sample per conflict type, severity and source pair with the
// number of conflicts in this batch, in the Prometheus text format.
func (v *victoriaSink) Push(ctx context.Context, conflicts []model.Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}

	groups := map[string]int{}
	for _, c := range conflicts {
		lbls := fmt.Sprintf(`conflict_type="%s",severity="%s",sources="%s"`,
			escape(string(c.ConflictType)), escape(string(c.Severity)), escape(sourcePair(c)))
		groups[lbls]++
	}
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ts := v.now().UnixMilli()
	var buf bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&buf, "eventclash_conflicts_batch{%s} %d %d\n", k, groups[k], ts)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(v.cfg.URL, "/")+"/api/v1/import/prometheus", &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	if ua := v.cfg.UserAgent; ua != "" {
		req.Header.Set("User-Agent", ua)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("victoria push failed: %s", resp.Status)
	}
	return nil
}

// sourcePair is the sorted "a+b" source label of a conflict.
func sourcePair(c model.Conflict) string {
	a, b := c.Events[0].Source, c.Events[1].Source
	if b < a {
		a, b = b, a
	}
	if a == b {
		return a
	}
	return a + "+" + b
}

func escape(s string) string {
	// minimal escape for label values
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
