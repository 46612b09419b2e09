package source

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/galois26/eventclash/internal/model"
)

// Small helper used by multiple sources to pick the first non-empty string key
func pickStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok {
			continue
		}
		switch tv := v.(type) {
		case string:
			if s := strings.TrimSpace(tv); s != "" {
				return s
			}
		case float64:
			// numeric ids
			return strconv.FormatFloat(tv, 'f', -1, 64)
		case json.Number:
			return tv.String()
		}
	}
	return ""
}

// pickFloat accepts numbers and numeric strings.
func pickFloat(m map[string]any, keys ...string) *float64 {
	for _, k := range keys {
		switch tv := m[k].(type) {
		case float64:
			return &tv
		case json.Number:
			if f, err := tv.Float64(); err == nil {
				return &f
			}
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(tv), 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// pickTime accepts the string layouts model.ParseTime knows and epoch seconds
// or milliseconds as numbers. Unparseable values yield the zero time so the engine drops the
// event instead of failing the whole batch.
func pickTime(m map[string]any, keys ...string) time.Time {
	for _, k := range keys {
		switch tv := m[k].(type) {
		case string:
			if strings.TrimSpace(tv) == "" {
				continue
			}
			if t, err := model.ParseTime(tv); err == nil {
				return t
			}
		case float64:
			return model.FromEpoch(int64(tv))
		case json.Number:
			if n, err := tv.Int64(); err == nil {
				return model.FromEpoch(n)
			}
		}
	}
	return time.Time{}
}

// pickStrings accepts a list of strings, a list of {name: ...} objects or a
// single string.
func pickStrings(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		switch tv := m[k].(type) {
		case string:
			if s := strings.TrimSpace(tv); s != "" {
				return []string{s}
			}
		case []any:
			var out []string
			for _, it := range tv {
				switch iv := it.(type) {
				case string:
					if s := strings.TrimSpace(iv); s != "" {
						out = append(out, s)
					}
				case map[string]any:
					if s := pickStr(iv, "name", "title"); s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func defaultDur(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
