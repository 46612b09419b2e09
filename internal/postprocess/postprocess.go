package postprocess

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
)

// Engine adds genres to events from config-driven rules so that conflicts
// can report the genres two events share.
type Engine struct {
	kw   []keywordRule
	regs []compiledRegex
	maps []mapRule
}

type keywordRule struct {
	words  []string
	genres []string
}

type compiledRegex struct {
	field  string
	re     *regexp.Regexp
	genres []string
}

type mapRule struct {
	field   string
	mapping map[string]string
}

var fields = map[string]bool{"name": true, "venue": true, "source": true}

// New compiles cfg. Rules with an unknown field or a bad expression are
// rejected; rules with nothing to match are skipped.
func New(cfg config.PostProcessConfig) (*Engine, error) {
	eng := &Engine{}

	for _, kr := range cfg.Keywords {
		words := make([]string, 0, len(kr.When))
		for _, w := range kr.When {
			if s := strings.TrimSpace(w); s != "" {
				words = append(words, strings.ToLower(s))
			}
		}
		if len(words) == 0 || len(kr.Genres) == 0 {
			continue
		}
		eng.kw = append(eng.kw, keywordRule{words: words, genres: kr.Genres})
	}

	for i, rr := range cfg.Regex {
		field := strings.ToLower(strings.TrimSpace(rr.Field))
		if !fields[field] {
			return nil, fmt.Errorf("regex rule %d: unknown field %q", i, rr.Field)
		}
		if strings.TrimSpace(rr.Expr) == "" {
			continue
		}
		re, err := regexp.Compile(rr.Expr)
		if err != nil {
			return nil, fmt.Errorf("regex rule %d: %w", i, err)
		}
		eng.regs = append(eng.regs, compiledRegex{field: field, re: re, genres: rr.Genres})
	}

	for i, mr := range cfg.Maps {
		field := strings.ToLower(strings.TrimSpace(mr.Field))
		if !fields[field] {
			return nil, fmt.Errorf("map rule %d: unknown field %q", i, mr.Field)
		}
		if len(mr.Mapping) == 0 {
			continue
		}
		mapping := make(map[string]string, len(mr.Mapping))
		for k, v := range mr.Mapping {
			mapping[strings.ToLower(strings.TrimSpace(k))] = v
		}
		eng.maps = append(eng.maps, mapRule{field: field, mapping: mapping})
	}
	return eng, nil
}

// Empty reports whether the engine has no rules.
func (e *Engine) Empty() bool {
	return e == nil || len(e.kw)+len(e.regs)+len(e.maps) == 0
}

func getField(ev *model.Event, name string) string {
	switch name {
	case "name":
		return ev.Name
	case "venue":
		return ev.VenueName()
	case "source":
		return ev.Source
	default:
		return ""
	}
}

// Apply runs keyword, regex, and mapping rules over events and returns a new
// slice. Input events and their genre slices are left untouched. Genres are
// deduplicated case-insensitively, keeping the first spelling seen.
func (e *Engine) Apply(events []model.Event) []model.Event {
	if e.Empty() || len(events) == 0 {
		return events
	}

	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		var added []string

		// 1) Keyword rules: if ALL words appear in the name (case-insensitive)
		nameLC := strings.ToLower(ev.Name)
		for _, kr := range e.kw {
			matched := true
			for _, w := range kr.words {
				if !strings.Contains(nameLC, w) {
					matched = false
					break
				}
			}
			if matched {
				added = append(added, kr.genres...)
			}
		}

		// 2) Regex rules: run against specified field
		for _, rr := range e.regs {
			if val := getField(&ev, rr.field); val != "" && rr.re.MatchString(val) {
				added = append(added, rr.genres...)
			}
		}

		// 3) Map rules: if field value has a mapping, add the mapped genre
		for _, mr := range e.maps {
			val := strings.ToLower(strings.TrimSpace(getField(&ev, mr.field)))
			if mapped, ok := mr.mapping[val]; ok && val != "" {
				added = append(added, mapped)
			}
		}

		if len(added) > 0 {
			ev.Genres = mergeGenres(ev.Genres, added)
		}
		out = append(out, ev)
	}
	return out
}

func mergeGenres(have, add []string) []string {
	merged := make([]string, 0, len(have)+len(add))
	seen := make(map[string]struct{}, len(have)+len(add))
	for _, g := range append(append([]string(nil), have...), add...) {
		g = strings.TrimSpace(g)
		key := strings.ToLower(g)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, g)
	}
	return merged
}
