package store

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// PushLog remembers which conflicts a scan already published, so repeated
// cycles and restarts only push new ones. Keys map to the time they were
// pushed.
type PushLog struct {
	LastRun time.Time            `json:"last_run"`
	Pushed  map[string]time.Time `json:"pushed"`
}

// LoadPushLog reads the log at path. A missing file yields an empty log.
func LoadPushLog(path string) (*PushLog, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &PushLog{Pushed: map[string]time.Time{}}, nil
	}
	if err != nil {
		return nil, err
	}
	var s PushLog
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	if s.Pushed == nil {
		s.Pushed = map[string]time.Time{}
	}
	return &s, nil
}

// SavePushLog writes the log atomically via a temp file in the same directory.
func SavePushLog(path string, s *PushLog) error {
	b, err := json.MarshalIndent(s, "", " ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pushlog-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Seen reports whether key was pushed less than ttl before now.
func (s *PushLog) Seen(key string, now time.Time, ttl time.Duration) bool {
	at, ok := s.Pushed[key]
	return ok && now.Sub(at) < ttl
}

func (s *PushLog) Mark(key string, now time.Time) {
	if s.Pushed == nil {
		s.Pushed = map[string]time.Time{}
	}
	s.Pushed[key] = now
}

// Prune drops keys older than ttl and returns how many were removed.
func (s *PushLog) Prune(now time.Time, ttl time.Duration) int {
	n := 0
	for k, at := range s.Pushed {
		if now.Sub(at) >= ttl {
			delete(s.Pushed, k)
			n++
		}
	}
	return n
}
