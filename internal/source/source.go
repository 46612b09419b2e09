package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/model"
)

// ErrUnknownType is returned by NewFromConfig for an unsupported source type.
var ErrUnknownType = errors.New("unknown source type")

// Query is the area a location scan covers.
type Query struct {
	Lat      float64
	Lon      float64
	RadiusKm float64
}

type Source interface {
	Name() string
	Fetch(ctx context.Context, q Query) ([]model.Event, error)
}

func NewFromConfig(c config.SourceConfig) (Source, error) {
	switch c.Type {
	case "feed":
		return NewFeedSource(c), nil
	case "file":
		return NewFileSource(c), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, c.Type)
	}
}

// NewAllFromConfig builds every configured source, failing on the first error.
func NewAllFromConfig(cs []config.SourceConfig) ([]Source, error) {
	srcs := make([]Source, 0, len(cs))
	for _, c := range cs {
		s, err := NewFromConfig(c)
		if err != nil {
			return nil, fmt.Errorf("build source %q: %w", c.Name, err)
		}
		srcs = append(srcs, s)
	}
	return srcs, nil
}
