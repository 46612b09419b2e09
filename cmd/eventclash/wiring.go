package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/galois26/eventclash/internal/config"
	"github.com/galois26/eventclash/internal/engine"
	"github.com/galois26/eventclash/internal/postprocess"
	"github.com/galois26/eventclash/internal/source"
	"github.com/galois26/eventclash/internal/store"
)

// app holds the components built from one config file.
type app struct {
	cfg     *config.Config
	engine  *engine.Engine
	post    *postprocess.Engine
	sources []source.Source
	cache   store.Cache
}

func (a *app) Close() error {
	if a.cache != nil {
		return a.cache.Close()
	}
	return nil
}

func buildApp(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	eng, err := engine.New(cfg.EngineConfig())
	if err != nil {
		return nil, err
	}
	post, err := postprocess.New(cfg.Post)
	if err != nil {
		return nil, fmt.Errorf("postprocess rules: %w", err)
	}

	cache, err := store.NewFromConfig(ctx, cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("init cache: %w", err)
	}
	logger := slog.Default().With("module", "main")
	if cache == nil {
		logger.Info("source cache disabled")
	} else {
		logger.Info("source cache enabled", "ttl", cfg.Cache.TTL, "redis", cfg.Cache.RedisURL != "")
	}

	built, err := source.NewAllFromConfig(cfg.Sources)
	if err != nil {
		if cache != nil {
			_ = cache.Close()
		}
		return nil, err
	}
	srcs := make([]source.Source, 0, len(built))
	for _, s := range built {
		srcs = append(srcs, source.Cached(s, cache, cfg.Cache.TTL))
		logger.Info("configured source", "source", s.Name())
	}

	return &app{cfg: cfg, engine: eng, post: post, sources: srcs, cache: cache}, nil
}
