package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/linkhoard/linkhoard/internal/enrich"
	"github.com/linkhoard/linkhoard/internal/prefetch"
	"github.com/linkhoard/linkhoard/internal/scheduler"
	"github.com/linkhoard/linkhoard/internal/store"
	"github.com/linkhoard/linkhoard/pkg/anthropic"
)

// openStore opens the persistence driver named in config and loads the
// collection into a Store.
func openStore(ctx context.Context) (*store.Store, error) {
	var persister store.Persister
	var err error

	switch cfg.Store.Driver {
	case "sqlite", "":
		persister, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		persister, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	st := store.New(persister)
	if err := st.Open(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// newScheduler wires the enrichment client, prefetcher, and queue loop.
// The enricher fails fast at call time when no API key is configured.
func newScheduler(st *store.Store) *scheduler.Scheduler {
	var ai anthropic.Client
	if cfg.Anthropic.Key != "" {
		ai = anthropic.NewClient(cfg.Anthropic.Key)
	}
	enricher := enrich.New(ai, cfg.Anthropic.Model,
		enrich.WithMaxTokens(cfg.Anthropic.MaxTokens),
		enrich.WithMaxSearchUses(cfg.Anthropic.MaxSearchUses),
	)

	fetcher := prefetch.New(prefetch.Config{
		BearerToken:   cfg.Prefetch.BearerToken,
		RelayBaseURL:  cfg.Prefetch.RelayBaseURL,
		MaxConcurrent: cfg.Prefetch.MaxConcurrent,
	})

	return scheduler.New(scheduler.Config{
		ChunkSize:         cfg.Scheduler.ChunkSize,
		ChunkDelay:        cfg.Scheduler.ChunkDelay(),
		RateLimitCooldown: cfg.Scheduler.RateLimitCooldown(),
	}, st, enricher, fetcher)
}
