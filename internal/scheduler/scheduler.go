// Package scheduler drives the enrichment pipeline: it partitions queued
// records into chunks, runs one enrichment call per chunk, reconciles the
// results onto the store, and paces between chunks to respect external
// rate limits. No two enrichment calls are ever in flight at once.
package scheduler

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/enrich"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/prefetch"
	"github.com/linkhoard/linkhoard/internal/resilience"
	"github.com/linkhoard/linkhoard/internal/store"
)

// Config tunes the chunked-batch policy.
type Config struct {
	// ChunkSize is the number of records enriched per call. Default 5.
	ChunkSize int
	// ChunkDelay is the pacing delay between chunks. Default 15s.
	ChunkDelay time.Duration
	// RateLimitCooldown is the longer wait applied after a chunk exhausts
	// its rate-limit retries. Default 60s.
	RateLimitCooldown time.Duration
}

func (c Config) withDefaults() Config {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 5
	}
	if c.ChunkDelay <= 0 {
		c.ChunkDelay = 15 * time.Second
	}
	if c.RateLimitCooldown <= 0 {
		c.RateLimitCooldown = time.Minute
	}
	return c
}

// ContextFetcher is the prefetch surface the scheduler needs.
type ContextFetcher interface {
	FetchAll(ctx context.Context, urls []string) map[string]*prefetch.Context
}

// RunStats summarizes one drain of the queue.
type RunStats struct {
	Processed int
	Done      int
	Warnings  int
	Errors    int
}

// Scheduler owns the queue loop.
type Scheduler struct {
	cfg      Config
	store    *store.Store
	enricher enrich.Enricher
	fetcher  ContextFetcher
}

// New creates a Scheduler. fetcher may be nil to skip context prefetch.
func New(cfg Config, st *store.Store, e enrich.Enricher, fetcher ContextFetcher) *Scheduler {
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		store:    st,
		enricher: e,
		fetcher:  fetcher,
	}
}

// Run drains the queue chunk by chunk until no queued records remain, the
// context is cancelled, or a terminal configuration/auth error occurs. On a
// terminal error, in-flight records return to queued and the error is
// surfaced to the caller; per-record failures only mark that record.
func (s *Scheduler) Run(ctx context.Context) (RunStats, error) {
	var stats RunStats
	first := true

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		queued := s.store.Queued()
		if len(queued) == 0 {
			return stats, nil
		}

		if !first {
			if err := s.pace(ctx, s.cfg.ChunkDelay); err != nil {
				return stats, err
			}
		}
		first = false

		chunk := queued
		if len(chunk) > s.cfg.ChunkSize {
			chunk = chunk[:s.cfg.ChunkSize]
		}

		err := s.processChunk(ctx, chunk, &stats)
		switch {
		case err == nil:
		case resilience.IsAuth(err):
			// Terminal for the whole run: remaining work stays queued.
			return stats, eris.Wrap(err, "scheduler: run aborted")
		case resilience.IsRateLimit(err):
			zap.L().Warn("scheduler: rate limited, cooling down",
				zap.Duration("cooldown", s.cfg.RateLimitCooldown))
			if pauseErr := s.pace(ctx, s.cfg.RateLimitCooldown-s.cfg.ChunkDelay); pauseErr != nil {
				return stats, pauseErr
			}
		}
	}
}

// processChunk runs one enrichment call for a chunk and reconciles every
// record. The returned error is nil unless the whole chunk failed; auth
// errors leave the chunk's records queued, others degrade them to error.
func (s *Scheduler) processChunk(ctx context.Context, chunk []model.Bookmark, stats *RunStats) error {
	log := zap.L().With(zap.Int("chunk_size", len(chunk)))
	log.Info("scheduler: processing chunk")

	active := make([]model.Bookmark, 0, len(chunk))
	for _, rec := range chunk {
		if err := s.store.MarkProcessing(ctx, rec.ID); err != nil {
			log.Warn("scheduler: mark processing failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		active = append(active, rec)
	}
	if len(active) == 0 {
		return nil
	}

	urls := make([]string, len(active))
	for i, rec := range active {
		urls[i] = rec.URL
	}

	var contexts map[string]*prefetch.Context
	if s.fetcher != nil {
		contexts = s.fetcher.FetchAll(ctx, urls)
	}

	reqs := make([]enrich.Request, len(urls))
	for i, u := range urls {
		reqs[i] = enrich.Request{URL: u}
		if c, ok := contexts[u]; ok {
			reqs[i].Context = c.Text
		}
	}

	results, err := s.enricher.Enrich(ctx, reqs)
	if err != nil {
		if resilience.IsAuth(err) {
			// Don't leave anything stuck in processing.
			for _, rec := range active {
				if requeueErr := s.store.Requeue(ctx, rec.ID); requeueErr != nil {
					log.Warn("scheduler: requeue failed", zap.String("id", rec.ID), zap.Error(requeueErr))
				}
			}
			return err
		}

		// Retry ceiling exhausted: degrade the chunk's records, continue
		// the run.
		for _, rec := range active {
			if failErr := s.store.ApplyFailure(ctx, rec.ID, err.Error()); failErr != nil {
				log.Warn("scheduler: apply failure failed", zap.String("id", rec.ID), zap.Error(failErr))
			}
			stats.Processed++
			stats.Errors++
		}
		return err
	}

	for i, rec := range active {
		if i >= len(results) {
			break
		}
		stats.Processed++
		if err := s.store.ApplySuccess(ctx, rec.ID, results[i]); err != nil {
			log.Warn("scheduler: apply success failed", zap.String("id", rec.ID), zap.Error(err))
			stats.Errors++
			continue
		}
		if current, ok := s.store.Get(rec.ID); ok && current.Status == model.StatusWarning {
			stats.Warnings++
		} else {
			stats.Done++
		}
	}
	return nil
}

// pace waits d, returning early only on context cancellation.
func (s *Scheduler) pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
