package scheduler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linkhoard/linkhoard/internal/enrich"
	"github.com/linkhoard/linkhoard/internal/importer"
	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/prefetch"
	"github.com/linkhoard/linkhoard/internal/resilience"
	"github.com/linkhoard/linkhoard/internal/store"
)

// nullPersister discards everything; scheduler tests only need the in-memory
// collection.
type nullPersister struct{}

func (nullPersister) Save(context.Context, []model.Bookmark) error   { return nil }
func (nullPersister) Load(context.Context) ([]model.Bookmark, error) { return nil, nil }
func (nullPersister) Close() error                                   { return nil }

// scriptedEnricher replays a fixed sequence of responses, one per call, and
// records the batches it was given.
type scriptedEnricher struct {
	batches [][]enrich.Request
	respond func(call int, reqs []enrich.Request) ([]enrich.Result, error)
}

func (m *scriptedEnricher) Enrich(_ context.Context, reqs []enrich.Request) ([]enrich.Result, error) {
	call := len(m.batches)
	m.batches = append(m.batches, reqs)
	return m.respond(call, reqs)
}

// okResults returns one well-formed result per request, in order.
func okResults(reqs []enrich.Request) []enrich.Result {
	results := make([]enrich.Result, len(reqs))
	for i, req := range reqs {
		results[i] = enrich.Result{
			URL:     req.URL,
			Title:   "Title",
			Summary: "A summary long enough to pass.",
		}
	}
	return results
}

// fastConfig keeps pacing out of test runtime.
func fastConfig(chunkSize int) Config {
	return Config{
		ChunkSize:         chunkSize,
		ChunkDelay:        time.Millisecond,
		RateLimitCooldown: 2 * time.Millisecond,
	}
}

func seedStore(t *testing.T, n int) *store.Store {
	t.Helper()
	st := store.New(nullPersister{})
	require.NoError(t, st.Open(context.Background()))

	entries := make([]importer.Entry, n)
	for i := range entries {
		entries[i] = importer.Entry{URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	created := st.Admit(context.Background(), entries)
	require.Len(t, created, n)
	return st
}

func TestRun_DrainsQueueInChunks(t *testing.T) {
	st := seedStore(t, 7)
	enricher := &scriptedEnricher{
		respond: func(_ int, reqs []enrich.Request) ([]enrich.Result, error) {
			return okResults(reqs), nil
		},
	}

	sched := New(fastConfig(3), st, enricher, nil)
	stats, err := sched.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, RunStats{Processed: 7, Done: 7}, stats)
	require.Len(t, enricher.batches, 3)
	assert.Len(t, enricher.batches[0], 3)
	assert.Len(t, enricher.batches[1], 3)
	assert.Len(t, enricher.batches[2], 1)
	// Oldest first within each chunk.
	assert.Equal(t, "https://example.com/0", enricher.batches[0][0].URL)

	for _, rec := range st.List() {
		assert.Equal(t, model.StatusDone, rec.Status)
	}
	assert.Empty(t, st.Queued())
}

func TestRun_EmptyQueueReturnsImmediately(t *testing.T) {
	st := seedStore(t, 0)
	enricher := &scriptedEnricher{
		respond: func(int, []enrich.Request) ([]enrich.Result, error) {
			t.Fatal("enricher must not be called")
			return nil, nil
		},
	}

	stats, err := New(fastConfig(5), st, enricher, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{}, stats)
}

func TestRun_AuthErrorAbortsAndRequeues(t *testing.T) {
	st := seedStore(t, 4)
	enricher := &scriptedEnricher{
		respond: func(int, []enrich.Request) ([]enrich.Result, error) {
			return nil, resilience.NewAuthError(errors.New("invalid api key"))
		},
	}

	stats, err := New(fastConfig(2), st, enricher, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, resilience.IsAuth(err))
	assert.Contains(t, err.Error(), "run aborted")
	assert.Equal(t, RunStats{}, stats)

	// One call only; nothing stuck in processing, everything back in queue.
	assert.Len(t, enricher.batches, 1)
	for _, rec := range st.List() {
		assert.Equal(t, model.StatusQueued, rec.Status)
	}
	assert.Len(t, st.Queued(), 4)
}

func TestRun_ChunkFailureDegradesAndContinues(t *testing.T) {
	st := seedStore(t, 4)
	enricher := &scriptedEnricher{
		respond: func(call int, reqs []enrich.Request) ([]enrich.Result, error) {
			if call == 0 {
				return nil, resilience.NewTransientError(errors.New("upstream flapping"), 500)
			}
			return okResults(reqs), nil
		},
	}

	stats, err := New(fastConfig(2), st, enricher, nil).Run(context.Background())
	require.NoError(t, err, "per-chunk failures don't fail the run")
	assert.Equal(t, RunStats{Processed: 4, Done: 2, Errors: 2}, stats)

	records := st.List()
	assert.Equal(t, model.StatusError, records[0].Status)
	assert.Equal(t, model.StatusError, records[1].Status)
	assert.Equal(t, model.StatusDone, records[2].Status)
	assert.Equal(t, model.StatusDone, records[3].Status)
	assert.Contains(t, records[0].ErrorText, "upstream flapping")
}

func TestRun_RateLimitCoolsDownAndContinues(t *testing.T) {
	st := seedStore(t, 2)
	enricher := &scriptedEnricher{
		respond: func(call int, reqs []enrich.Request) ([]enrich.Result, error) {
			if call == 0 {
				return nil, resilience.NewRateLimitError(errors.New("rate limited"), 429)
			}
			return okResults(reqs), nil
		},
	}

	stats, err := New(fastConfig(1), st, enricher, nil).Run(context.Background())
	require.NoError(t, err)
	// The rate-limited chunk is degraded, the next one completes.
	assert.Equal(t, RunStats{Processed: 2, Done: 1, Errors: 1}, stats)
	assert.Len(t, enricher.batches, 2)
}

func TestRun_ShortSummaryCountedAsWarning(t *testing.T) {
	st := seedStore(t, 1)
	enricher := &scriptedEnricher{
		respond: func(_ int, reqs []enrich.Request) ([]enrich.Result, error) {
			return []enrich.Result{{URL: reqs[0].URL, Title: "T", Summary: "tiny"}}, nil
		},
	}

	stats, err := New(fastConfig(5), st, enricher, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, RunStats{Processed: 1, Warnings: 1}, stats)
	assert.Equal(t, model.StatusWarning, st.List()[0].Status)
}

func TestRun_ContextCancelled(t *testing.T) {
	st := seedStore(t, 1)
	enricher := &scriptedEnricher{
		respond: func(_ int, reqs []enrich.Request) ([]enrich.Result, error) {
			return okResults(reqs), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(fastConfig(5), st, enricher, nil).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	// Untouched: the run never got to the queue.
	assert.Equal(t, model.StatusQueued, st.List()[0].Status)
}

// fetcherFunc adapts a function to the ContextFetcher interface.
type fetcherFunc func(ctx context.Context, urls []string) map[string]*prefetch.Context

func (f fetcherFunc) FetchAll(ctx context.Context, urls []string) map[string]*prefetch.Context {
	return f(ctx, urls)
}

func TestRun_PrefetchedContextFlowsIntoRequests(t *testing.T) {
	st := seedStore(t, 1)
	url := st.List()[0].URL

	var seen []enrich.Request
	enricher := &scriptedEnricher{
		respond: func(_ int, reqs []enrich.Request) ([]enrich.Result, error) {
			seen = reqs
			return okResults(reqs), nil
		},
	}

	fetcher := fetcherFunc(func(_ context.Context, _ []string) map[string]*prefetch.Context {
		return map[string]*prefetch.Context{url: {Platform: "twitter", Text: "tweet body"}}
	})

	_, err := New(fastConfig(5), st, enricher, fetcher).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, "tweet body", seen[0].Context)
}
