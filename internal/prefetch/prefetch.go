// Package prefetch retrieves auxiliary page content for recognized platform
// URLs before enrichment. Everything here is best effort: any failure at any
// stage yields no context for that URL, never an error.
package prefetch

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const fetchTimeout = 10 * time.Second

// Context is auxiliary grounding text for a single URL.
type Context struct {
	Platform string
	Text     string
}

// Config configures the prefetcher's credentials and relay.
type Config struct {
	// BearerToken enables the authenticated social-post API lookup.
	BearerToken string
	// RelayBaseURL routes video page fetches around origin restrictions.
	// Video prefetch is skipped when empty.
	RelayBaseURL string
	// MaxConcurrent bounds per-URL fetches within one batch. Default 4.
	MaxConcurrent int
}

// Fetcher retrieves platform context for URLs.
type Fetcher struct {
	cfg  Config
	http *http.Client
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	return &Fetcher{
		cfg:  cfg,
		http: &http.Client{Timeout: fetchTimeout},
	}
}

// Fetch returns auxiliary context for url, or nil when the URL is not a
// recognized platform or retrieval fails.
func (f *Fetcher) Fetch(ctx context.Context, url string) *Context {
	switch {
	case isSocialPost(url):
		return f.fetchSocial(ctx, url)
	case isVideo(url):
		return f.fetchVideo(ctx, url)
	default:
		return nil
	}
}

// FetchAll fetches context for every URL concurrently. The result map holds
// entries only for URLs that produced context.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) map[string]*Context {
	results := make([]*Context, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.MaxConcurrent)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = f.Fetch(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]*Context)
	for i, u := range urls {
		if results[i] != nil {
			out[u] = results[i]
		}
	}
	return out
}

// get performs a GET and returns the body, or "" on any failure.
func (f *Fetcher) get(ctx context.Context, url string, header http.Header) string {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ""
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.http.Do(req)
	if err != nil {
		zap.L().Debug("prefetch: fetch failed", zap.String("url", url), zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Debug("prefetch: non-200", zap.String("url", url), zap.Int("status", resp.StatusCode))
		return ""
	}

	body := make([]byte, 0, 64*1024)
	buf := make([]byte, 32*1024)
	for len(body) < maxBodyBytes {
		n, readErr := resp.Body.Read(buf)
		body = append(body, buf[:n]...)
		if readErr != nil {
			break
		}
	}
	return string(body)
}

// maxBodyBytes caps fetched page bodies; playlist pages can be large.
const maxBodyBytes = 2 << 20
