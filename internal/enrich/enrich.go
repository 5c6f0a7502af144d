// Package enrich turns batches of URLs into enriched bookmark fields via a
// web-grounded generative call.
package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/linkhoard/linkhoard/internal/model"
	"github.com/linkhoard/linkhoard/internal/resilience"
	"github.com/linkhoard/linkhoard/pkg/anthropic"
)

// maxSources caps the shared citation list attached to a batch.
const maxSources = 5

// FallbackSummary is the sentinel used when the model produced nothing
// usable for a URL.
const FallbackSummary = "A summary could not be generated for this URL."

// Request is one URL to enrich, with optional prefetched context.
type Request struct {
	URL     string
	Context string
}

// Result holds the enriched fields for one input URL.
type Result struct {
	URL             string
	Title           string
	Summary         string
	Keywords        []string
	Sources         []model.Source
	PublicationDate *time.Time
}

// Enricher produces exactly one Result per input URL, in input order.
type Enricher interface {
	Enrich(ctx context.Context, reqs []Request) ([]Result, error)
}

// Client implements Enricher over the Anthropic web-search grounding tool.
type Client struct {
	ai        anthropic.Client
	model     string
	maxTok    int64
	maxSearch int64
	retryCfg  resilience.RetryConfig
}

// Option configures the Client.
type Option func(*Client)

// WithRetryConfig overrides the default retry policy.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retryCfg = cfg }
}

// WithMaxTokens overrides the response token budget.
func WithMaxTokens(n int64) Option {
	return func(c *Client) { c.maxTok = n }
}

// WithMaxSearchUses overrides the web-search use cap per batch call.
func WithMaxSearchUses(n int64) Option {
	return func(c *Client) { c.maxSearch = n }
}

// New creates an enrichment client. ai may be nil when no credential is
// configured; Enrich then fails fast with a configuration error.
func New(ai anthropic.Client, modelID string, opts ...Option) *Client {
	c := &Client{
		ai:        ai,
		model:     modelID,
		maxTok:    4096,
		maxSearch: maxSources,
		retryCfg:  resilience.DefaultRetryConfig(),
	}
	c.retryCfg.OnRetry = resilience.RetryLogger("anthropic", "enrich")
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enrich sends one grounded prompt covering the whole batch and maps the
// response back onto the inputs. No input URL is ever dropped: unmatched
// inputs get URL-derived fallback fields.
func (c *Client) Enrich(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	if c.ai == nil {
		return nil, eris.Wrap(resilience.ErrNoCredential, "enrich")
	}

	prompt := buildPrompt(reqs)

	type parsed struct {
		items     []responseItem
		citations []anthropic.Citation
	}

	out, err := resilience.DoVal(ctx, c.retryCfg, func(ctx context.Context) (parsed, error) {
		resp, err := c.ai.GenerateGrounded(ctx, anthropic.GroundedRequest{
			Model:         c.model,
			MaxTokens:     c.maxTok,
			System:        systemPrompt,
			Prompt:        prompt,
			MaxSearchUses: c.maxSearch,
		})
		if err != nil {
			return parsed{}, err
		}

		items, err := parseResponse(resp.Text)
		if err != nil {
			// Malformed output is a transport/format problem, worth a retry.
			return parsed{}, resilience.NewTransientError(err, 0)
		}
		return parsed{items: items, citations: resp.Citations}, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "enrich: batch call")
	}

	sources := make([]model.Source, 0, maxSources)
	for _, cit := range out.citations {
		if len(sources) >= maxSources {
			break
		}
		sources = append(sources, model.Source{URI: cit.URI, Title: cit.Title})
	}

	results := make([]Result, len(reqs))
	for i, req := range reqs {
		item := matchItem(req.URL, out.items)
		results[i] = buildResult(req.URL, item, sources)
	}

	zap.L().Info("enrichment batch complete",
		zap.Int("urls", len(reqs)),
		zap.Int("matched", countMatched(reqs, out.items)),
		zap.Int("sources", len(sources)),
	)
	return results, nil
}

// EnrichOne is a batch call of size one.
func (c *Client) EnrichOne(ctx context.Context, req Request) (*Result, error) {
	results, err := c.Enrich(ctx, []Request{req})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func countMatched(reqs []Request, items []responseItem) int {
	n := 0
	for _, req := range reqs {
		if matchItem(req.URL, items) != nil {
			n++
		}
	}
	return n
}
