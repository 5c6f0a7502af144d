// Package anthropic wraps the Anthropic API for web-grounded generation.
package anthropic

import (
	"context"
	"errors"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/linkhoard/linkhoard/internal/resilience"
)

// Client defines the Anthropic API operations used by the enrichment pipeline.
type Client interface {
	// GenerateGrounded sends one prompt with the web-search tool enabled and
	// returns the assistant text plus any grounding citations.
	GenerateGrounded(ctx context.Context, req GroundedRequest) (*GroundedResponse, error)
}

// GroundedRequest is our own request type for GenerateGrounded.
type GroundedRequest struct {
	Model         string
	MaxTokens     int64
	System        string
	Prompt        string
	MaxSearchUses int64
	Temperature   *float64
}

// GroundedResponse is our own response type from GenerateGrounded.
type GroundedResponse struct {
	Text      string
	Citations []Citation
	Usage     TokenUsage
}

// Citation is one grounding source surfaced by the web-search tool.
type Citation struct {
	URI   string
	Title string
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// sdkClient implements Client using the official anthropic-sdk-go.
type sdkClient struct {
	client sdk.Client
}

// NewClient creates a new Anthropic client backed by the SDK.
func NewClient(apiKey string) Client {
	return &sdkClient{
		client: sdk.NewClient(
			option.WithAPIKey(apiKey),
		),
	}
}

func (c *sdkClient) GenerateGrounded(ctx context.Context, req GroundedRequest) (*GroundedResponse, error) {
	maxUses := req.MaxSearchUses
	if maxUses <= 0 {
		maxUses = 5
	}

	params := sdk.MessageNewParams{
		Model:     sdk.Model(req.Model),
		MaxTokens: req.MaxTokens,
		Messages: []sdk.MessageParam{
			sdk.NewUserMessage(sdk.NewTextBlock(req.Prompt)),
		},
		Tools: []sdk.ToolUnionParam{{
			OfWebSearchTool20250305: &sdk.WebSearchTool20250305Param{
				MaxUses: sdk.Int(maxUses),
			},
		}},
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = sdk.Float(*req.Temperature)
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return nil, classifyError(eris.Wrap(err, "anthropic: create message"))
	}

	return fromSDKMessage(msg), nil
}

// classifyError maps SDK errors onto the retry taxonomy: 401/403 terminal
// auth, 429/529 rate limit, 5xx and network failures transient.
func classifyError(err error) error {
	var apierr *sdk.Error
	if !errors.As(err, &apierr) {
		if resilience.IsTransient(err) {
			return resilience.NewTransientError(err, 0)
		}
		return err
	}

	switch {
	case apierr.StatusCode == 401 || apierr.StatusCode == 403:
		return resilience.NewAuthError(err)
	case apierr.StatusCode == 429 || apierr.StatusCode == 529:
		return resilience.NewRateLimitError(err, apierr.StatusCode)
	case apierr.StatusCode >= 500:
		return resilience.NewTransientError(err, apierr.StatusCode)
	default:
		return err
	}
}

func fromSDKMessage(msg *sdk.Message) *GroundedResponse {
	resp := &GroundedResponse{
		Usage: TokenUsage{
			InputTokens:  msg.Usage.InputTokens,
			OutputTokens: msg.Usage.OutputTokens,
		},
	}

	seen := make(map[string]struct{})
	for _, block := range msg.Content {
		if block.Type != "text" {
			continue
		}
		resp.Text += block.Text
		for _, cit := range block.Citations {
			if cit.Type != "web_search_result_location" || cit.URL == "" {
				continue
			}
			if _, ok := seen[cit.URL]; ok {
				continue
			}
			seen[cit.URL] = struct{}{}
			resp.Citations = append(resp.Citations, Citation{
				URI:   cit.URL,
				Title: cit.Title,
			})
		}
	}
	return resp
}
