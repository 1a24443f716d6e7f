// Package anthropic implements collaborator.Collaborator using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/hupe1980/taskmesh/collaborator"
)

// Options configures the Anthropic collaborator (model id, temperature, max
// tokens, API key). Extend via functional options to preserve stability.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Collaborator wraps the Anthropic Messages API behind the generic
// collaborator.Collaborator interface.
type Collaborator struct {
	client *anthropic.Client
	opts   Options
}

// New creates an Anthropic collaborator using the official client. Without an
// explicit APIKey option the client reads ANTHROPIC_API_KEY from the environment.
func New(optFns ...func(o *Options)) *Collaborator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Collaborator{client: &client, opts: opts}
}

// NewFromClient creates an Anthropic collaborator from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Collaborator {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Collaborator{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   4096,
	}
}

// Complete runs a non-streaming message request and concatenates the text blocks.
func (c *Collaborator) Complete(ctx context.Context, req collaborator.Request) (collaborator.Response, error) {
	params := anthropic.MessageNewParams{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: anthropic.Float(c.opts.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return collaborator.Response{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}

	return collaborator.Response{
		Text:  text.String(),
		Model: string(c.opts.Model),
	}, nil
}
