// Package openai implements collaborator.Collaborator using the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/hupe1980/taskmesh/collaborator"
	"github.com/openai/openai-go"
)

// Options configures the OpenAI collaborator. Fields mirror a subset of Chat
// Completion parameters intentionally kept minimal; extend via functional
// options without breaking callers.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Collaborator wraps the OpenAI Chat Completions API behind the generic
// collaborator.Collaborator interface.
type Collaborator struct {
	client *openai.Client
	opts   Options
}

// New creates an OpenAI collaborator using the official client. The client
// reads OPENAI_API_KEY from the environment.
func New(optFns ...func(o *Options)) *Collaborator {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates an OpenAI collaborator from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Collaborator {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 4096,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Collaborator{client: client, opts: opts}
}

// Complete runs a non-streaming chat completion and returns the first choice.
func (c *Collaborator) Complete(ctx context.Context, req collaborator.Request) (collaborator.Response, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               c.opts.Model,
		Temperature:         openai.Float(c.opts.Temperature),
		MaxCompletionTokens: openai.Int(c.opts.MaxCompletionTokens),
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return collaborator.Response{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return collaborator.Response{}, fmt.Errorf("no choices returned")
	}

	return collaborator.Response{
		Text:  resp.Choices[0].Message.Content,
		Model: c.opts.Model,
	}, nil
}
