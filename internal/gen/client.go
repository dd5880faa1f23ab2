// Package gen produces and repairs LilyPond source through the OpenAI
// Responses API. Each call is one network round trip; transport retries,
// if any, are the SDK's concern.
package gen

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"

	"github.com/lucasnoah/sonataforge/internal/config"
	"github.com/lucasnoah/sonataforge/internal/lily"
)

// Client is an OpenAI-backed LilyPond generator.
type Client struct {
	api   *openai.Client
	model string
	eff   shared.ReasoningEffort
	tries int

	// call performs one model round trip; swapped out in tests.
	call func(ctx context.Context, prompt string) (string, error)
}

// NewClient builds a Client from the given API key and render config.
func NewClient(apiKey string, cfg config.RenderConfig) *Client {
	api := openai.NewClient(option.WithAPIKey(apiKey))
	c := &Client{
		api:   &api,
		model: cfg.Model,
		eff:   reasoningEffort(cfg.ReasoningEffort),
		tries: cfg.MaxGenerationAttempts,
	}
	if c.tries < 1 {
		c.tries = 1
	}
	c.call = c.complete
	return c
}

// reasoningEffort maps the config level onto the provider enum. The models
// this pipeline targets (GPT-5 family) all accept a reasoning parameter.
func reasoningEffort(level string) shared.ReasoningEffort {
	switch level {
	case "minimal", "low":
		return responses.ReasoningEffortLow
	case "medium":
		return responses.ReasoningEffortMedium
	case "high":
		return responses.ReasoningEffortHigh
	default:
		return shared.ReasoningEffort("none")
	}
}

// Generate composes a full sonata-form LilyPond file from a motif snippet,
// retrying transport failures up to the configured try count. The result is
// sanitized and carries an injected \header with the title.
func (c *Client) Generate(ctx context.Context, motif, title string) (string, error) {
	keyDesc, timeSig := lily.ExtractKeyAndTime(motif)
	prompt := userPrompt(strings.TrimSpace(motif), keyDesc, timeSig, strings.TrimSpace(title))

	var lastErr error
	for i := 1; i <= c.tries; i++ {
		out, err := c.call(ctx, prompt)
		if err == nil {
			return lily.EnsureHeader(lily.Sanitize(out), title), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("generate: %w", lastErr)
}

// Repair asks the model to rewrite a broken file given the most recent
// diagnostic text (validator violations or compiler stderr). Repair calls
// are never retried.
func (c *Client) Repair(ctx context.Context, brokenSource, diagnostic, title string) (string, error) {
	out, err := c.call(ctx, fixPrompt(diagnostic, brokenSource))
	if err != nil {
		return "", fmt.Errorf("repair: %w", err)
	}
	return lily.EnsureHeader(lily.Sanitize(out), title), nil
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	params := responses.ResponseNewParams{
		Model: c.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(prompt, responses.EasyInputMessageRoleUser),
			},
		},
		Instructions: openai.String(systemPrompt),
		Reasoning:    shared.ReasoningParam{Effort: c.eff},
	}

	resp, err := c.api.Responses.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	text := resp.OutputText()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("openai returned an empty response")
	}
	return text, nil
}
