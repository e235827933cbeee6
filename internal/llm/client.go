// Package llm wraps the Gemini text-completion client used by the LLM test
// endpoint and the resume skill extractor.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

const defaultModel = "gemini-2.5-flash"

// ResponseError means the model returned unusable output: empty text, or
// text that does not conform to the requested JSON shape. Raw keeps the
// original output for diagnostics.
type ResponseError struct {
	Msg string
	Raw string
}

func (e *ResponseError) Error() string { return e.Msg }

// Client is a thin wrapper holding one shared model client.
type Client struct {
	model llms.Model
}

// New initialises the Gemini client. The API key is required.
func New(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	m, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(defaultModel),
	)
	if err != nil {
		return nil, fmt.Errorf("googleai.New: %w", err)
	}
	return &Client{model: m}, nil
}

// Generate runs a single-prompt completion and fails on empty output.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, c.model, prompt)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", &ResponseError{Msg: "empty response from model"}
	}
	return out, nil
}

// GenerateJSON runs a completion whose prompt demands JSON-only output and
// unmarshals it into out. Models love to wrap JSON in markdown fences, so
// those are stripped before decoding. A non-conforming response surfaces as
// a ResponseError retaining the raw output.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out any) error {
	raw, err := c.Generate(ctx, prompt)
	if err != nil {
		return err
	}
	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &ResponseError{Msg: fmt.Sprintf("model output is not valid JSON: %v", err), Raw: raw}
	}
	return nil
}

// stripCodeFence removes a surrounding ```json ... ``` (or plain ```) fence.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:] // drop the language tag line
	}
	if i := strings.LastIndex(s, "```"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
