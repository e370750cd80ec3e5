// Package llm wraps the external language-model collaborator. The core treats
// it as a black box with a strict input/output contract: structured text in,
// a {title, long_summary, action_items, score} bundle out. Any failure on
// this path is absorbed by the caller's deterministic fallback, never
// propagated.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"headsup/internal/config"
)

// Bundle is the structured output the collaborator must produce. Additional
// keys in the raw response are ignored. Score is a pointer so a reply that
// omits the key is distinguishable from an explicit 0.
type Bundle struct {
	Title       string   `json:"title"`
	LongSummary string   `json:"long_summary"`
	ActionItems []string `json:"action_items"`
	Score       *float64 `json:"score"`
}

// ScoreOrDefault returns the model's score when the reply carried one and
// the supplied fallback otherwise.
func (b *Bundle) ScoreOrDefault(fallback float64) float64 {
	if b == nil || b.Score == nil {
		return fallback
	}
	return *b.Score
}

// Client is the narrow interface the pipelines consume. Implementations must
// be safe for concurrent use.
type Client interface {
	// Analyze sends one structured context block and returns the parsed
	// bundle. A nil Client or any error means "fall back".
	Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Bundle, error)
}

// OpenAIClient talks to an OpenAI-compatible chat-completions endpoint.
type OpenAIClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
}

// NewOpenAIClient builds a client from config. Returns nil when the
// collaborator is disabled so callers can treat "no LLM" uniformly.
func NewOpenAIClient(cfg config.LLMConfig) *OpenAIClient {
	if !cfg.Enabled || cfg.BaseURL == "" {
		return nil
	}
	timeout := cfg.Timeout()
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &OpenAIClient{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Analyze performs one chat completion and parses the bundle out of the
// model's reply.
func (c *OpenAIClient) Analyze(ctx context.Context, systemPrompt, userPrompt string) (*Bundle, error) {
	if c == nil {
		return nil, fmt.Errorf("llm collaborator disabled")
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: c.temperature,
		MaxTokens:   500,
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode llm request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build llm request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("llm returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode llm response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, fmt.Errorf("llm response contained no choices")
	}

	return ParseBundle(parsed.Choices[0].Message.Content)
}
