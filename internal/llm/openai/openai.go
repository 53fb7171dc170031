// Package openai is the OpenAI-compatible chat completion backend.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"llm-trading-agent/internal/api"
	"llm-trading-agent/internal/store"
	"llm-trading-agent/internal/trace"
)

const defaultBaseURL = "https://api.openai.com"

// Client calls the /v1/chat/completions endpoint of any OpenAI-compatible
// server.
type Client struct {
	cfg  *store.Config
	http *api.Client
}

// New creates a client from config. The API key is read per call so the
// process can start without one and fail only when the model is needed.
func New(cfg *store.Config) *Client {
	baseURL := cfg.LLM.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		cfg: cfg,
		http: api.NewClient(
			api.WithBaseURL(baseURL),
			api.WithTimeout(60*time.Second),
			api.WithLogging(true),
		),
	}
}

// Complete sends one system/user exchange and returns the assistant text.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	ctx, span := trace.StartSpan(ctx, "openai-api-call")
	defer span.End()

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", errors.New("OPENAI_API_KEY missing")
	}

	body := map[string]any{
		"model":       c.cfg.LLM.Model,
		"messages":    []map[string]string{{"role": "system", "content": system}, {"role": "user", "content": user}},
		"temperature": c.cfg.LLM.Temperature,
		"max_tokens":  c.cfg.LLM.MaxTokens,
	}

	resp, err := c.http.POST(ctx, "/v1/chat/completions", body, map[string]string{
		"Authorization": "Bearer " + apiKey,
	})
	if err != nil {
		return "", err
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := resp.ParseJSON(&r); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(r.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
