// Package ai talks to an OpenAI-compatible chat completions endpoint (Groq
// by default) to infer page structure and job fields from raw markup.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// MaxPageChars bounds the markup sent for page-structure inference.
	MaxPageChars = 25000
	// MaxPanelChars bounds the markup sent for field inference.
	MaxPanelChars = 8000
)

var ErrEmptyCompletion = errors.New("no choices returned from chat API")

type Client struct {
	http  *resty.Client
	model string
}

// NewClient builds a client for baseURL (for example
// https://api.groq.com/openai/v1) authenticated with apiKey.
func NewClient(apiKey, baseURL, model string) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(60 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == 429
		})
	return &Client{http: rc, model: model}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends one system+user exchange and decodes the JSON object the
// model answers with into out.
func (c *Client) complete(ctx context.Context, system, user string, out any) error {
	var body chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: system},
				{Role: "user", Content: user},
			},
			Temperature: 0,
		}).
		SetResult(&body).
		SetError(&body).
		Post("/chat/completions")
	if err != nil {
		return fmt.Errorf("chat request failed: %w", err)
	}
	if body.Error != nil {
		return fmt.Errorf("chat API error (status %d): %s", resp.StatusCode(), body.Error.Message)
	}
	if resp.IsError() {
		return fmt.Errorf("chat API returned status %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(body.Choices) == 0 {
		return ErrEmptyCompletion
	}

	cleaned := cleanMarkdownJSON(body.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("failed to decode model answer (raw length: %d): %w", len(cleaned), err)
	}
	return nil
}

// cleanMarkdownJSON extracts the body of a ```json fence if the model wrapped
// its answer in one.
func cleanMarkdownJSON(content string) string {
	content = strings.TrimSpace(content)
	for _, fence := range []string{"```json", "```"} {
		if _, after, ok := strings.Cut(content, fence); ok {
			body, _, _ := strings.Cut(after, "```")
			return strings.TrimSpace(body)
		}
	}
	return content
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
