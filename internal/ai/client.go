// Package ai talks to a remote text-generation endpoint and turns its JSON
// replies into insights, feedback and goal breakdowns.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/starford/planner/internal/apperr"
	"github.com/starford/planner/internal/models"
)

// anthropicVersion is sent with every messages API request.
const anthropicVersion = "2023-06-01"

// maxResponseBytes caps how much of an upstream reply is read.
const maxResponseBytes = 4 << 20

// Request is one prompt submission.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int
}

// Generator returns the raw text produced for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Doer is the subset of *http.Client used by the clients.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MessagesClient calls an Anthropic-style messages endpoint.
type MessagesClient struct {
	Endpoint string
	APIKey   string
	HTTP     Doer
}

// Generate posts the prompt as a single user message and returns the
// first content block's text.
func (c *MessagesClient) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]any{
		"model":      req.Model,
		"max_tokens": req.MaxTokens,
		"messages":   []message{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{"anthropic-version": anthropicVersion}
	if c.APIKey != "" {
		headers["x-api-key"] = c.APIKey
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := postJSON(ctx, c.HTTP, c.Endpoint, headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Content) == 0 {
		return "", apperr.Collaborator("generate", 0, fmt.Errorf("reply has no content"))
	}
	return out.Content[0].Text, nil
}

// ChatClient calls an OpenAI-compatible chat completions endpoint.
type ChatClient struct {
	BaseURL string
	APIKey  string
	HTTP    Doer
}

// Generate posts the prompt and returns the first choice's message.
func (c *ChatClient) Generate(ctx context.Context, req Request) (string, error) {
	body := map[string]any{
		"model":      req.Model,
		"max_tokens": req.MaxTokens,
		"messages":   []message{{Role: "user", Content: req.Prompt}},
	}
	headers := map[string]string{}
	if c.APIKey != "" {
		headers["Authorization"] = "Bearer " + c.APIKey
	}

	var out struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"
	if err := postJSON(ctx, c.HTTP, url, headers, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", apperr.Collaborator("generate", 0, fmt.Errorf("reply has no choices"))
	}
	return out.Choices[0].Message.Content, nil
}

// Default base URLs for the OpenAI-compatible providers.
var defaultBaseURLs = map[string]string{
	models.ProviderOpenAI:   "https://api.openai.com/v1",
	models.ProviderQwen:     "https://dashscope.aliyuncs.com/compatible-mode/v1",
	models.ProviderDeepSeek: "https://api.deepseek.com/v1",
}

// NewGenerator picks the client matching s.Provider. An empty provider
// means the messages API.
func NewGenerator(s models.Settings, doer Doer) (Generator, error) {
	if doer == nil {
		doer = http.DefaultClient
	}
	switch s.Provider {
	case "", models.ProviderClaude:
		if s.Endpoint == "" {
			return nil, apperr.Validation("endpoint", "required for the messages API")
		}
		return &MessagesClient{Endpoint: s.Endpoint, APIKey: s.APIKey, HTTP: doer}, nil
	case models.ProviderOpenAI, models.ProviderQwen, models.ProviderDeepSeek:
		base := s.Endpoint
		if base == "" || base == models.DefaultSettings().Endpoint {
			base = defaultBaseURLs[s.Provider]
		}
		return &ChatClient{BaseURL: base, APIKey: s.APIKey, HTTP: doer}, nil
	default:
		return nil, apperr.Validation("provider", fmt.Sprintf("unknown provider %q", s.Provider))
	}
}

func postJSON(ctx context.Context, doer Doer, url string, headers map[string]string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("ai: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperr.Collaborator("request", 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := doer.Do(req)
	if err != nil {
		return apperr.Collaborator("request", 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return apperr.Collaborator("read reply", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperr.Collaborator("request", resp.StatusCode, fmt.Errorf("%s", snippet(data)))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperr.Collaborator("decode reply", resp.StatusCode, err)
	}
	return nil
}

func snippet(b []byte) string {
	const n = 200
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		s = s[:n] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}
