package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"studycards/internal/logger"
)

const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "gpt-4o-mini"

	maxTokens   = 2000
	temperature = 0.7
)

// CardContent is one generated card before it is stored
type CardContent struct {
	Content     string
	Explanation *string
}

// Request asks for Count new cards on a topic
type Request struct {
	Grade   int
	Subject string
	Topic   string
	Count   int
}

// Config configures the completion client
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Client calls the OpenAI chat completions endpoint
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient builds a client. A missing API key is not an error here; every call
// then fails with *ConfigError so the rest of the app can still start.
func NewClient(cfg Config, log *logger.Logger) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = DefaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		log:        log.With("component", "generator"),
	}
}

// Configured reports whether an API key is present
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Generate produces new study cards for a grade, subject and topic
func (c *Client) Generate(ctx context.Context, req Request) ([]CardContent, error) {
	if req.Count <= 0 {
		return nil, errors.New("card count must be positive")
	}
	return c.complete(ctx, standardPrompt(req.Grade, req.Subject, req.Topic, req.Count))
}

// GenerateExplanatory produces simpler explanation cards for the given difficult card texts,
// one per text in the same order.
func (c *Client) GenerateExplanatory(ctx context.Context, grade int, subject, topic string, difficult []string) ([]CardContent, error) {
	if len(difficult) == 0 {
		return []CardContent{}, nil
	}
	return c.complete(ctx, explanatoryPrompt(grade, subject, topic, difficult))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (c *Client) complete(ctx context.Context, prompt string) ([]CardContent, error) {
	if !c.Configured() {
		return nil, &ConfigError{Reason: "missing OPENAI_API_KEY"}
	}

	start := time.Now()
	raw, err := c.post(ctx, "/v1/chat/completions", chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	})
	if err != nil {
		c.log.Warn("completion request failed", "error", err, "duration", time.Since(start))
		return nil, err
	}

	var resp chatResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &FormatError{Raw: string(raw), Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &FormatError{Raw: string(raw), Err: errors.New("no choices in response")}
	}

	text := resp.Choices[0].Message.Content
	cards, err := parseCards(text)
	if err != nil {
		c.log.Warn("could not parse completion", "raw", text)
		return nil, err
	}

	c.log.Debug("completion parsed", "cards", len(cards), "duration", time.Since(start))
	return cards, nil
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
