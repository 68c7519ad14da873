package sealion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

var _ output.LLMPort = (*Adapter)(nil)

// Adapter talks to the SEA-LION chat completion endpoint through its
// OpenAI-compatible API. Transient failures are retried with
// exponential backoff before surfacing.
type Adapter struct {
	client     *openai.Client
	model      string
	logger     output.LoggerPort
	maxRetries int
	backoff    time.Duration
}

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	Logger     output.LoggerPort
	MaxRetries int
	Backoff    time.Duration
}

func DefaultConfig(apiKey, model, baseURL string) Config {
	if model == "" {
		model = "aisingapore/Gemma-SEA-LION-v3-9B-IT"
	}
	if baseURL == "" {
		baseURL = "https://api.sea-lion.ai/v1"
	}
	return Config{
		APIKey:     apiKey,
		Model:      model,
		BaseURL:    baseURL,
		MaxRetries: 2,
		Backoff:    500 * time.Millisecond,
	}
}

type loggingTransport struct {
	base   http.RoundTripper
	logger output.LoggerPort
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.logger != nil {
		var bodyBytes []byte
		if req.Body != nil {
			bodyBytes, _ = io.ReadAll(req.Body)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
		}

		var requestData map[string]interface{}
		if len(bodyBytes) > 0 {
			json.Unmarshal(bodyBytes, &requestData)
		}

		t.logger.Debug("HTTP Request",
			"method", req.Method,
			"url", req.URL.String(),
			"body", requestData,
		)
	}

	resp, err := t.base.RoundTrip(req)

	if t.logger != nil && resp != nil {
		t.logger.Debug("HTTP Response",
			"status", resp.Status,
			"statusCode", resp.StatusCode,
		)
	}

	return resp, err
}

func NewAdapter(cfg Config) *Adapter {
	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = cfg.BaseURL

	if cfg.Logger != nil {
		config.HTTPClient = &http.Client{
			Transport: &loggingTransport{
				base:   http.DefaultTransport,
				logger: cfg.Logger,
			},
		}
	}

	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}

	return &Adapter{
		client:     openai.NewClientWithConfig(config),
		model:      cfg.Model,
		logger:     cfg.Logger,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
	}
}

func (a *Adapter) Chat(ctx context.Context, req output.ChatRequest) (*output.ChatResponse, error) {
	completion := openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    convertMessages(req.Messages),
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		completion.MaxTokens = req.MaxTokens
	}

	var lastErr error
	for attempt := 0; attempt <= a.maxRetries; attempt++ {
		if attempt > 0 {
			delay := a.backoff << (attempt - 1)
			if a.logger != nil {
				a.logger.Warn("retrying chat completion",
					"attempt", attempt, "delay", delay.String(), "error", lastErr.Error())
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := a.client.CreateChatCompletion(ctx, completion)
		if err != nil {
			lastErr = err
			continue
		}
		if len(resp.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in response")
			continue
		}
		return &output.ChatResponse{Content: resp.Choices[0].Message.Content}, nil
	}
	return nil, fmt.Errorf("chat completion failed: %w", lastErr)
}

func convertMessages(messages []entity.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return out
}
