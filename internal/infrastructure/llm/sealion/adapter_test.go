package sealion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"portal-agent/internal/application/port/output"
	"portal-agent/internal/domain/entity"
)

func TestDefaultConfigFillsBlanks(t *testing.T) {
	cfg := DefaultConfig("key", "", "")
	if cfg.Model != "aisingapore/Gemma-SEA-LION-v3-9B-IT" {
		t.Errorf("model = %q", cfg.Model)
	}
	if cfg.BaseURL != "https://api.sea-lion.ai/v1" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.MaxRetries != 2 || cfg.Backoff != 500*time.Millisecond {
		t.Errorf("retries = %d, backoff = %s", cfg.MaxRetries, cfg.Backoff)
	}

	cfg = DefaultConfig("key", "custom-model", "http://localhost:9999/v1")
	if cfg.Model != "custom-model" || cfg.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("explicit values overridden: %+v", cfg)
	}
}

func TestConvertMessages(t *testing.T) {
	msgs := convertMessages([]entity.Message{
		{Role: entity.RoleSystem, Content: "be brief"},
		{Role: entity.RoleUser, Content: "hello"},
		{Role: entity.RoleAssistant, Content: "hi"},
	})
	if len(msgs) != 3 {
		t.Fatalf("len = %d", len(msgs))
	}
	if msgs[0].Role != "system" || msgs[1].Role != "user" || msgs[2].Role != "assistant" {
		t.Errorf("roles = %s/%s/%s", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if msgs[1].Content != "hello" {
		t.Errorf("content = %q", msgs[1].Content)
	}
}

const completionBody = `{"choices": [{"message": {"role": "assistant", "content": "pong"}}]}`

func TestChatRetriesTransientFailure(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			http.Error(w, "upstream hiccup", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	a := NewAdapter(Config{
		APIKey:     "test",
		Model:      "test-model",
		BaseURL:    ts.URL + "/v1",
		MaxRetries: 2,
		Backoff:    time.Millisecond,
	})

	resp, err := a.Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "pong" {
		t.Errorf("content = %q", resp.Content)
	}
	if hits != 2 {
		t.Errorf("hits = %d, want one retry", hits)
	}
}

func TestChatExhaustsRetries(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	a := NewAdapter(Config{
		APIKey:     "test",
		Model:      "test-model",
		BaseURL:    ts.URL + "/v1",
		MaxRetries: 1,
		Backoff:    time.Millisecond,
	})

	_, err := a.Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "ping"}},
	})
	if err == nil {
		t.Fatal("want error after retries are spent")
	}
	if hits != 2 {
		t.Errorf("hits = %d, want initial try plus one retry", hits)
	}
}

func TestChatEmptyChoicesIsRetryable(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		if hits == 1 {
			w.Write([]byte(`{"choices": []}`))
			return
		}
		w.Write([]byte(completionBody))
	}))
	defer ts.Close()

	a := NewAdapter(Config{
		APIKey:     "test",
		Model:      "test-model",
		BaseURL:    ts.URL + "/v1",
		MaxRetries: 1,
		Backoff:    time.Millisecond,
	})

	resp, err := a.Chat(context.Background(), output.ChatRequest{
		Messages: []entity.Message{{Role: entity.RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "pong" {
		t.Errorf("content = %q", resp.Content)
	}
}
