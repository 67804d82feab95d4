package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/heirloom-app/heirloom/internal/providers"
)

func TestGenerateText(t *testing.T) {
	var body struct {
		Model    string    `json:"model"`
		Messages []message `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Describe your first car."}}]}`))
	}))
	defer srv.Close()

	o := &OpenAI{APIKey: "sk-test", BaseURL: srv.URL, HTTPClient: srv.Client()}
	text, err := o.GenerateText(context.Background(), providers.Config{Model: "gpt-4o", System: "sys", Prompt: "user"})
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "Describe your first car." {
		t.Errorf("text = %q", text)
	}
	if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Content != "user" {
		t.Errorf("messages = %+v", body.Messages)
	}
}

func TestGenerateTextRequiresKey(t *testing.T) {
	o := &OpenAI{BaseURL: "http://127.0.0.1:0"}
	if _, err := o.GenerateText(context.Background(), providers.Config{}); err == nil {
		t.Error("expected error without API key")
	}
}

func TestGenerateTextNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	o := &OpenAI{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()}
	if _, err := o.GenerateText(context.Background(), providers.Config{}); err == nil {
		t.Error("expected error for empty choices")
	}
}
