package providers

import (
	"context"
	"errors"
	"strings"
)

// Config describes a single text generation request
type Config struct {
	Model       string
	Temperature float64
	// System is an optional instruction sent ahead of Prompt
	System string
	Prompt string
}

// Provider defines the interface for an LLM provider
type Provider interface {
	GenerateText(ctx context.Context, config Config) (string, error)
}

// DefaultModel returns the model used for name when none is configured.
func DefaultModel(name string) string {
	switch strings.ToLower(name) {
	case "ollama":
		return "mistral-small3.2:24b"
	case "openai":
		return "gpt-4o"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return ""
	}
}

// ErrUnknownProvider is wrapped when a provider name is not recognised.
var ErrUnknownProvider = errors.New("unknown provider")
