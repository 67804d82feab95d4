package prompts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/heirloom-app/heirloom/internal/gemini"
	"github.com/heirloom-app/heirloom/internal/ollama"
	"github.com/heirloom-app/heirloom/internal/openai"
	"github.com/heirloom-app/heirloom/internal/providers"
	"github.com/heirloom-app/heirloom/internal/wizard"
	"golang.org/x/sync/singleflight"
)

// ErrNoPrompts is returned when neither the catalog nor a provider produced
// any prompt for a recipient.
var ErrNoPrompts = errors.New("no prompts available")

const (
	maxGenerated      = 5
	generateTimeout   = 30 * time.Second
	systemInstruction = "You help people record memories for their family. Reply with short, warm, open-ended questions, one per line, without numbering."
)

// NewProvider returns the LLM provider for name. The catalog-only names
// "", "none" and "catalog" return a nil provider.
func NewProvider(name string) (providers.Provider, error) {
	switch strings.ToLower(name) {
	case "", "none", "catalog":
		return nil, nil
	case "ollama":
		return ollama.New(), nil
	case "openai":
		return openai.New(), nil
	case "gemini":
		return gemini.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", providers.ErrUnknownProvider, name)
	}
}

// Service suggests prompts for a recipient from the catalog and, when a
// provider is configured, from an LLM.
type Service struct {
	catalog     *Catalog
	provider    providers.Provider
	model       string
	temperature float64

	// concurrent requests for the same recipient share one provider call
	inflight singleflight.Group
}

// NewService creates a prompt service. provider may be nil.
func NewService(catalog *Catalog, provider providers.Provider, model string) *Service {
	if catalog == nil {
		catalog = &Catalog{}
	}
	return &Service{
		catalog:     catalog,
		provider:    provider,
		model:       model,
		temperature: 0.7,
	}
}

// PromptsFor implements wizard.PromptSource. Generated prompts come first; a
// provider failure falls back to the catalog.
func (s *Service) PromptsFor(ctx context.Context, r wizard.Recipient) ([]wizard.Prompt, error) {
	var out []wizard.Prompt

	if s.provider != nil {
		generated, err := s.generateShared(ctx, r)
		if err != nil {
			slog.Warn("Prompt generation failed, using catalog", "person_id", r.ID, "model", s.model, "err", err)
		} else {
			out = append(out, generated...)
		}
	}
	out = append(out, s.catalog.For(r.Relationship)...)

	if len(out) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoPrompts, r.ID)
	}
	return out, nil
}

func (s *Service) generateShared(ctx context.Context, r wizard.Recipient) ([]wizard.Prompt, error) {
	key := r.ID + "\x00" + r.Name + "\x00" + r.Relationship
	v, err, shared := s.inflight.Do(key, func() (any, error) {
		// The call is shared, so it must outlive the caller that started it.
		gctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), generateTimeout)
		defer cancel()
		return s.generate(gctx, r)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.Debug("Shared in-flight prompt generation", "person_id", r.ID)
	}
	return v.([]wizard.Prompt), nil
}

func (s *Service) generate(ctx context.Context, r wizard.Recipient) ([]wizard.Prompt, error) {
	request := fmt.Sprintf("Suggest %d questions I could answer in a letter or voice recording for %s", maxGenerated, r.Name)
	if r.Relationship != "" {
		request += fmt.Sprintf(", my %s", r.Relationship)
	}
	request += "."

	text, err := s.provider.GenerateText(ctx, providers.Config{
		Model:       s.model,
		Temperature: s.temperature,
		System:      systemInstruction,
		Prompt:      request,
	})
	if err != nil {
		return nil, err
	}

	lines := ParseLines(text, maxGenerated)
	generated := make([]wizard.Prompt, 0, len(lines))
	for i, line := range lines {
		generated = append(generated, wizard.Prompt{
			ID:       fmt.Sprintf("generated-%s-%d", r.ID, i+1),
			Text:     line,
			Category: "suggested",
		})
	}
	return generated, nil
}

// ParseLines splits an LLM reply into at most limit prompts, dropping list
// markers and blank lines.
func ParseLines(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = trimNumbering(line)
		line = strings.Trim(line, "\" ")
		if line == "" {
			continue
		}
		out = append(out, line)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// trimNumbering strips "1." or "2)" prefixes.
func trimNumbering(line string) string {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
