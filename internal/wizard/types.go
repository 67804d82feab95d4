package wizard

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidTransition is returned when an action is not valid for the
	// current step. Correctly wired callers never trigger it.
	ErrInvalidTransition = errors.New("invalid wizard transition")
	// ErrPromptFetchFailed marks a prompt fetch that failed or came back empty.
	ErrPromptFetchFailed = errors.New("prompt fetch failed")
)

// Step is a screen of the guided creation flow.
type Step int

const (
	StepPerson Step = iota + 1
	StepType
	StepPrompt
	StepPreview
)

// Ordinal is the position shown in the progress indicator.
func (s Step) Ordinal() int {
	return int(s)
}

func (s Step) String() string {
	switch s {
	case StepPerson:
		return "person"
	case StepType:
		return "type"
	case StepPrompt:
		return "prompt"
	case StepPreview:
		return "preview"
	default:
		return "unknown"
	}
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(text []byte) error {
	for _, step := range []Step{StepPerson, StepType, StepPrompt, StepPreview} {
		if step.String() == string(text) {
			*s = step
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", text)
}

// ContentType is what the user is about to create.
type ContentType string

const (
	ContentVoice  ContentType = "voice"
	ContentLetter ContentType = "letter"
)

// ParseContentType accepts "voice" or "letter", case-insensitively.
func ParseContentType(s string) (ContentType, error) {
	switch ContentType(strings.ToLower(strings.TrimSpace(s))) {
	case ContentVoice:
		return ContentVoice, nil
	case ContentLetter:
		return ContentLetter, nil
	default:
		return "", fmt.Errorf("unknown content type %q (want voice or letter)", s)
	}
}

// Target is the route a finished wizard hands off to.
func (c ContentType) Target() string {
	if c == ContentVoice {
		return TargetRecord
	}
	return TargetCompose
}

// Recipient is a family member content can be created for.
type Recipient struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Relationship string `json:"relationship" yaml:"relationship"`
	AvatarURL    string `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
}

// Prompt is a suggested question or theme to write or talk about.
type Prompt struct {
	ID       string `json:"id" yaml:"id" parquet:"id"`
	Text     string `json:"prompt_text" yaml:"prompt_text" parquet:"prompt_text"`
	Category string `json:"category" yaml:"category" parquet:"category"`
}
