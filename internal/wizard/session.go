package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
)

// PromptSource suggests prompts for a recipient.
type PromptSource interface {
	PromptsFor(ctx context.Context, r Recipient) ([]Prompt, error)
}

// FetchStatus tracks the prompt list shown on the prompt step.
type FetchStatus string

const (
	FetchIdle    FetchStatus = "idle"
	FetchLoading FetchStatus = "loading"
	FetchLoaded  FetchStatus = "loaded"
	FetchFailed  FetchStatus = "failed"
)

// DeepLink carries values pre-supplied by the route that opened the wizard.
// Prompt is URL-encoded; nil means no prompt was supplied.
type DeepLink struct {
	PersonID string
	Prompt   *string
}

// Session walks a user from recipient to content type to prompt to preview.
// All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id          string
	step        Step
	person      *Recipient
	contentType ContentType
	prompt      *string
	// promptChosen is set when the prompt was picked on the prompt step
	// rather than parked from a deep link.
	promptChosen bool

	prompts     []Prompt
	fetchStatus FetchStatus
	fetchErr    error
	fetchGen    uint64
}

func NewSession(id string) *Session {
	return &Session{
		id:          id,
		step:        StepPerson,
		fetchStatus: FetchIdle,
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Step() Step {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

// Start resets the session. When link.PersonID names one of recipients the
// wizard opens on the type step with that person selected, and a supplied
// prompt is parked until a content type is chosen.
func (s *Session) Start(recipients []Recipient, link DeepLink) Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.step = StepPerson
	s.person = nil
	s.contentType = ""
	s.prompt = nil
	s.promptChosen = false
	s.resetPrompts()

	if link.PersonID == "" {
		return s.step
	}
	for _, r := range recipients {
		if r.ID != link.PersonID {
			continue
		}
		p := r
		s.person = &p
		s.step = StepType
		if link.Prompt != nil {
			text := decodePrompt(*link.Prompt)
			s.prompt = &text
		}
		return s.step
	}

	slog.Warn("Deep-linked person not found", "wizard_id", s.id, "person_id", link.PersonID)
	return s.step
}

func decodePrompt(encoded string) string {
	text, err := url.QueryUnescape(encoded)
	if err != nil {
		return encoded
	}
	return text
}

// SelectPerson picks the recipient and moves to the type step.
func (s *Session) SelectPerson(r Recipient) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepPerson, "select person"); err != nil {
		return s.step, err
	}
	s.person = &r
	s.resetPrompts()
	s.step = StepType
	return s.step, nil
}

// SelectType picks voice or letter. With a prompt already set (including the
// empty write-your-own prompt) the prompt step is skipped.
func (s *Session) SelectType(c ContentType) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepType, "select type"); err != nil {
		return s.step, err
	}
	if c != ContentVoice && c != ContentLetter {
		return s.step, fmt.Errorf("%w: unknown content type %q", ErrInvalidTransition, c)
	}
	s.contentType = c
	if s.prompt != nil {
		s.step = StepPreview
	} else {
		s.step = StepPrompt
	}
	return s.step, nil
}

// SelectPrompt picks a prompt; "" means the user writes their own.
func (s *Session) SelectPrompt(text string) (Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepPrompt, "select prompt"); err != nil {
		return s.step, err
	}
	s.prompt = &text
	s.promptChosen = true
	s.step = StepPreview
	return s.step, nil
}

// GoBack moves one step back and clears what was collected on the step being
// returned to. It is a no-op on the person step.
func (s *Session) GoBack() Step {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.step {
	case StepType:
		s.person = nil
		s.resetPrompts()
		s.step = StepPerson
	case StepPrompt:
		s.contentType = ""
		s.resetPrompts()
		s.step = StepType
	case StepPreview:
		if s.promptChosen {
			s.prompt = nil
			s.promptChosen = false
			s.step = StepPrompt
		} else {
			s.contentType = ""
			s.step = StepType
		}
	}
	return s.step
}

// Finish produces the navigation intent. It performs no navigation itself.
func (s *Session) Finish() (Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.expect(StepPreview, "finish"); err != nil {
		return Intent{}, err
	}
	if s.person == nil || s.contentType == "" {
		return Intent{}, fmt.Errorf("%w: preview reached without person and type", ErrInvalidTransition)
	}

	intent := Intent{
		Target:            s.contentType.Target(),
		PersonID:          s.person.ID,
		PersonDisplayName: s.person.Name,
	}
	if s.prompt != nil && *s.prompt != "" {
		text := *s.prompt
		intent.PromptText = &text
	}
	return intent, nil
}

// FetchPrompts loads suggestions for the selected person. The session is not
// locked while src runs, so transitions proceed during the fetch; a result
// that arrives after the person or step changed, or a newer fetch started,
// is dropped.
func (s *Session) FetchPrompts(ctx context.Context, src PromptSource) error {
	s.mu.Lock()
	if s.step != StepPrompt || s.person == nil {
		err := fmt.Errorf("%w: fetch prompts at %s", ErrInvalidTransition, s.step)
		s.mu.Unlock()
		return err
	}
	s.fetchGen++
	gen := s.fetchGen
	person := *s.person
	s.fetchStatus = FetchLoading
	s.fetchErr = nil
	s.mu.Unlock()

	prompts, err := src.PromptsFor(ctx, person)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.fetchGen || s.step != StepPrompt || s.person == nil || s.person.ID != person.ID {
		slog.Debug("Discarding stale prompt fetch", "wizard_id", s.id, "person_id", person.ID)
		return nil
	}
	switch {
	case err != nil:
		err = fmt.Errorf("%w: %v", ErrPromptFetchFailed, err)
	case len(prompts) == 0:
		err = fmt.Errorf("%w: no prompts for %s", ErrPromptFetchFailed, person.ID)
	}
	if err != nil {
		s.prompts = nil
		s.fetchStatus = FetchFailed
		s.fetchErr = err
		return err
	}
	s.prompts = prompts
	s.fetchStatus = FetchLoaded
	return nil
}

func (s *Session) resetPrompts() {
	s.fetchGen++
	s.prompts = nil
	s.fetchStatus = FetchIdle
	s.fetchErr = nil
}

func (s *Session) expect(step Step, action string) error {
	if s.step != step {
		return fmt.Errorf("%w: cannot %s at step %s", ErrInvalidTransition, action, s.step)
	}
	return nil
}

// Snapshot is a point-in-time view of the wizard for UI bindings.
type Snapshot struct {
	ID                 string      `json:"id"`
	Step               Step        `json:"step"`
	StepNumber         int         `json:"step_number"`
	SelectedPerson     *Recipient  `json:"selected_person"`
	ContentType        ContentType `json:"content_type,omitempty"`
	SelectedPrompt     *string     `json:"selected_prompt"`
	PromptFromDeepLink bool        `json:"prompt_from_deep_link"`
	AvailablePrompts   []Prompt    `json:"available_prompts"`
	PromptStatus       FetchStatus `json:"prompt_status"`
	PromptError        string      `json:"prompt_error,omitempty"`
	Actions            []string    `json:"actions"`
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:               s.id,
		Step:             s.step,
		StepNumber:       s.step.Ordinal(),
		ContentType:      s.contentType,
		AvailablePrompts: append([]Prompt(nil), s.prompts...),
		PromptStatus:     s.fetchStatus,
		Actions:          actionsFor(s.step),
	}
	if s.person != nil {
		p := *s.person
		snap.SelectedPerson = &p
	}
	if s.prompt != nil {
		text := *s.prompt
		snap.SelectedPrompt = &text
		snap.PromptFromDeepLink = !s.promptChosen
	}
	if s.fetchErr != nil {
		snap.PromptError = s.fetchErr.Error()
	}
	return snap
}

// actionsFor lists what a UI may offer at step.
func actionsFor(step Step) []string {
	switch step {
	case StepPerson:
		return []string{"person"}
	case StepType:
		return []string{"type", "back"}
	case StepPrompt:
		return []string{"prompt", "prompts", "back"}
	case StepPreview:
		return []string{"finish", "back"}
	default:
		return nil
	}
}
