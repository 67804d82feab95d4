package prompts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/heirloom-app/heirloom/internal/providers"
	"github.com/heirloom-app/heirloom/internal/wizard"
)

type fakeProvider struct {
	reply string
	err   error
	got   providers.Config
}

func (f *fakeProvider) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	f.got = config
	return f.reply, f.err
}

func testCatalog() *Catalog {
	return &Catalog{Prompts: []wizard.Prompt{
		{ID: "g1", Text: "General one", Category: "general"},
		{ID: "gp1", Text: "For grandparents", Category: "Grandparent"},
		{ID: "c1", Text: "For children", Category: "child"},
	}}
}

func TestCatalogFor(t *testing.T) {
	cat := testCatalog()

	tests := []struct {
		relationship string
		expected     []string
	}{
		{"grandparent", []string{"g1", "gp1"}},
		{" CHILD ", []string{"g1", "c1"}},
		{"", []string{"g1"}},
		{"cousin", []string{"g1"}},
	}
	for _, tt := range tests {
		t.Run(tt.relationship, func(t *testing.T) {
			var ids []string
			for _, p := range cat.For(tt.relationship) {
				ids = append(ids, p.ID)
			}
			if diff := cmp.Diff(tt.expected, ids); diff != "" {
				t.Errorf("For(%q) mismatch (-want +got):\n%s", tt.relationship, diff)
			}
		})
	}
}

func TestPromptsForCatalogOnly(t *testing.T) {
	svc := NewService(testCatalog(), nil, "")
	got, err := svc.PromptsFor(context.Background(), wizard.Recipient{ID: "p1", Relationship: "child"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("got %d prompts, want 2", len(got))
	}
}

func TestPromptsForWithProvider(t *testing.T) {
	fp := &fakeProvider{reply: "1. What made you laugh as a kid?\n\n2) Who was your hero?\n- \"What did Sunday dinner look like?\""}
	svc := NewService(testCatalog(), fp, "mistral")

	got, err := svc.PromptsFor(context.Background(), wizard.Recipient{ID: "p9", Name: "Rose", Relationship: "grandparent"})
	if err != nil {
		t.Fatal(err)
	}
	want := []wizard.Prompt{
		{ID: "generated-p9-1", Text: "What made you laugh as a kid?", Category: "suggested"},
		{ID: "generated-p9-2", Text: "Who was your hero?", Category: "suggested"},
		{ID: "generated-p9-3", Text: "What did Sunday dinner look like?", Category: "suggested"},
		{ID: "g1", Text: "General one", Category: "general"},
		{ID: "gp1", Text: "For grandparents", Category: "Grandparent"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("prompts mismatch (-want +got):\n%s", diff)
	}
	if fp.got.Model != "mistral" || fp.got.System == "" {
		t.Errorf("provider config = %+v", fp.got)
	}
}

func TestPromptsForProviderFailureFallsBack(t *testing.T) {
	svc := NewService(testCatalog(), &fakeProvider{err: errors.New("offline")}, "m")
	got, err := svc.PromptsFor(context.Background(), wizard.Recipient{ID: "p1", Relationship: "friend"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "g1" {
		t.Errorf("got %+v, want the general prompt", got)
	}
}

type gatedProvider struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedProvider) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
	}
	<-g.release
	return "Where did you meet?", nil
}

func TestPromptsForSharesInflightGeneration(t *testing.T) {
	gp := &gatedProvider{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(testCatalog(), gp, "m")
	r := wizard.Recipient{ID: "p1", Name: "Rose", Relationship: "grandparent"}

	var wg sync.WaitGroup
	results := make([][]wizard.Prompt, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := svc.PromptsFor(context.Background(), r)
			if err != nil {
				t.Error(err)
			}
			results[i] = got
		}()
		if i == 0 {
			<-gp.entered
		}
	}
	time.Sleep(100 * time.Millisecond)
	close(gp.release)
	wg.Wait()

	if n := gp.calls.Load(); n != 1 {
		t.Errorf("provider called %d times, want 1", n)
	}
	if diff := cmp.Diff(results[0], results[1]); diff != "" {
		t.Errorf("callers saw different prompts (-first +second):\n%s", diff)
	}
}

// ctxProvider fails as soon as its context is done.
type ctxProvider struct {
	entered     chan struct{}
	release     chan struct{}
	hasDeadline atomic.Bool
}

func (c *ctxProvider) GenerateText(ctx context.Context, config providers.Config) (string, error) {
	_, ok := ctx.Deadline()
	c.hasDeadline.Store(ok)
	close(c.entered)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.release:
		return "Where did you meet?", nil
	}
}

func TestSharedGenerationSurvivesFirstCallerCancel(t *testing.T) {
	cp := &ctxProvider{entered: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(testCatalog(), cp, "m")
	r := wizard.Recipient{ID: "p1", Name: "Rose", Relationship: "grandparent"}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan struct{})
	go func() {
		defer close(firstDone)
		_, _ = svc.PromptsFor(firstCtx, r)
	}()
	<-cp.entered

	var second []wizard.Prompt
	secondDone := make(chan error, 1)
	go func() {
		var err error
		second, err = svc.PromptsFor(context.Background(), r)
		secondDone <- err
	}()
	time.Sleep(100 * time.Millisecond)

	// The caller that started the generation goes away.
	cancelFirst()
	time.Sleep(50 * time.Millisecond)
	close(cp.release)

	if err := <-secondDone; err != nil {
		t.Fatal(err)
	}
	<-firstDone
	if len(second) == 0 || second[0].ID != "generated-p1-1" {
		t.Errorf("second caller got %+v, want the generated prompt first", second)
	}
	if !cp.hasDeadline.Load() {
		t.Error("generation ran without a deadline")
	}
}

func TestPromptsForEmpty(t *testing.T) {
	svc := NewService(&Catalog{}, nil, "")
	if _, err := svc.PromptsFor(context.Background(), wizard.Recipient{ID: "p1"}); !errors.Is(err, ErrNoPrompts) {
		t.Errorf("err = %v, want ErrNoPrompts", err)
	}
}

func TestParseLines(t *testing.T) {
	got := ParseLines("* a\n10. b\n3 c\n\n• d", 3)
	want := []string{"a", "b", "3 c"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseLines mismatch (-want +got):\n%s", diff)
	}
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{"", "catalog", "none"} {
		p, err := NewProvider(name)
		if err != nil || p != nil {
			t.Errorf("NewProvider(%q) = %v, %v; want nil, nil", name, p, err)
		}
	}
	for _, name := range []string{"ollama", "OpenAI", "gemini"} {
		if p, err := NewProvider(name); err != nil || p == nil {
			t.Errorf("NewProvider(%q) = %v, %v", name, p, err)
		}
	}
	if _, err := NewProvider("claude"); !errors.Is(err, providers.ErrUnknownProvider) {
		t.Errorf("err = %v, want ErrUnknownProvider", err)
	}
}

func TestDefaultCatalog(t *testing.T) {
	cat, err := DefaultCatalog()
	if err != nil {
		t.Fatal(err)
	}
	if err := cat.validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
	if len(cat.For("grandparent")) == 0 {
		t.Error("default catalog has no grandparent prompts")
	}
}

func TestLoaderFormats(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(yamlPath, []byte("prompts:\n  - id: a\n    prompt_text: Alpha\n    category: general\n"), 0644); err != nil {
		t.Fatal(err)
	}
	jsonlPath := filepath.Join(dir, "prompts.jsonl")
	if err := os.WriteFile(jsonlPath, []byte(`{"id":"a","prompt_text":"Alpha","category":"general"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	parquetPath := filepath.Join(dir, "prompts.parquet")
	if err := (&Catalog{Prompts: []wizard.Prompt{{ID: "a", Text: "Alpha", Category: "general"}}}).Export(parquetPath); err != nil {
		t.Fatal(err)
	}

	want := []wizard.Prompt{{ID: "a", Text: "Alpha", Category: "general"}}
	for _, path := range []string{yamlPath, jsonlPath, parquetPath} {
		t.Run(filepath.Ext(path), func(t *testing.T) {
			cat, err := NewLoader(path).Load()
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if diff := cmp.Diff(want, cat.Prompts); diff != "" {
				t.Errorf("prompts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoaderRejects(t *testing.T) {
	dir := t.TempDir()
	dup := filepath.Join(dir, "dup.yaml")
	if err := os.WriteFile(dup, []byte("prompts:\n  - {id: a, prompt_text: x}\n  - {id: a, prompt_text: y}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLoader(dup).Load(); err == nil {
		t.Error("expected duplicate id error")
	}
	if _, err := NewLoader(filepath.Join(dir, "prompts.csv")).Load(); err == nil {
		t.Error("expected unsupported format error")
	}
}
