package family

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/heirloom-app/heirloom/internal/wizard"
)

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "family.yaml")
	content := `members:
  - id: p1
    name: Grandma Rose
    relationship: grandparent
  - id: p2
    name: Sam
    relationship: child
    avatar_url: /static/uploads/avatar-1.jpg
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	members, err := d.List()
	if err != nil {
		t.Fatal(err)
	}
	if got := len(members); got != 2 {
		t.Fatalf("members = %d, want 2", got)
	}
	sam, err := d.Get("p2")
	if err != nil {
		t.Fatal(err)
	}
	if sam.AvatarURL != "/static/uploads/avatar-1.jpg" {
		t.Errorf("avatar = %q", sam.AvatarURL)
	}
}

func TestLoadMissingFile(t *testing.T) {
	d, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if members, _ := d.List(); len(members) != 0 {
		t.Error("expected empty directory")
	}
}

func TestLoadDuplicateID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "family.yaml")
	if err := os.WriteFile(path, []byte("members:\n  - {id: a, name: A}\n  - {id: a, name: B}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected duplicate id error")
	}
}

func TestSetAvatar(t *testing.T) {
	d := New()
	if err := d.SetAvatar("x", "/a.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}

	path := filepath.Join(t.TempDir(), "family.yaml")
	if err := os.WriteFile(path, []byte("members:\n  - {id: a, name: A}\n"), 0644); err != nil {
		t.Fatal(err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.SetAvatar("a", "/static/uploads/avatar-9.jpg"); err != nil {
		t.Fatal(err)
	}
	if m, _ := d.Get("a"); m.AvatarURL != "/static/uploads/avatar-9.jpg" {
		t.Errorf("avatar = %q", m.AvatarURL)
	}
}

func TestReplaceKeepsRuntimeAvatars(t *testing.T) {
	d := New(
		wizard.Recipient{ID: "a", Name: "A"},
		wizard.Recipient{ID: "b", Name: "B"},
	)
	if err := d.SetAvatar("a", "/static/uploads/avatar-1.jpg"); err != nil {
		t.Fatal(err)
	}

	d.Replace([]wizard.Recipient{
		{ID: "a", Name: "Alice"},
		{ID: "c", Name: "C", AvatarURL: "/c.jpg"},
	})

	got, _ := d.List()
	want := []wizard.Recipient{
		{ID: "a", Name: "Alice", AvatarURL: "/static/uploads/avatar-1.jpg"},
		{ID: "c", Name: "C", AvatarURL: "/c.jpg"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("members mismatch (-want +got):\n%s", diff)
	}
	if _, err := d.Get("b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("removed member: err = %v, want ErrNotFound", err)
	}
}
