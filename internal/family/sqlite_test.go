package family

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/heirloom-app/heirloom/internal/wizard"
)

func openTestStore(t *testing.T, path string) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "family.db")
	s := openTestStore(t, path)

	members := []wizard.Recipient{
		{ID: "p2", Name: "Sam", Relationship: "child"},
		{ID: "p1", Name: "Grandma Rose", Relationship: "grandparent"},
	}
	n, err := s.Seed(members)
	if err != nil {
		t.Fatalf("Seed: %v", err)
	}
	if n != 2 {
		t.Errorf("seeded %d, want 2", n)
	}

	got, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	// file order is preserved
	if diff := cmp.Diff(members, got); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}

	if err := s.SetAvatar("p1", "/static/uploads/avatar-5.jpg"); err != nil {
		t.Fatal(err)
	}
	if err := s.SetAvatar("ghost", "/x.jpg"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAvatar unknown: err = %v, want ErrNotFound", err)
	}
	if _, err := s.Get("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get unknown: err = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStorePersistsAvatars(t *testing.T) {
	path := filepath.Join(t.TempDir(), "family.db")

	first, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := first.Seed([]wizard.Recipient{{ID: "p1", Name: "Rose"}}); err != nil {
		t.Fatal(err)
	}
	if err := first.SetAvatar("p1", "/static/uploads/avatar-7.jpg"); err != nil {
		t.Fatal(err)
	}
	first.Close()

	second := openTestStore(t, path)
	// a populated table is not reseeded
	if n, err := second.Seed([]wizard.Recipient{{ID: "p1", Name: "Rose"}, {ID: "p9", Name: "New"}}); err != nil || n != 0 {
		t.Errorf("Seed on populated store = %d, %v; want 0, nil", n, err)
	}
	m, err := second.Get("p1")
	if err != nil {
		t.Fatal(err)
	}
	if m.AvatarURL != "/static/uploads/avatar-7.jpg" {
		t.Errorf("avatar = %q after reopen", m.AvatarURL)
	}
}

func TestSQLiteSeedRejectsDuplicates(t *testing.T) {
	s := openTestStore(t, filepath.Join(t.TempDir(), "family.db"))
	if _, err := s.Seed([]wizard.Recipient{{ID: "a", Name: "A"}, {ID: "a", Name: "B"}}); err == nil {
		t.Error("expected duplicate id error")
	}
}
