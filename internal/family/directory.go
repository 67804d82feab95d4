package family

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/heirloom-app/heirloom/internal/wizard"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned for an unknown recipient id.
var ErrNotFound = errors.New("family member not found")

// Store is a directory of family members. Directory keeps them in memory,
// SQLiteStore persists them.
type Store interface {
	List() ([]wizard.Recipient, error)
	Get(id string) (wizard.Recipient, error)
	SetAvatar(id, avatarURL string) error
}

type file struct {
	Members []wizard.Recipient `yaml:"members"`
}

// Directory holds the family members a user can create content for.
type Directory struct {
	mu      sync.RWMutex
	members []wizard.Recipient
}

func New(members ...wizard.Recipient) *Directory {
	return &Directory{members: members}
}

// Load reads a YAML directory file. A missing file yields an empty directory.
func Load(path string) (*Directory, error) {
	members, err := ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Warn("Family file not found, starting empty", "path", path)
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	return New(members...), nil
}

// ReadFile parses and validates the members of a YAML directory file.
func ReadFile(path string) ([]wizard.Recipient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read family file: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse family file: %w", err)
	}
	if err := validate(f.Members); err != nil {
		return nil, err
	}
	return f.Members, nil
}

func validate(members []wizard.Recipient) error {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.ID == "" {
			return fmt.Errorf("family member %q has no id", m.Name)
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate family member id %s", m.ID)
		}
		seen[m.ID] = true
	}
	return nil
}

// List returns a copy of all members.
func (d *Directory) List() ([]wizard.Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]wizard.Recipient(nil), d.members...), nil
}

func (d *Directory) Get(id string) (wizard.Recipient, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range d.members {
		if m.ID == id {
			return m, nil
		}
	}
	return wizard.Recipient{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SetAvatar points a member's avatar at a stored image URL.
func (d *Directory) SetAvatar(id, avatarURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i := range d.members {
		if d.members[i].ID == id {
			d.members[i].AvatarURL = avatarURL
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Replace swaps in a new member list. Avatars set at runtime are kept for
// members whose new entry has none.
func (d *Directory) Replace(members []wizard.Recipient) {
	d.mu.Lock()
	defer d.mu.Unlock()

	avatars := make(map[string]string, len(d.members))
	for _, m := range d.members {
		if m.AvatarURL != "" {
			avatars[m.ID] = m.AvatarURL
		}
	}
	next := append([]wizard.Recipient(nil), members...)
	for i := range next {
		if next[i].AvatarURL == "" {
			next[i].AvatarURL = avatars[next[i].ID]
		}
	}
	d.members = next
}
