package family

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/heirloom-app/heirloom/internal/wizard"
	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the family directory in a SQLite database so stored
// avatars survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS family_members (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		relationship TEXT NOT NULL DEFAULT '',
		avatar_url TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create family_members table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Seed inserts members when the table is empty and reports how many were added.
func (s *SQLiteStore) Seed(members []wizard.Recipient) (int, error) {
	if err := validate(members); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM family_members`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count family members: %w", err)
	}
	if count > 0 {
		return 0, nil
	}
	for i, m := range members {
		_, err := tx.Exec(`INSERT INTO family_members (id, name, relationship, avatar_url, position) VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.Name, m.Relationship, m.AvatarURL, i)
		if err != nil {
			return 0, fmt.Errorf("failed to insert family member %s: %w", m.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(members), nil
}

func (s *SQLiteStore) List() ([]wizard.Recipient, error) {
	rows, err := s.db.Query(`SELECT id, name, relationship, avatar_url FROM family_members ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list family members: %w", err)
	}
	defer rows.Close()

	var out []wizard.Recipient
	for rows.Next() {
		var m wizard.Recipient
		if err := rows.Scan(&m.ID, &m.Name, &m.Relationship, &m.AvatarURL); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(id string) (wizard.Recipient, error) {
	var m wizard.Recipient
	err := s.db.QueryRow(`SELECT id, name, relationship, avatar_url FROM family_members WHERE id = ?`, id).
		Scan(&m.ID, &m.Name, &m.Relationship, &m.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return wizard.Recipient{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return wizard.Recipient{}, fmt.Errorf("failed to get family member: %w", err)
	}
	return m, nil
}

func (s *SQLiteStore) SetAvatar(id, avatarURL string) error {
	res, err := s.db.Exec(`UPDATE family_members SET avatar_url = ? WHERE id = ?`, avatarURL, id)
	if err != nil {
		return fmt.Errorf("failed to update avatar: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
