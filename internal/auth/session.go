// ABOUTME: File-backed session store for the CLI.
// ABOUTME: Loaded at startup, saved on login, cleared on logout.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// SessionStore persists one session as JSON at Path (mode 0600).
type SessionStore struct {
	Path string
}

// NewSessionStore stores the session in dir/session.json.
func NewSessionStore(dir string) *SessionStore {
	return &SessionStore{Path: filepath.Join(dir, "session.json")}
}

// Load returns the saved session, or nil when none exists.
func (s *SessionStore) Load() (*Session, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Save writes the session.
func (s *SessionStore) Save(sess *Session) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0750); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return os.WriteFile(s.Path, data, 0600)
}

// Clear removes the saved session. A missing file is not an error.
func (s *SessionStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
