// Package navstate remembers which screen the user last viewed so the
// application can reopen there after a session resume. This is cosmetic
// convenience: every failure path degrades to the home screen and nothing
// here is ever allowed to block navigation.
package navstate

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultPage is the screen shown when no bookmark is saved or reading it
// fails.
const DefaultPage = "home"

// Store persists a single page tag in a plain device-local file.
type Store struct {
	path string
}

func NewStore(path string) *Store { return &Store{path: path} }

// LastVisited returns the saved page tag, or DefaultPage on any failure.
func (s *Store) LastVisited() string {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return DefaultPage
	}
	tag := strings.TrimSpace(string(b))
	if tag == "" {
		return DefaultPage
	}
	return tag
}

// SaveLastVisited records the page tag. Blank tags are ignored and write
// failures are swallowed.
func (s *Store) SaveLastVisited(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(tag+"\n"), 0o600); err != nil {
		return
	}
	_ = os.Rename(tmp, s.path)
}
