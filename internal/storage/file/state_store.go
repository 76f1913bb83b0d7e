// Package file implements storage.StateStore on a single JSON file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"solana-copy-watch/internal/domain"
	"solana-copy-watch/internal/storage"
)

// StateStore persists the ledger snapshot as pretty-printed JSON,
// matching the schema consumed by earlier versions of the bot.
type StateStore struct {
	path string
}

// NewStateStore creates a file-backed state store at path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

var _ storage.StateStore = (*StateStore)(nil)

// Load reads the persisted state. Returns storage.ErrNotFound when the
// file does not exist.
func (s *StateStore) Load(_ context.Context) (*domain.State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parse state file: %w", err)
	}

	return &state, nil
}

// Save writes the full state atomically: a temp file in the same
// directory is renamed over the target so a crash mid-write never
// leaves a truncated snapshot.
func (s *StateStore) Save(_ context.Context, state *domain.State) error {
	if state == nil {
		return storage.ErrInvalidInput
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
