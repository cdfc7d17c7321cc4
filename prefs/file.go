// Package prefs provides catalogx.StateStore implementations that
// persist browsing state between sessions: a local JSON file store and
// a DynamoDB-backed store for shared environments.
package prefs

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/way7creation/catalogx"
)

// FileStore persists state as a JSON document on local disk.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the given file path. The file
// does not need to exist yet.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted state. A missing or malformed file yields
// defaults rather than an error so callers always start usable.
func (s *FileStore) Load(_ context.Context) (catalogx.PersistedState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return catalogx.DefaultPersistedState(), nil
	}
	var st catalogx.PersistedState
	if err := json.Unmarshal(raw, &st); err != nil {
		return catalogx.DefaultPersistedState(), nil
	}
	return st.Sanitize(), nil
}

// Save writes the state atomically via a temp file rename.
func (s *FileStore) Save(_ context.Context, st catalogx.PersistedState) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding state")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "creating state directory")
	}
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return errors.Wrap(err, "creating temp state file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing state")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "closing state file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replacing state file")
	}
	return nil
}
