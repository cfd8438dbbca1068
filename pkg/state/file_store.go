package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileStore keeps state in a YAML file. A missing file loads as empty state.
type FileStore struct {
	Path string
}

func (store FileStore) Load(_ context.Context) (*State, error) {
	raw, err := os.ReadFile(store.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read state %s: %w", store.Path, err)
	}
	s, err := Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse state %s: %w", store.Path, err)
	}
	return s, nil
}

// Save writes through a temporary file and renames it into place.
func (store FileStore) Save(_ context.Context, s *State) error {
	raw, err := s.Marshal()
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	dir := filepath.Dir(store.Path)
	tmp, err := os.CreateTemp(dir, ".state-*")
	if err != nil {
		return fmt.Errorf("write state %s: %w", store.Path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write state %s: %w", store.Path, err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write state %s: %w", store.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write state %s: %w", store.Path, err)
	}
	return os.Rename(tmp.Name(), store.Path)
}
