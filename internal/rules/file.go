package rules

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists rules as a JSON array in a single file.
// Writes go through a temp file and rename; concurrent writers are last-writer-wins.
type FileStore struct {
	path string
}

func NewFileStore(path string) (*FileStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("rule file path is empty")
	}
	return &FileStore{path: cleanPath}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns an empty list when the file does not exist. A file that exists
// but does not decode returns an empty list and an error wrapping ErrUnreadable.
func (s *FileStore) Load(_ context.Context) ([]LearnedRule, error) {
	list, err := s.read()
	if err != nil {
		return []LearnedRule{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	return list, nil
}

// Append re-reads the file, appends rule and rewrites the capped list.
// A file that cannot be read aborts the append. A file that reads but does not
// decode is moved to CorruptPath before being replaced.
func (s *FileStore) Append(_ context.Context, rule LearnedRule) (int, error) {
	list, err := s.read()
	if err != nil {
		var decodeErr *fileDecodeError
		if !errors.As(err, &decodeErr) {
			return 0, fmt.Errorf("read existing rules: %w", err)
		}
		if err := os.Rename(s.path, s.CorruptPath()); err != nil {
			return 0, fmt.Errorf("set aside unreadable rule file: %w", err)
		}
		list = nil
	}

	list = Cap(append(list, rule))
	if err := s.write(list); err != nil {
		return 0, err
	}
	return len(list), nil
}

// CorruptPath is where an undecodable rule file is kept when Append replaces it.
func (s *FileStore) CorruptPath() string {
	return s.path + ".corrupt"
}

type fileDecodeError struct {
	path string
	err  error
}

func (e *fileDecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.path, e.err)
}

func (e *fileDecodeError) Unwrap() error {
	return e.err
}

func (s *FileStore) read() ([]LearnedRule, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []LearnedRule{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return []LearnedRule{}, nil
	}

	var list []LearnedRule
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &fileDecodeError{path: s.path, err: err}
	}
	return list, nil
}

func (s *FileStore) write(list []LearnedRule) error {
	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create rule directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".learned_rules-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp rule file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp rule file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp rule file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace rule file %s: %w", s.path, err)
	}
	return nil
}
