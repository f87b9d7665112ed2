// Package localstore is the device-local document store: path-addressed UTF-8 JSON documents
// under one root directory, written atomically.
package localstore

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const tempPrefix = ".tmp-"

var (
	// ErrNotFound is returned by Read for a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when the document already exists.
	ErrExists = errors.New("document already exists")
)

// Store reads and writes documents below Root.
type Store struct {
	Root string
}

// New returns a store rooted at root. The directory is created on first write.
func New(root string) *Store {
	return &Store{Root: root}
}

func (s *Store) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid document path %q", path)
	}
	return filepath.Join(s.Root, clean), nil
}

// Write replaces the document at path. Readers see either the old or the new content, never a partial file.
func (s *Store) Write(path string, data []byte) error {
	full, tmpName, err := s.stage(path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)
	return errors.Wrapf(os.Rename(tmpName, full), "commit %s", path)
}

// Create writes a new document at path. It fails with ErrExists when a document is already
// there, also when the other writer is a different process.
func (s *Store) Create(path string, data []byte) error {
	full, tmpName, err := s.stage(path, data)
	if err != nil {
		return err
	}
	defer os.Remove(tmpName)
	if err := os.Link(tmpName, full); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return errors.Wrap(ErrExists, path)
		}
		return errors.Wrapf(err, "commit %s", path)
	}
	return nil
}

// stage writes data to a synced temp file next to the target and returns both names.
func (s *Store) stage(path string, data []byte) (string, string, error) {
	full, err := s.resolve(path)
	if err != nil {
		return "", "", err
	}
	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", "", errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", "", errors.Wrapf(err, "write %s", path)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", "", errors.Wrapf(err, "sync %s", path)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", "", err
	}
	return full, tmpName, nil
}

// Read returns the document at path or ErrNotFound.
func (s *Store) Read(path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrap(ErrNotFound, path)
	}
	return data, err
}

// List returns the document names directly under dir, sorted. A missing dir is empty.
func (s *Store) List(dir string) ([]string, error) {
	full, err := s.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "list %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes the document at path. Deleting a missing document is not an error.
func (s *Store) Delete(path string) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(err, "delete %s", path)
	}
	return nil
}

// WriteJSON marshals v and writes it to path.
func (s *Store) WriteJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return s.Write(path, data)
}

// CreateJSON marshals v and creates a new document at path.
func (s *Store) CreateJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", path)
	}
	return s.Create(path, data)
}

// ReadJSON reads path and unmarshals it into v.
func (s *Store) ReadJSON(path string, v interface{}) error {
	data, err := s.Read(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "decode %s", path)
}
