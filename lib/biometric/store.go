// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package biometric

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/anveksha/lib/codec"
	"github.com/bureau-foundation/anveksha/lib/watchdog"
)

// ErrNoTemplates reports that no operator has been enrolled.
var ErrNoTemplates = errors.New("no enrolled templates")

// Store persists the operator's TemplateSet.
type Store interface {
	// LoadTemplates returns the current set, or ErrNoTemplates when
	// nothing has been enrolled.
	LoadTemplates() (TemplateSet, error)

	// SaveTemplates replaces the current set with set.
	SaveTemplates(set TemplateSet) error
}

// templateFileVersion is bumped on incompatible layout changes.
const templateFileVersion = 1

// templateFile is the on-disk form of a TemplateSet.
type templateFile struct {
	Version   int    `cbor:"version"`
	CreatedAt int64  `cbor:"created_at"`
	Count     int    `cbor:"count"`
	Length    int    `cbor:"length"`
	Packing   string `cbor:"packing"`
	Payload   []byte `cbor:"payload"`
}

// FileStore keeps the TemplateSet in a single file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by path. The file need not
// exist yet; its parent directory is created on first save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the template file location.
func (s *FileStore) Path() string { return s.path }

// LoadTemplates reads and decodes the template file.
func (s *FileStore) LoadTemplates() (TemplateSet, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return TemplateSet{}, ErrNoTemplates
		}
		return TemplateSet{}, fmt.Errorf("reading templates: %w", err)
	}

	var file templateFile
	if err := codec.Unmarshal(data, &file); err != nil {
		return TemplateSet{}, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	if file.Version != templateFileVersion {
		return TemplateSet{}, fmt.Errorf("template file version %d not supported", file.Version)
	}
	if file.Count == 0 {
		return TemplateSet{}, ErrNoTemplates
	}
	if file.Length != TemplateLength {
		return TemplateSet{}, fmt.Errorf("template length %d, want %d", file.Length, TemplateLength)
	}

	templates, err := unpackTemplates(file.Payload, file.Packing, file.Count, file.Length)
	if err != nil {
		return TemplateSet{}, fmt.Errorf("unpacking %s: %w", s.path, err)
	}
	return TemplateSet{
		Templates: templates,
		CreatedAt: time.Unix(0, file.CreatedAt),
	}, nil
}

// SaveTemplates replaces the file atomically.
func (s *FileStore) SaveTemplates(set TemplateSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	payload, packing, err := packTemplates(set.Templates)
	if err != nil {
		return err
	}
	data, err := codec.Marshal(templateFile{
		Version:   templateFileVersion,
		CreatedAt: set.CreatedAt.UnixNano(),
		Count:     len(set.Templates),
		Length:    TemplateLength,
		Packing:   packing,
		Payload:   payload,
	})
	if err != nil {
		return fmt.Errorf("encoding templates: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating template directory: %w", err)
	}
	if err := watchdog.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("saving templates: %w", err)
	}
	return nil
}

// MemoryStore keeps the set in memory.
type MemoryStore struct {
	mu  sync.Mutex
	set TemplateSet
	// Saves counts successful SaveTemplates calls.
	saves int
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// LoadTemplates returns a copy of the stored set.
func (s *MemoryStore) LoadTemplates() (TemplateSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.set.Templates) == 0 {
		return TemplateSet{}, ErrNoTemplates
	}
	return copySet(s.set), nil
}

// SaveTemplates replaces the stored set with a copy of set.
func (s *MemoryStore) SaveTemplates(set TemplateSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.set = copySet(set)
	s.saves++
	return nil
}

// Saves returns how many times a set has been saved.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func copySet(set TemplateSet) TemplateSet {
	templates := make([]Template, len(set.Templates))
	for i, template := range set.Templates {
		templates[i] = append(Template(nil), template...)
	}
	return TemplateSet{Templates: templates, CreatedAt: set.CreatedAt}
}
