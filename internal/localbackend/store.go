package localbackend

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore is an in-memory ArtifactStore keyed by step name and relative
// path. It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

// Put stores the contents of a property file produced by a step.
func (s *MemoryStore) Put(step, path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[step+"/"+path] = data
}

// ReadPropertyFile returns the stored contents for step and path.
func (s *MemoryStore) ReadPropertyFile(_ context.Context, step, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.files[step+"/"+path]
	if !ok {
		return nil, fmt.Errorf("no property file %q for step %q", path, step)
	}
	return data, nil
}

// DirStore is an ArtifactStore backed by a directory tree laid out as
// <root>/<step>/<path>.
type DirStore struct {
	Root string
}

// ReadPropertyFile reads the file for step and path from the tree.
func (s DirStore) ReadPropertyFile(_ context.Context, step, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.Root, step, filepath.FromSlash(path)))
	if err != nil {
		return nil, fmt.Errorf("failed to read property file %q for step %q: %w", path, step, err)
	}
	return data, nil
}
