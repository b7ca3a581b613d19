// Package memory keeps a small JSON-backed context map for conversation
// state that should persist across restarts but does not warrant a table
// in the database (last user name, last topic, ad-hoc facts).
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ContextStore is a mutex-guarded string map persisted to one JSON file.
// Every mutation is written through immediately; the file is small.
type ContextStore struct {
	mu   sync.Mutex
	path string
	data map[string]string
}

// Load reads the store at path, creating an empty one if the file is
// missing or unreadable.
func Load(path string) *ContextStore {
	cs := &ContextStore{
		path: path,
		data: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cs
	}
	// A corrupt file starts fresh rather than blocking startup.
	_ = json.Unmarshal(raw, &cs.data)
	if cs.data == nil {
		cs.data = make(map[string]string)
	}
	return cs
}

// Get returns the value for key and whether it was present.
func (cs *ContextStore) Get(key string) (string, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	v, ok := cs.data[key]
	return v, ok
}

// Set stores key=value and persists.
func (cs *ContextStore) Set(key, value string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.data[key] = value
	return cs.save()
}

// Clear removes key and persists. Missing keys are ignored.
func (cs *ContextStore) Clear(key string) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if _, ok := cs.data[key]; !ok {
		return nil
	}
	delete(cs.data, key)
	return cs.save()
}

// ClearAll empties the store and persists.
func (cs *ContextStore) ClearAll() error {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.data = make(map[string]string)
	return cs.save()
}

// Snapshot returns a copy of the current map.
func (cs *ContextStore) Snapshot() map[string]string {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	out := make(map[string]string, len(cs.data))
	for k, v := range cs.data {
		out[k] = v
	}
	return out
}

// save writes the map atomically via a temp file rename. Caller holds mu.
func (cs *ContextStore) save() error {
	raw, err := json.MarshalIndent(cs.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode context store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cs.path), 0o755); err != nil {
		return fmt.Errorf("failed to create context store directory: %w", err)
	}
	tmp := cs.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write context store: %w", err)
	}
	if err := os.Rename(tmp, cs.path); err != nil {
		return fmt.Errorf("failed to replace context store: %w", err)
	}
	return nil
}
