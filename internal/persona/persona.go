// Package persona manages the named persona profiles that shape GENESIS
// replies. Profiles are immutable after load and keyed by lower-cased name;
// registration is explicit (no runtime discovery).
package persona

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Persona is one named profile: tone plus a system-instruction template for
// the reasoning gateway. Immutable after load.
type Persona struct {
	Name     string `yaml:"name"`
	Tone     string `yaml:"tone"`
	Language string `yaml:"language"`

	// SystemPromptTemplate may reference {{name}}, {{tone}} and
	// {{language}}; SystemPrompt resolves them at read time.
	SystemPromptTemplate string `yaml:"system_prompt"`
}

// SystemPrompt resolves the template against the profile's own fields.
func (p Persona) SystemPrompt() string {
	r := strings.NewReplacer(
		"{{name}}", p.Name,
		"{{tone}}", p.Tone,
		"{{language}}", p.Language,
	)
	return strings.TrimSpace(r.Replace(p.SystemPromptTemplate))
}

// Default is the built-in fallback profile used when no persona files load.
func Default() Persona {
	return Persona{
		Name:                 "Genesis",
		Tone:                 "neutral",
		Language:             "en-US",
		SystemPromptTemplate: "You are {{name}}, a helpful robot assistant. Keep answers short enough to speak aloud.",
	}
}

// Registry holds the process-wide persona set. Reads vastly outnumber
// writes; writes only happen at startup and on hot reload.
type Registry struct {
	log *zap.Logger

	mu       sync.RWMutex
	personas map[string]Persona
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		log:      log.Named("persona"),
		personas: make(map[string]Persona),
	}
}

// Register adds or replaces a profile under its lower-cased name.
func (r *Registry) Register(p Persona) {
	if strings.TrimSpace(p.Name) == "" {
		r.log.Warn("ignoring persona with empty name")
		return
	}
	key := strings.ToLower(p.Name)

	r.mu.Lock()
	if _, exists := r.personas[key]; exists {
		r.log.Warn("duplicate persona name, overwriting", zap.String("key", key))
	}
	r.personas[key] = p
	r.mu.Unlock()

	r.log.Info("persona registered", zap.String("name", p.Name), zap.String("tone", p.Tone))
}

// Get looks up a profile by name, case-insensitive.
func (r *Registry) Get(name string) (Persona, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.personas[strings.ToLower(name)]
	return p, ok
}

// Names returns all registered persona names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.personas))
	for _, p := range r.personas {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// First returns an arbitrary-but-stable profile (first name in sorted
// order), used as fallback when the configured persona is missing. The
// second return is false on an empty registry.
func (r *Registry) First() (Persona, bool) {
	names := r.Names()
	if len(names) == 0 {
		return Persona{}, false
	}
	return r.Get(names[0])
}

// Len returns the number of registered profiles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.personas)
}

// LoadDir reads every *.yaml / *.yml profile in dir into the registry. A
// missing directory loads nothing; a broken file is logged and skipped. When
// nothing loads and the registry is empty, the built-in default is
// registered so the orchestrator always has a persona.
func (r *Registry) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			r.log.Warn("persona directory not found", zap.String("dir", dir))
			r.ensureDefault()
			return nil
		}
		return fmt.Errorf("failed to read persona dir %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, err := loadFile(path)
		if err != nil {
			r.log.Error("failed to load persona file", zap.String("path", path), zap.Error(err))
			continue
		}
		r.Register(p)
		loaded++
	}

	if loaded == 0 {
		r.log.Warn("no persona profiles loaded from directory", zap.String("dir", dir))
	}
	r.ensureDefault()
	return nil
}

// Reload replaces the registry contents from dir atomically: the old set
// stays visible until the new one is ready.
func (r *Registry) Reload(dir string) error {
	fresh := NewRegistry(r.log)
	if err := fresh.LoadDir(dir); err != nil {
		return err
	}

	fresh.mu.RLock()
	replacement := make(map[string]Persona, len(fresh.personas))
	for k, v := range fresh.personas {
		replacement[k] = v
	}
	fresh.mu.RUnlock()

	r.mu.Lock()
	r.personas = replacement
	r.mu.Unlock()

	r.log.Info("persona registry reloaded", zap.Int("count", len(replacement)))
	return nil
}

func (r *Registry) ensureDefault() {
	if r.Len() == 0 {
		r.log.Warn("registering built-in default persona as fallback")
		r.Register(Default())
	}
}

func loadFile(path string) (Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Persona{}, err
	}
	var p Persona
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Persona{}, fmt.Errorf("failed to parse persona yaml: %w", err)
	}
	if strings.TrimSpace(p.Name) == "" {
		return Persona{}, fmt.Errorf("persona file %s has no name", path)
	}
	if p.Tone == "" {
		p.Tone = "neutral"
	}
	return p, nil
}
