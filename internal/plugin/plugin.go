// Package plugin defines the extension surface for skills that handle
// intents the built-in dialogue handlers do not. Plugins are compiled in
// and registered explicitly at startup.
package plugin

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"genesis/internal/intent"
	"genesis/internal/store"
	"genesis/internal/tasks"
)

// Plugin handles one or more intents.
type Plugin interface {
	Name() string
	Description() string
	SupportsIntent(name string) bool
	// Execute returns the reply to speak. An error produces a spoken
	// apology; an empty reply with nil error falls through to the
	// generic "no handler" response.
	Execute(ctx context.Context, res intent.Result, userText string) (string, error)
}

// Runner is implemented by plugins with background work of their own.
type Runner interface {
	Start() error
	Stop() error
}

// Resource names a plugin may declare in RequiredResources.
const (
	ResourceStore     = "store"
	ResourceScheduler = "scheduler"
	ResourceSpeaker   = "speaker"
	ResourceSettings  = "settings"
)

// Resources are the shared services a plugin may borrow. Fields are nil
// when the corresponding subsystem is disabled.
type Resources struct {
	Store     *store.Store
	Scheduler *tasks.Scheduler
	Speaker   tasks.Speaker
	Settings  map[string]string
}

// subset keeps only the named resources; everything else stays nil.
func (r Resources) subset(names []string) Resources {
	var out Resources
	for _, n := range names {
		switch n {
		case ResourceStore:
			out.Store = r.Store
		case ResourceScheduler:
			out.Scheduler = r.Scheduler
		case ResourceSpeaker:
			out.Speaker = r.Speaker
		case ResourceSettings:
			out.Settings = r.Settings
		}
	}
	return out
}

// ResourceAware plugins declare which shared resources they need; only
// the declared subset is injected before first use.
type ResourceAware interface {
	RequiredResources() []string
	Init(res Resources) error
}

// Registry holds registered plugins in registration order; the first
// plugin supporting an intent wins.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	log     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{log: log.Named("plugins")}
}

// Register adds p, initializing it with res if it is ResourceAware and
// starting it if it is a Runner. Registering twice under one name fails.
func (r *Registry) Register(p Plugin, res Resources) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin %q already registered", p.Name())
		}
	}

	if ra, ok := p.(ResourceAware); ok {
		if err := ra.Init(res.subset(ra.RequiredResources())); err != nil {
			return fmt.Errorf("plugin %q init failed: %w", p.Name(), err)
		}
	}
	if runner, ok := p.(Runner); ok {
		if err := runner.Start(); err != nil {
			return fmt.Errorf("plugin %q start failed: %w", p.Name(), err)
		}
	}

	r.plugins = append(r.plugins, p)
	r.log.Info("plugin registered", zap.String("name", p.Name()))
	return nil
}

// Resolve returns the first plugin supporting the intent, or nil.
func (r *Registry) Resolve(intentName string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.plugins {
		if p.SupportsIntent(intentName) {
			return p
		}
	}
	return nil
}

// Names lists registered plugin names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.Name())
	}
	return out
}

// Shutdown stops every Runner plugin, logging failures.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.plugins {
		if runner, ok := p.(Runner); ok {
			if err := runner.Stop(); err != nil {
				r.log.Warn("plugin stop failed",
					zap.String("name", p.Name()), zap.Error(err))
			}
		}
	}
}
