package config

import (
	"context"
	"os"
)

// resolverKey is the context key for Resolver
type resolverKey struct{}

// Resolver provides per-project settings resolution with caching.
// It merges a project's .loom layers onto the global settings on demand.
type Resolver struct {
	global *Settings
	cache  map[string]*Settings // project root -> merged settings

	// LookupEnv reads the process environment. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// NewResolver creates a Resolver backed by the given global settings.
func NewResolver(global *Settings) *Resolver {
	return &Resolver{
		global:    global,
		cache:     make(map[string]*Settings),
		LookupEnv: os.LookupEnv,
	}
}

// ForProject returns the effective settings for the project at root,
// with credentials filled from .env and the environment. Results are
// cached per root.
func (r *Resolver) ForProject(root string) (*Settings, error) {
	if cached, ok := r.cache[root]; ok {
		return cached, nil
	}

	merged, err := LoadProject(*r.global, root)
	if err != nil {
		return nil, err
	}
	env, err := LoadEnv(root, r.LookupEnv)
	if err != nil {
		return nil, err
	}
	merged = ApplyEnv(merged, env)

	project, _ := ProjectPaths(root)
	if err := Validate(merged, project); err != nil {
		return nil, err
	}

	r.cache[root] = &merged
	return &merged, nil
}

// Global returns the global settings (without any project overrides).
func (r *Resolver) Global() *Settings {
	return r.global
}

// WithResolver returns a new context with the Resolver stored in it.
func WithResolver(ctx context.Context, r *Resolver) context.Context {
	return context.WithValue(ctx, resolverKey{}, r)
}

// ResolverFromContext returns the Resolver from context.
// Returns nil if no resolver is stored.
func ResolverFromContext(ctx context.Context) *Resolver {
	if r, ok := ctx.Value(resolverKey{}).(*Resolver); ok {
		return r
	}
	return nil
}
