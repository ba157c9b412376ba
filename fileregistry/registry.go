package fileregistry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/manifest"
)

var _ chatprompt.Registry = (*Registry)(nil)

// Registry loads chat templates from the filesystem (lazy, cached).
// Resolves name+env to {dir}/{name}.{env}.yaml with fallback to {dir}/{name}.yaml.
type Registry struct {
	dir       string
	parseOpts []manifest.Option
	mu        sync.RWMutex
	cache     map[string]*chatprompt.ChatTemplate
}

// New creates a Registry that reads YAML manifests from dir.
func New(dir string, opts ...Option) *Registry {
	r := &Registry{
		dir:   dir,
		cache: make(map[string]*chatprompt.ChatTemplate),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Option configures a Registry.
type Option func(*Registry)

// WithSyntax sets the syntax for manifests that do not declare one.
func WithSyntax(s chatprompt.Syntax) Option {
	return func(r *Registry) { r.parseOpts = append(r.parseOpts, manifest.WithDefaultSyntax(s)) }
}

// WithTemplateOptions passes options (logger, token counter) to every loaded template.
func WithTemplateOptions(opts ...chatprompt.Option) Option {
	return func(r *Registry) { r.parseOpts = append(r.parseOpts, manifest.WithTemplateOptions(opts...)) }
}

// GetTemplate returns a template by name and env. Lazy-loads and caches.
// File resolution: {dir}/{name}.{env}.yaml or .yml, fallback {dir}/{name}.yaml or .yml.
func (r *Registry) GetTemplate(ctx context.Context, name, env string) (*chatprompt.ChatTemplate, error) {
	if err := chatprompt.ValidateName(name, env); err != nil {
		return nil, err
	}
	key := name + ":" + env
	r.mu.RLock()
	tpl, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return tpl.Clone(), nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok = r.cache[key]; ok {
		return tpl.Clone(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var candidates []string
	for _, ext := range []string{".yaml", ".yml"} {
		if env != "" {
			candidates = append(candidates, name+"."+env+ext)
		}
	}
	candidates = append(candidates, name+".yaml", name+".yml")
	for _, file := range candidates {
		tpl, err := manifest.ParseFile(filepath.Join(r.dir, file), r.parseOpts...)
		if err == nil {
			tpl = tpl.ForEnvironment(env)
			r.cache[key] = tpl
			return tpl.Clone(), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
	}
	return nil, fmt.Errorf("%w: %q", chatprompt.ErrTemplateNotFound, name)
}

// List returns the base names of all manifests in dir, sorted.
// Env-specific files ({name}.{env}.yaml) contribute their base name.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("fileregistry: read dir: %w", err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		ext := filepath.Ext(base)
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimSuffix(base, ext), ".")
		if name != "" {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}

// Reload clears the cache (for hot-reload in development).
func (r *Registry) Reload() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = make(map[string]*chatprompt.ChatTemplate)
}
