package embedregistry

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/manifest"
)

var _ chatprompt.Registry = (*Registry)(nil)

// Registry holds every YAML manifest of an fs.FS, parsed at construction (eager). No mutex.
type Registry struct {
	cache map[string]*chatprompt.ChatTemplate
}

// Option configures manifest parsing for New.
type Option = manifest.Option

// New walks fsys, parses every .yaml/.yml file under root, and returns a Registry.
// Key format: "name:" for "name.yaml", "name:env" for "name.env.yaml".
func New(fsys fs.FS, root string, opts ...Option) (*Registry, error) {
	r := &Registry{cache: make(map[string]*chatprompt.ChatTemplate)}
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := path.Ext(p)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}
		tpl, err := manifest.ParseFS(fsys, p, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		env := ""
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name, env = name[:idx], name[idx+1:]
		}
		r.cache[name+":"+env] = tpl.ForEnvironment(env)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetTemplate returns a template by name and env. O(1) map lookup.
// Prefers name:env; falls back to the base file.
func (r *Registry) GetTemplate(ctx context.Context, name, env string) (*chatprompt.ChatTemplate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := chatprompt.ValidateName(name, env); err != nil {
		return nil, err
	}
	if tpl, ok := r.cache[name+":"+env]; ok {
		return tpl.Clone(), nil
	}
	if tpl, ok := r.cache[name+":"]; ok {
		return tpl.ForEnvironment(env), nil
	}
	return nil, fmt.Errorf("%w: %q", chatprompt.ErrTemplateNotFound, name)
}

// List returns the distinct template names, sorted.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(r.cache))
	for key := range r.cache {
		name, _, _ := strings.Cut(key, ":")
		seen[name] = struct{}{}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
