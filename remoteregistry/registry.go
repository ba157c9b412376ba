package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/manifest"

	"golang.org/x/sync/singleflight"
)

const defaultTTL = 5 * time.Minute

// detachCancel returns a context that is not cancelled when parent is cancelled,
// but still respects parent's deadline so shared fetches do not hang.
// The caller should call the returned cancel when done to release the deadline timer.
func detachCancel(parent context.Context) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(parent)
	if dl, ok := parent.Deadline(); ok {
		return context.WithDeadline(ctx, dl)
	}
	return context.WithCancel(ctx)
}

// Ensures Registry implements chatprompt.Registry.
var _ chatprompt.Registry = (*Registry)(nil)

type cacheEntry struct {
	tpl       *chatprompt.ChatTemplate
	expiresAt time.Time
}

// cacheEntryValid reports whether the entry is still valid at the given time.
func (r *Registry) cacheEntryValid(ent *cacheEntry, now time.Time) bool {
	return r.ttl <= 0 || now.Before(ent.expiresAt)
}

// Registry loads prompt templates via a Fetcher and caches them with TTL.
// Implements chatprompt.Registry. GetTemplate returns a cloned template.
type Registry struct {
	fetcher   Fetcher
	ttl       time.Duration
	parseOpts []manifest.Option
	mu        sync.RWMutex
	cache     map[string]*cacheEntry
	sf        singleflight.Group
}

// New creates a Registry that uses the given Fetcher. Options (e.g. WithTTL) configure cache behavior.
// Panics if fetcher is nil.
func New(fetcher Fetcher, opts ...Option) *Registry {
	if fetcher == nil {
		panic("remoteregistry: Fetcher must not be nil")
	}
	r := &Registry{
		fetcher: fetcher,
		ttl:     defaultTTL,
		cache:   make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func cacheKey(name, env string) string { return name + ":" + env }

// GetTemplate returns a template by name and environment. Uses TTL cache; on miss or expiry, fetches via Fetcher.
// The returned template has Metadata().Environment set to env.
func (r *Registry) GetTemplate(ctx context.Context, name, env string) (*chatprompt.ChatTemplate, error) {
	if err := ValidateName(name, env); err != nil {
		return nil, err
	}
	key := cacheKey(name, env)
	if tpl, ok := r.cached(key); ok {
		return tpl, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, err, _ := r.sf.Do(key, func() (any, error) {
		fetchCtx, cancel := detachCancel(ctx)
		defer cancel()
		data, err := r.fetcher.Fetch(fetchCtx, name, env)
		if err != nil {
			return nil, err
		}
		tpl, err := manifest.ParseBytes(data, r.parseOpts...)
		if err != nil {
			return nil, err
		}
		return tpl.ForEnvironment(env), nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", chatprompt.ErrTemplateNotFound, name)
		}
		return nil, err
	}
	tpl := v.(*chatprompt.ChatTemplate)

	r.mu.Lock()
	expiresAt := time.Now().Add(r.ttl)
	if r.ttl <= 0 {
		expiresAt = time.Time{}
	}
	r.cache[key] = &cacheEntry{tpl: tpl, expiresAt: expiresAt}
	r.mu.Unlock()
	return tpl.Clone(), nil
}

func (r *Registry) cached(key string) (*chatprompt.ChatTemplate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ent, ok := r.cache[key]
	if !ok || !r.cacheEntryValid(ent, time.Now()) {
		return nil, false
	}
	return ent.tpl.Clone(), true
}

// List returns template names from the Fetcher if it implements Lister; otherwise returns nil, nil.
func (r *Registry) List(ctx context.Context) ([]string, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if lister, ok := r.fetcher.(Lister); ok {
		return lister.ListIDs(ctx)
	}
	return nil, nil
}

// Stat returns template metadata from the Fetcher if it implements Statter; otherwise returns ErrTemplateNotFound.
func (r *Registry) Stat(ctx context.Context, name string) (chatprompt.TemplateInfo, error) {
	if err := ValidateName(name, ""); err != nil {
		return chatprompt.TemplateInfo{}, err
	}
	if ctx.Err() != nil {
		return chatprompt.TemplateInfo{}, ctx.Err()
	}
	if statter, ok := r.fetcher.(Statter); ok {
		return statter.Stat(ctx, name)
	}
	return chatprompt.TemplateInfo{}, fmt.Errorf("%w: %q", chatprompt.ErrTemplateNotFound, name)
}

// Evict removes one template from the cache. Safe for concurrent use.
func (r *Registry) Evict(name, env string) {
	if err := ValidateName(name, env); err != nil {
		return
	}
	r.mu.Lock()
	delete(r.cache, cacheKey(name, env))
	r.mu.Unlock()
}

// EvictAll clears the entire cache. Safe for concurrent use.
func (r *Registry) EvictAll() {
	r.mu.Lock()
	r.cache = make(map[string]*cacheEntry)
	r.mu.Unlock()
}

// Close calls Close on the underlying Fetcher if it implements the interface.
func (r *Registry) Close() error {
	if c, ok := r.fetcher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
