package remoteregistry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/skosovsky/chatprompt"
)

var (
	_ Fetcher = (*FSFetcher)(nil)
	_ Lister  = (*FSFetcher)(nil)
	_ Statter = (*FSFetcher)(nil)
)

// FSFetcher reads manifests from an fs.FS (os.DirFS, a mounted volume, fstest.MapFS).
// Files are resolved with CandidatePaths under Root.
type FSFetcher struct {
	FS   fs.FS
	Root string
}

// NewFSFetcher returns a fetcher over fsys rooted at root ("." for the top level).
func NewFSFetcher(fsys fs.FS, root string) *FSFetcher {
	if root == "" {
		root = "."
	}
	return &FSFetcher{FS: fsys, Root: root}
}

// Fetch returns the first existing candidate for name and env.
func (f *FSFetcher) Fetch(ctx context.Context, name, env string) ([]byte, error) {
	if err := ValidateName(name, env); err != nil {
		return nil, err
	}
	for _, p := range CandidatePaths(name, env) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := fs.ReadFile(f.FS, path.Join(f.Root, p))
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
}

// ListIDs returns sorted base names of manifests under Root; env variants are folded into their base name.
func (f *FSFetcher) ListIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := fs.ReadDir(f.FS, f.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}
	seen := make(map[string]struct{})
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := path.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		base, _, _ := strings.Cut(strings.TrimSuffix(e.Name(), ext), ".")
		if base != "" {
			seen[base] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// Stat reports the base manifest's modification time as UpdatedAt.
func (f *FSFetcher) Stat(ctx context.Context, name string) (chatprompt.TemplateInfo, error) {
	if err := ValidateName(name, ""); err != nil {
		return chatprompt.TemplateInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return chatprompt.TemplateInfo{}, err
	}
	for _, p := range CandidatePaths(name, "") {
		info, err := fs.Stat(f.FS, path.Join(f.Root, p))
		if err != nil {
			continue
		}
		ti := chatprompt.TemplateInfo{ID: name}
		if !info.ModTime().IsZero() {
			ti.UpdatedAt = info.ModTime().UTC().Format(time.RFC3339)
		}
		return ti, nil
	}
	return chatprompt.TemplateInfo{}, fmt.Errorf("%w: %q", chatprompt.ErrTemplateNotFound, name)
}
