package chatprompt

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// PromptMetadata describes where a template came from.
type PromptMetadata struct {
	ID          string
	Version     string
	Description string
	Tags        []string
	Environment string // set by registries when loading by env; not read from manifests
}

func (m PromptMetadata) clone() PromptMetadata {
	m.Tags = slices.Clone(m.Tags)
	return m
}

// TemplateInfo is registry-level metadata about a stored template.
type TemplateInfo struct {
	ID        string
	Version   string
	UpdatedAt string
}

// Registry returns chat templates by name and environment.
// Implementations return a clone, so callers may Append to the result freely.
type Registry interface {
	GetTemplate(ctx context.Context, name, env string) (*ChatTemplate, error)
}

// ValidateName checks that name and env are safe for file paths and cache keys.
// env may be empty.
func ValidateName(name, env string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for _, part := range []string{name, env} {
		if part == "" {
			continue
		}
		if strings.ContainsAny(part, `/\:`) || strings.Contains(part, "..") || strings.HasPrefix(part, ".") {
			return fmt.Errorf("%w: %q", ErrInvalidName, part)
		}
	}
	return nil
}
