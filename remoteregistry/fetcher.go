package remoteregistry

import (
	"context"

	"github.com/skosovsky/chatprompt"
)

// Fetcher fetches raw YAML manifest bytes by template name and environment.
// Registry uses it to obtain manifest content from a store it does not know about
// (object storage, a config service, a database row).
//
// Return ErrNotFound when the template does not exist; Registry translates it to chatprompt.ErrTemplateNotFound.
// Wrap other errors in ErrFetchFailed so callers can use errors.Is.
type Fetcher interface {
	Fetch(ctx context.Context, name, env string) ([]byte, error)
}

// Lister is optional. When implemented by Fetcher, Registry.List uses it to return available names.
type Lister interface {
	ListIDs(ctx context.Context) ([]string, error)
}

// Statter is optional. When implemented by Fetcher, Registry.Stat uses it to return metadata without parsing body.
type Statter interface {
	Stat(ctx context.Context, name string) (chatprompt.TemplateInfo, error)
}

// ValidateName checks that name and env are safe for use in paths and cache keys.
// Delegates to chatprompt.ValidateName so all registries share the same rules.
func ValidateName(name, env string) error {
	return chatprompt.ValidateName(name, env)
}

// CandidatePaths returns manifest filename candidates in resolution order:
// name.env.yaml, name.env.yml, then name.yaml, name.yml. With empty env only the last two.
// Call ValidateName before using the result with filesystem paths.
func CandidatePaths(name, env string) []string {
	var out []string
	if env != "" {
		out = append(out, name+"."+env+".yaml", name+"."+env+".yml")
	}
	return append(out, name+".yaml", name+".yml")
}
