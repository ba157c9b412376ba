package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/skosovsky/chatprompt"

	"gopkg.in/yaml.v3"
)

// fileManifest is the YAML manifest shape.
type fileManifest struct {
	ID          string         `yaml:"id"`
	Version     string         `yaml:"version"`
	Description string         `yaml:"description"`
	Syntax      string         `yaml:"syntax"`
	Tags        []string       `yaml:"tags"`
	ModelConfig map[string]any `yaml:"model_config"`
	Validate    bool           `yaml:"validate"`
	Variables   struct {
		Input   []string       `yaml:"input"`
		Partial map[string]any `yaml:"partial"`
	} `yaml:"variables"`
	Messages []fileMessage `yaml:"messages"`
}

// fileMessage is one entry of messages. Exactly one of Content and Parts is set,
// except for placeholders, which use Name (or Content as "{name}") and Optional.
type fileMessage struct {
	Role     string           `yaml:"role"`
	Name     string           `yaml:"name"`
	Content  *string          `yaml:"content"`
	Parts    []map[string]any `yaml:"parts"`
	Optional *bool            `yaml:"optional"`
}

// Option configures manifest parsing.
type Option func(*config)

type config struct {
	syntax   chatprompt.Syntax
	chatOpts []chatprompt.Option
}

// WithDefaultSyntax sets the syntax for manifests without a syntax field. Default is f-string.
func WithDefaultSyntax(s chatprompt.Syntax) Option {
	return func(c *config) { c.syntax = s }
}

// WithTemplateOptions passes extra options (logger, token counter) to every built template.
func WithTemplateOptions(opts ...chatprompt.Option) Option {
	return func(c *config) { c.chatOpts = append(c.chatOpts, opts...) }
}

// ParseBytes parses a YAML manifest into a ChatTemplate.
func ParseBytes(data []byte, opts ...Option) (*chatprompt.ChatTemplate, error) {
	var m fileManifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", chatprompt.ErrInvalidManifest, err)
	}
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return buildTemplate(&m, cfg)
}

// ParseFile reads and parses a manifest file.
func ParseFile(path string, opts ...Option) (*chatprompt.ChatTemplate, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	return ParseBytes(data, opts...)
}

// ParseFS reads and parses a manifest from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string, opts ...Option) (*chatprompt.ChatTemplate, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data, opts...)
}

func buildTemplate(m *fileManifest, cfg *config) (*chatprompt.ChatTemplate, error) {
	if m.ID == "" {
		return nil, fmt.Errorf("%w: missing id", chatprompt.ErrInvalidManifest)
	}
	if len(m.Messages) == 0 {
		return nil, fmt.Errorf("%w: missing messages", chatprompt.ErrInvalidManifest)
	}
	syntax := cfg.syntax
	if m.Syntax != "" {
		var err error
		if syntax, err = chatprompt.ParseSyntax(m.Syntax); err != nil {
			return nil, fmt.Errorf("%w: %w", chatprompt.ErrInvalidManifest, err)
		}
	}
	entryOpts := append(slices.Clone(cfg.chatOpts), chatprompt.WithSyntax(syntax))
	opts := append(slices.Clone(entryOpts), chatprompt.WithMetadata(chatprompt.PromptMetadata{
		ID:          m.ID,
		Version:     m.Version,
		Description: m.Description,
		Tags:        m.Tags,
	}))
	if len(m.Variables.Partial) > 0 {
		opts = append(opts, chatprompt.WithPartialVariables(m.Variables.Partial))
	}
	if len(m.ModelConfig) > 0 {
		opts = append(opts, chatprompt.WithModelConfig(m.ModelConfig))
	}
	if len(m.Variables.Input) > 0 {
		opts = append(opts, chatprompt.WithInputVariables(m.Variables.Input...))
		if m.Validate {
			opts = append(opts, chatprompt.WithValidation())
		}
	}
	items := make([]any, 0, len(m.Messages))
	for i, msg := range m.Messages {
		item, err := msg.item(entryOpts)
		if err != nil {
			return nil, fmt.Errorf("%w: message %d: %w", chatprompt.ErrInvalidManifest, i, err)
		}
		items = append(items, item)
	}
	tpl, err := chatprompt.FromMessages(items, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", chatprompt.ErrInvalidManifest, err)
	}
	return tpl, nil
}

// item converts a manifest message into a FromMessages item.
func (msg fileMessage) item(entryOpts []chatprompt.Option) (any, error) {
	role := strings.ToLower(strings.TrimSpace(msg.Role))
	if role == "placeholder" {
		name := msg.Name
		if name == "" && msg.Content != nil {
			name = strings.TrimSpace(strings.Trim(strings.TrimSpace(*msg.Content), "{}"))
		}
		if name == "" {
			return nil, errors.New("placeholder needs a name")
		}
		optional := msg.Optional == nil || *msg.Optional
		return chatprompt.NewPlaceholder(name, optional), nil
	}
	var content any
	switch {
	case msg.Content != nil && msg.Parts != nil:
		return nil, errors.New("content and parts are exclusive")
	case msg.Content != nil:
		content = *msg.Content
	case msg.Parts != nil:
		content = msg.Parts
	default:
		return nil, errors.New("missing content")
	}
	if role == "generic" {
		if msg.Name == "" {
			return nil, errors.New("generic message needs a name")
		}
		return chatprompt.GenericTemplate(msg.Name, content, entryOpts...)
	}
	return chatprompt.Pair(role, content), nil
}
