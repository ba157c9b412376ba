package chatprompt

import (
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Option configures PromptTemplate, RoleTemplate and ChatTemplate construction (functional options pattern).
type Option func(*options)

type options struct {
	syntax       Syntax
	partials     map[string]any
	inputVars    []string
	inputVarsSet bool
	validate     bool
	logger       *zerolog.Logger
	tokenCounter TokenCounter
	metadata     PromptMetadata
	modelConfig  map[string]any
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// entryOptions keeps what a member template inherits from its chat template.
// Partials, declared variables and metadata stay at the chat level.
func (o *options) entryOptions() []Option {
	return []Option{
		WithSyntax(o.syntax),
		func(dst *options) {
			dst.logger = o.logger
			dst.tokenCounter = o.tokenCounter
		},
	}
}

func (o *options) log() zerolog.Logger {
	if o.logger != nil {
		return *o.logger
	}
	return log.Logger
}

// WithSyntax sets the template syntax. Default is SyntaxFString.
func WithSyntax(s Syntax) Option {
	return func(o *options) {
		o.syntax = s
	}
}

// WithPartialVariables sets values merged under the caller's values at render time (caller wins).
// A value may be a zero-argument function (func() any, func() string, func() (any, error),
// func() (string, error)); it is called on every render.
func WithPartialVariables(vars map[string]any) Option {
	return func(o *options) {
		if o.partials == nil {
			o.partials = make(map[string]any, len(vars))
		}
		maps.Copy(o.partials, vars)
	}
}

// WithInputVariables declares the expected input variables. They are only compared
// against the template when WithValidation is also set; otherwise the inferred set wins.
func WithInputVariables(names ...string) Option {
	return func(o *options) {
		o.inputVars = slices.Clone(names)
		o.inputVarsSet = true
	}
}

// WithValidation enables the declared-versus-inferred variable check.
func WithValidation() Option {
	return func(o *options) {
		o.validate = true
	}
}

// WithLogger sets the logger used for non-fatal warnings. Default is the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &l
	}
}

// WithTokenCounter sets the token counter for the truncate_tokens Jinja2 filter.
func WithTokenCounter(tc TokenCounter) Option {
	return func(o *options) {
		o.tokenCounter = tc
	}
}

// WithMetadata attaches descriptive metadata (id, version, tags).
func WithMetadata(meta PromptMetadata) Option {
	return func(o *options) {
		o.metadata = meta
	}
}

// WithModelConfig sets model parameters (e.g. temperature, max_tokens) carried by a chat template.
func WithModelConfig(cfg map[string]any) Option {
	return func(o *options) {
		o.modelConfig = maps.Clone(cfg)
	}
}
