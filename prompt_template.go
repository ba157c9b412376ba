package chatprompt

import (
	"context"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

// PromptTemplate is a single string template bound to a syntax and optional partial variables.
// It is immutable after construction; Partial returns a new template.
type PromptTemplate struct {
	template       string
	syntax         Syntax
	body           compiled
	inputVariables []string
	partials       map[string]any
	metadata       PromptMetadata
	logger         zerolog.Logger
}

// NewPromptTemplate parses text and infers its input variables (sorted), excluding partial keys.
// With WithInputVariables and WithValidation the declared names must match the inferred ones:
// a mismatch is ErrVariableMismatch for f-string and Mustache and a logged warning for Jinja2.
func NewPromptTemplate(text string, opts ...Option) (*PromptTemplate, error) {
	o := newOptions(opts)
	body, err := compile(text, o.syntax, o.tokenCounter)
	if err != nil {
		return nil, err
	}
	p := &PromptTemplate{
		template: text,
		syntax:   o.syntax,
		body:     body,
		partials: maps.Clone(o.partials),
		metadata: o.metadata.clone(),
		logger:   o.log(),
	}
	p.inputVariables = subtractKeys(body.variables(), p.partials)
	if o.inputVarsSet {
		if err := checkDeclared(o.inputVars, p.inputVariables, o.validate, o.syntax == SyntaxJinja2, p.logger); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// PromptTemplateFromFile reads a template from path. See NewPromptTemplate.
func PromptTemplateFromFile(path string, opts ...Option) (*PromptTemplate, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("chatprompt: read template file: %w", err)
	}
	return NewPromptTemplate(string(data), opts...)
}

// FromExamples joins prefix, examples and suffix with separator into one template.
func FromExamples(examples []string, suffix string, inputVariables []string, separator, prefix string, opts ...Option) (*PromptTemplate, error) {
	pieces := make([]string, 0, len(examples)+2)
	pieces = append(pieces, prefix)
	pieces = append(pieces, examples...)
	pieces = append(pieces, suffix)
	opts = append(slices.Clone(opts), WithInputVariables(inputVariables...))
	return NewPromptTemplate(strings.Join(pieces, separator), opts...)
}

// Template returns the template source.
func (p *PromptTemplate) Template() string { return p.template }

// Syntax returns the template syntax.
func (p *PromptTemplate) Syntax() Syntax { return p.syntax }

// InputVariables returns the sorted names a caller must supply.
func (p *PromptTemplate) InputVariables() []string { return slices.Clone(p.inputVariables) }

// PartialVariables returns a copy of the partial variables.
func (p *PromptTemplate) PartialVariables() map[string]any { return maps.Clone(p.partials) }

// Metadata returns the template metadata.
func (p *PromptTemplate) Metadata() PromptMetadata { return p.metadata.clone() }

// Format renders the template. Partials are resolved first; values override them.
// A missing input variable is a *VariableError wrapping ErrMissingVariable.
func (p *PromptTemplate) Format(values map[string]any) (string, error) {
	merged, err := mergeValues(p.partials, values)
	if err != nil {
		return "", err
	}
	for _, name := range p.inputVariables {
		if _, ok := merged[name]; !ok {
			return "", &VariableError{Variable: name, Template: p.metadata.ID, Err: ErrMissingVariable}
		}
	}
	return p.body.render(merged)
}

// Invoke renders the template into a StringValue.
func (p *PromptTemplate) Invoke(ctx context.Context, values map[string]any) (PromptValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := p.Format(values)
	if err != nil {
		return nil, err
	}
	return StringValue(text), nil
}

// Partial returns a copy with values added to the partial variables.
// The receiver is not modified.
func (p *PromptTemplate) Partial(values map[string]any) *PromptTemplate {
	out := *p
	out.partials = maps.Clone(p.partials)
	if out.partials == nil {
		out.partials = make(map[string]any, len(values))
	}
	maps.Copy(out.partials, values)
	out.inputVariables = subtractKeys(p.inputVariables, values)
	out.metadata = p.metadata.clone()
	return &out
}

// InputSchema describes the input variables as a JSON-schema-like object.
func (p *PromptTemplate) InputSchema() map[string]any {
	return inputSchema("PromptInput", p.inputVariables, nil)
}

// subtractKeys returns the sorted names not present in keys.
func subtractKeys(names []string, keys map[string]any) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := keys[n]; !ok {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// mergeValues resolves partials not overridden by values and overlays values.
func mergeValues(partials, values map[string]any) (map[string]any, error) {
	merged := make(map[string]any, len(partials)+len(values))
	for k, v := range partials {
		if _, ok := values[k]; ok {
			continue
		}
		resolved, err := resolvePartial(v)
		if err != nil {
			return nil, &VariableError{Variable: k, Err: err}
		}
		merged[k] = resolved
	}
	maps.Copy(merged, values)
	return merged, nil
}

func resolvePartial(v any) (any, error) {
	switch f := v.(type) {
	case func() any:
		return f(), nil
	case func() string:
		return f(), nil
	case func() (any, error):
		return f()
	case func() (string, error):
		return f()
	default:
		return v, nil
	}
}

// checkDeclared rejects empty names and, when validate is set, any difference
// between declared and inferred. soft downgrades the mismatch to a warning.
func checkDeclared(declared, inferred []string, validate, soft bool, logger zerolog.Logger) error {
	if slices.Contains(declared, "") {
		return ErrEmptyVariableName
	}
	if !validate {
		return nil
	}
	missing := difference(inferred, declared)
	extra := difference(declared, inferred)
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	if soft {
		logger.Warn().
			Strs("missing", missing).
			Strs("extra", extra).
			Msg("declared input variables do not match template")
		return nil
	}
	return fmt.Errorf("%w: missing %v, extra %v", ErrVariableMismatch, missing, extra)
}

// difference returns the sorted names in a that are not in b.
func difference(a, b []string) []string {
	var out []string
	for _, n := range a {
		if !slices.Contains(b, n) && !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	slices.Sort(out)
	return out
}

func inputSchema(title string, required, optional []string) map[string]any {
	props := make(map[string]any, len(required)+len(optional))
	for _, name := range required {
		props[name] = map[string]any{"title": schemaTitle(name), "type": "string"}
	}
	for _, name := range optional {
		props[name] = map[string]any{"title": schemaTitle(name), "type": "array"}
	}
	schema := map[string]any{
		"title":      title,
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = slices.Clone(required)
	}
	return schema
}

// schemaTitle turns snake_case into "Snake Case".
func schemaTitle(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
