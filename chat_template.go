package chatprompt

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ChatTemplate is an ordered list of literal messages and message templates
// rendered together against one set of values.
// Only Append and Extend mutate a template; do not call them concurrently with rendering.
type ChatTemplate struct {
	entries           []Entry
	partials          map[string]any
	inputVariables    []string
	optionalVariables []string
	entryOpts         []Option
	metadata          PromptMetadata
	modelConfig       map[string]any
	deprecation       string
	logger            zerolog.Logger
}

const roleStringsDeprecation = "FromRoleStrings is deprecated; use FromMessages with RoleContent pairs"

// FromMessages builds a chat template. Each item is one of:
//
//	Message                 literal message, emitted as is
//	*RoleTemplate           message template
//	*Placeholder            message list variable
//	*PromptTemplate, string human message template
//	RoleContent, [2]string, []any{role, content}
//
// Role keywords are system, human, user, ai, assistant and placeholder.
// Placeholder content is "{name}" (optional) or []any{"{name}", optional}.
func FromMessages(items []any, opts ...Option) (*ChatTemplate, error) {
	o := newOptions(opts)
	eo := o.entryOptions()
	entries := make([]Entry, 0, len(items))
	for i, item := range items {
		e, err := coerceEntry(item, eo)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	c := newChatTemplate(entries, o)
	if o.inputVarsSet {
		if err := checkDeclared(o.inputVars, c.inputVariables, o.validate, false, c.logger); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// FromTemplate builds a chat template with a single human message.
// Options, partial variables included, apply to that message.
func FromTemplate(text string, opts ...Option) (*ChatTemplate, error) {
	p, err := NewPromptTemplate(text, opts...)
	if err != nil {
		return nil, err
	}
	rt, err := HumanTemplate(p)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	o.partials = nil
	return newChatTemplate([]Entry{rt}, o), nil
}

// FromRoleStrings builds generic role templates from (role, template) pairs.
// Roles are kept literally, "system" included.
//
// Deprecated: use FromMessages.
func FromRoleStrings(pairs []RoleContent, opts ...Option) (*ChatTemplate, error) {
	o := newOptions(opts)
	eo := o.entryOptions()
	entries := make([]Entry, 0, len(pairs))
	for i, p := range pairs {
		rt, err := GenericTemplate(p.Role, p.Content, eo...)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		entries = append(entries, rt)
	}
	c := newChatTemplate(entries, o)
	c.deprecation = roleStringsDeprecation
	c.logger.Warn().Msg(roleStringsDeprecation)
	return c, nil
}

func newChatTemplate(entries []Entry, o *options) *ChatTemplate {
	c := &ChatTemplate{
		entries:     entries,
		partials:    maps.Clone(o.partials),
		entryOpts:   o.entryOptions(),
		metadata:    o.metadata.clone(),
		modelConfig: maps.Clone(o.modelConfig),
		logger:      o.log(),
	}
	c.recompute()
	return c
}

// recompute derives the variable lists from entries and partials.
func (c *ChatTemplate) recompute() {
	var required, optional []string
	for _, e := range c.entries {
		required = append(required, entryVariables(e)...)
		if ph, ok := e.(*Placeholder); ok && ph.optional {
			optional = append(optional, ph.name)
		}
	}
	c.inputVariables = subtractKeys(required, c.partials)
	c.optionalVariables = subtractKeys(optional, c.partials)
}

// InputVariables returns the sorted names a caller must supply.
func (c *ChatTemplate) InputVariables() []string { return slices.Clone(c.inputVariables) }

// OptionalVariables returns the sorted names of optional placeholders.
func (c *ChatTemplate) OptionalVariables() []string { return slices.Clone(c.optionalVariables) }

// PartialVariables returns a copy of the partial variables.
func (c *ChatTemplate) PartialVariables() map[string]any { return maps.Clone(c.partials) }

// Metadata returns the template metadata.
func (c *ChatTemplate) Metadata() PromptMetadata { return c.metadata.clone() }

// ModelConfig returns a copy of the model parameters.
func (c *ChatTemplate) ModelConfig() map[string]any { return maps.Clone(c.modelConfig) }

// Deprecation is non-empty for templates built through a deprecated constructor.
func (c *ChatTemplate) Deprecation() string { return c.deprecation }

// FormatMessages renders every entry in order.
func (c *ChatTemplate) FormatMessages(values map[string]any) ([]Message, error) {
	return c.FormatMessagesContext(context.Background(), values)
}

// FormatMessagesContext renders every entry in order, checking ctx between entries.
// The first missing variable in entry order is reported.
func (c *ChatTemplate) FormatMessagesContext(ctx context.Context, values map[string]any) ([]Message, error) {
	merged, err := mergeValues(c.partials, values)
	if err != nil {
		return nil, err
	}
	out := make([]Message, 0, len(c.entries))
	for i, e := range c.entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		switch v := e.(type) {
		case Message:
			out = append(out, v.clone())
		case MessageTemplate:
			msgs, err := v.FormatMessages(merged)
			if err != nil {
				return nil, c.withTemplate(fmt.Errorf("message %d: %w", i, err))
			}
			out = append(out, msgs...)
		}
	}
	return out, nil
}

// withTemplate stamps the template id on a variable error.
func (c *ChatTemplate) withTemplate(err error) error {
	if c.metadata.ID == "" {
		return err
	}
	if ve := asVariableError(err); ve != nil && ve.Template == "" {
		ve.Template = c.metadata.ID
	}
	return err
}

// Format renders the messages as a buffer string.
func (c *ChatTemplate) Format(values map[string]any) (string, error) {
	return c.FormatContext(context.Background(), values)
}

// FormatContext is Format with cancellation.
func (c *ChatTemplate) FormatContext(ctx context.Context, values map[string]any) (string, error) {
	msgs, err := c.FormatMessagesContext(ctx, values)
	if err != nil {
		return "", err
	}
	return ChatValue(msgs).String(), nil
}

// FormatPrompt renders the messages as a ChatValue.
func (c *ChatTemplate) FormatPrompt(values map[string]any) (ChatValue, error) {
	return c.FormatPromptContext(context.Background(), values)
}

// FormatPromptContext is FormatPrompt with cancellation.
func (c *ChatTemplate) FormatPromptContext(ctx context.Context, values map[string]any) (ChatValue, error) {
	msgs, err := c.FormatMessagesContext(ctx, values)
	if err != nil {
		return nil, err
	}
	return ChatValue(msgs), nil
}

// Invoke renders input into a ChatValue. input is a map of values, or a bare
// list of messages when the template has exactly one placeholder and nothing
// else needs variables. Anything else fails with ErrInvocationShape.
func (c *ChatTemplate) Invoke(ctx context.Context, input any) (PromptValue, error) {
	values, err := c.invocationValues(input)
	if err != nil {
		return nil, err
	}
	msgs, err := c.FormatMessagesContext(ctx, values)
	if err != nil {
		return nil, err
	}
	return ChatValue(msgs), nil
}

func (c *ChatTemplate) invocationValues(input any) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	case map[string]string:
		return stringMap(v), nil
	}
	if reflect.TypeOf(input).Kind() != reflect.Slice {
		return nil, fmt.Errorf("%w: expected a map of values, got %T", ErrInvocationShape, input)
	}
	var ph *Placeholder
	for _, e := range c.entries {
		if p, ok := e.(*Placeholder); ok {
			if ph != nil {
				return nil, fmt.Errorf("%w: a bare list needs exactly one placeholder", ErrInvocationShape)
			}
			ph = p
			continue
		}
		if len(subtractKeys(entryVariables(e), c.partials)) > 0 {
			return nil, fmt.Errorf("%w: a bare list cannot fill template variables", ErrInvocationShape)
		}
	}
	if ph == nil {
		return nil, fmt.Errorf("%w: a bare list needs a placeholder", ErrInvocationShape)
	}
	return map[string]any{ph.name: input}, nil
}

// Batch invokes the template for every input with at most maxConcurrency
// renders in flight (no limit when <= 0). Results keep input order; the first
// error cancels the rest.
func (c *ChatTemplate) Batch(ctx context.Context, inputs []any, maxConcurrency int) ([]PromptValue, error) {
	out := make([]PromptValue, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	if maxConcurrency > 0 {
		g.SetLimit(maxConcurrency)
	}
	for i, in := range inputs {
		g.Go(func() error {
			v, err := c.Invoke(gctx, in)
			if err != nil {
				return fmt.Errorf("input %d: %w", i, err)
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Partial returns a copy with values added to the partial variables.
// The copy has its own entry list, so appending to it leaves the receiver intact.
func (c *ChatTemplate) Partial(values map[string]any) *ChatTemplate {
	out := c.Clone()
	if out.partials == nil {
		out.partials = make(map[string]any, len(values))
	}
	maps.Copy(out.partials, values)
	out.recompute()
	return out
}

// Clone returns a deep enough copy for independent Append and Partial calls.
// Registries hand out clones of their cached templates.
func (c *ChatTemplate) Clone() *ChatTemplate {
	if c == nil {
		return nil
	}
	out := *c
	out.entries = cloneEntries(c.entries)
	out.partials = maps.Clone(c.partials)
	out.inputVariables = slices.Clone(c.inputVariables)
	out.optionalVariables = slices.Clone(c.optionalVariables)
	out.metadata = c.metadata.clone()
	out.modelConfig = maps.Clone(c.modelConfig)
	return &out
}

// ForEnvironment returns a clone whose metadata records env.
func (c *ChatTemplate) ForEnvironment(env string) *ChatTemplate {
	out := c.Clone()
	out.metadata.Environment = env
	return out
}

// Len returns the number of entries.
func (c *ChatTemplate) Len() int { return len(c.entries) }

// At returns the entry at i. Negative indices count from the end.
func (c *ChatTemplate) At(i int) (Entry, error) {
	n := len(c.entries)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, n)
	}
	return c.entries[i], nil
}

// Slice returns a new template with entries [start, end), with Python slice
// semantics: negative bounds count from the end and bounds are clamped.
func (c *ChatTemplate) Slice(start, end int) *ChatTemplate {
	start, end = clampRange(start, end, len(c.entries))
	out := c.Clone()
	out.entries = slices.Clone(c.entries[start:end])
	out.recompute()
	return out
}

func clampRange(start, end, n int) (int, int) {
	norm := func(i int) int {
		if i < 0 {
			i += n
		}
		return max(0, min(i, n))
	}
	start, end = norm(start), norm(end)
	if end < start {
		end = start
	}
	return start, end
}

// Append adds one item using the FromMessages coercion rules.
func (c *ChatTemplate) Append(item any) error {
	return c.Extend([]any{item})
}

// Extend adds items using the FromMessages coercion rules.
// On error the template is unchanged.
func (c *ChatTemplate) Extend(items []any) error {
	added := make([]Entry, 0, len(items))
	for i, item := range items {
		e, err := coerceEntry(item, c.entryOpts)
		if err != nil {
			return fmt.Errorf("message %d: %w", len(c.entries)+i, err)
		}
		added = append(added, e)
	}
	c.entries = append(c.entries, added...)
	c.recompute()
	return nil
}

// Concat returns a new template with the entries of c followed by those of
// other. Partials are merged; other wins on conflicts.
func (c *ChatTemplate) Concat(other *ChatTemplate) *ChatTemplate {
	out := c.Clone()
	if other == nil {
		return out
	}
	out.entries = slices.Concat(c.entries, other.entries)
	if len(other.partials) > 0 {
		if out.partials == nil {
			out.partials = make(map[string]any, len(other.partials))
		}
		maps.Copy(out.partials, other.partials)
	}
	out.recompute()
	return out
}

// Entries returns a copy of the entry list.
func (c *ChatTemplate) Entries() []Entry { return cloneEntries(c.entries) }

// InputSchema describes required and optional variables as a JSON-schema-like object.
func (c *ChatTemplate) InputSchema() map[string]any {
	return inputSchema("PromptInput", c.inputVariables, c.optionalVariables)
}
