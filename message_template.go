package chatprompt

import (
	"fmt"
	"os"
	"slices"
)

// Entry is an element of a ChatTemplate: a literal Message or a MessageTemplate.
type Entry interface {
	isEntry()
}

// MessageTemplate renders to zero or more messages.
// The set is closed: *RoleTemplate and *Placeholder.
type MessageTemplate interface {
	Entry
	FormatMessages(values map[string]any) ([]Message, error)
	// InputVariables returns the sorted names that must be supplied.
	InputVariables() []string
	messageTemplate()
}

var (
	_ MessageTemplate = (*RoleTemplate)(nil)
	_ MessageTemplate = (*Placeholder)(nil)
	_ Entry           = Message{}
)

// RoleTemplate renders exactly one message of a fixed type.
// The body is either a single PromptTemplate or a list of content part templates.
type RoleTemplate struct {
	msgType MessageType
	role    string
	prompt  *PromptTemplate
	parts   []partTemplate
}

func (*RoleTemplate) isEntry()         {}
func (*RoleTemplate) messageTemplate() {}

// NewRoleTemplate builds a message template. content is a template string, a
// *PromptTemplate, or a list of part specs ([]any, []map[string]any, []ContentPart).
// role is required for MessageGeneric and ignored otherwise.
func NewRoleTemplate(t MessageType, role string, content any, opts ...Option) (*RoleTemplate, error) {
	switch t {
	case MessageSystem, MessageHuman, MessageAI:
		role = ""
	case MessageGeneric:
		if role == "" {
			return nil, fmt.Errorf("%w: generic message needs a role", ErrUnknownRole)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, t)
	}
	rt := &RoleTemplate{msgType: t, role: role}
	var err error
	switch c := content.(type) {
	case string:
		rt.prompt, err = NewPromptTemplate(c, opts...)
	case *PromptTemplate:
		if c == nil {
			return nil, fmt.Errorf("%w: nil prompt template", ErrInvalidContent)
		}
		rt.prompt = c
	case []any:
		rt.parts, err = parseParts(c, opts)
	case []map[string]any:
		specs := make([]any, len(c))
		for i := range c {
			specs[i] = c[i]
		}
		rt.parts, err = parseParts(specs, opts)
	case []ContentPart:
		specs := make([]any, len(c))
		for i := range c {
			specs[i] = c[i]
		}
		rt.parts, err = parseParts(specs, opts)
	default:
		return nil, fmt.Errorf("%w: unsupported message content %T", ErrInvalidContent, content)
	}
	if err != nil {
		return nil, err
	}
	return rt, nil
}

// SystemTemplate returns a system message template.
func SystemTemplate(content any, opts ...Option) (*RoleTemplate, error) {
	return NewRoleTemplate(MessageSystem, "", content, opts...)
}

// HumanTemplate returns a human message template.
func HumanTemplate(content any, opts ...Option) (*RoleTemplate, error) {
	return NewRoleTemplate(MessageHuman, "", content, opts...)
}

// AITemplate returns an AI message template.
func AITemplate(content any, opts ...Option) (*RoleTemplate, error) {
	return NewRoleTemplate(MessageAI, "", content, opts...)
}

// GenericTemplate returns a template for a message with a custom role.
func GenericTemplate(role string, content any, opts ...Option) (*RoleTemplate, error) {
	return NewRoleTemplate(MessageGeneric, role, content, opts...)
}

// MessageTemplateFromFile reads a template body from path.
func MessageTemplateFromFile(t MessageType, role, path string, opts ...Option) (*RoleTemplate, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the caller
	if err != nil {
		return nil, fmt.Errorf("chatprompt: read template file: %w", err)
	}
	return NewRoleTemplate(t, role, string(data), opts...)
}

// Type returns the message type produced.
func (r *RoleTemplate) Type() MessageType { return r.msgType }

// Role returns the custom role of a generic template.
func (r *RoleTemplate) Role() string { return r.role }

// Prompt returns the text body, or nil for multi-part templates.
func (r *RoleTemplate) Prompt() *PromptTemplate { return r.prompt }

// InputVariables implements MessageTemplate.
func (r *RoleTemplate) InputVariables() []string {
	if r.prompt != nil {
		return r.prompt.InputVariables()
	}
	return partsVariables(r.parts)
}

// Format renders the single message.
func (r *RoleTemplate) Format(values map[string]any) (Message, error) {
	msg := Message{Type: r.msgType, Role: r.role}
	if r.prompt != nil {
		text, err := r.prompt.Format(values)
		if err != nil {
			return Message{}, err
		}
		msg.Content = text
		return msg, nil
	}
	msg.Parts = make([]ContentPart, 0, len(r.parts))
	for _, p := range r.parts {
		part, err := p.render(values)
		if err != nil {
			return Message{}, err
		}
		msg.Parts = append(msg.Parts, part)
	}
	return msg, nil
}

// FormatMessages implements MessageTemplate.
func (r *RoleTemplate) FormatMessages(values map[string]any) ([]Message, error) {
	msg, err := r.Format(values)
	if err != nil {
		return nil, err
	}
	return []Message{msg}, nil
}

// Placeholder expands a variable holding a list of messages.
type Placeholder struct {
	name     string
	optional bool
}

func (*Placeholder) isEntry()         {}
func (*Placeholder) messageTemplate() {}

// NewPlaceholder binds a placeholder to the variable name.
// An optional placeholder renders nothing when the variable is absent.
func NewPlaceholder(name string, optional bool) *Placeholder {
	return &Placeholder{name: name, optional: optional}
}

// Name returns the bound variable name.
func (p *Placeholder) Name() string { return p.name }

// Optional reports whether the variable may be absent.
func (p *Placeholder) Optional() bool { return p.optional }

// InputVariables implements MessageTemplate. Optional placeholders require nothing.
func (p *Placeholder) InputVariables() []string {
	if p.optional {
		return nil
	}
	return []string{p.name}
}

// FormatMessages coerces the bound value into messages.
func (p *Placeholder) FormatMessages(values map[string]any) ([]Message, error) {
	v, ok := values[p.name]
	if !ok || (v == nil && p.optional) {
		if p.optional {
			return nil, nil
		}
		return nil, &VariableError{Variable: p.name, Err: ErrMissingVariable}
	}
	msgs, err := coerceMessages(v)
	if err != nil {
		return nil, fmt.Errorf("placeholder %q: %w", p.name, err)
	}
	return msgs, nil
}

func entryVariables(e Entry) []string {
	if mt, ok := e.(MessageTemplate); ok {
		return mt.InputVariables()
	}
	return nil
}

func cloneEntries(entries []Entry) []Entry {
	return slices.Clone(entries)
}
