package chatprompt

import (
	"fmt"
	"strings"
)

// RoleContent pairs a role keyword with content. Role is one of system, human, user,
// ai, assistant or placeholder; Content is a template string, a part list, or for
// placeholders "{name}" or []any{"{name}", optional}.
type RoleContent struct {
	Role    string
	Content any
}

// Pair is shorthand for RoleContent{Role: role, Content: content}.
func Pair(role string, content any) RoleContent {
	return RoleContent{Role: role, Content: content}
}

func messageTypeForRole(role string) (MessageType, bool) {
	switch strings.ToLower(role) {
	case "system":
		return MessageSystem, true
	case "human", "user":
		return MessageHuman, true
	case "ai", "assistant":
		return MessageAI, true
	}
	return "", false
}

// coerceEntry turns one FromMessages item into an Entry.
// Strings and bare PromptTemplates become human message templates.
func coerceEntry(item any, opts []Option) (Entry, error) {
	switch v := item.(type) {
	case Message:
		return v.clone(), nil
	case *Message:
		if v == nil {
			return nil, fmt.Errorf("%w: nil message", ErrInvalidContent)
		}
		return v.clone(), nil
	case *Placeholder:
		if v == nil {
			return nil, fmt.Errorf("%w: nil placeholder", ErrInvalidContent)
		}
		if v.name == "" {
			return nil, ErrEmptyVariableName
		}
		return v, nil
	case *RoleTemplate:
		if v == nil {
			return nil, fmt.Errorf("%w: nil message template", ErrInvalidContent)
		}
		return v, nil
	case *PromptTemplate:
		return HumanTemplate(v)
	case string:
		return HumanTemplate(v, opts...)
	case RoleContent:
		return entryFromRole(v.Role, v.Content, opts)
	case [2]string:
		return entryFromRole(v[0], v[1], opts)
	case []any:
		if len(v) != 2 {
			return nil, fmt.Errorf("%w: role tuple needs 2 elements, got %d", ErrInvalidContent, len(v))
		}
		role, ok := v[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: role must be a string, got %T", ErrInvalidContent, v[0])
		}
		return entryFromRole(role, v[1], opts)
	default:
		return nil, fmt.Errorf("%w: unsupported message %T", ErrInvalidContent, item)
	}
}

func entryFromRole(role string, content any, opts []Option) (Entry, error) {
	if strings.EqualFold(role, "placeholder") {
		return placeholderFromContent(content)
	}
	t, ok := messageTypeForRole(role)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return NewRoleTemplate(t, "", content, opts...)
}

// placeholderFromContent parses "{name}" (optional) or []any{"{name}", optional}.
func placeholderFromContent(content any) (*Placeholder, error) {
	optional := true
	var ref string
	switch c := content.(type) {
	case string:
		ref = c
	case []any:
		if len(c) != 2 {
			return nil, fmt.Errorf("%w: placeholder tuple needs 2 elements", ErrInvalidContent)
		}
		var ok bool
		if ref, ok = c[0].(string); !ok {
			return nil, fmt.Errorf("%w: placeholder reference must be a string", ErrInvalidContent)
		}
		if optional, ok = c[1].(bool); !ok {
			return nil, fmt.Errorf("%w: placeholder flag must be a bool", ErrInvalidContent)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported placeholder %T", ErrInvalidContent, content)
	}
	name, err := placeholderName(ref)
	if err != nil {
		return nil, err
	}
	return NewPlaceholder(name, optional), nil
}

func placeholderName(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, "{") || !strings.HasSuffix(ref, "}") {
		return "", fmt.Errorf("%w: placeholder must look like {name}, got %q", ErrInvalidContent, ref)
	}
	name := strings.TrimSpace(strings.Trim(ref, "{}"))
	if name == "" {
		return "", ErrEmptyVariableName
	}
	return name, nil
}

// coerceMessages converts a placeholder value into messages.
func coerceMessages(v any) ([]Message, error) {
	switch list := v.(type) {
	case []Message:
		out := make([]Message, len(list))
		for i, m := range list {
			out[i] = m.clone()
		}
		return out, nil
	case ChatValue:
		return coerceMessages([]Message(list))
	case []string:
		out := make([]Message, len(list))
		for i, s := range list {
			out[i] = HumanMessage(s)
		}
		return out, nil
	case []RoleContent:
		out := make([]Message, 0, len(list))
		for _, rc := range list {
			m, err := messageFromRole(rc.Role, rc.Content)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	case [][2]string:
		out := make([]Message, 0, len(list))
		for _, p := range list {
			m, err := messageFromRole(p[0], p[1])
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
		return out, nil
	case []any:
		out := make([]Message, 0, len(list))
		for i, item := range list {
			m, err := coerceMessage(item)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected a list of messages, got %T", ErrInvalidContent, v)
	}
}

func coerceMessage(item any) (Message, error) {
	switch v := item.(type) {
	case Message:
		return v.clone(), nil
	case *Message:
		if v == nil {
			return Message{}, fmt.Errorf("%w: nil message", ErrInvalidContent)
		}
		return v.clone(), nil
	case string:
		return HumanMessage(v), nil
	case RoleContent:
		return messageFromRole(v.Role, v.Content)
	case [2]string:
		return messageFromRole(v[0], v[1])
	case []any:
		if len(v) != 2 {
			return Message{}, fmt.Errorf("%w: role tuple needs 2 elements, got %d", ErrInvalidContent, len(v))
		}
		role, ok := v[0].(string)
		if !ok {
			return Message{}, fmt.Errorf("%w: role must be a string, got %T", ErrInvalidContent, v[0])
		}
		return messageFromRole(role, v[1])
	case map[string]any:
		role, _ := v["role"].(string)
		return messageFromRole(role, v["content"])
	default:
		return Message{}, fmt.Errorf("%w: unsupported message %T", ErrInvalidContent, item)
	}
}

func messageFromRole(role string, content any) (Message, error) {
	t, ok := messageTypeForRole(role)
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	switch c := content.(type) {
	case string:
		return Message{Type: t, Content: c}, nil
	case []ContentPart:
		return Message{Type: t, Parts: append([]ContentPart{}, c...)}, nil
	default:
		return Message{}, fmt.Errorf("%w: unsupported message content %T", ErrInvalidContent, content)
	}
}
