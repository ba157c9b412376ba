package chatprompt

import (
	"slices"
	"strings"
)

// MessageType is the kind of a concrete chat message.
type MessageType string

// Message kinds. Generic messages carry a free-form Role.
const (
	MessageSystem  MessageType = "system"
	MessageHuman   MessageType = "human"
	MessageAI      MessageType = "ai"
	MessageGeneric MessageType = "generic"
)

// ContentPart is a sealed interface for resolved message parts. Only package types implement it via isContentPart().
type ContentPart interface {
	isContentPart()
}

// TextPart holds plain text content.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

// ImagePart references an image by URL (http(s) or data URI) with an optional detail hint.
type ImagePart struct {
	URL    string
	Detail string
}

func (ImagePart) isContentPart() {}

// Message is a concrete chat message produced by rendering.
// Content holds plain text; Parts is set instead for multi-part messages.
type Message struct {
	Type    MessageType
	Role    string // generic messages only
	Content string
	Parts   []ContentPart
}

func (Message) isEntry() {}

// SystemMessage returns a system message with text content.
func SystemMessage(content string) Message {
	return Message{Type: MessageSystem, Content: content}
}

// HumanMessage returns a human message with text content.
func HumanMessage(content string) Message {
	return Message{Type: MessageHuman, Content: content}
}

// AIMessage returns an AI message with text content.
func AIMessage(content string) Message {
	return Message{Type: MessageAI, Content: content}
}

// GenericMessage returns a message with a custom role.
func GenericMessage(role, content string) Message {
	return Message{Type: MessageGeneric, Role: role, Content: content}
}

// IsMultipart reports whether the message carries content parts.
func (m Message) IsMultipart() bool { return m.Parts != nil }

// Text returns Content, or the concatenated text parts of a multi-part message.
func (m Message) Text() string {
	if m.Parts == nil {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// String returns "<Role>: <text>" using the default buffer prefixes.
func (m Message) String() string {
	return m.prefix("Human", "AI") + ": " + m.Text()
}

func (m Message) prefix(humanPrefix, aiPrefix string) string {
	switch m.Type {
	case MessageSystem:
		return "System"
	case MessageHuman:
		return humanPrefix
	case MessageAI:
		return aiPrefix
	default:
		return m.Role
	}
}

func (m Message) clone() Message {
	m.Parts = slices.Clone(m.Parts)
	return m
}

// BufferString joins messages as "<Role>: <text>" lines.
// System renders as "System"; generic messages use their literal role.
func BufferString(messages []Message, humanPrefix, aiPrefix string) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, m.prefix(humanPrefix, aiPrefix)+": "+m.Text())
	}
	return strings.Join(lines, "\n")
}
