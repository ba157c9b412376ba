package chatprompt

import "slices"

// PromptValue is the rendered output of a template, viewable as text or as messages.
type PromptValue interface {
	String() string
	Messages() []Message
}

// StringValue is the output of a PromptTemplate.
type StringValue string

// String returns the rendered text.
func (v StringValue) String() string { return string(v) }

// Messages wraps the text in a single human message.
func (v StringValue) Messages() []Message { return []Message{HumanMessage(string(v))} }

// ChatValue is the output of a ChatTemplate.
type ChatValue []Message

// String returns the buffer string with "Human" and "AI" prefixes.
func (v ChatValue) String() string { return BufferString(v, "Human", "AI") }

// Messages returns a copy of the messages.
func (v ChatValue) Messages() []Message { return slices.Clone(v) }

var (
	_ PromptValue = StringValue("")
	_ PromptValue = ChatValue(nil)
)
