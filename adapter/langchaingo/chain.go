package langchaingo

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/prompts"

	"github.com/skosovsky/chatprompt"
)

var (
	_ prompts.FormatPrompter = Prompter{}
	_ prompts.Formatter      = Prompter{}
)

// Prompter exposes a ChatTemplate as a langchaingo prompt, so it can drive chains.NewLLMChain.
type Prompter struct {
	Template *chatprompt.ChatTemplate
}

// FormatPrompt renders the template into an llms.PromptValue.
func (p Prompter) FormatPrompt(values map[string]any) (llms.PromptValue, error) {
	val, err := p.Template.FormatPrompt(values)
	if err != nil {
		return nil, err
	}
	return PromptValue{Value: val}, nil
}

// Format renders the template as a buffer string.
func (p Prompter) Format(values map[string]any) (string, error) {
	return p.Template.Format(values)
}

// GetInputVariables returns the template's required variables.
func (p Prompter) GetInputVariables() []string {
	return p.Template.InputVariables()
}

// MessageHistory is the read side of a langchaingo chat history (memory.ChatMessageHistory and friends).
type MessageHistory interface {
	Messages(ctx context.Context) ([]llms.ChatMessage, error)
}

// History loads a chat history as messages ready to fill a placeholder.
func History(ctx context.Context, h MessageHistory) ([]chatprompt.Message, error) {
	msgs, err := h.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("langchaingo: load history: %w", err)
	}
	return FromChatMessages(msgs), nil
}

// FromChatMessages converts langchaingo chat messages back to messages.
// Function and tool messages become generic messages with the langchaingo type as role.
func FromChatMessages(msgs []llms.ChatMessage) []chatprompt.Message {
	out := make([]chatprompt.Message, 0, len(msgs))
	for _, m := range msgs {
		content := m.GetContent()
		switch m.GetType() {
		case llms.ChatMessageTypeSystem:
			out = append(out, chatprompt.SystemMessage(content))
		case llms.ChatMessageTypeHuman:
			out = append(out, chatprompt.HumanMessage(content))
		case llms.ChatMessageTypeAI:
			out = append(out, chatprompt.AIMessage(content))
		case llms.ChatMessageTypeGeneric:
			out = append(out, chatprompt.GenericMessage(genericRole(m), content))
		default:
			out = append(out, chatprompt.GenericMessage(string(m.GetType()), content))
		}
	}
	return out
}

func genericRole(m llms.ChatMessage) string {
	switch g := m.(type) {
	case llms.GenericChatMessage:
		return g.Role
	case *llms.GenericChatMessage:
		return g.Role
	}
	return string(llms.ChatMessageTypeGeneric)
}
