package langchaingo

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/adapter"
)

// Compile-time check that Adapter implements ProviderAdapter.
var _ adapter.ProviderAdapter = (*Adapter)(nil)

// Request is the translated payload for llms.Model.GenerateContent.
type Request struct {
	Messages []llms.MessageContent
	Options  []llms.CallOption
}

// Adapter converts rendered chat messages to langchaingo message contents.
type Adapter struct {
	inlineData bool
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithInlineData decodes data URI images into llms.BinaryContent instead of passing them as image URLs.
// Use it for models that only accept raw image bytes.
func WithInlineData() Option {
	return func(a *Adapter) { a.inlineData = true }
}

// New returns an Adapter.
func New(opts ...Option) *Adapter {
	a := &Adapter{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Translate converts exec into *Request.
func (a *Adapter) Translate(_ context.Context, exec *adapter.Execution) (any, error) {
	return a.TranslateTyped(exec)
}

// TranslateTyped returns the concrete type so callers avoid type assertion.
func (a *Adapter) TranslateTyped(exec *adapter.Execution) (*Request, error) {
	if exec == nil {
		return nil, adapter.ErrNilExecution
	}
	msgs, err := a.MessageContents(exec.Messages)
	if err != nil {
		return nil, err
	}
	return &Request{Messages: msgs, Options: CallOptions(exec.ModelConfig)}, nil
}

// MessageContents converts messages to []llms.MessageContent.
// Generic roles other than the user/assistant/system aliases become ChatMessageTypeGeneric.
func (a *Adapter) MessageContents(msgs []chatprompt.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(msgs))
	for i, msg := range msgs {
		role := messageType(msg)
		if !msg.IsMultipart() {
			out = append(out, llms.TextParts(role, msg.Content))
			continue
		}
		parts := make([]llms.ContentPart, 0, len(msg.Parts))
		for _, p := range msg.Parts {
			part, err := a.contentPart(p)
			if err != nil {
				return nil, fmt.Errorf("message %d: %w", i, err)
			}
			parts = append(parts, part)
		}
		out = append(out, llms.MessageContent{Role: role, Parts: parts})
	}
	return out, nil
}

func (a *Adapter) contentPart(p chatprompt.ContentPart) (llms.ContentPart, error) {
	switch x := p.(type) {
	case chatprompt.TextPart:
		return llms.TextContent{Text: x.Text}, nil
	case chatprompt.ImagePart:
		if a.inlineData {
			mime, data, ok, err := adapter.DecodeDataURI(x.URL)
			if err != nil {
				return nil, err
			}
			if ok {
				return llms.BinaryContent{MIMEType: mime, Data: data}, nil
			}
		}
		return llms.ImageURLContent{URL: x.URL, Detail: x.Detail}, nil
	default:
		return nil, fmt.Errorf("%w: %T", adapter.ErrUnsupportedContentType, p)
	}
}

func messageType(msg chatprompt.Message) llms.ChatMessageType {
	switch adapter.Role(msg) {
	case adapter.RoleSystem:
		return llms.ChatMessageTypeSystem
	case adapter.RoleUser:
		return llms.ChatMessageTypeHuman
	case adapter.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeGeneric
	}
}

// ChatMessages converts messages to []llms.ChatMessage. Chat messages carry text only,
// so image parts are dropped; use MessageContents for multimodal prompts.
func ChatMessages(msgs []chatprompt.Message) []llms.ChatMessage {
	out := make([]llms.ChatMessage, 0, len(msgs))
	for _, msg := range msgs {
		text := msg.Text()
		switch messageType(msg) {
		case llms.ChatMessageTypeSystem:
			out = append(out, llms.SystemChatMessage{Content: text})
		case llms.ChatMessageTypeHuman:
			out = append(out, llms.HumanChatMessage{Content: text})
		case llms.ChatMessageTypeAI:
			out = append(out, llms.AIChatMessage{Content: text})
		default:
			out = append(out, llms.GenericChatMessage{Content: text, Role: msg.Role})
		}
	}
	return out
}

// PromptValue adapts a chatprompt.PromptValue to llms.PromptValue.
type PromptValue struct {
	Value chatprompt.PromptValue
}

var _ llms.PromptValue = PromptValue{}

// String returns the rendered buffer string.
func (v PromptValue) String() string { return v.Value.String() }

// Messages returns the rendered messages as langchaingo chat messages.
func (v PromptValue) Messages() []llms.ChatMessage { return ChatMessages(v.Value.Messages()) }

// CallOptions maps well-known model config keys to llms call options.
// Keys: "model", "temperature", "max_tokens", "top_p", "stop". Unknown keys are ignored.
func CallOptions(cfg map[string]any) []llms.CallOption {
	mp := adapter.ExtractModelConfig(cfg)
	var opts []llms.CallOption
	if mp.Model != "" {
		opts = append(opts, llms.WithModel(mp.Model))
	}
	if mp.Temperature != nil {
		opts = append(opts, llms.WithTemperature(*mp.Temperature))
	}
	if mp.MaxTokens != nil {
		opts = append(opts, llms.WithMaxTokens(int(*mp.MaxTokens)))
	}
	if mp.TopP != nil {
		opts = append(opts, llms.WithTopP(*mp.TopP))
	}
	if len(mp.Stop) > 0 {
		opts = append(opts, llms.WithStopWords(mp.Stop))
	}
	return opts
}

// ParseResponse converts *llms.ContentResponse into an AI message built from the first choice.
func (a *Adapter) ParseResponse(_ context.Context, raw any) (chatprompt.Message, error) {
	resp, ok := raw.(*llms.ContentResponse)
	if !ok || resp == nil {
		return chatprompt.Message{}, adapter.ErrInvalidResponse
	}
	if len(resp.Choices) == 0 || resp.Choices[0] == nil || resp.Choices[0].Content == "" {
		return chatprompt.Message{}, adapter.ErrEmptyResponse
	}
	return chatprompt.AIMessage(resp.Choices[0].Content), nil
}

// Generate renders tpl with values, calls model and returns the reply as an AI message.
// opts are appended after the template's model config, so they take precedence.
func (a *Adapter) Generate(
	ctx context.Context,
	model llms.Model,
	tpl *chatprompt.ChatTemplate,
	values map[string]any,
	opts ...llms.CallOption,
) (chatprompt.Message, error) {
	exec, err := adapter.Render(ctx, tpl, values)
	if err != nil {
		return chatprompt.Message{}, err
	}
	req, err := a.TranslateTyped(exec)
	if err != nil {
		return chatprompt.Message{}, err
	}
	resp, err := model.GenerateContent(ctx, req.Messages, append(req.Options, opts...)...)
	if err != nil {
		return chatprompt.Message{}, fmt.Errorf("langchaingo: generate: %w", err)
	}
	return a.ParseResponse(ctx, resp)
}
