package langchaingo

import (
	"context"
	"errors"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/adapter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeModel struct {
	messages []llms.MessageContent
	opts     llms.CallOptions
	reply    string
	err      error
}

func (f *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func applyOptions(opts []llms.CallOption) llms.CallOptions {
	var out llms.CallOptions
	for _, o := range opts {
		o(&out)
	}
	return out
}

func TestMessageContents(t *testing.T) {
	t.Parallel()
	msgs := []chatprompt.Message{
		chatprompt.SystemMessage("sys"),
		chatprompt.HumanMessage("hi"),
		chatprompt.AIMessage("hello"),
		chatprompt.GenericMessage("critic", "meh"),
		chatprompt.GenericMessage("user", "alias"),
		{Type: chatprompt.MessageHuman, Parts: []chatprompt.ContentPart{
			chatprompt.TextPart{Text: "look"},
			chatprompt.ImagePart{URL: "https://example.com/a.png", Detail: "low"},
		}},
	}
	got, err := New().MessageContents(msgs)
	require.NoError(t, err)
	assert.Equal(t, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "sys"),
		llms.TextParts(llms.ChatMessageTypeHuman, "hi"),
		llms.TextParts(llms.ChatMessageTypeAI, "hello"),
		llms.TextParts(llms.ChatMessageTypeGeneric, "meh"),
		llms.TextParts(llms.ChatMessageTypeHuman, "alias"),
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{
			llms.TextContent{Text: "look"},
			llms.ImageURLContent{URL: "https://example.com/a.png", Detail: "low"},
		}},
	}, got)
}

func TestMessageContents_InlineData(t *testing.T) {
	t.Parallel()
	msgs := []chatprompt.Message{{Type: chatprompt.MessageHuman, Parts: []chatprompt.ContentPart{
		chatprompt.ImagePart{URL: "data:image/png;base64,aGVsbG8="},
		chatprompt.ImagePart{URL: "https://example.com/a.png"},
	}}}

	plain, err := New().MessageContents(msgs)
	require.NoError(t, err)
	assert.Equal(t, llms.ImageURLContent{URL: "data:image/png;base64,aGVsbG8="}, plain[0].Parts[0])

	inline, err := New(WithInlineData()).MessageContents(msgs)
	require.NoError(t, err)
	assert.Equal(t, llms.BinaryContent{MIMEType: "image/png", Data: []byte("hello")}, inline[0].Parts[0])
	assert.Equal(t, llms.ImageURLContent{URL: "https://example.com/a.png"}, inline[0].Parts[1])

	bad := []chatprompt.Message{{Type: chatprompt.MessageHuman, Parts: []chatprompt.ContentPart{
		chatprompt.ImagePart{URL: "data:image/png;base64,@@"},
	}}}
	_, err = New(WithInlineData()).MessageContents(bad)
	require.ErrorIs(t, err, adapter.ErrInvalidDataURI)
}

func TestChatMessages(t *testing.T) {
	t.Parallel()
	got := ChatMessages([]chatprompt.Message{
		chatprompt.SystemMessage("sys"),
		chatprompt.HumanMessage("hi"),
		chatprompt.AIMessage("hello"),
		chatprompt.GenericMessage("critic", "meh"),
		{Type: chatprompt.MessageHuman, Parts: []chatprompt.ContentPart{
			chatprompt.TextPart{Text: "a"},
			chatprompt.ImagePart{URL: "https://x"},
			chatprompt.TextPart{Text: "b"},
		}},
	})
	assert.Equal(t, []llms.ChatMessage{
		llms.SystemChatMessage{Content: "sys"},
		llms.HumanChatMessage{Content: "hi"},
		llms.AIChatMessage{Content: "hello"},
		llms.GenericChatMessage{Content: "meh", Role: "critic"},
		llms.HumanChatMessage{Content: "ab"},
	}, got)
}

func TestPromptValue(t *testing.T) {
	t.Parallel()
	tpl, err := chatprompt.FromMessages([]any{
		chatprompt.Pair("system", "Be {tone}."),
		chatprompt.Pair("human", "{q}"),
	})
	require.NoError(t, err)
	val, err := tpl.FormatPrompt(map[string]any{"tone": "brief", "q": "why?"})
	require.NoError(t, err)
	pv := PromptValue{Value: val}
	assert.Equal(t, "System: Be brief.\nHuman: why?", pv.String())
	assert.Equal(t, []llms.ChatMessage{
		llms.SystemChatMessage{Content: "Be brief."},
		llms.HumanChatMessage{Content: "why?"},
	}, pv.Messages())
}

func TestCallOptions(t *testing.T) {
	t.Parallel()
	opts := applyOptions(CallOptions(map[string]any{
		"model":       "llama3",
		"temperature": 0.3,
		"max_tokens":  256,
		"top_p":       0.9,
		"stop":        []any{"END"},
		"ignored":     true,
	}))
	assert.Equal(t, "llama3", opts.Model)
	assert.InDelta(t, 0.3, opts.Temperature, 1e-9)
	assert.Equal(t, 256, opts.MaxTokens)
	assert.InDelta(t, 0.9, opts.TopP, 1e-9)
	assert.Equal(t, []string{"END"}, opts.StopWords)

	assert.Empty(t, CallOptions(nil))
}

func TestTranslate(t *testing.T) {
	t.Parallel()
	a := New()
	raw, err := a.Translate(context.Background(), &adapter.Execution{
		Messages:    []chatprompt.Message{chatprompt.HumanMessage("hi")},
		ModelConfig: map[string]any{"max_tokens": 10},
	})
	require.NoError(t, err)
	req, ok := raw.(*Request)
	require.True(t, ok)
	assert.Equal(t, []llms.MessageContent{llms.TextParts(llms.ChatMessageTypeHuman, "hi")}, req.Messages)
	assert.Equal(t, 10, applyOptions(req.Options).MaxTokens)

	_, err = a.Translate(context.Background(), nil)
	require.ErrorIs(t, err, adapter.ErrNilExecution)
}

func TestParseResponse(t *testing.T) {
	t.Parallel()
	a := New()
	ctx := context.Background()
	msg, err := a.ParseResponse(ctx, &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}})
	require.NoError(t, err)
	assert.Equal(t, chatprompt.AIMessage("ok"), msg)

	_, err = a.ParseResponse(ctx, "nope")
	require.ErrorIs(t, err, adapter.ErrInvalidResponse)
	_, err = a.ParseResponse(ctx, &llms.ContentResponse{})
	require.ErrorIs(t, err, adapter.ErrEmptyResponse)
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	tpl, err := chatprompt.FromMessages([]any{
		chatprompt.Pair("system", "You are {bot}."),
		chatprompt.Pair("human", "{q}"),
	}, chatprompt.WithModelConfig(map[string]any{"temperature": 0.1, "max_tokens": 64}))
	require.NoError(t, err)

	model := &fakeModel{reply: "42"}
	msg, err := New().Generate(context.Background(), model, tpl,
		map[string]any{"bot": "Bot", "q": "answer?"},
		llms.WithMaxTokens(128),
	)
	require.NoError(t, err)
	assert.Equal(t, chatprompt.AIMessage("42"), msg)
	assert.Equal(t, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, "You are Bot."),
		llms.TextParts(llms.ChatMessageTypeHuman, "answer?"),
	}, model.messages)
	assert.InDelta(t, 0.1, model.opts.Temperature, 1e-9)
	assert.Equal(t, 128, model.opts.MaxTokens, "call options override model config")
}

func TestGenerate_Errors(t *testing.T) {
	t.Parallel()
	tpl, err := chatprompt.FromMessages([]any{chatprompt.Pair("human", "{q}")})
	require.NoError(t, err)

	_, err = New().Generate(context.Background(), &fakeModel{}, tpl, nil)
	require.ErrorIs(t, err, chatprompt.ErrMissingVariable)

	boom := errors.New("boom")
	_, err = New().Generate(context.Background(), &fakeModel{err: boom}, tpl, map[string]any{"q": "x"})
	require.ErrorIs(t, err, boom)
}
