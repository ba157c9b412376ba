package adapter

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/internal/cast"
)

// Execution is a rendered prompt ready to be sent: messages plus the template's model config.
type Execution struct {
	Messages    []chatprompt.Message
	ModelConfig map[string]any
	Metadata    chatprompt.PromptMetadata
}

// Render formats tpl with values and bundles the result with the template's model config and metadata.
func Render(ctx context.Context, tpl *chatprompt.ChatTemplate, values map[string]any) (*Execution, error) {
	if tpl == nil {
		return nil, ErrNilExecution
	}
	msgs, err := tpl.FormatMessagesContext(ctx, values)
	if err != nil {
		return nil, err
	}
	return &Execution{
		Messages:    msgs,
		ModelConfig: tpl.ModelConfig(),
		Metadata:    tpl.Metadata(),
	}, nil
}

// ProviderAdapter maps an Execution to a client-specific request type
// and parses the client response back to a chat message.
type ProviderAdapter interface {
	// Translate converts exec into the client request payload.
	// Callers must type-assert the result to the client-specific type.
	Translate(ctx context.Context, exec *Execution) (any, error)
	// ParseResponse converts the raw client response into an AI message.
	ParseResponse(ctx context.Context, raw any) (chatprompt.Message, error)
}

// Sentinel errors for adapter implementations. Callers should use errors.Is.
var (
	ErrUnsupportedRole        = errors.New("adapter: unsupported message role for this client")
	ErrUnsupportedContentType = errors.New("adapter: unsupported ContentPart type for this client")
	ErrInvalidResponse        = errors.New("adapter: raw response has unexpected type")
	ErrEmptyResponse          = errors.New("adapter: response contains no content")
	ErrNilExecution           = errors.New("adapter: execution must not be nil")
	ErrInvalidDataURI         = errors.New("adapter: malformed data URI")
)

// Canonical roles returned by Role.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Role maps a message to a canonical role. Generic messages whose role is a known alias
// (human, user, ai, assistant, system) are folded; other generic roles are returned as is.
func Role(msg chatprompt.Message) string {
	switch msg.Type {
	case chatprompt.MessageSystem:
		return RoleSystem
	case chatprompt.MessageHuman:
		return RoleUser
	case chatprompt.MessageAI:
		return RoleAssistant
	}
	switch r := strings.ToLower(msg.Role); r {
	case "human", "user":
		return RoleUser
	case "ai", "assistant":
		return RoleAssistant
	case "system":
		return RoleSystem
	default:
		return r
	}
}

// ModelParams holds well-known model config keys extracted from Execution.ModelConfig.
// Use ExtractModelConfig to populate from map[string]any.
type ModelParams struct {
	Model       string
	Temperature *float64
	MaxTokens   *int64
	TopP        *float64
	Stop        []string
}

// TextFromParts extracts concatenated text from []ContentPart, ignoring non-text parts.
func TextFromParts(parts []chatprompt.ContentPart) string {
	var b strings.Builder
	for _, p := range parts {
		if t, ok := p.(chatprompt.TextPart); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ExtractModelConfig reads well-known keys from ModelConfig and returns typed ModelParams.
// Well-known keys: "model" (string), "temperature" (float64), "max_tokens" (int64), "top_p" (float64), "stop" ([]string).
func ExtractModelConfig(cfg map[string]any) ModelParams {
	var out ModelParams
	if cfg == nil {
		return out
	}
	if v, ok := cfg["model"].(string); ok {
		out.Model = v
	}
	if v, ok := cfg["temperature"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			out.Temperature = &f
		}
	}
	if v, ok := cfg["max_tokens"]; ok {
		if i, ok := cast.ToInt64(v); ok {
			out.MaxTokens = &i
		}
	}
	if v, ok := cfg["top_p"]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			out.TopP = &f
		}
	}
	if v, ok := cfg["stop"]; ok {
		if ss, ok := cast.ToStringSlice(v); ok {
			out.Stop = ss
		}
	}
	return out
}

// DecodeDataURI splits a base64 data URI ("data:image/png;base64,...") into its MIME type and bytes.
// ok is false when url is not a data URI at all.
func DecodeDataURI(url string) (mimeType string, data []byte, ok bool, err error) {
	rest, found := strings.CutPrefix(url, "data:")
	if !found {
		return "", nil, false, nil
	}
	meta, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, true, fmt.Errorf("%w: missing payload", ErrInvalidDataURI)
	}
	mimeType, found = strings.CutSuffix(meta, ";base64")
	if !found {
		return "", nil, true, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURI)
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, true, fmt.Errorf("%w: %w", ErrInvalidDataURI, err)
	}
	return mimeType, data, true, nil
}
