package chatprompt

import (
	"errors"
	"fmt"
)

// Sentinel errors for template construction, rendering and registry operations.
// All use prefix "chatprompt:". Callers should use errors.Is/errors.As.
var (
	ErrUnknownSyntax     = errors.New("chatprompt: unknown template syntax")
	ErrVariableMismatch  = errors.New("chatprompt: declared input variables do not match template")
	ErrEmptyVariableName = errors.New("chatprompt: empty variable name")
	ErrMissingVariable   = errors.New("chatprompt: required template variable not provided")
	ErrUnknownRole       = errors.New("chatprompt: unknown message role")
	ErrSandboxViolation  = errors.New("chatprompt: template access outside the sandbox")
	ErrInvocationShape   = errors.New("chatprompt: input does not match template shape")
	ErrTemplateParse     = errors.New("chatprompt: template parsing failed")
	ErrTemplateRender    = errors.New("chatprompt: template rendering failed")
	ErrInvalidContent    = errors.New("chatprompt: invalid message content")
	ErrInvalidPayload    = errors.New("chatprompt: payload struct is invalid or missing prompt tags")
	ErrTemplateNotFound  = errors.New("chatprompt: template not found in registry")
	ErrInvalidManifest   = errors.New("chatprompt: manifest file is malformed")
	ErrInvalidName       = errors.New("chatprompt: invalid template name")
	ErrIndexOutOfRange   = errors.New("chatprompt: message index out of range")
)

// VariableError wraps a sentinel error with variable and template context.
// Use errors.Is(err, ErrMissingVariable) and errors.As(err, &variableErr) to inspect.
type VariableError struct {
	Variable string
	Template string
	Err      error
}

// Error implements error.
func (e *VariableError) Error() string {
	if e.Template == "" {
		return fmt.Sprintf("chatprompt: variable %q: %v", e.Variable, e.Err)
	}
	return fmt.Sprintf("chatprompt: variable %q in template %q: %v", e.Variable, e.Template, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/errors.As.
func (e *VariableError) Unwrap() error { return e.Err }

var _ error = (*VariableError)(nil)

func asVariableError(err error) *VariableError {
	var ve *VariableError
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
