package chatprompt

import (
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/prompts"
)

// fstringTemplate is a brace template: {name} substitutes, {{ and }} are literal braces.
type fstringTemplate struct {
	src  string
	vars []string
}

func compileFString(src string) (*fstringTemplate, error) {
	vars, err := scanFString(src)
	if err != nil {
		return nil, err
	}
	return &fstringTemplate{src: src, vars: vars}, nil
}

func scanFString(src string) ([]string, error) {
	var set nameSet
	for i := 0; i < len(src); i++ {
		switch src[i] {
		case '}':
			if i+1 < len(src) && src[i+1] == '}' {
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d", ErrTemplateParse, i)
		case '{':
			if i+1 < len(src) && src[i+1] == '{' {
				i++
				continue
			}
			end := strings.IndexByte(src[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d", ErrTemplateParse, i)
			}
			name := strings.TrimSpace(src[i+1 : i+1+end])
			if name == "" {
				return nil, fmt.Errorf("%w: '{}' at offset %d", ErrEmptyVariableName, i)
			}
			set.add(name)
			i += end + 1
		}
	}
	return set.names, nil
}

func (t *fstringTemplate) variables() []string { return t.vars }

func (t *fstringTemplate) render(values map[string]any) (string, error) {
	args := make(map[string]any, len(t.vars))
	for _, name := range t.vars {
		v, ok := values[name]
		if !ok {
			return "", &VariableError{Variable: name, Err: ErrMissingVariable}
		}
		args[name] = scalarOrString(v)
	}
	out, err := prompts.RenderTemplate(t.src, prompts.TemplateFormatFString, args)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplateRender, err)
	}
	return out, nil
}

// scalarOrString keeps values the brace renderer formats natively and stringifies the rest.
func scalarOrString(v any) any {
	switch v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	default:
		return fmt.Sprint(v)
	}
}
