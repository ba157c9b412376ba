package chatprompt

import (
	"fmt"
	"strings"
)

// Syntax selects the template language used to extract variables and render text.
type Syntax int

// Supported template syntaxes. The zero value is SyntaxFString.
const (
	SyntaxFString Syntax = iota
	SyntaxMustache
	SyntaxJinja2
)

var syntaxNames = map[Syntax]string{
	SyntaxFString:  "f-string",
	SyntaxMustache: "mustache",
	SyntaxJinja2:   "jinja2",
}

// String returns the canonical syntax name ("f-string", "mustache", "jinja2").
func (s Syntax) String() string {
	if name, ok := syntaxNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Syntax(%d)", int(s))
}

// ParseSyntax maps a syntax name to Syntax. Empty string means SyntaxFString.
// Returns ErrUnknownSyntax for anything else.
func ParseSyntax(name string) (Syntax, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "f-string", "fstring":
		return SyntaxFString, nil
	case "mustache":
		return SyntaxMustache, nil
	case "jinja2", "jinja":
		return SyntaxJinja2, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownSyntax, name)
	}
}

// compiled is a parsed template body for one syntax.
type compiled interface {
	// variables returns free variable names in first-occurrence order.
	variables() []string
	render(values map[string]any) (string, error)
}

func compile(src string, syntax Syntax, tc TokenCounter) (compiled, error) {
	switch syntax {
	case SyntaxFString:
		return compileFString(src)
	case SyntaxMustache:
		return compileMustache(src)
	case SyntaxJinja2:
		return compileJinja2(src, tc)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSyntax, syntax)
	}
}

// nameSet collects names once, keeping first-occurrence order.
type nameSet struct {
	names []string
	seen  map[string]struct{}
}

func (s *nameSet) add(name string) {
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
}
