package chatprompt

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/nikolalohinski/gonja"
	"github.com/nikolalohinski/gonja/config"
	"github.com/nikolalohinski/gonja/exec"
	"github.com/nikolalohinski/gonja/tokens"
)

// jinja2Template is a gonja template run in a sandboxed environment:
// no loader (include/extends/import fail), no underscore attribute access.
type jinja2Template struct {
	tpl       *exec.Template
	vars      []string
	violation string
}

// sandboxLoader denies every template lookup.
type sandboxLoader struct{}

func (sandboxLoader) Get(path string) (io.Reader, error) {
	return nil, fmt.Errorf("%w: template loading is disabled (%q)", ErrSandboxViolation, path)
}

func (sandboxLoader) Path(path string) (string, error) {
	return "", fmt.Errorf("%w: template loading is disabled (%q)", ErrSandboxViolation, path)
}

func newSandboxEnv(tc TokenCounter) (*gonja.Environment, error) {
	env := gonja.NewEnvironment(config.NewConfig(), sandboxLoader{})
	if err := env.Filters.Replace("attr", sandboxAttrFilter); err != nil {
		return nil, err
	}
	for name, fn := range templateFilters(tc) {
		if err := env.Filters.Register(name, fn); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func compileJinja2(src string, tc TokenCounter) (*jinja2Template, error) {
	toks, err := lexJinja2(src)
	if err != nil {
		return nil, err
	}
	vars, violation := scanJinja2(toks)
	t := &jinja2Template{vars: vars, violation: violation}
	if violation != "" {
		// Never hand an escaping template to the evaluator.
		return t, nil
	}
	env, err := newSandboxEnv(tc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateParse, err)
	}
	tpl, err := env.FromString(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateParse, err)
	}
	t.tpl = tpl
	return t, nil
}

func (t *jinja2Template) variables() []string { return t.vars }

func (t *jinja2Template) render(values map[string]any) (string, error) {
	if t.violation != "" {
		return "", fmt.Errorf("%w: %s", ErrSandboxViolation, t.violation)
	}
	ctx := make(map[string]any, len(values))
	for k, v := range values {
		ctx[k] = v
	}
	out, err := t.tpl.Execute(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplateRender, err)
	}
	return out, nil
}

func sandboxAttrFilter(_ *exec.Evaluator, in *exec.Value, params *exec.VarArgs) *exec.Value {
	if in.IsError() {
		return in
	}
	p := params.ExpectArgs(1)
	if p.IsError() {
		return exec.AsValue(fmt.Errorf("attr: %s", p.Error()))
	}
	name := p.First().String()
	if strings.HasPrefix(name, "_") {
		return exec.AsValue(fmt.Errorf("%w: attribute %q", ErrSandboxViolation, name))
	}
	value, _ := in.Getattr(name)
	return value
}

// lexJinja2 drains the gonja lexer so its goroutine always exits.
func lexJinja2(src string) ([]*tokens.Token, error) {
	l := tokens.NewLexer(src)
	go l.Run()
	var (
		out    []*tokens.Token
		lexErr error
	)
	for tok := range l.Tokens {
		switch tok.Type {
		case tokens.Error:
			if lexErr == nil {
				lexErr = fmt.Errorf("%w: line %d: %s", ErrTemplateParse, tok.Line, tok.Val)
			}
		case tokens.Whitespace, tokens.Data, tokens.EOF:
		default:
			out = append(out, tok)
		}
	}
	return out, lexErr
}

var jinja2Reserved = map[string]struct{}{
	"true": {}, "false": {}, "none": {}, "True": {}, "False": {}, "None": {},
	"and": {}, "or": {}, "not": {}, "in": {}, "is": {},
	"if": {}, "else": {}, "elif": {}, "recursive": {}, "as": {},
	"with": {}, "without": {}, "context": {}, "ignore": {}, "missing": {},
	"loop": {}, "super": {}, "self": {}, "varargs": {}, "kwargs": {}, "caller": {},
	"range": {}, "lipsum": {}, "dict": {}, "cycler": {}, "joiner": {}, "namespace": {}, "gonja": {},
}

// jinja2Scopes tracks names bound by for, macro, with and set. Block
// statements open a scope that their end tag closes.
type jinja2Scopes struct {
	stack   []map[string]struct{}
	pending []string
}

func newJinja2Scopes() *jinja2Scopes {
	return &jinja2Scopes{stack: []map[string]struct{}{{}}}
}

func (s *jinja2Scopes) bind(name string) {
	s.stack[len(s.stack)-1][name] = struct{}{}
}

func (s *jinja2Scopes) bound(name string) bool {
	if slices.Contains(s.pending, name) {
		return true
	}
	for i := len(s.stack) - 1; i >= 0; i-- {
		if _, ok := s.stack[i][name]; ok {
			return true
		}
	}
	return false
}

// close applies the pending targets of the statement that just ended.
func (s *jinja2Scopes) close(stmt string) {
	switch stmt {
	case "for", "macro", "with":
		scope := make(map[string]struct{}, len(s.pending))
		for _, name := range s.pending {
			scope[name] = struct{}{}
		}
		s.stack = append(s.stack, scope)
	case "set":
		for _, name := range s.pending {
			s.bind(name)
		}
	case "endfor", "endmacro", "endwith":
		if len(s.stack) > 1 {
			s.stack = s.stack[:len(s.stack)-1]
		}
	}
	s.pending = s.pending[:0]
}

// scanJinja2 returns the free variables of a token stream and the first
// construct that reaches for internals (underscore attributes or keys).
func scanJinja2(toks []*tokens.Token) (vars []string, violation string) {
	var (
		set        nameSet
		scopes     = newJinja2Scopes()
		inExpr     bool
		inBlock    bool
		stmtStart  bool
		binding    bool // names are assignment or loop targets until "=" or "in"
		macroNamed bool
		stmt       string
	)
	typeAt := func(i int) tokens.Type {
		if i < 0 || i >= len(toks) {
			return tokens.EOF
		}
		return toks[i].Type
	}
	for i, tok := range toks {
		switch tok.Type {
		case tokens.VariableBegin:
			inExpr, stmt, binding = true, "", false
		case tokens.BlockBegin:
			inExpr, inBlock, stmtStart, stmt, binding = true, true, true, "", false
		case tokens.VariableEnd:
			inExpr, binding = false, false
		case tokens.BlockEnd:
			if inBlock {
				scopes.close(stmt)
			}
			inExpr, inBlock, binding = false, false, false
		case tokens.In:
			if stmt == "for" {
				binding = false
			}
		case tokens.Assign:
			if stmt == "set" || stmt == "with" {
				binding = false
			}
		case tokens.String:
			if !inExpr || !strings.HasPrefix(tok.Val, "_") {
				continue
			}
			prev := typeAt(i - 1)
			if prev == tokens.Lbracket && violation == "" {
				violation = fmt.Sprintf("item %q", tok.Val)
			}
			if prev == tokens.Lparen && typeAt(i-2) == tokens.Name && toks[i-2].Val == "attr" && violation == "" {
				violation = fmt.Sprintf("attribute %q", tok.Val)
			}
		case tokens.Name:
			if !inExpr {
				continue
			}
			if stmtStart {
				stmt, stmtStart, macroNamed = tok.Val, false, false
				binding = stmt == "for" || stmt == "set" || stmt == "with" || stmt == "macro"
				continue
			}
			switch typeAt(i - 1) {
			case tokens.Dot:
				if strings.HasPrefix(tok.Val, "_") && violation == "" {
					violation = fmt.Sprintf("attribute %q", tok.Val)
				}
				continue
			case tokens.Pipe, tokens.Is:
				continue
			case tokens.Not:
				if typeAt(i-2) == tokens.Is {
					continue
				}
			}
			if stmt == "macro" && !macroNamed {
				// the macro itself outlives its body
				scopes.bind(tok.Val)
				macroNamed = true
				continue
			}
			if binding || stmt == "macro" {
				scopes.pending = append(scopes.pending, tok.Val)
				continue
			}
			if typeAt(i+1) == tokens.Assign {
				// keyword argument
				continue
			}
			if _, ok := jinja2Reserved[tok.Val]; ok {
				continue
			}
			if scopes.bound(tok.Val) {
				continue
			}
			set.add(tok.Val)
		}
	}
	return set.names, violation
}
