package chatprompt

import (
	"fmt"
	"strings"

	"github.com/cbroglie/mustache"
)

// mustacheTemplate renders without HTML escaping: prompts are plain text.
type mustacheTemplate struct {
	tmpl *mustache.Template
	vars []string
}

// noPartials rejects {{> name}}; templates are self-contained strings.
type noPartials struct{}

func (noPartials) Get(name string) (string, error) {
	return "", fmt.Errorf("mustache partial %q is not supported", name)
}

func compileMustache(src string) (*mustacheTemplate, error) {
	tmpl, err := mustache.ParseStringPartialsRaw(src, noPartials{}, true)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplateParse, err)
	}
	return &mustacheTemplate{tmpl: tmpl, vars: mustacheVariables(tmpl.Tags())}, nil
}

// mustacheVariables walks top-level tags only. Tags inside a section resolve
// against the section value, so only the section name is required outside.
func mustacheVariables(tags []mustache.Tag) []string {
	var set nameSet
	for _, tag := range tags {
		switch tag.Type() {
		case mustache.Variable, mustache.Section, mustache.InvertedSection:
			name := tag.Name()
			if name == "." {
				continue
			}
			root, _, _ := strings.Cut(name, ".")
			if root != "" {
				set.add(root)
			}
		}
	}
	return set.names
}

func (t *mustacheTemplate) variables() []string { return t.vars }

func (t *mustacheTemplate) render(values map[string]any) (string, error) {
	out, err := t.tmpl.Render(values)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTemplateRender, err)
	}
	return out, nil
}
