package chatprompt

import (
	"fmt"
	"slices"
)

// partTemplate renders one content part. Every string leaf is its own PromptTemplate.
type partTemplate interface {
	variables() []string
	render(values map[string]any) (ContentPart, error)
}

type textPartTemplate struct {
	text *PromptTemplate
}

func (t *textPartTemplate) variables() []string { return t.text.InputVariables() }

func (t *textPartTemplate) render(values map[string]any) (ContentPart, error) {
	text, err := t.text.Format(values)
	if err != nil {
		return nil, err
	}
	return TextPart{Text: text}, nil
}

// imagePartTemplate is either a URL template or a mime_type + base64 data pair
// assembled into a data URI.
type imagePartTemplate struct {
	url      *PromptTemplate
	detail   *PromptTemplate
	mimeType *PromptTemplate
	data     *PromptTemplate
}

func (t *imagePartTemplate) leaves() []*PromptTemplate {
	var out []*PromptTemplate
	for _, p := range []*PromptTemplate{t.url, t.detail, t.mimeType, t.data} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

func (t *imagePartTemplate) variables() []string {
	var set nameSet
	for _, p := range t.leaves() {
		for _, name := range p.InputVariables() {
			set.add(name)
		}
	}
	return set.names
}

func (t *imagePartTemplate) render(values map[string]any) (ContentPart, error) {
	var part ImagePart
	if t.url != nil {
		url, err := t.url.Format(values)
		if err != nil {
			return nil, err
		}
		part.URL = url
	} else {
		mime, err := t.mimeType.Format(values)
		if err != nil {
			return nil, err
		}
		data, err := t.data.Format(values)
		if err != nil {
			return nil, err
		}
		part.URL = "data:" + mime + ";base64," + data
	}
	if part.URL == "" {
		return nil, fmt.Errorf("%w: image url rendered empty", ErrInvalidContent)
	}
	if t.detail != nil {
		detail, err := t.detail.Format(values)
		if err != nil {
			return nil, err
		}
		part.Detail = detail
	}
	return part, nil
}

// parseParts builds part templates from specs:
//
//	"text"                                        text part
//	{"type": "text", "text": "..."}               text part
//	{"type": "image_url", "image_url": "..."}     image by URL
//	{"type": "image_url", "image_url": {"url": "...", "detail": "..."}}
//	{"type": "image_url", "image_url": {"mime_type": "...", "data": "..."}}
//
// TextPart and ImagePart values are accepted as already-shaped specs.
func parseParts(specs []any, opts []Option) ([]partTemplate, error) {
	out := make([]partTemplate, 0, len(specs))
	for i, spec := range specs {
		p, err := parsePart(spec, opts)
		if err != nil {
			return nil, fmt.Errorf("part %d: %w", i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func parsePart(spec any, opts []Option) (partTemplate, error) {
	switch s := spec.(type) {
	case string:
		return newTextPart(s, opts)
	case TextPart:
		return newTextPart(s.Text, opts)
	case ImagePart:
		return parseImage(map[string]any{"url": s.URL, "detail": s.Detail}, opts)
	case map[string]string:
		return parsePart(stringMap(s), opts)
	case map[string]any:
		typ, _ := s["type"].(string)
		_, hasText := s["text"]
		_, hasImage := s["image_url"]
		switch {
		case typ == "text" || (typ == "" && hasText):
			text, ok := s["text"].(string)
			if !ok {
				return nil, fmt.Errorf("%w: text part needs a string \"text\"", ErrInvalidContent)
			}
			return newTextPart(text, opts)
		case typ == "image_url" || (typ == "" && hasImage):
			return parseImage(s["image_url"], opts)
		default:
			return nil, fmt.Errorf("%w: unsupported part type %q", ErrInvalidContent, typ)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported part %T", ErrInvalidContent, spec)
	}
}

func newTextPart(text string, opts []Option) (partTemplate, error) {
	p, err := NewPromptTemplate(text, opts...)
	if err != nil {
		return nil, err
	}
	return &textPartTemplate{text: p}, nil
}

func parseImage(v any, opts []Option) (partTemplate, error) {
	var fields map[string]any
	switch img := v.(type) {
	case string:
		fields = map[string]any{"url": img}
	case map[string]string:
		fields = stringMap(img)
	case map[string]any:
		fields = img
	default:
		return nil, fmt.Errorf("%w: image_url must be a string or an object, got %T", ErrInvalidContent, v)
	}
	leaf := func(key string) (*PromptTemplate, error) {
		raw, ok := fields[key]
		if !ok || raw == nil {
			return nil, nil
		}
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("%w: image_url.%s must be a string", ErrInvalidContent, key)
		}
		if s == "" {
			return nil, nil
		}
		return NewPromptTemplate(s, opts...)
	}
	t := &imagePartTemplate{}
	var err error
	if t.url, err = leaf("url"); err != nil {
		return nil, err
	}
	if t.detail, err = leaf("detail"); err != nil {
		return nil, err
	}
	if t.mimeType, err = leaf("mime_type"); err != nil {
		return nil, err
	}
	if t.data, err = leaf("data"); err != nil {
		return nil, err
	}
	switch {
	case t.url != nil && t.data != nil:
		return nil, fmt.Errorf("%w: image_url has both url and data", ErrInvalidContent)
	case t.url == nil && t.data == nil:
		return nil, fmt.Errorf("%w: image_url needs url or data", ErrInvalidContent)
	case t.data != nil && t.mimeType == nil:
		return nil, fmt.Errorf("%w: image_url data needs mime_type", ErrInvalidContent)
	}
	return t, nil
}

func stringMap(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func partsVariables(parts []partTemplate) []string {
	var set nameSet
	for _, p := range parts {
		for _, name := range p.variables() {
			set.add(name)
		}
	}
	out := slices.Clone(set.names)
	slices.Sort(out)
	return out
}
