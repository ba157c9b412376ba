package chatprompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleTemplate_MultipartImageData(t *testing.T) {
	t.Parallel()
	rt, err := HumanTemplate([]any{
		"Describe this {thing}",
		map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"mime_type": "{mime}", "data": "{b64}"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b64", "mime", "thing"}, rt.InputVariables())

	msg, err := rt.Format(map[string]any{"thing": "cat", "mime": "image/png", "b64": "iVBORw0"})
	require.NoError(t, err)
	assert.True(t, msg.IsMultipart())
	assert.Equal(t, []ContentPart{
		TextPart{Text: "Describe this cat"},
		ImagePart{URL: "data:image/png;base64,iVBORw0"},
	}, msg.Parts)
	assert.Equal(t, "Describe this cat", msg.Text())
}

func TestRoleTemplate_MultipartImageURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		image any
		want  ImagePart
	}{
		{"bare string", "https://example.com/{name}.png", ImagePart{URL: "https://example.com/cat.png"}},
		{"url and detail", map[string]any{"url": "https://example.com/{name}.png", "detail": "low"}, ImagePart{URL: "https://example.com/cat.png", Detail: "low"}},
		{"string map", map[string]string{"url": "https://example.com/{name}.png"}, ImagePart{URL: "https://example.com/cat.png"}},
		{"preformed data uri", "data:image/jpeg;base64,{name}", ImagePart{URL: "data:image/jpeg;base64,cat"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rt, err := HumanTemplate([]map[string]any{{"type": "image_url", "image_url": tt.image}})
			require.NoError(t, err)
			assert.Equal(t, []string{"name"}, rt.InputVariables())
			msg, err := rt.Format(map[string]any{"name": "cat"})
			require.NoError(t, err)
			assert.Equal(t, []ContentPart{tt.want}, msg.Parts)
		})
	}
}

func TestRoleTemplate_MultipartMustache(t *testing.T) {
	t.Parallel()
	rt, err := SystemTemplate([]any{
		map[string]any{"type": "text", "text": "Hello {{name}}"},
		map[string]any{"image_url": "{{url}}"},
	}, WithSyntax(SyntaxMustache))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "url"}, rt.InputVariables())
	msg, err := rt.Format(map[string]any{"name": "Ann", "url": "https://example.com/a.png"})
	require.NoError(t, err)
	assert.Equal(t, []ContentPart{
		TextPart{Text: "Hello Ann"},
		ImagePart{URL: "https://example.com/a.png"},
	}, msg.Parts)
}

func TestRoleTemplate_ContentParts(t *testing.T) {
	t.Parallel()
	rt, err := HumanTemplate([]ContentPart{
		TextPart{Text: "look at {what}"},
		ImagePart{URL: "https://example.com/x.png", Detail: "high"},
	})
	require.NoError(t, err)
	msg, err := rt.Format(map[string]any{"what": "this"})
	require.NoError(t, err)
	assert.Equal(t, []ContentPart{
		TextPart{Text: "look at this"},
		ImagePart{URL: "https://example.com/x.png", Detail: "high"},
	}, msg.Parts)
}

func TestParseParts_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		spec any
	}{
		{"unknown type", map[string]any{"type": "audio", "audio": "x"}},
		{"text not string", map[string]any{"type": "text", "text": 1}},
		{"image not string or map", map[string]any{"type": "image_url", "image_url": 5}},
		{"data without mime", map[string]any{"type": "image_url", "image_url": map[string]any{"data": "AAA"}}},
		{"url and data", map[string]any{"type": "image_url", "image_url": map[string]any{"url": "u", "data": "d", "mime_type": "m"}}},
		{"neither url nor data", map[string]any{"type": "image_url", "image_url": map[string]any{"detail": "low"}}},
		{"unsupported value", 3.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := HumanTemplate([]any{tt.spec})
			require.ErrorIs(t, err, ErrInvalidContent)
		})
	}
}

func TestImagePart_EmptyRenderedURL(t *testing.T) {
	t.Parallel()
	rt, err := HumanTemplate([]any{map[string]any{"image_url": "{url}"}})
	require.NoError(t, err)
	_, err = rt.Format(map[string]any{"url": ""})
	require.ErrorIs(t, err, ErrInvalidContent)
}

func TestImagePart_MissingVariable(t *testing.T) {
	t.Parallel()
	rt, err := HumanTemplate([]any{map[string]any{"image_url": map[string]any{"mime_type": "image/png", "data": "{b64}"}}})
	require.NoError(t, err)
	_, err = rt.Format(nil)
	require.ErrorIs(t, err, ErrMissingVariable)
}
