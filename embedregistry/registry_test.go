package embedregistry

import (
	"context"
	"embed"
	"testing"
	"testing/fstest"

	"github.com/skosovsky/chatprompt"
	"github.com/skosovsky/chatprompt/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

//go:embed testdata/prompts/*.yaml
var promptsFS embed.FS

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func firstContent(t *testing.T, tpl *chatprompt.ChatTemplate, values map[string]any) string {
	t.Helper()
	msgs, err := tpl.FormatMessages(values)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	return msgs[0].Content
}

func TestEmbedRegistry_GetTemplate(t *testing.T) {
	t.Parallel()
	reg, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	tpl, err := reg.GetTemplate(context.Background(), "agent", "")
	require.NoError(t, err)
	assert.Equal(t, "agent", tpl.Metadata().ID)
	assert.Equal(t, "Agent Ann", firstContent(t, tpl, map[string]any{"user_name": "Ann"}))
}

func TestEmbedRegistry_GetTemplate_EnvSpecific(t *testing.T) {
	t.Parallel()
	reg, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	tpl, err := reg.GetTemplate(context.Background(), "agent", "prod")
	require.NoError(t, err)
	assert.Equal(t, "Agent prod", firstContent(t, tpl, nil))
	assert.Equal(t, "prod", tpl.Metadata().Environment)
}

func TestEmbedRegistry_GetTemplate_BaseFallback(t *testing.T) {
	t.Parallel()
	reg, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	tpl, err := reg.GetTemplate(context.Background(), "agent", "staging")
	require.NoError(t, err)
	assert.Equal(t, "1", tpl.Metadata().Version)
	assert.Equal(t, "staging", tpl.Metadata().Environment)
}

func TestEmbedRegistry_ManifestSyntax(t *testing.T) {
	t.Parallel()
	reg, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	tpl, err := reg.GetTemplate(context.Background(), "triage", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"ticket"}, tpl.InputVariables())
	assert.Equal(t, "Route 42 to a team.", firstContent(t, tpl, map[string]any{"ticket": map[string]any{"id": 42}}))
}

func TestEmbedRegistry_GetTemplate_NotFound(t *testing.T) {
	t.Parallel()
	reg, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	_, err = reg.GetTemplate(context.Background(), "nonexistent", "")
	require.ErrorIs(t, err, chatprompt.ErrTemplateNotFound)
	_, err = reg.GetTemplate(context.Background(), "a/b", "")
	require.ErrorIs(t, err, chatprompt.ErrInvalidName)
}

func TestEmbedRegistry_List(t *testing.T) {
	t.Parallel()
	reg, err := New(promptsFS, "testdata/prompts")
	require.NoError(t, err)
	names, err := reg.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"agent", "triage"}, names)
}

func TestEmbedRegistry_InvalidManifest(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"prompts/bad.yaml": {Data: []byte("messages: []")},
	}
	_, err := New(fsys, "prompts")
	require.ErrorIs(t, err, chatprompt.ErrInvalidManifest)
}

func TestEmbedRegistry_DefaultSyntaxOption(t *testing.T) {
	t.Parallel()
	fsys := fstest.MapFS{
		"p/j.yaml": {Data: []byte("id: j\nmessages:\n  - role: human\n    content: '{{ q }}'\n")},
	}
	reg, err := New(fsys, "p", manifest.WithDefaultSyntax(chatprompt.SyntaxJinja2))
	require.NoError(t, err)
	tpl, err := reg.GetTemplate(context.Background(), "j", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"q"}, tpl.InputVariables())
}
