package fileregistry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/skosovsky/chatprompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeManifest(t *testing.T, dir, file, id, content string) {
	t.Helper()
	data := []byte("id: " + id + "\nversion: \"1\"\nmessages:\n  - role: system\n    content: \"" + content + "\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), data, 0o600))
}

func systemText(t *testing.T, tpl *chatprompt.ChatTemplate, values map[string]any) string {
	t.Helper()
	msgs, err := tpl.FormatMessages(values)
	require.NoError(t, err)
	require.NotEmpty(t, msgs)
	return msgs[0].Content
}

func TestFileRegistry_GetTemplate_Success(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "support_agent.yaml", "support_agent", "Hello {user_name}")
	reg := New(dir)
	tpl, err := reg.GetTemplate(context.Background(), "support_agent", "")
	require.NoError(t, err)
	assert.Equal(t, "support_agent", tpl.Metadata().ID)
	assert.Empty(t, tpl.Metadata().Environment)
	assert.Equal(t, []string{"user_name"}, tpl.InputVariables())
}

func TestFileRegistry_GetTemplate_EnvFallback(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "support_agent.yaml", "support_agent", "Base {user_name}")
	reg := New(dir)
	// env "staging" -> try support_agent.staging.yaml (missing), then support_agent.yaml
	tpl, err := reg.GetTemplate(context.Background(), "support_agent", "staging")
	require.NoError(t, err)
	assert.Equal(t, "Base Ann", systemText(t, tpl, map[string]any{"user_name": "Ann"}))
	assert.Equal(t, "staging", tpl.Metadata().Environment)
}

func TestFileRegistry_GetTemplate_EnvSpecific(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "support_agent.yaml", "support_agent", "Base")
	writeManifest(t, dir, "support_agent.production.yaml", "support_agent", "Production")
	reg := New(dir)
	tpl, err := reg.GetTemplate(context.Background(), "support_agent", "production")
	require.NoError(t, err)
	assert.Equal(t, "Production", systemText(t, tpl, nil))
	assert.Equal(t, "production", tpl.Metadata().Environment)
}

func TestFileRegistry_GetTemplate_EnvSpecificInvalidYAML(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "p.yaml", "p", "Base")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "p.prod.yaml"), []byte("id: p\nmessages: [unclosed"), 0o600))
	reg := New(dir)
	_, err := reg.GetTemplate(context.Background(), "p", "prod")
	require.ErrorIs(t, err, chatprompt.ErrInvalidManifest)
}

func TestFileRegistry_GetTemplate_YmlExtension(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "agent.yml", "agent", "From .yml file")
	reg := New(dir)
	tpl, err := reg.GetTemplate(context.Background(), "agent", "")
	require.NoError(t, err)
	assert.Equal(t, "agent", tpl.Metadata().ID)
	assert.Equal(t, "From .yml file", systemText(t, tpl, nil))
}

func TestFileRegistry_WithSyntax(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "m.yaml", "m", "Hi {{name}}")
	reg := New(dir, WithSyntax(chatprompt.SyntaxMustache))
	tpl, err := reg.GetTemplate(context.Background(), "m", "")
	require.NoError(t, err)
	assert.Equal(t, "Hi Ann", systemText(t, tpl, map[string]any{"name": "Ann"}))
}

func TestFileRegistry_GetTemplate_CacheSafety(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "safe.yaml", "safe", "Original")
	reg := New(dir)
	ctx := context.Background()
	tpl1, err := reg.GetTemplate(ctx, "safe", "")
	require.NoError(t, err)
	// Mutate the returned copy: cache must not be affected.
	require.NoError(t, tpl1.Append(chatprompt.Pair("human", "extra")))
	tpl2, err := reg.GetTemplate(ctx, "safe", "")
	require.NoError(t, err)
	assert.Equal(t, 1, tpl2.Len(), "cache must return unchanged template after caller mutated previous copy")
}

func TestFileRegistry_GetTemplate_NotFound(t *testing.T) {
	t.Parallel()
	reg := New(t.TempDir())
	_, err := reg.GetTemplate(context.Background(), "nonexistent", "")
	require.ErrorIs(t, err, chatprompt.ErrTemplateNotFound)
}

func TestFileRegistry_GetTemplate_InvalidName(t *testing.T) {
	t.Parallel()
	reg := New(t.TempDir())
	for _, name := range []string{"", "../etc/passwd", "a/b", ".hidden"} {
		_, err := reg.GetTemplate(context.Background(), name, "")
		require.ErrorIs(t, err, chatprompt.ErrInvalidName, name)
	}
	_, err := reg.GetTemplate(context.Background(), "ok", "../prod")
	require.ErrorIs(t, err, chatprompt.ErrInvalidName)
}

func TestFileRegistry_List(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "b.yaml", "b", "x")
	writeManifest(t, dir, "a.yaml", "a", "x")
	writeManifest(t, dir, "a.prod.yml", "a", "x")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))
	names, err := New(dir).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestFileRegistry_Reload(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "p.yaml", "p", "v1")
	reg := New(dir)
	ctx := context.Background()
	tpl, err := reg.GetTemplate(ctx, "p", "")
	require.NoError(t, err)
	assert.Equal(t, "v1", systemText(t, tpl, nil))
	reg.Reload()
	writeManifest(t, dir, "p.yaml", "p", "v2")
	tpl2, err := reg.GetTemplate(ctx, "p", "")
	require.NoError(t, err)
	assert.Equal(t, "v2", systemText(t, tpl2, nil))
}

func TestFileRegistry_Concurrent(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "p.yaml", "p", "x")
	reg := New(dir)
	ctx := context.Background()
	type result struct {
		tpl *chatprompt.ChatTemplate
		err error
	}
	done := make(chan result, 50)
	for range 50 {
		go func() {
			tpl, err := reg.GetTemplate(ctx, "p", "")
			done <- result{tpl: tpl, err: err}
		}()
	}
	for range 50 {
		r := <-done
		require.NoError(t, r.err)
		require.NotNil(t, r.tpl)
		assert.Equal(t, "p", r.tpl.Metadata().ID)
	}
}

func TestFileRegistry_ConcurrentReloadAndGet(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeManifest(t, dir, "q.yaml", "q", "q")
	reg := New(dir)
	ctx := context.Background()
	done := make(chan struct{})
	for range 30 {
		go func() {
			_, _ = reg.GetTemplate(ctx, "q", "")
			done <- struct{}{}
		}()
	}
	for range 20 {
		go func() {
			reg.Reload()
			done <- struct{}{}
		}()
	}
	for range 50 {
		<-done
	}
}
