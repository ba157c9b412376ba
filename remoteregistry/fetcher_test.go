package remoteregistry

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/skosovsky/chatprompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		env   string
		valid bool
	}{
		{"", "", false},
		{"x", "", true},
		{"support_agent", "prod", true},
		{"name-with-dash", "", true},
		{"name/with/slash", "", false},
		{"name\\backslash", "", false},
		{"..", "", false},
		{"name:with:colon", "", false},
		{"ok", "../prod", false},
	}
	for _, tt := range tests {
		t.Run(tt.name+"|"+tt.env, func(t *testing.T) {
			t.Parallel()
			err := ValidateName(tt.name, tt.env)
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, chatprompt.ErrInvalidName)
		})
	}
}

func TestCandidatePaths(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"x.yaml", "x.yml"}, CandidatePaths("x", ""))
	assert.Equal(t,
		[]string{"agent.prod.yaml", "agent.prod.yml", "agent.yaml", "agent.yml"},
		CandidatePaths("agent", "prod"))
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"prompts/agent.yaml":     {Data: []byte("base"), ModTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		"prompts/agent.prod.yml": {Data: []byte("prod")},
		"prompts/triage.yml":     {Data: []byte("triage")},
		"prompts/readme.md":      {Data: []byte("x")},
		"prompts/nested/x.yaml":  {Data: []byte("x")},
		"other/ignored.yaml":     {Data: []byte("x")},
	}
}

func TestFSFetcher_Fetch(t *testing.T) {
	t.Parallel()
	f := NewFSFetcher(testFS(), "prompts")
	ctx := context.Background()

	data, err := f.Fetch(ctx, "agent", "")
	require.NoError(t, err)
	assert.Equal(t, "base", string(data))

	data, err = f.Fetch(ctx, "agent", "prod")
	require.NoError(t, err)
	assert.Equal(t, "prod", string(data))

	data, err = f.Fetch(ctx, "agent", "staging")
	require.NoError(t, err)
	assert.Equal(t, "base", string(data))

	_, err = f.Fetch(ctx, "missing", "")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = f.Fetch(ctx, "../agent", "")
	require.ErrorIs(t, err, chatprompt.ErrInvalidName)
}

func TestFSFetcher_ListIDs(t *testing.T) {
	t.Parallel()
	ids, err := NewFSFetcher(testFS(), "prompts").ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"agent", "triage"}, ids)

	_, err = NewFSFetcher(testFS(), "nope").ListIDs(context.Background())
	require.ErrorIs(t, err, ErrFetchFailed)
}

func TestFSFetcher_Stat(t *testing.T) {
	t.Parallel()
	f := NewFSFetcher(testFS(), "prompts")
	info, err := f.Stat(context.Background(), "agent")
	require.NoError(t, err)
	assert.Equal(t, chatprompt.TemplateInfo{ID: "agent", UpdatedAt: "2026-01-02T03:04:05Z"}, info)

	_, err = f.Stat(context.Background(), "missing")
	require.ErrorIs(t, err, chatprompt.ErrTemplateNotFound)
}

func TestFSFetcher_CanceledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewFSFetcher(testFS(), "").Fetch(ctx, "agent", "")
	require.ErrorIs(t, err, context.Canceled)
}
