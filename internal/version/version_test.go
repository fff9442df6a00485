package version

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func moduleDir(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func TestHash(t *testing.T) {
	t.Run("format", func(t *testing.T) {
		v := Hash("cfg", "tree", nil)
		assert.True(t, strings.HasPrefix(v, Prefix))
		assert.Len(t, v, len(Prefix)+10)
	})

	t.Run("dependency order does not matter", func(t *testing.T) {
		a := Hash("cfg", "tree", map[string]string{"b": "v-2", "a": "v-1"})
		b := Hash("cfg", "tree", map[string]string{"a": "v-1", "b": "v-2"})
		assert.Equal(t, a, b)
	})

	t.Run("dependency versions change the result", func(t *testing.T) {
		a := Hash("cfg", "tree", map[string]string{"a": "v-1"})
		b := Hash("cfg", "tree", map[string]string{"a": "v-2"})
		assert.NotEqual(t, a, b)
	})
}

func TestFileResolver_ModuleVersion(t *testing.T) {
	ctx := context.Background()
	dir := moduleDir(t, map[string]string{
		"main.go":        "package main",
		"docs/README.md": "docs",
		".garden/cache":  "ignored",
	})
	m := &config.Module{Name: "api", Type: "exec", Path: dir}

	r, err := NewResolver(0)
	require.NoError(t, err)

	v1, err := r.ModuleVersion(ctx, m, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"docs/README.md", "main.go"}, v1.Files)

	t.Run("stable for unchanged inputs", func(t *testing.T) {
		v2, err := r.ModuleVersion(ctx, m, nil)
		require.NoError(t, err)
		assert.Equal(t, v1.VersionString, v2.VersionString)
	})

	t.Run("ignored directories do not count", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".garden", "cache"), []byte("changed"), 0o644))
		v2, err := r.ModuleVersion(ctx, m, nil)
		require.NoError(t, err)
		assert.Equal(t, v1.VersionString, v2.VersionString)
	})

	t.Run("excluded files do not count", func(t *testing.T) {
		excl := *m
		excl.Exclude = []string{"docs/**"}
		before, err := r.ModuleVersion(ctx, &excl, nil)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "docs", "README.md"), []byte("new docs!"), 0o644))
		after, err := r.ModuleVersion(ctx, &excl, nil)
		require.NoError(t, err)
		assert.Equal(t, before.VersionString, after.VersionString)
	})

	t.Run("content changes the version", func(t *testing.T) {
		before, err := r.ModuleVersion(ctx, m, nil)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.go"), []byte("package main // v2"), 0o644))
		after, err := r.ModuleVersion(ctx, m, nil)
		require.NoError(t, err)
		assert.NotEqual(t, before.VersionString, after.VersionString)
	})

	t.Run("dependency versions change the version", func(t *testing.T) {
		a, err := r.ModuleVersion(ctx, m, map[string]Version{"lib": {VersionString: "v-aaaaaaaaaa"}})
		require.NoError(t, err)
		b, err := r.ModuleVersion(ctx, m, map[string]Version{"lib": {VersionString: "v-bbbbbbbbbb"}})
		require.NoError(t, err)
		assert.NotEqual(t, a.VersionString, b.VersionString)
	})

	t.Run("build command changes the version", func(t *testing.T) {
		before, err := r.ModuleVersion(ctx, m, nil)
		require.NoError(t, err)
		changed := *m
		changed.Build.Command = []string{"make"}
		after, err := r.ModuleVersion(ctx, &changed, nil)
		require.NoError(t, err)
		assert.NotEqual(t, before.VersionString, after.VersionString)
	})
}
