package buildstage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func read(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestBuildStager(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	write(t, filepath.Join(root, "lib", "lib.txt"), "lib source")
	write(t, filepath.Join(root, "web", "index.html"), "<html>")
	write(t, filepath.Join(root, "web", "notes.md"), "skip me")

	lib := &config.Module{Name: "lib", Path: filepath.Join(root, "lib")}
	web := &config.Module{
		Name:    "web",
		Path:    filepath.Join(root, "web"),
		Exclude: []string{"*.md"},
		Build: config.BuildConfig{Dependencies: []config.BuildDependency{
			{Name: "lib", Copy: []config.CopySpec{
				{Source: "lib.txt"},
				{Source: "lib.txt", Target: "vendor/"},
				{Source: "lib.txt", Target: "renamed.txt"},
			}},
		}},
	}

	s := New(root)
	assert.Equal(t, filepath.Join(root, ".garden", "build", "web"), s.BuildPath(web))

	require.NoError(t, s.SyncFromSrc(ctx, lib))
	require.NoError(t, s.SyncFromSrc(ctx, web))
	require.NoError(t, s.SyncDependencyProducts(ctx, web))

	webDir := s.BuildPath(web)
	assert.Equal(t, "<html>", read(t, filepath.Join(webDir, "index.html")))
	assert.NoFileExists(t, filepath.Join(webDir, "notes.md"))
	assert.Equal(t, "lib source", read(t, filepath.Join(webDir, "lib.txt")))
	assert.Equal(t, "lib source", read(t, filepath.Join(webDir, "vendor", "lib.txt")))
	assert.Equal(t, "lib source", read(t, filepath.Join(webDir, "renamed.txt")))
}

func TestBuildStager_MissingSource(t *testing.T) {
	root := t.TempDir()
	web := &config.Module{
		Name: "web",
		Path: root,
		Build: config.BuildConfig{Dependencies: []config.BuildDependency{
			{Name: "lib", Copy: []config.CopySpec{{Source: "dist/out.js"}}},
		}},
	}

	err := New(root).SyncDependencyProducts(context.Background(), web)
	assert.ErrorContains(t, err, `copy source "dist/out.js" of dependency lib`)
}

func TestBuildStager_RemovesDeletedSources(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	write(t, filepath.Join(root, "lib", "lib.txt"), "lib source")
	write(t, filepath.Join(root, "web", "index.html"), "<html>")
	write(t, filepath.Join(root, "web", "old", "legacy.js"), "legacy()")

	lib := &config.Module{Name: "lib", Path: filepath.Join(root, "lib")}
	web := &config.Module{
		Name: "web",
		Path: filepath.Join(root, "web"),
		Build: config.BuildConfig{Dependencies: []config.BuildDependency{
			{Name: "lib", Copy: []config.CopySpec{{Source: "lib.txt", Target: "vendor/"}}},
		}},
	}

	s := New(root)
	require.NoError(t, s.SyncFromSrc(ctx, lib))
	require.NoError(t, s.SyncFromSrc(ctx, web))
	require.NoError(t, s.SyncDependencyProducts(ctx, web))

	webDir := s.BuildPath(web)
	write(t, filepath.Join(webDir, "bundle.js"), "stale build output")
	require.FileExists(t, filepath.Join(webDir, "old", "legacy.js"))

	require.NoError(t, os.RemoveAll(filepath.Join(root, "web", "old")))
	require.NoError(t, s.SyncFromSrc(ctx, web))

	assert.NoFileExists(t, filepath.Join(webDir, "old", "legacy.js"))
	assert.NoDirExists(t, filepath.Join(webDir, "old"))
	assert.NoFileExists(t, filepath.Join(webDir, "bundle.js"))
	assert.Equal(t, "<html>", read(t, filepath.Join(webDir, "index.html")))
	assert.Equal(t, "lib source", read(t, filepath.Join(webDir, "vendor", "lib.txt")), "copy products are kept")
}
