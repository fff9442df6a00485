// Package buildstage prepares the build directory of a module: module
// sources are synced into .garden/build/<module> and files declared in
// build dependency copy specs are copied in from the dependencies' build
// directories.
package buildstage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/otiai10/copy"
	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/fsutil"
)

// DirName is the project-relative directory holding engine state.
const DirName = ".garden"

// Stager prepares module build directories.
type Stager interface {
	BuildPath(m *config.Module) string
	SyncFromSrc(ctx context.Context, m *config.Module) error
	SyncDependencyProducts(ctx context.Context, m *config.Module) error
}

// BuildStager stages builds under <root>/.garden/build.
type BuildStager struct {
	root string
}

var _ Stager = (*BuildStager)(nil)

// New returns a stager for the project rooted at projectRoot.
func New(projectRoot string) *BuildStager {
	return &BuildStager{root: filepath.Join(projectRoot, DirName, "build")}
}

// BuildPath returns the build directory of the module.
func (s *BuildStager) BuildPath(m *config.Module) string {
	return s.buildPath(m.Name)
}

func (s *BuildStager) buildPath(name string) string {
	return filepath.Join(s.root, name)
}

// SyncFromSrc mirrors the module's source files into its build directory.
// Files that are no longer sources are removed, except those under the
// targets of the module's copy specs.
func (s *BuildStager) SyncFromSrc(ctx context.Context, m *config.Module) error {
	dst := s.BuildPath(m)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("creating build directory for %s: %w", m.Name, err)
	}

	files, err := fsutil.ListFiles(m.Path, m.Include, m.Exclude)
	if err != nil {
		return fmt.Errorf("syncing sources of %s: %w", m.Name, err)
	}
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		from := filepath.Join(m.Path, filepath.FromSlash(rel))
		to := filepath.Join(dst, filepath.FromSlash(rel))
		if err := copy.Copy(from, to); err != nil {
			return fmt.Errorf("syncing %s of %s: %w", rel, m.Name, err)
		}
	}

	removed, err := s.prune(m, files)
	if err != nil {
		return fmt.Errorf("pruning build directory of %s: %w", m.Name, err)
	}

	ctxlog.FromContext(ctx).Debug("Synced module sources.", "module", m.Name, "files", len(files), "removed", removed, "build_dir", dst)
	return nil
}

// prune deletes files of the build directory that are neither in files nor
// produced by a copy spec, then drops directories left empty.
func (s *BuildStager) prune(m *config.Module, files []string) (int, error) {
	dst := s.BuildPath(m)
	keep := make(map[string]bool, len(files))
	for _, rel := range files {
		keep[filepath.FromSlash(rel)] = true
	}
	var products []string
	for _, dep := range m.Build.Dependencies {
		for _, c := range dep.Copy {
			rel, err := filepath.Rel(dst, copyTarget(dst, c))
			if err != nil {
				return 0, err
			}
			products = append(products, rel)
		}
	}

	removed := 0
	var dirs []string
	err := filepath.WalkDir(dst, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p == dst {
			return nil
		}
		rel, err := filepath.Rel(dst, p)
		if err != nil {
			return err
		}
		if isProduct(rel, products) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, p)
			return nil
		}
		if keep[rel] {
			return nil
		}
		removed++
		return os.Remove(p)
	})
	if err != nil {
		return removed, err
	}

	// Deepest first; non-empty directories fail to remove and stay.
	for i := len(dirs) - 1; i >= 0; i-- {
		_ = os.Remove(dirs[i])
	}
	return removed, nil
}

func isProduct(rel string, products []string) bool {
	for _, p := range products {
		if rel == p || strings.HasPrefix(rel, p+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// SyncDependencyProducts copies the files named by the module's build
// dependency copy specs into its build directory.
func (s *BuildStager) SyncDependencyProducts(ctx context.Context, m *config.Module) error {
	logger := ctxlog.FromContext(ctx)
	dst := s.BuildPath(m)

	for _, dep := range m.Build.Dependencies {
		for _, c := range dep.Copy {
			if err := ctx.Err(); err != nil {
				return err
			}
			from := filepath.Join(s.buildPath(dep.Name), filepath.FromSlash(c.Source))
			if _, err := os.Stat(from); err != nil {
				return fmt.Errorf("copy source %q of dependency %s: %w", c.Source, dep.Name, err)
			}
			to := copyTarget(dst, c)
			if err := copy.Copy(from, to); err != nil {
				return fmt.Errorf("copying %q from %s: %w", c.Source, dep.Name, err)
			}
			logger.Debug("Copied dependency product.", "module", m.Name, "dependency", dep.Name, "source", c.Source, "target", to)
		}
	}
	return nil
}

// copyTarget resolves where a copy spec lands. Empty targets and targets
// ending in a slash name a directory that receives the source by its base
// name.
func copyTarget(buildDir string, c config.CopySpec) string {
	base := filepath.Base(filepath.FromSlash(c.Source))
	switch {
	case c.Target == "":
		return filepath.Join(buildDir, base)
	case strings.HasSuffix(c.Target, "/"):
		return filepath.Join(buildDir, filepath.FromSlash(c.Target), base)
	}
	return filepath.Join(buildDir, filepath.FromSlash(c.Target))
}
