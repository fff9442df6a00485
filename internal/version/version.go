package version

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/specialistvlad/gardengo/internal/config"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/fsutil"
)

// Prefix starts every version string.
const Prefix = "v-"

const hashLength = 10

// DefaultCacheSize bounds the number of memoized file digests.
const DefaultCacheSize = 4096

// Version is the resolved version of a module. It is never mutated once
// computed.
type Version struct {
	VersionString string
	// Files are the module source files, relative to the module path.
	Files []string
}

// TreeVersion is the digest of a module's source files.
type TreeVersion struct {
	Digest string
	Files  []string
}

// Resolver computes module versions.
type Resolver interface {
	// TreeVersion hashes the module's source files.
	TreeVersion(ctx context.Context, m *config.Module) (TreeVersion, error)
	// ModuleVersion combines the module's configuration and tree with the
	// versions of all of its transitive build dependencies, keyed by module
	// name.
	ModuleVersion(ctx context.Context, m *config.Module, deps map[string]Version) (Version, error)
}

// FileResolver is the Resolver that reads module sources from disk. File
// digests are memoized by path, size and modification time.
type FileResolver struct {
	digests *lru.Cache[string, string]
}

// NewResolver returns a FileResolver whose digest cache holds up to
// cacheSize entries.
func NewResolver(cacheSize int) (*FileResolver, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating digest cache: %w", err)
	}
	return &FileResolver{digests: cache}, nil
}

// TreeVersion lists the module files honoring its include and exclude
// patterns and hashes (relative path, file digest) pairs in path order.
func (r *FileResolver) TreeVersion(ctx context.Context, m *config.Module) (TreeVersion, error) {
	files, err := fsutil.ListFiles(m.Path, m.Include, m.Exclude)
	if err != nil {
		return TreeVersion{}, fmt.Errorf("module %s: %w", m.Name, err)
	}

	h := sha256.New()
	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return TreeVersion{}, err
		}
		digest, err := r.fileDigest(filepath.Join(m.Path, filepath.FromSlash(rel)))
		if err != nil {
			return TreeVersion{}, fmt.Errorf("module %s: %w", m.Name, err)
		}
		fmt.Fprintf(h, "%s\x00%s\n", rel, digest)
	}

	ctxlog.FromContext(ctx).Debug("Computed tree version.", "module", m.Name, "files", len(files))
	return TreeVersion{Digest: hex.EncodeToString(h.Sum(nil)), Files: files}, nil
}

// ModuleVersion implements Resolver.
func (r *FileResolver) ModuleVersion(ctx context.Context, m *config.Module, deps map[string]Version) (Version, error) {
	tree, err := r.TreeVersion(ctx, m)
	if err != nil {
		return Version{}, err
	}
	cfg, err := ConfigDigest(m)
	if err != nil {
		return Version{}, err
	}

	depStrings := make(map[string]string, len(deps))
	for name, v := range deps {
		depStrings[name] = v.VersionString
	}
	return Version{
		VersionString: Hash(cfg, tree.Digest, depStrings),
		Files:         tree.Files,
	}, nil
}

// Hash combines a configuration digest, a tree digest and dependency
// versions (module name to version string) into a version string.
// Dependencies are hashed in lexical order of their names.
func Hash(configDigest, treeDigest string, deps map[string]string) string {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	fmt.Fprintf(h, "config:%s\ntree:%s\n", configDigest, treeDigest)
	for _, name := range names {
		fmt.Fprintf(h, "%s=%s\n", name, deps[name])
	}
	return Prefix + hex.EncodeToString(h.Sum(nil))[:hashLength]
}

type configFingerprint struct {
	Type         string                   `json:"type"`
	Command      []string                 `json:"command,omitempty"`
	Dependencies []config.BuildDependency `json:"dependencies,omitempty"`
	Spec         map[string]any           `json:"spec,omitempty"`
}

// ConfigDigest hashes the parts of a module's configuration that affect
// its build output.
func ConfigDigest(m *config.Module) (string, error) {
	deps := append([]config.BuildDependency(nil), m.Build.Dependencies...)
	sort.SliceStable(deps, func(i, j int) bool { return deps[i].Name < deps[j].Name })

	b, err := json.Marshal(configFingerprint{
		Type:         m.Type,
		Command:      m.Build.Command,
		Dependencies: deps,
		Spec:         m.Spec,
	})
	if err != nil {
		return "", fmt.Errorf("module %s: encoding config: %w", m.Name, err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

func (r *FileResolver) fileDigest(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	key := path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)
	if d, ok := r.digests.Get(key); ok {
		return d, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	d := hex.EncodeToString(h.Sum(nil))
	r.digests.Add(key, d)
	return d, nil
}
