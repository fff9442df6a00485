package config

import "context"

// Loader is the interface for a format-specific project loader.
type Loader interface {
	// Load reads every project file under root and returns the translated,
	// not yet validated, project model.
	Load(ctx context.Context, root string) (*Project, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, root string) (*Project, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, root string) (*Project, error) {
	return f(ctx, root)
}
