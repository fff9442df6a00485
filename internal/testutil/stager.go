package testutil

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/gardengo/internal/buildstage"
	"github.com/specialistvlad/gardengo/internal/config"
)

// FakeStager is a buildstage.Stager that only counts sync calls.
type FakeStager struct {
	Root string

	mu    sync.Mutex
	syncs map[string]int
}

var _ buildstage.Stager = (*FakeStager)(nil)

// BuildPath implements buildstage.Stager.
func (s *FakeStager) BuildPath(m *config.Module) string {
	return filepath.Join(s.Root, m.Name)
}

// SyncFromSrc implements buildstage.Stager.
func (s *FakeStager) SyncFromSrc(_ context.Context, m *config.Module) error {
	s.inc(m.Name)
	return nil
}

// SyncDependencyProducts implements buildstage.Stager.
func (s *FakeStager) SyncDependencyProducts(_ context.Context, m *config.Module) error {
	return nil
}

// Syncs returns how often the module sources were synced.
func (s *FakeStager) Syncs(module string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs[module]
}

func (s *FakeStager) inc(module string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.syncs == nil {
		s.syncs = make(map[string]int)
	}
	s.syncs[module]++
}
