package app

import (
	"context"
	"os"
	"testing"

	"github.com/specialistvlad/gardengo/internal/registry"
	"github.com/specialistvlad/gardengo/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Set
// GARDENGO_TEST_LOGS=true to print the captured log of every test.
func SetupAppTest(t *testing.T, cfg *Config, modules ...registry.Module) (*App, *testutil.SafeBuffer) {
	t.Helper()

	logBuffer := &testutil.SafeBuffer{}
	cfg.LogLevel = "debug"
	testApp, err := NewApp(logBuffer, cfg, modules...)
	if err != nil {
		t.Fatalf("creating app: %v", err)
	}

	t.Cleanup(func() {
		if os.Getenv("GARDENGO_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}

// IntegrationResult holds the outcome of RunIntegrationTest.
type IntegrationResult struct {
	Err    error
	Root   string
	Logs   string
	Output string
}

// RunIntegrationTest writes files into a temporary project, runs the
// command in cfg against it with the given modules and returns the outcome.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg Config, modules ...registry.Module) *IntegrationResult {
	t.Helper()

	root := testutil.WriteFiles(t, files)
	cfg.ProjectPath = root
	full, err := NewConfig(cfg)
	if err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	testApp, logs := SetupAppTest(t, full, modules...)
	out := &testutil.SafeBuffer{}
	testApp.outW = out

	runErr := testApp.Run(context.Background())
	return &IntegrationResult{Err: runErr, Root: root, Logs: logs.String(), Output: out.String()}
}
