package integration_tests

import (
	"testing"
	"time"

	"github.com/specialistvlad/gardengo/internal/app"
	"github.com/specialistvlad/gardengo/internal/testutil"
	"github.com/stretchr/testify/require"
)

// Test for: fan-in synchronization. A service starts only after all three
// builds it depends on have finished.
func TestDagConcurrency_FanInSynchronization(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"garden.hcl": `
module "x" { type = "recorder" }
module "y" { type = "recorder" }
module "z" { type = "recorder" }
module "gateway" {
  type = "recorder"
  build {
    dependencies = ["x", "y", "z"]
  }
  service "gateway" {}
}
`,
	}
	mockModule := testutil.NewRecorderModule(50 * time.Millisecond)

	// --- Act ---
	result := app.RunIntegrationTest(t, files, app.Config{Command: app.CommandDeploy}, mockModule)
	require.NoError(t, result.Err)

	// --- Assert ---
	records := mockModule.Records()
	deploy := records["deploy.gateway"]
	for _, k := range []string{"build.x", "build.y", "build.z", "build.gateway"} {
		require.Contains(t, records, k)
		require.False(t, deploy.Start.Before(records[k].End), "deploy started before %s finished", k)
	}
	require.True(t, testutil.Overlap(records["build.x"], records["build.y"]), "independent builds did not overlap")
}
