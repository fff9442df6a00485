package integration_tests

import (
	"testing"
	"time"

	"github.com/specialistvlad/gardengo/internal/app"
	"github.com/specialistvlad/gardengo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: a build exceeding its timeout fails the run.
func TestErrorHandling_BuildTimeoutFailsRun(t *testing.T) {
	// --- Arrange ---
	files := map[string]string{
		"garden.hcl": `
module "slow" {
  type = "recorder"
  build {
    timeout = "50ms"
  }
}
`,
	}
	mockModule := testutil.NewRecorderModule(5 * time.Second)

	// --- Act ---
	start := time.Now()
	result := app.RunIntegrationTest(t, files, app.Config{Command: app.CommandBuild}, mockModule)

	// --- Assert ---
	require.ErrorIs(t, result.Err, app.ErrTasksFailed)
	assert.Less(t, time.Since(start), 4*time.Second, "timeout was not enforced")
	assert.Contains(t, result.Logs, "timed out")
}
