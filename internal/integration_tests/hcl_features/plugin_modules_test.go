package integration_tests

import (
	"testing"

	"github.com/specialistvlad/gardengo/internal/app"
	"github.com/specialistvlad/gardengo/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test for: plugin modules are addressed by their qualified name.
func TestHclFeatures_PluginModules(t *testing.T) {
	files := map[string]string{
		"infra/garden.hcl": `
module "network" {
  type   = "recorder"
  plugin = "infra"
}
module "cluster" {
  type   = "recorder"
  plugin = "infra"
  build {
    dependencies = ["network"]
  }
}
`,
		"app/garden.hcl": `
module "network" {
  type = "recorder"
  build {
    dependencies = ["infra--cluster"]
  }
}
`,
	}
	mockModule := testutil.NewRecorderModule(0)

	result := app.RunIntegrationTest(t, files, app.Config{Command: app.CommandBuild, Names: []string{"network"}}, mockModule)
	require.NoError(t, result.Err)

	records := mockModule.Records()
	assert.Contains(t, records, "build.network")
	assert.Contains(t, records, "build.infra--cluster")
	assert.Contains(t, records, "build.infra--network")
}
