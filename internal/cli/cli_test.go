package cli

import (
	"bytes"
	"testing"

	"github.com/specialistvlad/gardengo/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Setenv("GARDENGO_CONCURRENCY", "4")
	t.Setenv("GARDENGO_LOG_LEVEL", "warn")

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, cfg *app.Config)
	}{
		{
			name: "flags before and after the command",
			args: []string{"--force", "deploy", "api", "--hot-reload", "api, web", "worker", "-p", "/work"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, app.CommandDeploy, cfg.Command)
				assert.Equal(t, []string{"api", "worker"}, cfg.Names)
				assert.Equal(t, []string{"api", "web"}, cfg.HotReload)
				assert.True(t, cfg.Force)
				assert.Equal(t, "/work", cfg.ProjectPath)
			},
		},
		{
			name: "environment overrides defaults",
			args: []string{"build"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, 4, cfg.Concurrency)
				assert.Equal(t, "warn", cfg.LogLevel)
				assert.Empty(t, cfg.Names)
			},
		},
		{
			name: "explicit flags win over the environment",
			args: []string{"--concurrency", "2", "--log-level", "DEBUG", "graph"},
			check: func(t *testing.T, cfg *app.Config) {
				assert.Equal(t, 2, cfg.Concurrency)
				assert.Equal(t, "debug", cfg.LogLevel)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, exit, err := Parse(append(tc.args, "--env-file", ""), &bytes.Buffer{})
			require.NoError(t, err)
			require.False(t, exit)
			tc.check(t, cfg)
		})
	}
}

func TestParse_ExitCases(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse(nil, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")

	_, exit, err = Parse([]string{"-h"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.True(t, exit)
}

func TestParse_Errors(t *testing.T) {
	tests := map[string][]string{
		"unknown flag":       {"--nope", "build"},
		"unknown command":    {"publish"},
		"run without tasks":  {"run"},
		"invalid log format": {"--log-format", "xml", "build"},
		"zero concurrency":   {"--concurrency", "0", "build"},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(append(args, "--env-file", ""), &bytes.Buffer{})
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
		})
	}
}
