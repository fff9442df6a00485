package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Commands understood by App.Run.
const (
	CommandBuild  = "build"
	CommandDeploy = "deploy"
	CommandTest   = "test"
	CommandRun    = "run"
	CommandGraph  = "graph"
)

// EnvPrefix prefixes environment variables that override flags.
const EnvPrefix = "GARDENGO_"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectPath string
	Command     string
	// Names restricts the command to these modules, services, tasks or
	// test modules. Empty means all.
	Names      []string
	Force      bool
	ForceBuild bool
	// HotReload lists services deployed in hot reload mode.
	HotReload []string

	Concurrency     int
	LogFormat       string
	LogLevel        string
	HealthcheckPort int
	EventsURL       string
}

// NewConfig validates cfg and fills defaults.
func NewConfig(cfg Config) (*Config, error) {
	switch cfg.Command {
	case CommandBuild, CommandDeploy, CommandTest, CommandRun, CommandGraph:
	case "":
		return nil, errors.New("a command is required")
	default:
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.Command == CommandRun && len(cfg.Names) == 0 {
		return nil, errors.New("run requires at least one task name")
	}
	if cfg.ProjectPath == "" {
		cfg.ProjectPath = "."
	}
	return &cfg, nil
}

// LoadEnv reads KEY=VALUE pairs from the given .env files into the process
// environment. Variables already set are kept. Missing files are ignored.
func LoadEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnvOverrides overrides fields of cfg from GARDENGO_* variables.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	if v := os.Getenv(EnvPrefix + "EVENTS_URL"); v != "" {
		cfg.EventsURL = v
	}
	if v := os.Getenv(EnvPrefix + "CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sCONCURRENCY: %w", EnvPrefix, err)
		}
		cfg.Concurrency = n
	}
	if v := os.Getenv(EnvPrefix + "HEALTHCHECK_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sHEALTHCHECK_PORT: %w", EnvPrefix, err)
		}
		cfg.HealthcheckPort = n
	}
	return nil
}
