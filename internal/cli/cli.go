package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/gardengo/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Flags may appear before or after the command. Values from .env files
// and GARDENGO_* variables apply unless the flag is given explicitly.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("gardengo", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
gardengo - A dependency-driven build, deploy and test orchestrator.

Usage:
  gardengo [options] COMMAND [NAME...]

Commands:
  build   [MODULE...]    Build modules and their build dependencies.
  deploy  [SERVICE...]   Deploy services and everything they depend on.
  test    [MODULE...]    Run the tests of modules.
  run     TASK...        Run tasks.
  graph                  Print the dependency graph with module versions.

Options:
`)
		flagSet.PrintDefaults()
	}

	projectFlag := flagSet.String("project", ".", "Path to the project root.")
	pFlag := flagSet.String("p", "", "Path to the project root (shorthand).")
	forceFlag := flagSet.Bool("force", false, "Process tasks even when their results are up to date.")
	forceBuildFlag := flagSet.Bool("force-build", false, "Rebuild modules even when their builds are up to date.")
	hotReloadFlag := flagSet.String("hot-reload", "", "Comma separated services to deploy in hot reload mode.")
	concurrencyFlag := flagSet.Int("concurrency", 6, "Number of tasks processed at once.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	eventsURLFlag := flagSet.String("events-url", "", "socket.io URL that receives task events.")
	envFileFlag := flagSet.String("env-file", ".env", "File with environment variables to load.")

	var positionals []string
	rest := args
	for {
		if err := flagSet.Parse(rest); err != nil {
			if errors.Is(err, flag.ErrHelp) {
				return nil, true, nil
			}
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		if flagSet.NArg() == 0 {
			break
		}
		positionals = append(positionals, flagSet.Arg(0))
		rest = flagSet.Args()[1:]
	}
	slog.Debug("Arguments parsed successfully.", "positionals", positionals)

	if len(positionals) == 0 {
		slog.Debug("No command provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	explicit := make(map[string]bool)
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	if err := app.LoadEnv(*envFileFlag); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg := app.Config{
		ProjectPath:     *projectFlag,
		Command:         positionals[0],
		Names:           positionals[1:],
		Force:           *forceFlag,
		ForceBuild:      *forceBuildFlag,
		HotReload:       splitList(*hotReloadFlag),
		Concurrency:     *concurrencyFlag,
		LogFormat:       strings.ToLower(*logFormatFlag),
		LogLevel:        strings.ToLower(*logLevelFlag),
		HealthcheckPort: *healthPortFlag,
		EventsURL:       *eventsURLFlag,
	}
	if *pFlag != "" {
		cfg.ProjectPath = *pFlag
	}

	overridden := cfg
	if err := app.ApplyEnvOverrides(&overridden); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if !explicit["log-level"] {
		cfg.LogLevel = overridden.LogLevel
	}
	if !explicit["log-format"] {
		cfg.LogFormat = overridden.LogFormat
	}
	if !explicit["concurrency"] {
		cfg.Concurrency = overridden.Concurrency
	}
	if !explicit["healthcheck-port"] {
		cfg.HealthcheckPort = overridden.HealthcheckPort
	}
	if !explicit["events-url"] {
		cfg.EventsURL = overridden.EventsURL
	}

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
		// valid
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	if cfg.Concurrency < 1 {
		return nil, false, &ExitError{Code: 2, Message: "invalid concurrency: must be at least 1"}
	}
	slog.Debug("CLI parameter validation complete.")

	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
