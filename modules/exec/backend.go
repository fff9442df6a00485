package exec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/specialistvlad/gardengo/internal/buildstage"
	"github.com/specialistvlad/gardengo/internal/ctxlog"
	"github.com/specialistvlad/gardengo/internal/registry"
)

type backend struct {
	stateDir string
}

func newBackend(root string) *backend {
	return &backend{stateDir: filepath.Join(root, buildstage.DirName)}
}

func (b *backend) versionFile(module string) string {
	return filepath.Join(b.stateDir, "versions", module)
}

func (b *backend) resultFile(key string) string {
	return filepath.Join(b.stateDir, "results", key+".json")
}

func (b *backend) getBuildStatus(_ context.Context, p registry.BuildParams) (registry.BuildStatus, error) {
	data, err := os.ReadFile(b.versionFile(p.Module.Name))
	if errors.Is(err, os.ErrNotExist) {
		return registry.BuildStatus{}, nil
	}
	if err != nil {
		return registry.BuildStatus{}, err
	}
	return registry.BuildStatus{Ready: strings.TrimSpace(string(data)) == p.Version}, nil
}

func (b *backend) build(ctx context.Context, p registry.BuildParams) (registry.BuildOutput, error) {
	logger := ctxlog.FromContext(ctx).With("module", p.Module.Name, "version", p.Version)
	var out registry.BuildOutput

	if len(p.Module.Build.Command) > 0 {
		logger.Debug("Running build command.", "command", p.Module.Build.Command)
		res, err := runCommand(ctx, p.BuildDir, p.Module.Build.Command, map[string]string{"GARDEN_VERSION": p.Version})
		if err != nil {
			return out, err
		}
		out.Log = res.log
		if res.exitCode != 0 {
			return out, fmt.Errorf("build command exited with code %d: %s", res.exitCode, lastLines(res.log, 10))
		}
	}

	if err := writeFile(b.versionFile(p.Module.Name), []byte(p.Version)); err != nil {
		return out, fmt.Errorf("recording build version: %w", err)
	}
	out.Details = map[string]any{"buildDir": p.BuildDir}
	return out, nil
}

func (b *backend) getServiceStatus(_ context.Context, p registry.ServiceParams) (registry.ServiceStatus, error) {
	var st registry.ServiceStatus
	found, err := readJSON(b.resultFile("deploy."+p.Service.Name), &st)
	if err != nil {
		return st, err
	}
	if !found {
		return registry.ServiceStatus{State: registry.StateMissing}, nil
	}
	return st, nil
}

func (b *backend) deployService(ctx context.Context, p registry.ServiceParams) (registry.ServiceStatus, error) {
	st := registry.ServiceStatus{State: registry.StateReady, Version: p.Version, Outputs: map[string]any{}}
	if len(p.Service.Command) > 0 {
		res, err := runCommand(ctx, p.BuildDir, p.Service.Command, p.Env)
		if err != nil {
			return st, err
		}
		if res.exitCode != 0 {
			return registry.ServiceStatus{State: registry.StateUnhealthy, Version: p.Version},
				fmt.Errorf("service command exited with code %d: %s", res.exitCode, lastLines(res.log, 10))
		}
		st.Outputs = res.outputs
	}
	st.DeployedAt = time.Now()
	if err := writeJSON(b.resultFile("deploy."+p.Service.Name), st); err != nil {
		return st, err
	}
	return st, nil
}

func (b *backend) getTaskResult(_ context.Context, p registry.TaskParams) (*registry.RunResult, error) {
	return b.readResult("task." + p.Task.Name)
}

func (b *backend) runTask(ctx context.Context, p registry.TaskParams) (registry.RunResult, error) {
	return b.run(ctx, "task."+p.Task.Name, p.Module.Name, p.Task.Name, p.Version, p.BuildDir, p.Task.Command, p.Env)
}

func (b *backend) getTestResult(_ context.Context, p registry.TestParams) (*registry.RunResult, error) {
	return b.readResult("test." + p.Test.Key())
}

func (b *backend) testModule(ctx context.Context, p registry.TestParams) (registry.RunResult, error) {
	return b.run(ctx, "test."+p.Test.Key(), p.Module.Name, p.Test.Name, p.Version, p.BuildDir, p.Test.Command, p.Env)
}

func (b *backend) readResult(key string) (*registry.RunResult, error) {
	var res registry.RunResult
	found, err := readJSON(b.resultFile(key), &res)
	if err != nil || !found {
		return nil, err
	}
	return &res, nil
}

func (b *backend) run(ctx context.Context, key, module, name, version, dir string, command []string, env map[string]string) (registry.RunResult, error) {
	res := registry.RunResult{
		ModuleName: module,
		Name:       name,
		Version:    version,
		Outputs:    map[string]any{},
		StartedAt:  time.Now(),
	}
	if len(command) == 0 {
		return res, fmt.Errorf("%s has no command", key)
	}

	out, err := runCommand(ctx, dir, command, env)
	if err != nil {
		return res, err
	}
	res.CompletedAt = time.Now()
	res.Success = out.exitCode == 0
	res.Log = out.log
	res.Outputs = out.outputs

	if err := writeJSON(b.resultFile(key), res); err != nil {
		return res, err
	}
	return res, nil
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
