package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"sort"
	"strings"
	"sync"
)

// outputPrefix marks stdout lines that set outputs.
const outputPrefix = "::set-output "

type commandResult struct {
	exitCode int
	log      string
	outputs  map[string]any
}

// runCommand runs argv in dir with the process environment extended by
// env. A non-zero exit is reported in the result, not as an error.
func runCommand(ctx context.Context, dir string, argv []string, env map[string]string) (*commandResult, error) {
	if len(argv) == 0 {
		return nil, errors.New("command is empty")
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	cmd := osexec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), environ(env)...)

	var stdout bytes.Buffer
	combined := &lockedBuffer{}
	cmd.Stdout = io.MultiWriter(&stdout, combined)
	cmd.Stderr = combined

	err := cmd.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("command %q cancelled: %w", argv[0], ctxErr)
	}

	res := &commandResult{log: combined.String(), outputs: parseOutputs(stdout.String())}
	if err != nil {
		var exitErr *osexec.ExitError
		if !errors.As(err, &exitErr) {
			return nil, fmt.Errorf("failed to execute %q: %w", argv[0], err)
		}
		res.exitCode = exitErr.ExitCode()
	}
	return res, nil
}

// environ returns env as sorted KEY=VALUE pairs.
func environ(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	sort.Strings(out)
	return out
}

func parseOutputs(stdout string) map[string]any {
	outputs := make(map[string]any)
	for _, line := range strings.Split(stdout, "\n") {
		rest, ok := strings.CutPrefix(strings.TrimRight(line, "\r"), outputPrefix)
		if !ok {
			continue
		}
		k, v, ok := strings.Cut(rest, "=")
		if !ok || k == "" {
			continue
		}
		outputs[strings.TrimSpace(k)] = v
	}
	return outputs
}

// lockedBuffer is written to by the stdout and stderr copiers at once.
type lockedBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (l *lockedBuffer) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.Write(p)
}

func (l *lockedBuffer) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.b.String()
}
