package verify

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// The python backend runs the comparison program as a subprocess, either in
// a locked-down docker container or directly on the host with a scrubbed
// interpreter. Exit code 0 is a pass, 1 is a clean fail, anything else is
// an execution failure.

const (
	sandboxModeDocker   = "docker"
	sandboxModeHost     = "host"
	sandboxModeDisabled = "disabled"

	pythonDockerImage = "python:3.11-slim"
)

const defaultPythonProgram = `import sys


def canon(s):
    s = s.strip()
    try:
        return float(s.replace(",", ""))
    except ValueError:
        return s


a = canon(sys.argv[1])
b = canon(sys.argv[2])
if isinstance(a, float) and isinstance(b, float):
    ok = abs(a - b) < 1e-9
else:
    ok = str(a) == str(b)
print("PASS" if ok else "FAIL")
sys.exit(0 if ok else 1)
`

type pythonRunner struct {
	mode     string
	program  string
	memoryMB int
	cpus     float64

	bin string // python3 or docker, resolved in setup
}

func newPythonRunner(cfg Config) (*pythonRunner, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.SandboxMode))
	if mode == "" {
		mode = sandboxModeDocker
	}
	switch mode {
	case sandboxModeDocker, sandboxModeHost, sandboxModeDisabled:
	default:
		return nil, fmt.Errorf("verify: unknown sandbox mode %q (expected %s|%s|%s)",
			mode, sandboxModeDocker, sandboxModeHost, sandboxModeDisabled)
	}

	program := cfg.Program
	if strings.TrimSpace(program) == "" {
		program = defaultPythonProgram
	}

	r := &pythonRunner{
		mode:     mode,
		program:  program,
		memoryMB: cfg.MemoryMB,
		cpus:     cfg.CPUs,
	}
	if r.memoryMB <= 0 {
		r.memoryMB = 128
	}
	if r.cpus <= 0 {
		r.cpus = 0.5
	}
	return r, nil
}

func (r *pythonRunner) setup(ctx context.Context) error {
	switch r.mode {
	case sandboxModeDisabled:
		return fmt.Errorf("python sandbox disabled by configuration")
	case sandboxModeHost:
		python, err := exec.LookPath("python3")
		if err != nil {
			return fmt.Errorf("python3 not found: %w", err)
		}
		r.bin = python
		return ctx.Err()
	case sandboxModeDocker:
		return r.dockerReady(ctx)
	}
	return fmt.Errorf("unknown sandbox mode %q", r.mode)
}

func (r *pythonRunner) teardown() error {
	r.bin = ""
	return nil
}

func (r *pythonRunner) run(ctx context.Context, response, truth string) (bool, string, error) {
	if r.bin == "" {
		return false, "", fmt.Errorf("python sandbox not set up")
	}

	tmpDir, scriptPath, cleanup, err := r.writeProgram()
	if err != nil {
		return false, "", err
	}
	defer cleanup()

	var cmd *exec.Cmd
	var containerName string
	switch r.mode {
	case sandboxModeHost:
		cmd = exec.CommandContext(ctx, r.bin, "-I", "-B", scriptPath, response, truth)
		cmd.Dir = tmpDir
		cmd.Env = append(os.Environ(),
			"PYTHONPATH=",
			"PYTHONSAFEPATH=1",
			"HOME="+tmpDir,
		)
	case sandboxModeDocker:
		containerName = fmt.Sprintf("rlgym-verify-%d-%d", os.Getpid(), time.Now().UnixNano())
		args := []string{
			"run",
			"--rm",
			"--name", containerName,
			"--network=none",
			"--read-only",
			"--cap-drop=ALL",
			fmt.Sprintf("--memory=%dm", r.memoryMB),
			fmt.Sprintf("--cpus=%g", r.cpus),
			"--tmpfs", "/tmp:rw,noexec,nosuid,nodev,size=64m",
			"--security-opt", "no-new-privileges",
			"--user", "65534:65534",
			"--env", "PYTHONPATH=",
			"--env", "PYTHONSAFEPATH=1",
			"--env", "HOME=/tmp",
			"--mount", fmt.Sprintf("type=bind,source=%s,target=/tmp/compare.py,readonly", scriptPath),
			pythonDockerImage,
			"python",
			"-I",
			"-B",
			"/tmp/compare.py",
			response,
			truth,
		}
		cmd = exec.CommandContext(ctx, r.bin, args...)
	default:
		return false, "", fmt.Errorf("unknown sandbox mode %q", r.mode)
	}

	out, runErr := cmd.CombinedOutput()
	if ctx.Err() != nil {
		if containerName != "" {
			killCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = exec.CommandContext(killCtx, r.bin, "rm", "-f", containerName).Run()
		}
		return false, "", ctx.Err()
	}
	if runErr != nil {
		if ee, ok := runErr.(*exec.ExitError); ok && ee.ExitCode() == 1 {
			return false, truncateOutput(out, 4096), nil
		}
		return false, "", fmt.Errorf("comparison failed: %s", truncateOutput(out, 4096))
	}
	return true, truncateOutput(out, 4096), nil
}

func (r *pythonRunner) writeProgram() (tmpDir string, path string, cleanup func(), _ error) {
	tmpDir, err := os.MkdirTemp("", "rlgym-verify-*")
	if err != nil {
		return "", "", nil, fmt.Errorf("create temp dir: %w", err)
	}
	cleanup = func() { _ = os.RemoveAll(tmpDir) }

	path = filepath.Join(tmpDir, "compare.py")
	if err := os.WriteFile(path, []byte(r.program), 0o644); err != nil {
		cleanup()
		return "", "", nil, fmt.Errorf("write comparison program: %w", err)
	}

	return tmpDir, path, cleanup, nil
}

func (r *pythonRunner) dockerReady(ctx context.Context) error {
	docker, err := exec.LookPath("docker")
	if err != nil {
		return fmt.Errorf("docker sandbox unavailable: docker not found (install Docker, or set sandbox mode %q; UNSAFE)", sandboxModeHost)
	}

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	version := exec.CommandContext(probeCtx, docker, "version", "--format", "{{.Server.Version}}")
	out, err := version.CombinedOutput()
	if probeCtx.Err() != nil {
		return fmt.Errorf("docker sandbox unavailable: docker version timeout: %w", probeCtx.Err())
	}
	if err != nil {
		return fmt.Errorf("docker sandbox unavailable: docker daemon not reachable: %s", truncateOutput(out, 4096))
	}

	probeCtx, cancel = context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	inspect := exec.CommandContext(probeCtx, docker, "image", "inspect", "-f", "{{.Id}}", pythonDockerImage)
	out, err = inspect.CombinedOutput()
	if probeCtx.Err() != nil {
		return fmt.Errorf("docker sandbox unavailable: image inspect timeout: %w", probeCtx.Err())
	}
	if err != nil {
		return fmt.Errorf("docker sandbox unavailable: missing image %q (run: docker pull %s)", pythonDockerImage, pythonDockerImage)
	}

	r.bin = docker
	return nil
}

func truncateOutput(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if max <= 0 || len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
