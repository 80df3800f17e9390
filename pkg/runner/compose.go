package runner

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/crosslang/sdkbench/pkg/envspec"
	"github.com/crosslang/sdkbench/pkg/errors"
)

// ComposeLauncher runs environment specs through `docker compose`. Every
// cell gets its own directory under the work dir holding the generated
// compose file and the captured service output, and its own compose
// project so concurrent cells never touch each other's containers.
type ComposeLauncher struct {
	WorkDir string
	Logger  *log.Logger
}

// NewComposeLauncher creates a launcher writing state under workDir.
func NewComposeLauncher(workDir string, logger *log.Logger) *ComposeLauncher {
	if logger == nil {
		logger = log.Default()
	}
	return &ComposeLauncher{WorkDir: workDir, Logger: logger}
}

// StartServer implements Launcher.
func (l *ComposeLauncher) StartServer(ctx context.Context, spec *envspec.Spec) (Handle, error) {
	file, err := l.writeComposeFile(spec)
	if err != nil {
		return Handle{}, err
	}

	logPath := filepath.Join(filepath.Dir(file), "server.log")
	out, err := l.compose(ctx, spec, file, "up", "--detach", "server")
	if werr := os.WriteFile(logPath, out, 0o644); werr != nil {
		l.Logger.Warn("could not persist server log", "cell", spec.Cell.ID, "error", werr)
	}
	if err != nil {
		return Handle{}, errors.Wrap(errors.ErrCodeEnvStart, err,
			"starting server for cell %s", spec.Cell.ID)
	}
	return Handle{LogRef: logPath}, nil
}

// StartClient implements Launcher. The client service runs to completion
// in the foreground; its exit code is the cell's verdict.
func (l *ComposeLauncher) StartClient(ctx context.Context, spec *envspec.Spec) (Result, error) {
	file := l.composePath(spec)
	logPath := filepath.Join(filepath.Dir(file), "client.log")

	out, err := l.compose(ctx, spec, file, "run", "--rm", "client")
	if werr := os.WriteFile(logPath, out, 0o644); werr != nil {
		l.Logger.Warn("could not persist client log", "cell", spec.Cell.ID, "error", werr)
	}

	res := Result{Output: string(out), LogRef: logPath}
	if err != nil {
		var exitErr *exec.ExitError
		if stderrors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, errors.Wrap(errors.ErrCodeEnvStart, err,
			"running client for cell %s", spec.Cell.ID)
	}
	return res, nil
}

// Teardown implements Launcher. It is safe after partial starts: compose
// down on a project with nothing running is a no-op.
func (l *ComposeLauncher) Teardown(ctx context.Context, spec *envspec.Spec) error {
	file := l.composePath(spec)
	if _, err := os.Stat(file); os.IsNotExist(err) {
		return nil
	}
	out, err := l.compose(ctx, spec, file, "down", "--volumes", "--remove-orphans", "--timeout", "10")
	if err != nil {
		return errors.Wrap(errors.ErrCodeTeardown, err,
			"tearing down cell %s: %s", spec.Cell.ID, bytes.TrimSpace(out))
	}
	return nil
}

func (l *ComposeLauncher) compose(ctx context.Context, spec *envspec.Spec, file string, args ...string) ([]byte, error) {
	argv := append([]string{"compose", "--file", file, "--project-name", "sdkbench-" + spec.Cell.ID}, args...)
	l.Logger.Debug("docker", "args", argv)
	cmd := exec.CommandContext(ctx, "docker", argv...)
	return cmd.CombinedOutput()
}

func (l *ComposeLauncher) composePath(spec *envspec.Spec) string {
	return filepath.Join(l.WorkDir, spec.Cell.ID, "compose.yaml")
}

func (l *ComposeLauncher) writeComposeFile(spec *envspec.Spec) (string, error) {
	data, err := spec.ComposeYAML()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeEnvStart, err,
			"marshalling environment for cell %s", spec.Cell.ID)
	}
	path := l.composePath(spec)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeEnvStart, err,
			"creating work dir for cell %s", spec.Cell.ID)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", errors.Wrap(errors.ErrCodeEnvStart, err,
			"writing compose file for cell %s", spec.Cell.ID)
	}
	return path, nil
}
