package driver

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/deskhand/deskhand/internal/logging"
	"github.com/deskhand/deskhand/internal/runtime"
)

// notFoundMarker is what sh and the container CLIs print when a binary is
// missing. Matched as a substring of combined output.
const notFoundMarker = "command not found"

// Shell executes templated container commands through `sh -c`.
type Shell struct {
	// runCommand is swappable in tests. Defaults to running through sh.
	runCommand func(ctx context.Context, command string) (Output, error)
}

// NewShell returns a Driver backed by the host shell.
func NewShell() *Shell {
	s := &Shell{}
	s.runCommand = s.runShell
	return s
}

func (s *Shell) runShell(ctx context.Context, command string) (Output, error) {
	logging.Get().Debug().Str("command", command).Msg("running shell command")
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}
	if classifyErr := classify(out, err); classifyErr != nil {
		return out, classifyErr
	}
	return out, nil
}

// classify maps process results to driver errors, distinguishing a missing
// command (via the output marker) from generic I/O failure.
func classify(out Output, runErr error) error {
	combined := out.Stdout + out.Stderr
	if strings.Contains(combined, notFoundMarker) {
		return fmt.Errorf("%w: %s", ErrCommandNotFound, strings.TrimSpace(out.Stderr))
	}
	if runErr != nil {
		return fmt.Errorf("shell command failed: %w (stderr: %s)", runErr, strings.TrimSpace(out.Stderr))
	}
	return nil
}

func (s *Shell) Start(ctx context.Context, kind runtime.Kind, name string) error {
	command := kind.StartCommand(name)
	if command == "" {
		return fmt.Errorf("start %s: %w", name, ErrUnsupportedRuntime)
	}
	_, err := s.runCommand(ctx, command)
	return err
}

func (s *Shell) Exec(ctx context.Context, kind runtime.Kind, name, inner string) (Output, error) {
	command := kind.ExecCommand(name, inner)
	if command == "" {
		return Output{}, fmt.Errorf("exec in %s: %w", name, ErrUnsupportedRuntime)
	}
	return s.runCommand(ctx, command)
}

func (s *Shell) CopyOut(ctx context.Context, kind runtime.Kind, name, src, dst string) error {
	command := kind.CopyOutCommand(name, src, dst)
	if command == "" {
		return fmt.Errorf("copy out of %s: %w", name, ErrUnsupportedRuntime)
	}
	_, err := s.runCommand(ctx, command)
	return err
}
