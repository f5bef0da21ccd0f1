// Package driver reaches inside containers: starting them, running commands
// in them and copying directory trees out of them. Commands are templated by
// the runtime package and executed through the host shell, exactly the way a
// user would drive the toolbox/podman CLIs.
package driver

import (
	"context"
	"errors"

	"github.com/deskhand/deskhand/internal/runtime"
)

// ErrCommandNotFound indicates the tool we tried to run inside (or against)
// the container does not exist. Detection is a substring match on captured
// output because the underlying CLIs expose no structured signal for it;
// inherently fragile, kept as-is.
var ErrCommandNotFound = errors.New("command not found")

// ErrUnsupportedRuntime indicates the runtime kind carries no template for
// the requested operation.
var ErrUnsupportedRuntime = errors.New("unsupported container runtime")

// Output captures what a container command wrote.
type Output struct {
	Stdout string
	Stderr string
}

// Driver is the capability consumed by the registrar to reach a container.
type Driver interface {
	// Start ensures the named container is running.
	Start(ctx context.Context, kind runtime.Kind, name string) error
	// Exec runs command inside the named container and captures its output.
	Exec(ctx context.Context, kind runtime.Kind, name, command string) (Output, error)
	// CopyOut recursively copies src (inside the container) to dst on the host.
	CopyOut(ctx context.Context, kind runtime.Kind, name, src, dst string) error
}
