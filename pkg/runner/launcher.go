package runner

import (
	"context"

	"github.com/crosslang/sdkbench/pkg/envspec"
)

// Handle identifies a started server side of an environment.
type Handle struct {
	// LogRef points at the captured server output, if any.
	LogRef string
}

// Result is the client side's verdict: the client's own exit status and
// captured output decide passed versus failed.
type Result struct {
	ExitCode int
	Output   string
	LogRef   string
}

// Launcher starts and stops the two sides of an environment spec. The
// runner treats the spec as opaque: it never interprets the runtime
// technology behind it.
type Launcher interface {
	// StartServer brings up the server service and returns once it is
	// launched (not necessarily ready).
	StartServer(ctx context.Context, spec *envspec.Spec) (Handle, error)

	// StartClient runs the client service to completion.
	StartClient(ctx context.Context, spec *envspec.Spec) (Result, error)

	// Teardown terminates both services and removes the environment.
	// It must be safe to call after a partial or failed start.
	Teardown(ctx context.Context, spec *envspec.Spec) error
}
