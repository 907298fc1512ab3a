package ports

import (
	"context"
	"time"

	"github.com/bft-labs/puppetlink/internal/domain"
)

// ProcessSpec describes how to launch one worker.
type ProcessSpec struct {
	Role        domain.Role
	Executable  string
	SocketToken string
	WorkingDir  string

	// Env is overlaid on the inherited environment.
	Env map[string]string

	// CustomArgs replaces [SocketToken, Mode] for custom-mode roles.
	CustomArgs []string

	// RenderBackend is appended as --rhi-backend <value>.
	RenderBackend string

	// OnFinished is called once, from the supervisor's wait goroutine,
	// when the process exits.
	OnFinished func(exitCode int, status domain.ExitStatus)

	// OnOutput, when set, receives every stdout/stderr line.
	OnOutput func(role string, line string)

	// UsePTY runs the worker on a pseudo-terminal so it line-buffers its
	// output. Only meaningful when OnOutput is set.
	UsePTY bool

	// Debug makes the starter surface the pid through its DebugPrompter
	// before returning.
	Debug bool
}

// Process is a running worker.
type Process interface {
	Pid() int

	// Done is closed once the process has exited and OnFinished returned.
	Done() <-chan struct{}

	// Shutdown stops the process without blocking: it waits terminateAfter
	// for a voluntary exit, terminates, waits until killAfter, then kills.
	Shutdown(terminateAfter, killAfter time.Duration)

	// Kill stops the process immediately.
	Kill() error
}

// ProcessStarter launches workers.
type ProcessStarter interface {
	// Start launches the process described by spec. It returns once the
	// process is running or the context ends.
	Start(ctx context.Context, spec ProcessSpec) (Process, error)
}

// DebugPrompter is shown the pid of a worker started in debug mode and
// blocks until the developer is ready.
type DebugPrompter interface {
	WaitForDebugger(role string, pid int)
}
