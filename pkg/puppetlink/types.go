package puppetlink

import (
	"context"

	"github.com/bft-labs/puppetlink/internal/app"
	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/ports"
	"github.com/bft-labs/puppetlink/pkg/log"
)

// Re-exported protocol types.
type (
	Role        = domain.Role
	Command     = domain.Command
	Client      = ports.Client
	ServerProxy = app.ServerProxy

	CreateScene                  = domain.CreateScene
	ChangeValues                 = domain.ChangeValues
	ChangeSelection              = domain.ChangeSelection
	ComponentCompleted           = domain.ComponentCompleted
	ValuesChanged                = domain.ValuesChanged
	ValuesModified               = domain.ValuesModified
	PixmapChanged                = domain.PixmapChanged
	InformationChanged           = domain.InformationChanged
	ChildrenChanged              = domain.ChildrenChanged
	StatePreviewImageChanged     = domain.StatePreviewImageChanged
	Token                        = domain.Token
	DebugOutput                  = domain.DebugOutput
	SceneCreated                 = domain.SceneCreated
	PuppetToCreator              = domain.PuppetToCreator
	Instance                     = domain.Instance
	PropertyValue                = domain.PropertyValue
	RequestModelNodePreviewImage = domain.RequestModelNodePreviewImage
)

// Logger is the interface for structured logging.
type Logger = log.Logger

// LogField represents a structured log field.
type LogField = log.Field

// DebugPrompter is shown the pid of a worker started in debug mode.
type DebugPrompter = ports.DebugPrompter

// Errors re-exported for errors.Is checks.
var (
	ErrAlreadyRunning = domain.ErrAlreadyRunning
	ErrNotRunning     = domain.ErrNotRunning
	ErrInvalidConfig  = domain.ErrInvalidConfig
	ErrSetupTimeout   = domain.ErrSetupTimeout
	ErrProcessStart   = domain.ErrProcessStart
	ErrProcessExited  = domain.ErrProcessExited
	ErrNotConnected   = domain.ErrNotConnected
)

// SocketGlob matches the socket files a Host creates in its socket
// directory.
const SocketGlob = app.SocketGlob

// State is the lifecycle state of a Host.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

func (s State) String() string {
	return toAppState(s).String()
}

// StateChangeEvent is delivered to EventHandler.OnStateChange.
type StateChangeEvent struct {
	Previous State
	Current  State
	Reason   string
}

// CrashEvent describes a crash of the worker set.
type CrashEvent struct {
	// Role is the role that died. A "_timeout" suffix means it stopped
	// answering; "_protocol" means it sent a corrupt stream.
	Role     string
	ExitCode int

	// Attempt counts consecutive crashes, starting at 1.
	Attempt int

	// Restarting is true when the host will set the workers up again.
	Restarting bool
}

// EventHandler receives host events. Calls may come from any goroutine.
type EventHandler interface {
	OnStateChange(StateChangeEvent)
	OnCrash(CrashEvent)
}

// Plugin extends a Host with optional behavior.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on initialization.
type PluginConfig struct {
	// ConfigPath is the configuration file the host was built from, if any.
	ConfigPath string
	Logger     Logger

	// Current returns the active configuration.
	Current func() Config

	// Reload replaces the configuration. Worker settings take effect at
	// the next set up.
	Reload func(Config) error
}

func convertState(s app.State) State {
	switch s {
	case app.StateStarting:
		return StateStarting
	case app.StateRunning:
		return StateRunning
	case app.StateStopping:
		return StateStopping
	case app.StateCrashed:
		return StateCrashed
	default:
		return StateStopped
	}
}

func toAppState(s State) app.State {
	switch s {
	case StateStarting:
		return app.StateStarting
	case StateRunning:
		return app.StateRunning
	case StateStopping:
		return app.StateStopping
	case StateCrashed:
		return app.StateCrashed
	case StateStopped:
		return app.StateStopped
	default:
		return app.State(-1)
	}
}

// eventEmitterWrapper adapts EventHandler to the internal emitter interface.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnStateChange(previous, current app.State, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnStateChange(StateChangeEvent{
		Previous: convertState(previous),
		Current:  convertState(current),
		Reason:   reason,
	})
}
