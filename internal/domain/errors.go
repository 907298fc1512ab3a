package domain

import "errors"

// Errors returned by the puppet runtime. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when setUp is called on a running manager.
	ErrAlreadyRunning = errors.New("puppetlink: already running")

	// ErrNotRunning is returned when an operation needs established connections.
	ErrNotRunning = errors.New("puppetlink: not running")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("puppetlink: invalid configuration")

	// ErrProcessStart is returned when a worker process could not be started
	// within the start timeout.
	ErrProcessStart = errors.New("puppetlink: puppet process failed to start")

	// ErrSetupTimeout is returned when a worker did not connect back in time.
	ErrSetupTimeout = errors.New("puppetlink: puppet did not connect in time")

	// ErrNotConnected is returned when a command cannot be written because
	// no worker is connected.
	ErrNotConnected = errors.New("puppetlink: no puppet connected")

	// ErrProcessExited is returned when a worker exits during setup.
	ErrProcessExited = errors.New("puppetlink: puppet exited during setup")

	// ErrUnknownCommand is returned when a frame names a command kind this
	// build does not know.
	ErrUnknownCommand = errors.New("puppetlink: unknown command kind")

	// ErrFrameTooLarge is returned when a frame header announces more bytes
	// than the decoder accepts.
	ErrFrameTooLarge = errors.New("puppetlink: frame too large")

	// ErrShutdownTimeout is returned when readers outlive the shutdown grace period.
	ErrShutdownTimeout = errors.New("puppetlink: shutdown timeout")
)
