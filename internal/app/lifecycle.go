package app

import (
	"sync"
	"time"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/ports"
)

// State represents the lifecycle state of a connection manager.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
	StateCrashed
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "Stopped"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateStopping:
		return "Stopping"
	case StateCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// EventEmitter is called when lifecycle state changes.
type EventEmitter interface {
	OnStateChange(previous, current State, reason string)
}

// Lifecycle tracks whether the manager's workers are being started, are
// connected, or are gone, and counts the reader goroutines still running.
type Lifecycle struct {
	mu           sync.RWMutex
	state        State
	wg           sync.WaitGroup
	logger       ports.Logger
	eventEmitter EventEmitter
}

// NewLifecycle creates a lifecycle in StateStopped.
func NewLifecycle(logger ports.Logger, emitter EventEmitter) *Lifecycle {
	return &Lifecycle{
		state:        StateStopped,
		logger:       logger,
		eventEmitter: emitter,
	}
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Active reports whether commands should still be dispatched.
func (l *Lifecycle) Active() bool {
	s := l.State()
	return s == StateStarting || s == StateRunning
}

// TransitionTo attempts to transition to a new state.
//
// Valid transitions:
//   - Stopped -> Starting
//   - Starting -> Running, Crashed, Stopping
//   - Running -> Stopping, Crashed
//   - Stopping -> Stopped
//   - Crashed -> Starting, Stopped
func (l *Lifecycle) TransitionTo(newState State, reason string) error {
	l.mu.Lock()
	oldState := l.state

	var ok bool
	switch oldState {
	case StateStopped:
		ok = newState == StateStarting
	case StateStarting:
		ok = newState == StateRunning || newState == StateCrashed || newState == StateStopping
	case StateRunning:
		ok = newState == StateStopping || newState == StateCrashed
	case StateStopping:
		ok = newState == StateStopped
	case StateCrashed:
		ok = newState == StateStarting || newState == StateStopped
	}
	if !ok {
		l.mu.Unlock()
		switch oldState {
		case StateStarting, StateRunning, StateStopping:
			return domain.ErrAlreadyRunning
		default:
			return domain.ErrNotRunning
		}
	}

	l.state = newState
	l.mu.Unlock()

	// Emit event outside of lock
	if l.eventEmitter != nil {
		l.eventEmitter.OnStateChange(oldState, newState, reason)
	}

	l.logger.Info("state transition",
		ports.String("from", oldState.String()),
		ports.String("to", newState.String()),
		ports.String("reason", reason),
	)

	return nil
}

// CanStart returns true if the manager can be set up.
func (l *Lifecycle) CanStart() bool {
	s := l.State()
	return s == StateStopped || s == StateCrashed
}

// CanStop returns true if the manager has something to shut down.
func (l *Lifecycle) CanStop() bool {
	s := l.State()
	return s == StateStarting || s == StateRunning || s == StateCrashed
}

// AddWorker increments the reader count.
func (l *Lifecycle) AddWorker() {
	l.wg.Add(1)
}

// WorkerDone decrements the reader count.
func (l *Lifecycle) WorkerDone() {
	l.wg.Done()
}

// WaitWithTimeout waits for all readers to finish with a timeout.
// Returns domain.ErrShutdownTimeout if the timeout expires.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		l.logger.Warn("readers still running after shutdown",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
