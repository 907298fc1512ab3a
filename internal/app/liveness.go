package app

import (
	"sync"
	"time"
)

// DefaultAlivePoll is how long a due liveness check waits for bytes before
// declaring the worker dead.
const DefaultAlivePoll = 10 * time.Millisecond

// LivenessState is the view a LivenessMonitor has of its worker.
type LivenessState int

const (
	LivenessAlive LivenessState = iota
	LivenessSuspected
)

func (s LivenessState) String() string {
	if s == LivenessSuspected {
		return "Suspected"
	}
	return "Alive"
}

// LivenessMonitor declares a worker dead when neither a heartbeat nor any
// socket activity is seen for one interval.
//
// Heartbeat restarts the interval. NoteActivity only marks that bytes were
// read; when the interval expires with activity marked, the monitor re-arms
// instead of firing.
type LivenessMonitor struct {
	interval  time.Duration
	poll      time.Duration
	onTimeout func()

	mu       sync.Mutex
	timer    *time.Timer
	gen      uint64
	state    LivenessState
	activity bool
	stopped  bool
}

// NewLivenessMonitor returns a stopped monitor. onTimeout runs on its own
// goroutine.
func NewLivenessMonitor(interval, poll time.Duration, onTimeout func()) *LivenessMonitor {
	if poll <= 0 {
		poll = DefaultAlivePoll
	}
	return &LivenessMonitor{
		interval:  interval,
		poll:      poll,
		onTimeout: onTimeout,
		stopped:   true,
	}
}

// Start arms the monitor.
func (l *LivenessMonitor) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = false
	l.state = LivenessAlive
	l.armLocked()
}

// Heartbeat records a PuppetAlive and restarts the interval.
func (l *LivenessMonitor) Heartbeat() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped {
		return
	}
	l.state = LivenessAlive
	l.activity = false
	l.armLocked()
}

// NoteActivity records that bytes arrived on the socket.
func (l *LivenessMonitor) NoteActivity() {
	l.mu.Lock()
	l.activity = true
	l.mu.Unlock()
}

// Stop disarms the monitor. A pending timeout will not fire.
func (l *LivenessMonitor) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stopped = true
	l.gen++
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

// State returns the current liveness state.
func (l *LivenessMonitor) State() LivenessState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *LivenessMonitor) armLocked() {
	l.gen++
	gen := l.gen
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.interval, func() { l.expire(gen) })
}

func (l *LivenessMonitor) expire(gen uint64) {
	if l.consumeActivity(gen) {
		return
	}

	time.Sleep(l.poll)

	if l.consumeActivity(gen) {
		return
	}

	l.mu.Lock()
	if l.stopped || gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.state = LivenessSuspected
	l.timer = nil
	l.mu.Unlock()

	if l.onTimeout != nil {
		l.onTimeout()
	}
}

// consumeActivity reports whether the expiry for gen is obsolete, either
// because the monitor moved on or because activity re-armed it.
func (l *LivenessMonitor) consumeActivity(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || gen != l.gen {
		return true
	}
	if l.activity {
		l.activity = false
		l.armLocked()
		return true
	}
	return false
}
