package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/ports"
	"github.com/bft-labs/puppetlink/internal/wire"
)

// Default connection timings.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultAliveInterval  = 30 * time.Second
	DefaultTerminateAfter = 3 * time.Second
	DefaultKillAfter      = 6 * time.Second
	DefaultWriteTimeout   = 5 * time.Second
	DefaultReaderGrace    = 2 * time.Second

	readBufferSize = 32 * 1024
)

// ManagerConfig configures the roles a Manager runs and how it runs them.
type ManagerConfig struct {
	Roles      []domain.Role
	Executable string
	WorkingDir string

	// CustomArgs are the worker arguments for custom-mode roles.
	CustomArgs []string

	// Env is overlaid on the computed worker environment.
	Env map[string]string

	RenderBackend string

	// SocketDir holds the listening sockets. Defaults to os.TempDir().
	SocketDir string

	ConnectTimeout time.Duration

	// AliveInterval is the liveness window. Zero disables monitoring.
	AliveInterval time.Duration
	AlivePoll     time.Duration

	TerminateAfter time.Duration
	KillAfter      time.Duration
	WriteTimeout   time.Duration

	// ForwardOutput and DebugPuppet are role selectors: a comma separated
	// list of role names or "all".
	ForwardOutput string
	DebugPuppet   string

	UsePTY bool
}

// DefaultManagerConfig returns a config for the editor, render and preview
// roles. Executable must still be set.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Roles:          domain.DefaultRoles(),
		ConnectTimeout: DefaultConnectTimeout,
		AliveInterval:  DefaultAliveInterval,
		AlivePoll:      DefaultAlivePoll,
		TerminateAfter: DefaultTerminateAfter,
		KillAfter:      DefaultKillAfter,
		WriteTimeout:   DefaultWriteTimeout,
	}
}

func (c *ManagerConfig) applyDefaults() {
	if c.SocketDir == "" {
		c.SocketDir = os.TempDir()
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.AlivePoll <= 0 {
		c.AlivePoll = DefaultAlivePoll
	}
	if c.TerminateAfter <= 0 {
		c.TerminateAfter = DefaultTerminateAfter
	}
	if c.KillAfter <= 0 {
		c.KillAfter = DefaultKillAfter
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// Validate checks the configuration.
func (c ManagerConfig) Validate() error {
	if c.Executable == "" {
		return fmt.Errorf("%w: puppet executable is required", domain.ErrInvalidConfig)
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("%w: at least one role is required", domain.ErrInvalidConfig)
	}
	seen := make(map[string]bool, len(c.Roles))
	for _, r := range c.Roles {
		if r.Name == "" {
			return fmt.Errorf("%w: role name is empty", domain.ErrInvalidConfig)
		}
		if seen[r.Name] {
			return fmt.Errorf("%w: duplicate role %q", domain.ErrInvalidConfig, r.Name)
		}
		seen[r.Name] = true
	}
	if c.KillAfter > 0 && c.TerminateAfter > c.KillAfter {
		return fmt.Errorf("%w: terminate delay must not exceed kill delay", domain.ErrInvalidConfig)
	}
	return nil
}

// Manager owns one Connection per role and is the single read/write surface
// for the worker processes.
//
// Commands written with WriteCommand are sent to every connected worker
// with one shared counter. Inbound frames are dispatched per connection in
// arrival order from that connection's read loop.
type Manager struct {
	starter   ports.ProcessStarter
	logger    ports.Logger
	lifecycle *Lifecycle
	crash     crashSlot

	mu            sync.Mutex
	cfg           ManagerConfig
	connections   []*Connection
	writeCounter  uint32
	dispatcher    ports.Dispatcher
	output        func(role, line string)
	cannotConnect func(error)
}

// NewManager creates a stopped manager. emitter may be nil.
func NewManager(cfg ManagerConfig, starter ports.ProcessStarter, logger ports.Logger, emitter EventEmitter) (*Manager, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		starter:     starter,
		logger:      logger,
		lifecycle:   NewLifecycle(logger, emitter),
		cfg:         cfg,
		connections: connectionsFor(cfg.Roles),
	}
	m.output = func(role, line string) {
		logger.Info("puppet output", ports.String("role", role), ports.String("line", line))
	}
	return m, nil
}

func connectionsFor(roles []domain.Role) []*Connection {
	conns := make([]*Connection, 0, len(roles))
	for _, r := range roles {
		conns = append(conns, newConnection(r))
	}
	return conns
}

func sameRoles(conns []*Connection, roles []domain.Role) bool {
	if len(conns) != len(roles) {
		return false
	}
	for i, c := range conns {
		if c.role != roles[i] {
			return false
		}
	}
	return true
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	return m.lifecycle.State()
}

// IsActive reports whether inbound commands are still dispatched.
func (m *Manager) IsActive() bool {
	return m.lifecycle.Active()
}

// Config returns a copy of the current configuration.
func (m *Manager) Config() ManagerConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg
}

// Reconfigure replaces the configuration. It takes effect at the next
// SetUp; running workers keep their settings.
func (m *Manager) Reconfigure(cfg ManagerConfig) error {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Connections returns the role names in fan-out order.
func (m *Manager) Connections() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.connections))
	for _, c := range m.connections {
		names = append(names, c.Name())
	}
	return names
}

// SetCrashCallback installs fn as the crash callback. It may be called from
// any goroutine. A nil fn removes the callback.
func (m *Manager) SetCrashCallback(fn CrashCallback) {
	m.crash.Set(fn)
}

// SetCannotConnectHandler installs the handler run when SetUp fails.
func (m *Manager) SetCannotConnectHandler(fn func(error)) {
	m.mu.Lock()
	m.cannotConnect = fn
	m.mu.Unlock()
}

// SetOutputHandler replaces the sink for forwarded worker output.
func (m *Manager) SetOutputHandler(fn func(role, line string)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.output = fn
	m.mu.Unlock()
}

// SetUp starts a worker per role and waits for each to connect back.
//
// Roles are established in parallel. If any role fails, every role is torn
// down, the cannot-connect handler runs and the error is returned. The
// waits are bounded by the start and connect timeouts, and by ctx.
func (m *Manager) SetUp(ctx context.Context, d ports.Dispatcher, src SceneSource) error {
	if err := m.lifecycle.TransitionTo(StateStarting, "set up"); err != nil {
		return err
	}

	m.mu.Lock()
	m.dispatcher = d
	m.writeCounter = 0
	cfg := m.cfg
	if !sameRoles(m.connections, cfg.Roles) {
		m.connections = connectionsFor(cfg.Roles)
	}
	conns := append([]*Connection(nil), m.connections...)
	m.mu.Unlock()

	if err := os.MkdirAll(cfg.SocketDir, 0o700); err != nil {
		return m.setUpFailed(cfg, fmt.Errorf("create socket dir: %w", err))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range conns {
		c := c
		g.Go(func() error {
			if err := m.establish(gctx, cfg, c, src); err != nil {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return m.setUpFailed(cfg, err)
	}

	var early *CrashInfo
	m.mu.Lock()
	if m.lifecycle.State() != StateStarting {
		m.mu.Unlock()
		return domain.ErrNotRunning
	}
	for _, c := range conns {
		c.live = true
		if c.pendingExit != nil {
			if early == nil {
				early = &CrashInfo{Role: c.Name(), ExitCode: c.pendingExit.code, Status: c.pendingExit.status}
			}
			c.pendingExit = nil
		}
		if cfg.AliveInterval > 0 && !domain.MatchesRole(cfg.DebugPuppet, c.Name()) {
			c.liveness = m.newLiveness(cfg, c)
			c.liveness.Start()
		}
		m.lifecycle.AddWorker()
		go m.readLoop(c, c.gen, c.socket, c.decoder, c.liveness)
	}
	m.mu.Unlock()

	if err := m.lifecycle.TransitionTo(StateRunning, "puppets connected"); err != nil {
		m.logger.Warn("set up finished after shutdown", ports.Err(err))
		return err
	}

	if early != nil {
		m.processFinished(early.ExitCode, early.Status, early.Role)
	}
	return nil
}

func (m *Manager) setUpFailed(cfg ManagerConfig, err error) error {
	m.mu.Lock()
	m.closeAllLocked(cfg)
	handler := m.cannotConnect
	m.mu.Unlock()

	m.logger.Error("cannot connect to puppets", ports.Err(err))
	_ = m.lifecycle.TransitionTo(StateCrashed, "set up failed")

	if handler != nil {
		handler(err)
	}
	return err
}

// SocketGlob matches the socket files created by SetUp.
const SocketGlob = "p-*.sock"

func socketPath(dir string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	return filepath.Join(dir, "p-"+token+".sock")
}

// establish starts the worker for c and accepts its connection.
func (m *Manager) establish(ctx context.Context, cfg ManagerConfig, c *Connection, src SceneSource) error {
	addr := socketPath(cfg.SocketDir)
	ln, err := net.Listen("unix", addr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer ln.Close()

	m.mu.Lock()
	c.gen++
	gen := c.gen
	m.mu.Unlock()

	name := c.Name()
	spec := ports.ProcessSpec{
		Role:          c.role,
		Executable:    cfg.Executable,
		SocketToken:   addr,
		WorkingDir:    cfg.WorkingDir,
		Env:           BuildEnvironment(c.role, src, cfg.Env),
		CustomArgs:    cfg.CustomArgs,
		RenderBackend: cfg.RenderBackend,
		UsePTY:        cfg.UsePTY,
		Debug:         domain.MatchesRole(cfg.DebugPuppet, name),
		OnFinished: func(code int, status domain.ExitStatus) {
			m.processExited(c, gen, code, status)
		},
	}
	if domain.MatchesRole(cfg.ForwardOutput, name) {
		spec.OnOutput = m.forwardOutput
	}

	proc, err := m.starter.Start(ctx, spec)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if c.gen != gen {
		m.mu.Unlock()
		proc.Shutdown(0, cfg.KillAfter)
		return domain.ErrNotRunning
	}
	c.process = proc
	m.mu.Unlock()

	conn, err := acceptWithin(ctx, ln, proc, cfg.ConnectTimeout)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if c.gen != gen {
		_ = conn.Close()
		return domain.ErrNotRunning
	}
	c.socket = conn
	c.decoder = wire.NewDecoder()
	m.logger.Debug("puppet connected",
		ports.String("role", name),
		ports.Int("pid", proc.Pid()),
	)
	return nil
}

// acceptWithin accepts one connection on ln, giving up when the process
// exits, the timeout elapses or ctx is done.
func acceptWithin(ctx context.Context, ln net.Listener, proc ports.Process, timeout time.Duration) (net.Conn, error) {
	type result struct {
		conn net.Conn
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		ch <- result{conn, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("accept: %w", r.err)
		}
		return r.conn, nil
	case <-proc.Done():
		err = domain.ErrProcessExited
	case <-timer.C:
		err = domain.ErrSetupTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}

	_ = ln.Close()
	go func() {
		if r := <-ch; r.conn != nil {
			_ = r.conn.Close()
		}
	}()
	return nil, err
}

func (m *Manager) forwardOutput(role, line string) {
	m.mu.Lock()
	out := m.output
	m.mu.Unlock()
	out(role, line)
}

func (m *Manager) newLiveness(cfg ManagerConfig, c *Connection) *LivenessMonitor {
	gen := c.gen
	return NewLivenessMonitor(cfg.AliveInterval, cfg.AlivePoll, func() {
		m.connectionLost(c, gen, c.Name()+"_timeout")
	})
}

// WriteCommand frames cmd with the shared counter and writes it to every
// connected worker. A failed write to one worker is logged and does not
// stop the others. The counter advances once per call.
func (m *Manager) WriteCommand(cmd domain.Command) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writeCommandLocked(cmd)
}

func (m *Manager) writeCommandLocked(cmd domain.Command) error {
	return m.writeToLocked(cmd, m.connections)
}

// writeToLocked frames cmd with the shared counter and writes it to each
// of conns that has a socket. The counter advances once.
func (m *Manager) writeToLocked(cmd domain.Command, conns []*Connection) error {
	buf, err := wire.Encode(cmd, m.writeCounter)
	if err != nil {
		m.logger.Error("cannot encode command",
			ports.String("kind", string(cmd.Kind())),
			ports.Err(err),
		)
		return err
	}

	written := 0
	for _, c := range conns {
		if c.socket == nil {
			continue
		}
		_ = c.socket.SetWriteDeadline(time.Now().Add(m.cfg.WriteTimeout))
		if _, err := c.socket.Write(buf); err != nil {
			m.logger.Warn("write to puppet failed",
				ports.String("role", c.Name()),
				ports.String("kind", string(cmd.Kind())),
				ports.Err(err),
			)
			continue
		}
		written++
	}
	m.writeCounter++

	if written == 0 {
		return domain.ErrNotConnected
	}
	return nil
}

// echoBarrier writes a sync barrier back to the connection it came from.
func (m *Manager) echoBarrier(c *Connection, gen uint64, cmd domain.Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.gen != gen {
		return
	}
	_ = m.writeToLocked(cmd, []*Connection{c})
}

func (m *Manager) readLoop(c *Connection, gen uint64, sock net.Conn, dec *wire.Decoder, lm *LivenessMonitor) {
	defer m.lifecycle.WorkerDone()

	buf := make([]byte, readBufferSize)
	for {
		n, err := sock.Read(buf)
		if n > 0 {
			if lm != nil {
				lm.NoteActivity()
			}
			_, _ = dec.Write(buf[:n])
			if !m.readDataStream(c, gen, dec) {
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				m.logger.Debug("puppet socket read failed",
					ports.String("role", c.Name()),
					ports.Err(err),
				)
			}
			return
		}
	}
}

// readDataStream decodes every complete frame buffered for c and dispatches
// them in order. Sync barriers are echoed to the sending worker only instead of being
// dispatched. It returns false when the stream is unusable.
func (m *Manager) readDataStream(c *Connection, gen uint64, dec *wire.Decoder) bool {
	frames, err := dec.Decode()
	if err != nil {
		if errors.Is(err, domain.ErrFrameTooLarge) {
			m.logger.Error("corrupt puppet stream",
				ports.String("role", c.Name()),
				ports.Err(err),
			)
			go m.connectionLost(c, gen, c.Name()+"_protocol")
			return false
		}
		m.logger.Warn("dropped undecodable command",
			ports.String("role", c.Name()),
			ports.Err(err),
		)
	}

	for _, f := range frames {
		if f.Gap {
			m.logger.Warn("command lost",
				ports.String("role", c.Name()),
				ports.Uint32("counter", f.Counter),
				ports.Uint32("missing", f.Missing),
			)
		}
	}

	for _, f := range frames {
		if _, ok := f.Command.(domain.SyncBarrier); ok {
			m.echoBarrier(c, gen, f.Command)
			continue
		}
		m.dispatchCommand(f.Command, c, gen)
	}
	return true
}

func (m *Manager) dispatchCommand(cmd domain.Command, c *Connection, gen uint64) {
	if !m.IsActive() {
		return
	}

	if _, ok := cmd.(domain.PuppetAlive); ok {
		m.mu.Lock()
		lm := c.liveness
		current := c.gen == gen
		m.mu.Unlock()
		if current && lm != nil {
			lm.Heartbeat()
		}
		return
	}

	m.mu.Lock()
	d := m.dispatcher
	m.mu.Unlock()
	if d != nil {
		d.DispatchCommand(cmd, c.Name())
	}
}

// processExited is the OnFinished hook of every worker process.
func (m *Manager) processExited(c *Connection, gen uint64, code int, status domain.ExitStatus) {
	m.mu.Lock()
	if c.gen != gen {
		m.mu.Unlock()
		return
	}
	if !c.live {
		c.pendingExit = &exitReport{code: code, status: status}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.processFinished(code, status, c.Name())
}

// connectionLost tears everything down on behalf of a connection the host
// gave up on.
func (m *Manager) connectionLost(c *Connection, gen uint64, reason string) {
	m.mu.Lock()
	current := c.gen == gen && c.live
	m.mu.Unlock()
	if !current {
		return
	}
	m.processFinished(-1, domain.CrashExit, reason)
}

// processFinished sends EndPuppet, tears down every connection and, for an
// abnormal exit, runs the crash callback.
func (m *Manager) processFinished(code int, status domain.ExitStatus, name string) {
	if !m.IsActive() {
		return
	}

	fields := []ports.Field{
		ports.String("role", name),
		ports.Int("exit_code", code),
		ports.String("exit_status", status.String()),
	}
	if status == domain.CrashExit {
		m.logger.Error("puppet crashed", fields...)
	} else {
		m.logger.Info("puppet finished", fields...)
	}

	m.mu.Lock()
	_ = m.writeCommandLocked(domain.EndPuppet{})
	m.closeAllLocked(m.cfg)
	m.mu.Unlock()

	if status != domain.CrashExit {
		if err := m.lifecycle.TransitionTo(StateStopping, name+" finished"); err == nil {
			_ = m.lifecycle.TransitionTo(StateStopped, name+" finished")
		}
		return
	}

	if err := m.lifecycle.TransitionTo(StateCrashed, name); err != nil {
		return
	}
	m.crash.Invoke(CrashInfo{Role: name, ExitCode: code, Status: status})
}

func (m *Manager) closeAllLocked(cfg ManagerConfig) {
	for _, c := range m.connections {
		c.clear(cfg.TerminateAfter, cfg.KillAfter)
	}
}

// ShutDown sends EndPuppet to every worker and tears all connections down.
// It returns once the read loops have stopped or a grace period elapsed.
func (m *Manager) ShutDown() {
	switch m.lifecycle.State() {
	case StateStopped, StateStopping:
		return
	case StateStarting, StateRunning:
		if err := m.lifecycle.TransitionTo(StateStopping, "shut down"); err != nil {
			return
		}
	}

	m.mu.Lock()
	_ = m.writeCommandLocked(domain.EndPuppet{})
	m.closeAllLocked(m.cfg)
	m.mu.Unlock()

	_ = m.lifecycle.WaitWithTimeout(DefaultReaderGrace)

	if err := m.lifecycle.TransitionTo(StateStopped, "shut down"); err != nil {
		m.logger.Debug("shut down raced with state change", ports.Err(err))
	}
}
