// Package process launches and supervises puppet worker processes.
package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/ports"
)

// DefaultStartTimeout bounds how long Start waits for the process to run.
const DefaultStartTimeout = 8 * time.Second

// Supervisor implements ports.ProcessStarter with os/exec.
type Supervisor struct {
	logger       ports.Logger
	prompter     ports.DebugPrompter
	startTimeout time.Duration
}

// NewSupervisor creates a supervisor. A nil prompter only logs the pid of
// debug-mode workers.
func NewSupervisor(logger ports.Logger, prompter ports.DebugPrompter, startTimeout time.Duration) *Supervisor {
	if startTimeout <= 0 {
		startTimeout = DefaultStartTimeout
	}
	return &Supervisor{
		logger:       logger,
		prompter:     prompter,
		startTimeout: startTimeout,
	}
}

// DefaultRenderBackend returns the rendering backend flag value for the
// current platform.
func DefaultRenderBackend() string {
	switch runtime.GOOS {
	case "windows":
		return "d3d11"
	case "darwin":
		return "metal"
	default:
		return "opengl"
	}
}

// BuildArgs returns the worker argument list for spec.
func BuildArgs(spec ports.ProcessSpec) []string {
	var args []string
	if spec.Role.IsCustom() {
		args = append(args, spec.CustomArgs...)
	} else {
		args = append(args, spec.SocketToken, spec.Role.Mode)
	}
	backend := spec.RenderBackend
	if backend == "" {
		backend = DefaultRenderBackend()
	}
	return append(args, "--rhi-backend", backend)
}

// BuildEnv overlays the given variables on base (KEY=VALUE entries).
// Overlay keys replace existing entries and are appended in sorted order.
func BuildEnv(base []string, overlay map[string]string) []string {
	env := make([]string, 0, len(base)+len(overlay))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, replaced := overlay[key]; replaced {
			continue
		}
		env = append(env, kv)
	}
	keys := make([]string, 0, len(overlay))
	for k := range overlay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, k+"="+overlay[k])
	}
	return env
}

// Start launches the worker and returns once it is running.
func (s *Supervisor) Start(ctx context.Context, spec ports.ProcessSpec) (ports.Process, error) {
	if spec.Executable == "" {
		return nil, fmt.Errorf("%w: no puppet executable configured", domain.ErrProcessStart)
	}

	cmd := exec.Command(spec.Executable, BuildArgs(spec)...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = BuildEnv(os.Environ(), spec.Env)

	p := &process{
		cmd:    cmd,
		role:   spec.Role.Name,
		logger: s.logger,
		done:   make(chan struct{}),
	}

	started := make(chan error, 1)
	go func() { started <- p.start(spec) }()

	timer := time.NewTimer(s.startTimeout)
	defer timer.Stop()

	select {
	case err := <-started:
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", domain.ErrProcessStart, spec.Role.Name, err)
		}
	case <-ctx.Done():
		go p.abandon(started)
		return nil, ctx.Err()
	case <-timer.C:
		go p.abandon(started)
		return nil, fmt.Errorf("%w: %s: no start within %s", domain.ErrProcessStart, spec.Role.Name, s.startTimeout)
	}

	s.logger.Info("puppet started",
		ports.String("role", spec.Role.Name),
		ports.Int("pid", p.Pid()),
		ports.String("executable", spec.Executable),
		ports.Strings("args", cmd.Args[1:]),
	)

	if spec.Debug {
		if s.prompter != nil {
			s.prompter.WaitForDebugger(spec.Role.Name, p.Pid())
		} else {
			s.logger.Warn("puppet started in debug mode, attach a debugger",
				ports.String("role", spec.Role.Name),
				ports.Int("pid", p.Pid()),
			)
		}
	}

	return p, nil
}

type process struct {
	cmd    *exec.Cmd
	role   string
	logger ports.Logger

	ptmx      *os.File
	writers   []*lineWriter
	outputWG  sync.WaitGroup
	done      chan struct{}
	stopOnce  sync.Once
	finishing sync.Once
}

func (p *process) start(spec ports.ProcessSpec) error {
	if spec.OnOutput == nil {
		if err := p.cmd.Start(); err != nil {
			return err
		}
		go p.wait(spec.OnFinished)
		return nil
	}

	emit := func(line string) { spec.OnOutput(spec.Role.Name, line) }

	if spec.UsePTY {
		ptmx, err := pty.Start(p.cmd)
		if err != nil {
			return err
		}
		p.ptmx = ptmx
		p.outputWG.Add(1)
		go func() {
			defer p.outputWG.Done()
			forwardLines(ptmx, emit)
		}()
		go p.wait(spec.OnFinished)
		return nil
	}

	p.writers = []*lineWriter{newLineWriter(emit), newLineWriter(emit)}
	p.cmd.Stdout = p.writers[0]
	p.cmd.Stderr = p.writers[1]
	if err := p.cmd.Start(); err != nil {
		return err
	}
	go p.wait(spec.OnFinished)
	return nil
}

// abandon reaps a process whose start outlived the caller's patience.
func (p *process) abandon(started <-chan error) {
	if err := <-started; err == nil {
		_ = p.Kill()
	}
}

func (p *process) wait(onFinished func(int, domain.ExitStatus)) {
	err := p.cmd.Wait()
	if p.ptmx != nil {
		// The reader sees EOF/EIO once the slave side is gone.
		waitTimeout(&p.outputWG, 200*time.Millisecond)
		_ = p.ptmx.Close()
	}
	for _, w := range p.writers {
		w.Flush()
	}

	code, status := exitInfo(p.cmd.ProcessState)
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		p.logger.Warn("puppet wait failed", ports.String("role", p.role), ports.Err(err))
	}

	p.finishing.Do(func() {
		if onFinished != nil {
			onFinished(code, status)
		}
		close(p.done)
	})
}

func exitInfo(state *os.ProcessState) (int, domain.ExitStatus) {
	if state == nil {
		return -1, domain.CrashExit
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, domain.CrashExit
	}
	code := state.ExitCode()
	if code < 0 {
		return code, domain.CrashExit
	}
	return code, domain.NormalExit
}

func (p *process) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *process) Done() <-chan struct{} {
	return p.done
}

func (p *process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	err := p.cmd.Process.Kill()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *process) terminate() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			return nil
		}
		// no SIGTERM on windows
		return p.Kill()
	}
	return nil
}

func (p *process) Shutdown(terminateAfter, killAfter time.Duration) {
	p.stopOnce.Do(func() {
		go p.escalate(terminateAfter, killAfter)
	})
}

func (p *process) escalate(terminateAfter, killAfter time.Duration) {
	select {
	case <-p.done:
		return
	case <-time.After(terminateAfter):
	}
	p.logger.Warn("puppet did not exit, terminating", ports.String("role", p.role), ports.Int("pid", p.Pid()))
	if err := p.terminate(); err != nil {
		p.logger.Warn("terminate failed", ports.String("role", p.role), ports.Err(err))
	}

	select {
	case <-p.done:
		return
	case <-time.After(killAfter - terminateAfter):
	}
	p.logger.Warn("puppet ignored terminate, killing", ports.String("role", p.role), ports.Int("pid", p.Pid()))
	if err := p.Kill(); err != nil {
		p.logger.Error("kill failed", ports.String("role", p.role), ports.Err(err))
	}
}

func waitTimeout(wg *sync.WaitGroup, d time.Duration) {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	select {
	case <-ch:
	case <-time.After(d):
	}
}
