package puppetlink

import (
	"context"
	"time"

	"github.com/bft-labs/puppetlink/internal/app"
	"github.com/bft-labs/puppetlink/pkg/log"
)

// restartPolicy counts consecutive crashes. A worker set that stayed up
// longer than the maximum backoff resets the count.
type restartPolicy struct {
	backoff  *app.Backoff
	attempts int
	upSince  time.Time
}

func newRestartPolicy(initial time.Duration) restartPolicy {
	return restartPolicy{backoff: app.NewBackoff(initial, app.DefaultBackoffMax)}
}

func (r *restartPolicy) setInitial(initial time.Duration) {
	r.backoff = app.NewBackoff(initial, app.DefaultBackoffMax)
}

func (r *restartPolicy) markUp(now time.Time) {
	r.upSince = now
}

// crashed records a crash and returns the attempt number.
func (r *restartPolicy) crashed(now time.Time) int {
	if !r.upSince.IsZero() && now.Sub(r.upSince) > r.backoff.Max() {
		r.attempts = 0
		r.backoff.Reset()
	}
	r.upSince = time.Time{}
	r.attempts++
	return r.attempts
}

// onCrash runs on the manager's crash callback.
func (h *Host) onCrash(info app.CrashInfo) {
	h.mu.Lock()
	running := h.proxy != nil && h.runCtx.Err() == nil
	attempt := h.restart.crashed(time.Now())
	restarting := running && attempt <= h.config.RestartAttempts
	ctx := h.runCtx
	if restarting {
		h.pending.Add(1)
	}
	h.mu.Unlock()

	h.logger.Error("puppets crashed",
		log.String("role", info.Role),
		log.Int("exit_code", info.ExitCode),
		log.Int("attempt", attempt),
		log.Bool("restarting", restarting),
	)

	h.report(CrashEvent{
		Role:       info.Role,
		ExitCode:   info.ExitCode,
		Attempt:    attempt,
		Restarting: restarting,
	})

	if restarting {
		go h.restartLoop(ctx, info)
	}
}

func (h *Host) report(ev CrashEvent) {
	if h.opts.eventHandler != nil {
		h.opts.eventHandler.OnCrash(ev)
	}
	if h.opts.crashHandler != nil {
		h.opts.crashHandler(ev)
	}
}

// restartLoop sets the workers up again after a backoff. Failed set ups
// count as further attempts; running out of attempts is reported as a
// final crash of the role that started the loop.
func (h *Host) restartLoop(ctx context.Context, cause app.CrashInfo) {
	defer h.pending.Done()

	for {
		h.mu.Lock()
		backoff := h.restart.backoff
		proxy := h.proxy
		cfg := h.config
		h.mu.Unlock()
		if proxy == nil {
			return
		}

		if err := backoff.Wait(ctx); err != nil {
			return
		}

		err := h.manager.SetUp(ctx, proxy, cfg.sceneSource())
		if err == nil {
			h.mu.Lock()
			h.restart.markUp(time.Now())
			h.mu.Unlock()
			h.logger.Info("puppets restarted")
			return
		}
		if ctx.Err() != nil {
			return
		}

		h.mu.Lock()
		attempt := h.restart.crashed(time.Now())
		again := attempt <= h.config.RestartAttempts
		h.mu.Unlock()

		h.logger.Error("puppet restart failed",
			log.Err(err),
			log.Int("attempt", attempt),
			log.Bool("retrying", again),
		)
		if !again {
			h.report(CrashEvent{
				Role:     cause.Role,
				ExitCode: cause.ExitCode,
				Attempt:  attempt,
			})
			return
		}
	}
}
