// Package stubworker is a minimal puppet that speaks the wire protocol. It
// builds no scene; it answers the host the way a real puppet would so that
// the connection layer can be exercised end to end.
package stubworker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/wire"
	"github.com/bft-labs/puppetlink/pkg/log"
)

// DefaultAliveInterval is how often the worker sends PuppetAlive.
const DefaultAliveInterval = time.Second

// Options tunes the stub worker.
type Options struct {
	// AliveInterval is the heartbeat period. Negative disables heartbeats.
	AliveInterval time.Duration
	Logger        log.Logger

	// Barrier, when set, is the name of a SyncBarrier sent after each
	// answered CreateScene. The host echoes it back once.
	Barrier string

	// OnBarrier is called for every SyncBarrier received. Barriers are
	// never answered.
	OnBarrier func(name string)
}

type worker struct {
	mode   string
	logger log.Logger
	opts   Options

	mu  sync.Mutex
	enc *wire.Encoder
}

// Run dials socketPath and serves the host until it sends EndPuppet, the
// connection closes or ctx ends.
func Run(ctx context.Context, socketPath, mode string, opts Options) error {
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.AliveInterval == 0 {
		opts.AliveInterval = DefaultAliveInterval
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return fmt.Errorf("dial host: %w", err)
	}
	defer conn.Close()

	w := &worker{mode: mode, logger: opts.Logger, opts: opts, enc: wire.NewEncoder(conn)}
	w.logger.Info("connected to host", log.String("socket", socketPath), log.String("mode", mode))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()
	if opts.AliveInterval > 0 {
		go w.heartbeat(ctx, opts.AliveInterval)
	}

	err = w.serve(conn)
	if ctx.Err() != nil && !errors.Is(err, errEndPuppet) {
		return ctx.Err()
	}
	if errors.Is(err, errEndPuppet) {
		w.logger.Info("host ended puppet")
		return nil
	}
	return err
}

var errEndPuppet = errors.New("end puppet")

func (w *worker) serve(conn net.Conn) error {
	dec := wire.NewDecoder()
	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			_, _ = dec.Write(buf[:n])
			frames, derr := dec.Decode()
			for _, f := range frames {
				if f.Gap {
					w.logger.Warn("command lost", log.Uint32("counter", f.Counter), log.Uint32("missing", f.Missing))
				}
				if herr := w.handle(f.Command); herr != nil {
					return herr
				}
			}
			if errors.Is(derr, domain.ErrFrameTooLarge) {
				return derr
			}
			if derr != nil {
				w.logger.Warn("dropped undecodable command", log.Err(derr))
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				w.logger.Info("host closed connection")
				return nil
			}
			return err
		}
	}
}

func (w *worker) handle(cmd domain.Command) error {
	switch c := cmd.(type) {
	case domain.CreateScene:
		ids := make([]int32, 0, len(c.Instances))
		for _, inst := range c.Instances {
			ids = append(ids, inst.InstanceID)
		}
		if err := w.send(domain.PuppetAlive{}); err != nil {
			return err
		}
		if err := w.send(domain.ComponentCompleted{InstanceIDs: ids}); err != nil {
			return err
		}
		if w.opts.Barrier != "" {
			return w.send(domain.SyncBarrier{Name: w.opts.Barrier})
		}
		return nil
	case domain.SyncBarrier:
		w.logger.Debug("barrier reached", log.String("name", c.Name))
		if w.opts.OnBarrier != nil {
			w.opts.OnBarrier(c.Name)
		}
		return nil
	case domain.Token:
		return w.send(c)
	case domain.EndPuppet:
		return errEndPuppet
	default:
		w.logger.Debug("ignoring command", log.String("kind", string(cmd.Kind())), log.String("mode", w.mode))
		return nil
	}
}

func (w *worker) send(cmd domain.Command) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Send(cmd)
}

func (w *worker) heartbeat(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.send(domain.PuppetAlive{}); err != nil {
				return
			}
		}
	}
}
