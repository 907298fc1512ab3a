package stubworker

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/wire"
)

type host struct {
	conn   net.Conn
	enc    *wire.Encoder
	frames chan wire.Frame
}

func listen(t *testing.T) (net.Listener, string) {
	t.Helper()
	dir, err := os.MkdirTemp("", "sw")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	path := filepath.Join(dir, "w.sock")
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return ln, path
}

func accept(t *testing.T, ln net.Listener) *host {
	t.Helper()
	conn, err := ln.Accept()
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	h := &host{conn: conn, enc: wire.NewEncoder(conn), frames: make(chan wire.Frame, 64)}
	go func() {
		dec := wire.NewDecoder()
		buf := make([]byte, 4096)
		for {
			n, err := conn.Read(buf)
			if n > 0 {
				_, _ = dec.Write(buf[:n])
				frames, _ := dec.Decode()
				for _, f := range frames {
					h.frames <- f
				}
			}
			if err != nil {
				close(h.frames)
				return
			}
		}
	}()
	return h
}

func (h *host) next(t *testing.T) domain.Command {
	t.Helper()
	select {
	case f, ok := <-h.frames:
		require.True(t, ok, "worker closed the connection")
		return f.Command
	case <-time.After(3 * time.Second):
		require.FailNow(t, "timed out waiting for worker")
		return nil
	}
}

func TestRunAnswersHost(t *testing.T) {
	ln, path := listen(t)

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), path, domain.ModeEditor, Options{AliveInterval: -1})
	}()
	h := accept(t, ln)

	require.NoError(t, h.enc.Send(domain.CreateScene{
		Instances: []domain.Instance{{InstanceID: 1}, {InstanceID: 4}},
	}))
	require.Equal(t, domain.PuppetAlive{}, h.next(t))
	require.Equal(t, domain.ComponentCompleted{InstanceIDs: []int32{1, 4}}, h.next(t))

	// Barriers from the host are consumed, not answered.
	require.NoError(t, h.enc.Send(domain.ChangeFileURL{FileURL: "file:///ignored.qml"}))
	require.NoError(t, h.enc.Send(domain.SyncBarrier{Name: "trace"}))
	require.NoError(t, h.enc.Send(domain.Token{Name: "sync", Number: 3}))
	require.Equal(t, domain.Token{Name: "sync", Number: 3}, h.next(t))

	require.NoError(t, h.enc.Send(domain.EndPuppet{}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "worker did not exit on EndPuppet")
	}
}

func TestRunSendsHeartbeats(t *testing.T) {
	ln, path := listen(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, path, domain.ModeRender, Options{AliveInterval: 10 * time.Millisecond})
	}()
	h := accept(t, ln)

	for i := 0; i < 3; i++ {
		require.Equal(t, domain.PuppetAlive{}, h.next(t))
	}

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "worker did not stop on cancel")
	}
}

func TestRunReturnsWhenHostCloses(t *testing.T) {
	ln, path := listen(t)

	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), path, domain.ModePreview, Options{AliveInterval: -1})
	}()
	h := accept(t, ln)
	require.NoError(t, h.conn.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "worker did not notice the closed connection")
	}
}

func TestRunDialFailure(t *testing.T) {
	err := Run(context.Background(), filepath.Join(t.TempDir(), "missing.sock"), domain.ModeEditor, Options{})
	require.Error(t, err)
}

func TestRunSendsBarrierAfterScene(t *testing.T) {
	ln, path := listen(t)

	received := make(chan string, 4)
	done := make(chan error, 1)
	go func() {
		done <- Run(context.Background(), path, domain.ModeEditor, Options{
			AliveInterval: -1,
			Barrier:       "scene",
			OnBarrier:     func(name string) { received <- name },
		})
	}()
	h := accept(t, ln)

	require.NoError(t, h.enc.Send(domain.CreateScene{Instances: []domain.Instance{{InstanceID: 2}}}))
	require.Equal(t, domain.PuppetAlive{}, h.next(t))
	require.Equal(t, domain.ComponentCompleted{InstanceIDs: []int32{2}}, h.next(t))
	require.Equal(t, domain.SyncBarrier{Name: "scene"}, h.next(t))

	require.NoError(t, h.enc.Send(domain.SyncBarrier{Name: "scene"}))
	select {
	case name := <-received:
		require.Equal(t, "scene", name)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "barrier was not reported")
	}

	// The echoed barrier is not answered.
	require.NoError(t, h.enc.Send(domain.Token{Name: "last"}))
	require.Equal(t, domain.Token{Name: "last"}, h.next(t))

	require.NoError(t, h.enc.Send(domain.EndPuppet{}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		require.FailNow(t, "worker did not exit on EndPuppet")
	}
}
