package app

import (
	"net"
	"time"

	"github.com/bft-labs/puppetlink/internal/domain"
	"github.com/bft-labs/puppetlink/internal/ports"
	"github.com/bft-labs/puppetlink/internal/wire"
)

// Connection is the per-role bundle of worker process, socket and liveness
// monitor. All fields are guarded by the owning Manager's mutex, except the
// decoder which belongs to the connection's read loop.
type Connection struct {
	role domain.Role

	process  ports.Process
	socket   net.Conn
	decoder  *wire.Decoder
	liveness *LivenessMonitor

	// gen changes on every clear so that late callbacks from a previous
	// process or socket can recognise they are stale.
	gen uint64

	// live is set once every connection of a setUp has been established.
	live bool

	// pendingExit holds an exit reported before live was set.
	pendingExit *exitReport
}

type exitReport struct {
	code   int
	status domain.ExitStatus
}

func newConnection(role domain.Role) *Connection {
	return &Connection{role: role}
}

// Name is the role name used in logs and crash reasons.
func (c *Connection) Name() string {
	return c.role.Name
}

// Role returns the connection's role.
func (c *Connection) Role() domain.Role {
	return c.role
}

// clear stops liveness, closes the socket and hands the process over to a
// two-stage shutdown. Must be called with the manager mutex held.
func (c *Connection) clear(terminateAfter, killAfter time.Duration) {
	c.gen++
	c.live = false
	c.pendingExit = nil

	if c.liveness != nil {
		c.liveness.Stop()
		c.liveness = nil
	}
	if c.socket != nil {
		_ = c.socket.Close()
		c.socket = nil
	}
	if c.process != nil {
		c.process.Shutdown(terminateAfter, killAfter)
		c.process = nil
	}
	c.decoder = nil
}
