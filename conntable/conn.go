package conntable

import (
	"fmt"
	"io"

	"github.com/arloliu/go-creditlink/credit"
	"github.com/arloliu/go-creditlink/ringbuf"
)

// SendState is the progress of the single outstanding send on a connection.
type SendState struct {
	// Source supplies the bytes still to be sent.
	Source io.Reader
	// Requested is the total number of bytes of the active send, 0 when idle.
	Requested int
	// Sent is the number of bytes accepted by the transport so far.
	Sent int
	// Scratch is the transmit buffer, sized to the connection's payload size.
	Scratch []byte
	// Staged is the number of bytes at the front of Scratch that were pulled from
	// Source but not yet accepted by the transport.
	Staged int
}

// Active reports whether a send is in progress.
func (s *SendState) Active() bool { return s.Requested > 0 }

// Remaining returns the number of bytes not yet accepted by the transport.
func (s *SendState) Remaining() int { return s.Requested - s.Sent }

// Advance marks n staged bytes as accepted and shifts any leftover staged bytes to
// the front of Scratch.
func (s *SendState) Advance(n int) {
	copy(s.Scratch, s.Scratch[n:s.Staged])
	s.Staged -= n
	s.Sent += n
}

// Clear returns the send state to idle, keeping the scratch storage.
func (s *SendState) Clear() {
	s.Source = nil
	s.Requested = 0
	s.Sent = 0
	s.Staged = 0
}

// Conn is one slot of the connection table.
type Conn struct {
	slot   int
	inUse  bool
	handle Handle
	addr   Addr
	role   Role

	// MTU is the negotiated transport MTU.
	MTU int
	// PayloadSize is the largest single data payload for this connection.
	PayloadSize int
	// AutoDrain makes received data bypass the ring buffer.
	AutoDrain bool

	Ring   *ringbuf.Ring
	Ledger credit.Ledger
	Send   SendState
}

// Slot returns the slot index of the connection.
func (c *Conn) Slot() int { return c.slot }

// InUse returns if the slot holds an active connection.
func (c *Conn) InUse() bool { return c.inUse }

// Handle returns the transport handle of the connection.
func (c *Conn) Handle() Handle { return c.handle }

// Addr returns the peer address of the connection.
func (c *Conn) Addr() Addr { return c.addr }

// Role returns the established role, RoleUnknown until SetRole succeeds.
func (c *Conn) Role() Role { return c.role }

// SetRole establishes the role for the lifetime of the connection.
//
// The first assignment wins. Assigning the same role again is a no-op, a different
// role returns ErrRoleConflict and leaves the established role in place.
func (c *Conn) SetRole(role Role) error {
	if role != RoleClient && role != RoleServer {
		return fmt.Errorf("%w: %s", ErrInvalidRole, role)
	}

	if c.role == RoleUnknown {
		c.role = role
		return nil
	}

	if c.role != role {
		return fmt.Errorf("%w: established %s, requested %s", ErrRoleConflict, c.role, role)
	}

	return nil
}

// SetPayloadSize sets the payload size and resizes the scratch buffer when needed.
// Bytes already staged are kept.
func (c *Conn) SetPayloadSize(size int) {
	c.PayloadSize = size
	if cap(c.Send.Scratch) < size {
		scratch := make([]byte, size)
		copy(scratch, c.Send.Scratch[:c.Send.Staged])
		c.Send.Scratch = scratch

		return
	}
	c.Send.Scratch = c.Send.Scratch[:max(size, c.Send.Staged)]
}

// reset clears all connection-scoped state, keeping ring and scratch storage.
func (c *Conn) reset() {
	c.inUse = false
	c.handle = 0
	c.addr = Addr{}
	c.role = RoleUnknown
	c.MTU = 0
	c.PayloadSize = 0
	c.AutoDrain = false
	c.Ledger.Reset()
	c.Send.Clear()
	if c.Ring != nil {
		c.Ring.Reset()
	}
}
