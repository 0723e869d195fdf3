package conntable

import (
	"fmt"

	"github.com/arloliu/go-creditlink/ringbuf"
)

// DefaultSize is the default number of concurrent connections.
const DefaultSize = 3

// Table is a fixed-capacity pool of connection slots.
//
// Table is not goroutine-safe; it is owned by the tunnel's single processing context.
type Table struct {
	conns []Conn
}

// New creates a table with size slots. A non-positive size selects DefaultSize.
func New(size int) *Table {
	if size <= 0 {
		size = DefaultSize
	}

	t := &Table{conns: make([]Conn, size)}
	for i := range t.conns {
		t.conns[i].slot = i
	}

	return t
}

// Size returns the number of slots.
func (t *Table) Size() int { return len(t.conns) }

// InUse returns the number of allocated slots.
func (t *Table) InUse() int {
	n := 0
	for i := range t.conns {
		if t.conns[i].inUse {
			n++
		}
	}

	return n
}

// Allocate claims a free slot for the connection and initializes its ring buffer with
// ringCapacity bytes.
func (t *Table) Allocate(addr Addr, handle Handle, ringCapacity int) (*Conn, error) {
	if _, err := t.LookupByHandle(handle); err == nil {
		return nil, fmt.Errorf("%w: handle %d", ErrDuplicateHandle, handle)
	}

	for i := range t.conns {
		c := &t.conns[i]
		if c.inUse {
			continue
		}

		if c.Ring == nil {
			c.Ring = &ringbuf.Ring{}
		}
		if err := c.Ring.Init(ringCapacity); err != nil {
			return nil, err
		}

		c.inUse = true
		c.handle = handle
		c.addr = addr

		return c, nil
	}

	return nil, fmt.Errorf("%w: %d slots in use", ErrNoFreeSlot, len(t.conns))
}

// LookupByHandle returns the connection using the given transport handle.
func (t *Table) LookupByHandle(handle Handle) (*Conn, error) {
	for i := range t.conns {
		if t.conns[i].inUse && t.conns[i].handle == handle {
			return &t.conns[i], nil
		}
	}

	return nil, fmt.Errorf("%w: handle %d", ErrNoSuchConn, handle)
}

// LookupByAddr returns the connection to the given peer address.
func (t *Table) LookupByAddr(addr Addr) (*Conn, error) {
	for i := range t.conns {
		if t.conns[i].inUse && t.conns[i].addr == addr {
			return &t.conns[i], nil
		}
	}

	return nil, fmt.Errorf("%w: addr %s", ErrNoSuchConn, addr)
}

// Release returns the slot to the pool, discarding buffered data, credits, role and any
// pending send. Releasing a free slot is a no-op.
func (t *Table) Release(slot int) error {
	if slot < 0 || slot >= len(t.conns) {
		return fmt.Errorf("%w: slot %d", ErrNoSuchConn, slot)
	}

	t.conns[slot].reset()

	return nil
}

// Range calls f for each allocated connection until f returns false.
func (t *Table) Range(f func(c *Conn) bool) {
	for i := range t.conns {
		if t.conns[i].inUse && !f(&t.conns[i]) {
			return
		}
	}
}
