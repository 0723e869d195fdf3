// Package memlink provides an in-memory point-to-point transport for tunnel endpoints.
//
// Each end of a Link has a bounded send queue. A full queue refuses packets with
// tunnel.ErrTransportBusy and the refused end receives OnQueueAvailable once Pump has
// moved a packet to the peer. Nothing is delivered until Pump or Step is called, so
// the transport never calls back into an endpoint from inside a send.
package memlink

import (
	"errors"
	"fmt"
	"sync"

	"github.com/arloliu/go-creditlink/internal/queue"
	"github.com/arloliu/go-creditlink/internal/util"
	"github.com/arloliu/go-creditlink/logger"
	"github.com/arloliu/go-creditlink/tunnel"
)

const (
	// DefaultDepth is the default send queue depth of each end.
	DefaultDepth = 4
	// DefaultMTU is the default link MTU.
	DefaultMTU = 247

	headerSize = 3
)

var (
	// ErrUnknownHandle indicates a send on a handle the end does not own.
	ErrUnknownHandle = errors.New("memlink: unknown handle")
	// ErrPacketTooLarge indicates a packet exceeding the link MTU.
	ErrPacketTooLarge = errors.New("memlink: packet exceeds mtu")
	// ErrNotAttached indicates Pump was called before both ends were attached.
	ErrNotAttached = errors.New("memlink: end not attached")
)

type frame struct {
	ch   tunnel.Channel
	data []byte
}

// End is one side of a Link. It implements tunnel.Transport.
type End struct {
	name   string
	handle tunnel.Handle
	addr   tunnel.Addr
	link   *Link
	peer   *End

	mu      sync.Mutex
	outbox  queue.Queue[frame]
	refused bool
	handler tunnel.EventHandler

	notifyCount int
	writeCount  int
	busyCount   int
}

// ensure End implements tunnel.Transport interface.
var _ tunnel.Transport = (*End)(nil)

// Link connects two Ends.
type Link struct {
	depth  int
	mtu    int
	logger logger.Logger
	a, b   *End

	mu       sync.Mutex
	failures []error
}

// Option is a functional option for configuring a Link.
type Option interface {
	apply(*Link) error
}

type optFunc func(*Link) error

func (f optFunc) apply(l *Link) error { return f(l) }

// WithDepth sets the send queue depth of each end, at least 1.
func WithDepth(depth int) Option {
	return optFunc(func(l *Link) error {
		if depth < 1 {
			return fmt.Errorf("memlink: depth %d must be positive", depth)
		}
		l.depth = depth

		return nil
	})
}

// WithMTU sets the link MTU.
func WithMTU(mtu int) Option {
	return optFunc(func(l *Link) error {
		if mtu <= headerSize {
			return fmt.Errorf("memlink: mtu %d too small", mtu)
		}
		l.mtu = mtu

		return nil
	})
}

// WithLogger sets the logger of the link.
func WithLogger(lg logger.Logger) Option {
	return optFunc(func(l *Link) error {
		if lg == nil {
			return errors.New("memlink: logger must not be nil")
		}
		l.logger = lg

		return nil
	})
}

// New creates a link whose ends use handles 1 (A) and 2 (B).
func New(opts ...Option) (*Link, error) {
	l := &Link{
		depth:  DefaultDepth,
		mtu:    DefaultMTU,
		logger: logger.GetLogger(),
	}
	for _, opt := range opts {
		if err := opt.apply(l); err != nil {
			return nil, err
		}
	}
	l.logger = l.logger.With("component", "memlink")

	l.a = &End{
		name:   "A",
		handle: 1,
		addr:   tunnel.Addr{0x02, 0, 0, 0, 0, 0x0a},
		link:   l,
		outbox: queue.NewSliceQueue[frame](l.depth),
	}
	l.b = &End{
		name:   "B",
		handle: 2,
		addr:   tunnel.Addr{0x02, 0, 0, 0, 0, 0x0b},
		link:   l,
		outbox: queue.NewSliceQueue[frame](l.depth),
	}
	l.a.peer, l.b.peer = l.b, l.a

	return l, nil
}

// A returns the first end.
func (l *Link) A() *End { return l.a }

// B returns the second end.
func (l *Link) B() *End { return l.b }

// MTU returns the link MTU.
func (l *Link) MTU() int { return l.mtu }

// Step delivers at most one queued packet from each end. It returns the number of
// packets delivered.
func (l *Link) Step() (int, error) {
	if l.a.getHandler() == nil || l.b.getHandler() == nil {
		return 0, ErrNotAttached
	}

	delivered := 0
	if l.a.deliverOne() {
		delivered++
	}
	if l.b.deliverOne() {
		delivered++
	}

	return delivered, nil
}

// Pump delivers packets in both directions until both send queues are empty.
// It returns the number of packets delivered.
func (l *Link) Pump() (int, error) {
	total := 0
	for {
		n, err := l.Step()
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
		total += n
	}
}

// Failures returns the errors handlers reported for delivered packets.
func (l *Link) Failures() []error {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]error(nil), l.failures...)
}

func (l *Link) addFailure(err error) {
	l.mu.Lock()
	l.failures = append(l.failures, err)
	l.mu.Unlock()
}

// Attach sets the handler receiving this end's inbound events.
func (e *End) Attach(h tunnel.EventHandler) {
	e.mu.Lock()
	e.handler = h
	e.mu.Unlock()
}

// Handle returns the connection handle of this end.
func (e *End) Handle() tunnel.Handle { return e.handle }

// Addr returns the device address of this end.
func (e *End) Addr() tunnel.Addr { return e.addr }

// Peer returns the other end.
func (e *End) Peer() *End { return e.peer }

// Queued returns the number of packets waiting in the send queue.
func (e *End) Queued() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.outbox.Length()
}

// BusyCount returns how many packets the end refused.
func (e *End) BusyCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.busyCount
}

// Counts returns the number of accepted notifications and writes.
func (e *End) Counts() (notify int, write int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.notifyCount, e.writeCount
}

// Notify implements tunnel.Transport.
func (e *End) Notify(h tunnel.Handle, ch tunnel.Channel, p []byte) (int, error) {
	return e.enqueue(h, ch, p, &e.notifyCount)
}

// WriteWithoutResponse implements tunnel.Transport.
func (e *End) WriteWithoutResponse(h tunnel.Handle, ch tunnel.Channel, p []byte) (int, error) {
	return e.enqueue(h, ch, p, &e.writeCount)
}

func (e *End) enqueue(h tunnel.Handle, ch tunnel.Channel, p []byte, counter *int) (int, error) {
	if h != e.handle {
		return 0, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	if len(p) > e.link.mtu-headerSize {
		return 0, fmt.Errorf("%w: %d > %d", ErrPacketTooLarge, len(p), e.link.mtu-headerSize)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.outbox.Length() >= e.link.depth {
		e.refused = true
		e.busyCount++

		return 0, tunnel.ErrTransportBusy
	}

	e.outbox.Enqueue(frame{ch: ch, data: util.CloneSlice(p, len(p))})
	*counter++

	return len(p), nil
}

func (e *End) getHandler() tunnel.EventHandler {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.handler
}

// deliverOne moves the head packet to the peer, then signals free queue space to this
// end's handler if a packet was refused before.
func (e *End) deliverOne() bool {
	e.mu.Lock()
	f, ok := e.outbox.Dequeue()
	wasRefused := ok && e.refused
	if wasRefused {
		e.refused = false
	}
	self := e.handler
	e.mu.Unlock()

	if !ok {
		return false
	}

	peer := e.peer.getHandler()
	if err := peer.OnData(e.peer.handle, f.ch, f.data); err != nil {
		e.link.logger.Warn("peer rejected packet",
			"from", e.name, "channel", f.ch, "len", len(f.data), "error", err)
		e.link.addFailure(err)
	}

	if wasRefused {
		self.OnQueueAvailable(e.handle)
	}

	return true
}
