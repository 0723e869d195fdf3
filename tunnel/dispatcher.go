package tunnel

import (
	"context"
	"sync/atomic"

	"github.com/arloliu/go-creditlink/internal/queue"
	"github.com/arloliu/go-creditlink/internal/util"
	"github.com/arloliu/go-creditlink/logger"
)

// Dispatcher serializes events for an Endpoint onto a single goroutine.
//
// Transport callbacks and application calls may be posted from any goroutine. They run
// in posting order on the goroutine executing Run, so the Endpoint itself stays
// single-threaded.
type Dispatcher struct {
	ep      *Endpoint
	events  queue.Queue[func(*Endpoint)]
	wake    chan struct{}
	running atomic.Bool
	logger  logger.Logger
}

// ensure Dispatcher implements EventHandler interface.
var _ EventHandler = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher for ep.
func NewDispatcher(ep *Endpoint) *Dispatcher {
	return &Dispatcher{
		ep:     ep,
		events: queue.NewLockFreeQueue[func(*Endpoint)](),
		wake:   make(chan struct{}, 1),
		logger: ep.logger.With("component", "dispatcher"),
	}
}

// Post queues fn to run on the processing goroutine. It never blocks.
func (d *Dispatcher) Post(fn func(*Endpoint)) {
	d.events.Enqueue(fn)
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Do runs fn on the processing goroutine and waits for its result.
// It must not be called from the processing goroutine itself.
func (d *Dispatcher) Do(ctx context.Context, fn func(*Endpoint) error) error {
	done := make(chan error, 1)
	d.Post(func(ep *Endpoint) { done <- fn(ep) })

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// OnData posts a copy of p for the endpoint. Errors are logged since the caller has
// already returned.
func (d *Dispatcher) OnData(h Handle, ch Channel, p []byte) error {
	data := util.CloneSlice(p, len(p))
	d.Post(func(ep *Endpoint) {
		if err := ep.OnData(h, ch, data); err != nil {
			d.logger.Debug("posted data event failed", "handle", h, "channel", ch, "error", err)
		}
	})

	return nil
}

// OnQueueAvailable posts the event for the endpoint.
func (d *Dispatcher) OnQueueAvailable(h Handle) {
	d.Post(func(ep *Endpoint) { ep.OnQueueAvailable(h) })
}

// Run processes posted events until ctx is done. Events still queued at that point are
// dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrDispatcherRunning
	}
	defer d.running.Store(false)

	d.logger.Debug("dispatcher started")
	defer func() { d.logger.Debug("dispatcher stopped", "dropped", d.events.Length()) }()

	for {
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fn, ok := d.events.Dequeue()
			if !ok {
				break
			}
			fn(d.ep)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.wake:
		}
	}
}
