package tunnel

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-creditlink/conntable"
	"github.com/arloliu/go-creditlink/credit"
)

// OnData handles bytes the transport received from the peer.
//
// Data channel bytes are buffered in manual mode, or handed to the receive handler and
// credited back at once in auto-drain mode. A credit channel payload is a grant of transmit
// credits. When the buffer cannot hold all bytes the excess is dropped and an *OverflowError
// is returned.
func (e *Endpoint) OnData(h Handle, ch Channel, p []byte) error {
	c, err := e.lookup(h)
	if err != nil {
		return err
	}

	switch ch {
	case ChannelData:
		return e.receive(c, p)

	case ChannelCredits:
		n, err := credit.DecodeCredits(p)
		if err != nil {
			e.logger.Warn("invalid credit value", "handle", h, "error", err)
			return err
		}
		e.grant(c, int(n))

		return nil

	default:
		e.logger.Warn("data on unknown channel", "handle", h, "channel", ch, "len", len(p))
		return fmt.Errorf("%w: %s", ErrUnknownChannel, ch)
	}
}

func (e *Endpoint) receive(c *conntable.Conn, p []byte) error {
	if len(p) == 0 {
		return nil
	}
	e.metrics.addDataRecv(len(p))

	if c.AutoDrain {
		e.deliverReceived(c, p)
		e.announce(c, len(p))

		return nil
	}

	n, err := c.Ring.Write(p)
	if err != nil {
		oerr := &OverflowError{Handle: c.Handle(), Received: len(p), Accepted: n}
		e.metrics.addOverflowBytes(oerr.Lost())
		e.logger.Warn("receive buffer overflow",
			"handle", c.Handle(), "received", len(p), "accepted", n, "lost", oerr.Lost())

		return oerr
	}

	return nil
}

// Drain removes up to maxLen buffered bytes and credits exactly that many back to the peer.
// A maxLen of 0 or less drains everything. It returns nil when nothing is buffered.
func (e *Endpoint) Drain(h Handle, maxLen int) ([]byte, error) {
	c, err := e.lookup(h)
	if err != nil {
		return nil, err
	}

	size := c.Ring.Len()
	if maxLen > 0 {
		size = min(size, maxLen)
	}
	if size == 0 {
		return nil, nil
	}

	buf := make([]byte, size)
	n, _ := c.Ring.Read(buf)
	e.announce(c, n)

	return buf[:n], nil
}

// OnQueueAvailable handles the transport signal that its send queue has room again.
// Queued credits are flushed first, then a pending send is resumed.
func (e *Endpoint) OnQueueAvailable(h Handle) {
	c, err := e.lookup(h)
	if err != nil {
		return
	}

	n, err := c.Ledger.Flush(c.Ring.Free(), e.creditDeliverer(c))
	if err != nil {
		e.logger.Error("failed to flush queued credits", "handle", h, "error", err)
	} else if n > 0 {
		e.logger.Debug("queued credits flushed", "handle", h, "n", n)
	}

	e.grant(c, 0)
}

func (e *Endpoint) deliverReceived(c *conntable.Conn, p []byte) {
	if e.cfg.receiveHandler != nil {
		e.cfg.receiveHandler(c.Handle(), p)
	}
}

// announce returns justConsumed receive credits, plus any queued ones, to the peer.
func (e *Endpoint) announce(c *conntable.Conn, justConsumed int) {
	n, err := c.Ledger.Announce(justConsumed, c.Ring.Free(), e.creditDeliverer(c))
	if err != nil {
		e.logger.Error("failed to announce credits", "handle", c.Handle(), "n", justConsumed, "error", err)
		return
	}
	if n > 0 {
		e.logger.Debug("credits announced", "handle", c.Handle(), "n", n, "free", c.Ring.Free())
	}
}

func (e *Endpoint) creditDeliverer(c *conntable.Conn) credit.DeliverFunc {
	return func(n int) error {
		value := credit.EncodeCredits(uint16(n)) //nolint:gosec // n is bounded by credit.MaxCredits
		written, err := e.transmit(c, ChannelCredits, value)
		switch {
		case errors.Is(err, ErrTransportBusy):
			e.metrics.incTransportBusyCount()
			e.logger.Debug("credit announcement queued, transport busy", "handle", c.Handle(), "n", n)

			return err

		case err != nil:
			e.metrics.incTransportErrCount()
			return err

		case written != len(value):
			e.metrics.incTransportErrCount()
			return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, written, len(value))
		}

		e.metrics.addCreditsAnnounced(n)

		return nil
	}
}
