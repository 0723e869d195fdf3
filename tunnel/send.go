package tunnel

import (
	"errors"
	"fmt"
	"io"

	"github.com/arloliu/go-creditlink/conntable"
)

// Send starts sending length bytes read from src and returns immediately.
//
// Packets are emitted while transmit credits last; the rest stays pending and is resumed
// by the peer's next grant or by a queue-available event. Only one send may be active per
// connection; another call returns ErrSendInProgress. Completion is reported through the
// SendCompleteHandler.
//
// src is read in payload-sized pieces as the send progresses, never ahead of credits.
func (e *Endpoint) Send(h Handle, length int, src io.Reader) error {
	c, err := e.lookup(h)
	if err != nil {
		return err
	}

	switch {
	case c.Role() == RoleUnknown:
		return fmt.Errorf("%w: handle %d", ErrRoleNotSet, h)
	case length <= 0:
		return fmt.Errorf("%w: %d", ErrInvalidLength, length)
	case src == nil:
		return ErrSourceNil
	case c.Send.Active():
		return fmt.Errorf("%w: handle %d, %d of %d bytes sent",
			ErrSendInProgress, h, c.Send.Sent, c.Send.Requested)
	}

	c.Send.Source = src
	c.Send.Requested = length
	c.Send.Sent = 0
	c.Send.Staged = 0

	e.logger.Debug("send requested", "handle", h, "length", length, "credits", c.Ledger.TransmitCredits())
	e.sendStep(c)

	return nil
}

// GrantReceived adds n transmit credits to the connection and resumes a pending send.
// A zero grant only resumes.
func (e *Endpoint) GrantReceived(h Handle, n int) error {
	c, err := e.lookup(h)
	if err != nil {
		return err
	}

	e.grant(c, n)

	return nil
}

// Pending returns the number of bytes of the active send not yet accepted by the transport.
func (e *Endpoint) Pending(h Handle) (int, error) {
	c, err := e.lookup(h)
	if err != nil {
		return 0, err
	}

	return c.Send.Remaining(), nil
}

func (e *Endpoint) grant(c *conntable.Conn, n int) {
	if n > 0 {
		c.Ledger.Grant(n)
		e.metrics.addCreditsGranted(n)
		e.logger.Debug("credits granted", "handle", c.Handle(), "n", n, "credits", c.Ledger.TransmitCredits())
	}

	if c.Send.Active() {
		e.sendStep(c)
	}
}

// sendStep emits as many packets as credits, payload size and the transport allow.
func (e *Endpoint) sendStep(c *conntable.Conn) {
	s := &c.Send

	for s.Active() && s.Remaining() > 0 && c.Ledger.HasCredits() {
		chunk := min(s.Remaining(), c.PayloadSize, c.Ledger.TransmitCredits())

		if s.Staged < chunk {
			if _, err := io.ReadFull(s.Source, s.Scratch[s.Staged:chunk]); err != nil {
				e.finishSend(c, fmt.Errorf("%w: %w", ErrSourceRead, err))
				return
			}
			s.Staged = chunk
		}

		n, err := e.transmit(c, ChannelData, s.Scratch[:chunk])
		switch {
		case errors.Is(err, ErrTransportBusy):
			c.Ledger.MarkBackpressured()
			e.metrics.incTransportBusyCount()
			e.logger.Debug("send stalled, transport busy",
				"handle", c.Handle(), "pending", s.Remaining(), "credits", c.Ledger.TransmitCredits())

			return

		case err != nil:
			e.metrics.incTransportErrCount()
			e.logger.Error("failed to send data", "handle", c.Handle(), "chunk", chunk, "error", err)

			return

		case n > chunk:
			e.metrics.incTransportErrCount()
			e.logger.Error("failed to send data", "handle", c.Handle(), "chunk", chunk,
				"error", fmt.Errorf("%w: %d > %d", ErrTransportContract, n, chunk))

			return

		case n == 0:
			// zero-length success: no progress and no backpressure, wait for the next trigger
			e.logger.Debug("transport accepted zero bytes", "handle", c.Handle(), "chunk", chunk)
			return
		}

		if err := c.Ledger.Debit(n); err != nil {
			// n <= chunk <= credits, unreachable unless the ledger is corrupted
			e.logger.Error("credit accounting failed", "handle", c.Handle(), "error", err)
			return
		}
		s.Advance(n)
		e.metrics.addDataSent(n)
	}

	if s.Active() && s.Remaining() == 0 {
		e.finishSend(c, nil)
	} else if s.Active() {
		e.logger.Debug("send waiting for credits", "handle", c.Handle(), "pending", s.Remaining())
	}
}

// finishSend returns the send state to idle before notifying, so the handler may start
// the next send.
func (e *Endpoint) finishSend(c *conntable.Conn, err error) {
	sent := c.Send.Sent
	c.Send.Clear()

	if err != nil {
		e.metrics.incSendFailCount()
		e.logger.Error("send aborted", "handle", c.Handle(), "sent", sent, "error", err)
	} else {
		e.metrics.incSendCompleteCount()
		e.logger.Debug("send completed", "handle", c.Handle(), "sent", sent)
	}

	if e.cfg.sendCompleteHandler != nil {
		e.cfg.sendCompleteHandler(c.Handle(), sent, err)
	}
}
