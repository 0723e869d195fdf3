package credit

import (
	"errors"
	"fmt"
	"math"
)

// MaxCredits is the largest credit amount carried in one announcement.
const MaxCredits = math.MaxUint16

// DeliverFunc hands n receive credits to the transport.
// It returns ErrTransportBusy (possibly wrapped) when the send queue is full.
type DeliverFunc func(n int) error

// Ledger holds transmit and receive credit state for one connection.
// The zero value is a ledger with no credits.
type Ledger struct {
	transmit      int
	queued        int
	backpressured bool

	// lastGrant and sentSinceGrant track the most recent grant window.
	lastGrant      int
	sentSinceGrant int
}

// Reset zeroes all credit state.
func (l *Ledger) Reset() {
	*l = Ledger{}
}

// TransmitCredits returns the number of bytes that may be sent without a further grant.
func (l *Ledger) TransmitCredits() int { return l.transmit }

// HasCredits reports whether at least one byte may be sent.
func (l *Ledger) HasCredits() bool { return l.transmit > 0 }

// QueuedCredits returns receive credits not yet announced to the peer.
func (l *Ledger) QueuedCredits() int { return l.queued }

// Backpressured reports whether the last announce or send was refused with a full queue.
func (l *Ledger) Backpressured() bool { return l.backpressured }

// LastGrant returns the available transmit credits right after the most recent non-zero grant.
func (l *Ledger) LastGrant() int { return l.lastGrant }

// SentSinceGrant returns the number of bytes debited since the most recent non-zero grant.
func (l *Ledger) SentSinceGrant() int { return l.sentSinceGrant }

// Grant adds n transmit credits. A zero grant changes nothing; callers use it to
// re-trigger a stalled send.
func (l *Ledger) Grant(n int) {
	if n <= 0 {
		return
	}
	l.transmit += n
	l.lastGrant = l.transmit
	l.sentSinceGrant = 0
}

// Debit consumes n transmit credits after the transport accepted n bytes.
func (l *Ledger) Debit(n int) error {
	if n < 0 || n > l.transmit {
		return fmt.Errorf("%w: debit %d, available %d", ErrInsufficientCredits, n, l.transmit)
	}
	l.transmit -= n
	l.sentSinceGrant += n

	return nil
}

// MarkBackpressured records that the transport refused a data packet.
func (l *Ledger) MarkBackpressured() {
	l.backpressured = true
}

// CreditToReturn returns the receive credits to announce after the buffer accepted
// justConsumed bytes. The amount never exceeds free, the actual remaining buffer space.
func (l *Ledger) CreditToReturn(justConsumed int, free int) int {
	return max(0, min(justConsumed+l.queued, free, MaxCredits))
}

// Announce returns justConsumed receive credits to the peer together with any queued amount.
//
// While backpressured no transport call is made and justConsumed is only accumulated.
// On success it returns the number of credits delivered. When deliver reports
// ErrTransportBusy the amount becomes queued and the ledger turns backpressured; the
// busy error is not returned because a later Flush retries it. Any other error leaves the
// ledger exactly as it was and is returned to the caller.
func (l *Ledger) Announce(justConsumed int, free int, deliver DeliverFunc) (int, error) {
	if justConsumed < 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidCreditValue, justConsumed)
	}

	if l.backpressured {
		l.queued += justConsumed
		return 0, nil
	}

	return l.deliver(l.CreditToReturn(justConsumed, free), deliver)
}

// Flush retries a queued announcement after the transport signalled free queue space.
//
// The whole queued amount is delivered in a single call or not at all.
func (l *Ledger) Flush(free int, deliver DeliverFunc) (int, error) {
	l.backpressured = false
	if l.queued == 0 {
		return 0, nil
	}

	return l.deliver(l.CreditToReturn(0, free), deliver)
}

func (l *Ledger) deliver(n int, deliver DeliverFunc) (int, error) {
	if n == 0 {
		return 0, nil
	}

	err := deliver(n)
	switch {
	case err == nil:
		l.queued = 0
		l.backpressured = false

		return n, nil

	case errors.Is(err, ErrTransportBusy):
		l.queued = n
		l.backpressured = true

		return 0, nil

	default:
		return 0, err
	}
}
