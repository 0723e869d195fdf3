package credit

import "errors"

var (
	// ErrTransportBusy is returned by a transport when its local send queue is full.
	// It is recoverable: the operation is retried on the next queue-available event.
	ErrTransportBusy = errors.New("credit: transport queue full")

	// ErrInsufficientCredits indicates an attempt to debit more than the available transmit credits.
	ErrInsufficientCredits = errors.New("credit: insufficient transmit credits")

	// ErrInvalidCreditValue indicates a malformed credit payload.
	ErrInvalidCreditValue = errors.New("credit: invalid credit value")
)
