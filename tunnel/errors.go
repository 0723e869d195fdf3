package tunnel

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-creditlink/conntable"
	"github.com/arloliu/go-creditlink/credit"
)

var (
	// ErrTransportBusy is returned by a Transport when its send queue is full.
	ErrTransportBusy = credit.ErrTransportBusy

	// ErrInvalidConnection indicates the handle does not refer to a connection in the table.
	ErrInvalidConnection = conntable.ErrNoSuchConn

	// ErrResourceExhausted indicates no free connection slot is left.
	ErrResourceExhausted = conntable.ErrNoFreeSlot

	// ErrRoleConflict indicates an attempt to change an established role.
	ErrRoleConflict = conntable.ErrRoleConflict
)

var (
	// ErrConfigNil indicates that a nil Config was provided.
	ErrConfigNil = errors.New("tunnel: config is nil")

	// ErrTransportNil indicates that a nil Transport was provided.
	ErrTransportNil = errors.New("tunnel: transport is nil")

	// ErrReceiveOverflow indicates the peer sent more bytes than the receive buffer could hold.
	ErrReceiveOverflow = errors.New("tunnel: receive overflow")

	// ErrSendInProgress indicates a send is already active on the connection.
	ErrSendInProgress = errors.New("tunnel: send already in progress")

	// ErrRoleNotSet indicates the connection has no role yet, so it cannot transmit.
	ErrRoleNotSet = errors.New("tunnel: connection role not established")

	// ErrInvalidLength indicates a non-positive send length.
	ErrInvalidLength = errors.New("tunnel: invalid send length")

	// ErrSourceNil indicates a nil data source was passed to Send.
	ErrSourceNil = errors.New("tunnel: data source is nil")

	// ErrSourceRead indicates the data source failed before the send completed.
	ErrSourceRead = errors.New("tunnel: data source read failed")

	// ErrUnknownChannel indicates data arrived on a channel the tunnel does not use.
	ErrUnknownChannel = errors.New("tunnel: unknown channel")

	// ErrShortWrite indicates the transport accepted only part of a credit announcement.
	ErrShortWrite = errors.New("tunnel: transport accepted a partial credit value")

	// ErrTransportContract indicates the transport reported more bytes accepted than offered.
	ErrTransportContract = errors.New("tunnel: transport accepted more bytes than offered")

	// ErrDispatcherRunning indicates Dispatcher.Run was called while already running.
	ErrDispatcherRunning = errors.New("tunnel: dispatcher already running")
)

// OverflowError reports a receive that did not fit into the connection's ring buffer.
// The excess bytes are dropped.
type OverflowError struct {
	Handle   Handle
	Received int
	Accepted int
}

// Lost returns the number of dropped bytes.
func (e *OverflowError) Lost() int { return e.Received - e.Accepted }

func (e *OverflowError) Error() string {
	return fmt.Sprintf("%s: handle %d received %d bytes, accepted %d, lost %d",
		ErrReceiveOverflow, e.Handle, e.Received, e.Accepted, e.Lost())
}

func (e *OverflowError) Unwrap() error { return ErrReceiveOverflow }
