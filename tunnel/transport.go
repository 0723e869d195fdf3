package tunnel

import (
	"github.com/arloliu/go-creditlink/conntable"
)

// Handle is the transport's identifier for a connection.
type Handle = conntable.Handle

// Addr is a peer device address.
type Addr = conntable.Addr

// Role is the side of the stream an endpoint plays on a connection.
type Role = conntable.Role

// Connection roles.
const (
	RoleUnknown = conntable.RoleUnknown
	RoleClient  = conntable.RoleClient
	RoleServer  = conntable.RoleServer
)

// Channel identifies a logical channel of the transport.
type Channel uint8

const (
	// ChannelData carries the byte stream.
	ChannelData Channel = iota + 1
	// ChannelCredits carries receive-credit announcements.
	ChannelCredits
)

// String returns string representation of the channel.
func (c Channel) String() string {
	switch c {
	case ChannelData:
		return "data"
	case ChannelCredits:
		return "credits"
	default:
		return "unknown"
	}
}

// Transport is the send side of the underlying link, consumed by Endpoint.
//
// Both methods return the number of bytes accepted. A full local send queue is reported
// with ErrTransportBusy, after which the transport must eventually deliver an
// OnQueueAvailable event for the connection. (0, nil) is a zero-length success and is
// not treated as busy.
//
// Implementations must not call back into the Endpoint synchronously.
type Transport interface {
	// Notify pushes p to the peer as an unacknowledged notification (server role).
	Notify(h Handle, ch Channel, p []byte) (int, error)
	// WriteWithoutResponse writes p to the peer without acknowledgement (client role).
	WriteWithoutResponse(h Handle, ch Channel, p []byte) (int, error)
}

// EventHandler receives inbound transport events.
//
// Endpoint and Dispatcher implement it.
type EventHandler interface {
	// OnData delivers a received notification or write.
	OnData(h Handle, ch Channel, p []byte) error
	// OnQueueAvailable signals that the transport's send queue for h has free space again.
	OnQueueAvailable(h Handle)
}
