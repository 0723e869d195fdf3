// Package tunnel implements the data plane of a credit-flow-controlled byte stream
// carried over a notification/write based transport with a hard per-packet MTU.
//
// An Endpoint owns a fixed table of peer connections. For each connection it segments
// application sends into MTU and credit bounded packets, deposits received packets into a
// per-connection ring buffer, and returns receive credits to the peer as the application
// drains that buffer.
//
// # Flow control
//
// A peer may only send as many bytes as it has been granted. Grants travel on
// ChannelCredits as 2-byte little-endian values; data travels on ChannelData. When the
// local transport refuses a packet with ErrTransportBusy the endpoint stops, marks the
// connection backpressured and resumes on the next OnQueueAvailable event: queued
// credits are flushed first, then the pending send continues. A send that ran out of
// credits resumes when the peer's next grant arrives. Nothing in this package waits or
// polls.
//
// # Concurrency
//
// Endpoint is not goroutine-safe. All of its methods must be called from one processing
// context, typically the transport's callback loop. When events originate from several
// goroutines, wrap the endpoint with a Dispatcher, which serializes them onto one
// goroutine.
//
// # Roles
//
// The server role sends with Transport.Notify, the client role with
// Transport.WriteWithoutResponse. The role of a connection is fixed by its first
// assignment and never changes until disconnect.
package tunnel
