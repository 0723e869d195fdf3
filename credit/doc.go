// Package credit implements per-connection credit bookkeeping for the tunnel.
//
// Two independent state machines live in a Ledger:
//
//   - NoCredits <-> HaveCredits, driven by grants from the peer and by bytes sent.
//   - NotBackpressured <-> Backpressured, driven by the local transport refusing a packet
//     because its send queue is full.
//
// Transmit credits bound what this endpoint may send. Receive credits are returned to the
// peer as the local receive buffer drains; while the transport is backpressured they
// accumulate as queued credits and are flushed later as one amount.
package credit
