// Package conntable holds per-connection tunnel state in a fixed-size slot pool and the
// per-peer records that outlive individual connections.
//
// A Table never grows: Allocate fails with ErrNoFreeSlot once every slot is in use, and the
// caller is expected to reject the connection at a higher layer. Released slots keep their
// ring buffer storage and are re-initialized on the next allocation.
//
// PeerStore is keyed by peer address and exclusively owns its records; connections refer to
// a record only through the address.
package conntable
