package conntable

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// PeerRecord is the persistent per-peer state relevant to the tunnel.
type PeerRecord struct {
	Addr     Addr
	IsClient bool
	IsServer bool
	MTU      int
}

// PeerStore maps peer addresses to their records.
//
// Records are returned by value; the store is the only owner. PeerStore is safe for
// concurrent use so an application may inspect it outside the processing context.
type PeerStore struct {
	records *xsync.MapOf[Addr, PeerRecord]
}

// NewPeerStore creates an empty peer store.
func NewPeerStore() *PeerStore {
	return &PeerStore{records: xsync.NewMapOf[Addr, PeerRecord]()}
}

// Get returns the record for addr.
func (s *PeerStore) Get(addr Addr) (PeerRecord, bool) {
	return s.records.Load(addr)
}

// Update atomically applies fn to the record for addr, creating it when absent, and
// returns the stored result.
func (s *PeerStore) Update(addr Addr, fn func(rec *PeerRecord)) PeerRecord {
	rec, _ := s.records.Compute(addr, func(old PeerRecord, loaded bool) (PeerRecord, bool) {
		if !loaded {
			old = PeerRecord{Addr: addr}
		}
		fn(&old)

		return old, false
	})

	return rec
}

// Forget removes the record for addr, e.g. when the peer is unpaired.
func (s *PeerStore) Forget(addr Addr) bool {
	_, loaded := s.records.LoadAndDelete(addr)
	return loaded
}

// Len returns the number of records.
func (s *PeerStore) Len() int {
	return s.records.Size()
}

// Range calls f for each record until f returns false.
func (s *PeerStore) Range(f func(rec PeerRecord) bool) {
	s.records.Range(func(_ Addr, rec PeerRecord) bool {
		return f(rec)
	})
}
