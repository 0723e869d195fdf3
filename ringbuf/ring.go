// Package ringbuf provides the fixed-capacity circular byte store that backs each
// connection's receive window.
//
// A Ring never blocks and never drops bytes silently: a write that does not fit is
// cut short and reported with ErrOverflow, leaving the caller to account for the
// exact shortfall. It is not goroutine-safe; all access happens on the tunnel's single
// processing context.
package ringbuf

import (
	"errors"
	"io"
)

var (
	// ErrOverflow is returned by Write when not every byte fit into the ring.
	ErrOverflow = errors.New("ringbuf: overflow")

	// ErrInvalidCapacity indicates a non-positive capacity.
	ErrInvalidCapacity = errors.New("ringbuf: capacity must be positive")
)

// Ring is a circular FIFO byte buffer.
//
// (Cap()-Free()) bytes are valid, laid out contiguously modulo the capacity
// starting at the read index.
type Ring struct {
	buf  []byte
	free int
	w    int // next write index
	r    int // next read index
}

var (
	_ io.Writer = (*Ring)(nil)
	_ io.Reader = (*Ring)(nil)
)

// New returns an empty ring holding capacity bytes.
func New(capacity int) (*Ring, error) {
	r := &Ring{}
	if err := r.Init(capacity); err != nil {
		return nil, err
	}

	return r, nil
}

// Init resets the ring to an empty state with the given capacity.
// The existing storage is reused when it is large enough.
func (r *Ring) Init(capacity int) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}

	if cap(r.buf) >= capacity {
		r.buf = r.buf[:capacity]
		clear(r.buf)
	} else {
		r.buf = make([]byte, capacity)
	}
	r.free = capacity
	r.w = 0
	r.r = 0

	return nil
}

// Reset discards all buffered bytes, keeping the capacity.
func (r *Ring) Reset() {
	r.free = len(r.buf)
	r.w = 0
	r.r = 0
}

// Cap returns the capacity of the ring in bytes.
func (r *Ring) Cap() int { return len(r.buf) }

// Free returns the number of bytes that can be written without overflow.
func (r *Ring) Free() int { return r.free }

// Len returns the number of buffered bytes.
func (r *Ring) Len() int { return len(r.buf) - r.free }

// Write copies as much of p as fits into the ring.
//
// It returns the number of bytes stored. If that is less than len(p) the error is
// ErrOverflow and len(p)-n bytes were not stored.
func (r *Ring) Write(p []byte) (int, error) {
	n := 0
	for n < len(p) && r.free > 0 {
		// contiguous run before the wrap point, bounded by free space
		run := min(len(r.buf)-r.w, r.free, len(p)-n)
		copy(r.buf[r.w:r.w+run], p[n:n+run])
		n += run
		r.free -= run
		r.w += run
		if r.w == len(r.buf) {
			r.w = 0
		}
	}

	if n < len(p) {
		return n, ErrOverflow
	}

	return n, nil
}

// Read removes up to len(p) bytes from the ring into p.
//
// When the ring is empty it returns 0, io.EOF; the ring can still be written to
// afterwards, the same way bytes.Buffer behaves.
func (r *Ring) Read(p []byte) (int, error) {
	if r.Len() == 0 {
		if len(p) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}

	return r.consume(p, len(p)), nil
}

// Discard removes up to n bytes without copying them and returns the number removed.
func (r *Ring) Discard(n int) int {
	return r.consume(nil, n)
}

// Peek copies up to len(p) buffered bytes into p without removing them.
func (r *Ring) Peek(p []byte) int {
	n := min(len(p), r.Len())
	idx := r.r
	for done := 0; done < n; {
		run := min(len(r.buf)-idx, n-done)
		copy(p[done:done+run], r.buf[idx:idx+run])
		done += run
		idx = (idx + run) % len(r.buf)
	}

	return n
}

// consume removes up to maxLen bytes, copying into sink when it is not nil.
func (r *Ring) consume(sink []byte, maxLen int) int {
	n := 0
	for n < maxLen && r.Len() > 0 {
		run := min(len(r.buf)-r.r, r.Len(), maxLen-n)
		if sink != nil {
			copy(sink[n:n+run], r.buf[r.r:r.r+run])
		}
		n += run
		r.free += run
		r.r += run
		if r.r == len(r.buf) {
			r.r = 0
		}
	}

	return n
}
