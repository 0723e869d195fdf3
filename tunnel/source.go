package tunnel

import "io"

type repeatingSource struct {
	pattern []byte
	off     int
}

// RepeatingSource returns an endless reader that cycles through pattern.
// It is handy as a Send source for soak and throughput runs.
func RepeatingSource(pattern []byte) io.Reader {
	if len(pattern) == 0 {
		pattern = []byte{0}
	}

	return &repeatingSource{pattern: pattern}
}

func (r *repeatingSource) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		c := copy(p[n:], r.pattern[r.off:])
		n += c
		r.off = (r.off + c) % len(r.pattern)
	}

	return n, nil
}
