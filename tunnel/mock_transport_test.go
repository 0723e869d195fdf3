//nolint:errcheck
package tunnel

import (
	"bytes"
	"testing"

	"github.com/arloliu/go-creditlink/credit"
	"github.com/arloliu/go-creditlink/logger"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockTransport implements Transport interface for testing
type MockTransport struct {
	mock.Mock
}

var _ Transport = (*MockTransport)(nil)

func (m *MockTransport) Notify(h Handle, ch Channel, p []byte) (int, error) {
	args := m.Called(h, ch, p)
	return args.Int(0), args.Error(1)
}

func (m *MockTransport) WriteWithoutResponse(h Handle, ch Channel, p []byte) (int, error) {
	args := m.Called(h, ch, p)
	return args.Int(0), args.Error(1)
}

// outcome scripts one transport call. n < 0 accepts the whole packet; only
// 0 < n <= len(p) is recorded as sent.
type outcome struct {
	n   int
	err error
}

var (
	accept = outcome{n: -1}
	busy   = outcome{err: ErrTransportBusy}
)

type packet struct {
	method string
	h      Handle
	ch     Channel
	data   []byte
}

// scriptedTransport records accepted packets and replays scripted outcomes per channel.
// Calls beyond the script accept the whole packet.
type scriptedTransport struct {
	script map[Channel][]outcome
	sent   []packet
	calls  int
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{script: make(map[Channel][]outcome)}
}

func (s *scriptedTransport) push(ch Channel, outcomes ...outcome) {
	s.script[ch] = append(s.script[ch], outcomes...)
}

func (s *scriptedTransport) Notify(h Handle, ch Channel, p []byte) (int, error) {
	return s.handle("notify", h, ch, p)
}

func (s *scriptedTransport) WriteWithoutResponse(h Handle, ch Channel, p []byte) (int, error) {
	return s.handle("write", h, ch, p)
}

func (s *scriptedTransport) handle(method string, h Handle, ch Channel, p []byte) (int, error) {
	s.calls++
	o := accept
	if q := s.script[ch]; len(q) > 0 {
		o, s.script[ch] = q[0], q[1:]
	}
	if o.err != nil {
		return 0, o.err
	}

	n := o.n
	if n < 0 {
		n = len(p)
	}
	if n > 0 && n <= len(p) {
		s.sent = append(s.sent, packet{method: method, h: h, ch: ch, data: bytes.Clone(p[:n])})
	}

	return n, nil
}

// dataSizes returns the sizes of accepted data packets.
func (s *scriptedTransport) dataSizes() []int {
	sizes := []int{}
	for _, p := range s.sent {
		if p.ch == ChannelData {
			sizes = append(sizes, len(p.data))
		}
	}

	return sizes
}

// dataBytes returns the concatenated accepted data stream.
func (s *scriptedTransport) dataBytes() []byte {
	var buf bytes.Buffer
	for _, p := range s.sent {
		if p.ch == ChannelData {
			buf.Write(p.data)
		}
	}

	return buf.Bytes()
}

// credits returns the decoded credit announcements.
func (s *scriptedTransport) credits(t *testing.T) []int {
	t.Helper()

	values := []int{}
	for _, p := range s.sent {
		if p.ch == ChannelCredits {
			n, err := credit.DecodeCredits(p.data)
			require.NoError(t, err)
			values = append(values, int(n))
		}
	}

	return values
}

func (s *scriptedTransport) reset() {
	s.sent = nil
	s.calls = 0
}

var (
	testAddr   = Addr{0x11, 0x22, 0x33, 0x44, 0x55, 0x66}
	testHandle = Handle(1)
)

// newTestEndpoint creates an endpoint with 64-byte payloads and a 192-byte receive ring.
func newTestEndpoint(t *testing.T, tr Transport, opts ...Option) (*Endpoint, *logger.MockLogger) {
	t.Helper()

	ml := logger.NewMockLogger().AllowAll()
	opts = append([]Option{WithLogger(ml), WithMaxPayloadSize(64)}, opts...)
	cfg, err := NewConfig(opts...)
	require.NoError(t, err)

	ep, err := NewEndpoint(cfg, tr)
	require.NoError(t, err)

	return ep, ml
}

// connectServer connects testHandle with a large MTU and the server role.
func connectServer(t *testing.T, ep *Endpoint) {
	t.Helper()
	require.NoError(t, ep.OnConnect(testHandle, testAddr, 247, RoleServer))
}

func pattern(n int) []byte {
	p := make([]byte, n)
	for i := range p {
		p[i] = byte(i % 251)
	}

	return p
}
