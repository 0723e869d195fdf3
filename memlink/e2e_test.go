package memlink

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/arloliu/go-creditlink/logger"
	"github.com/arloliu/go-creditlink/tunnel"
	"github.com/stretchr/testify/require"
)

type sendResult struct {
	sent int
	err  error
}

type peer struct {
	ep       *tunnel.Endpoint
	end      *End
	received bytes.Buffer
	done     []sendResult
}

func newPeer(t *testing.T, end *End, opts ...tunnel.Option) *peer {
	t.Helper()

	p := &peer{end: end}
	opts = append([]tunnel.Option{
		tunnel.WithLogger(logger.NewMockLogger().AllowAll()),
		tunnel.WithReceiveHandler(func(_ tunnel.Handle, data []byte) { p.received.Write(data) }),
		tunnel.WithSendCompleteHandler(func(_ tunnel.Handle, sent int, err error) {
			p.done = append(p.done, sendResult{sent: sent, err: err})
		}),
	}, opts...)

	cfg, err := tunnel.NewConfig(opts...)
	require.NoError(t, err)
	p.ep, err = tunnel.NewEndpoint(cfg, end)
	require.NoError(t, err)
	end.Attach(p.ep)

	return p
}

func (p *peer) stats(t *testing.T) tunnel.ConnStats {
	t.Helper()

	stats, err := p.ep.Stats(p.end.Handle())
	require.NoError(t, err)

	return stats
}

// connect establishes a as server and b as client.
func connect(t *testing.T, l *Link, a, b *peer) {
	t.Helper()

	require.NoError(t, a.ep.OnConnect(a.end.Handle(), b.end.Addr(), l.MTU(), tunnel.RoleUnknown))
	require.NoError(t, b.ep.OnConnect(b.end.Handle(), a.end.Addr(), l.MTU(), tunnel.RoleUnknown))
	require.NoError(t, a.ep.Configure(a.end.Handle(), tunnel.RoleServer))
	require.NoError(t, b.ep.Configure(b.end.Handle(), tunnel.RoleClient))
}

func randomBytes(seed int64, n int) []byte {
	r := rand.New(rand.NewSource(seed)) //nolint:gosec
	p := make([]byte, n)
	_, _ = r.Read(p)

	return p
}

func TestLoopback_ManualDrainConservesCredits(t *testing.T) {
	for _, depth := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("depth %d", depth), func(t *testing.T) {
			require := require.New(t)
			l := newTestLink(t, WithDepth(depth))
			a, b := newPeer(t, l.A()), newPeer(t, l.B())
			connect(t, l, a, b)

			window := b.stats(t).BufferFree
			src := randomBytes(int64(depth), 10_000)
			require.NoError(a.ep.Send(a.end.Handle(), len(src), bytes.NewReader(src)))

			r := rand.New(rand.NewSource(42)) //nolint:gosec
			var got []byte
			for i := 0; i < 10_000 && len(got) < len(src); i++ {
				_, err := l.Pump()
				require.NoError(err)

				sa, sb := a.stats(t), b.stats(t)
				require.Equal(window, sa.TransmitCredits+sb.Buffered+sb.QueuedCredits,
					"credits held by the sender plus bytes held by the receiver equal the window")

				data, err := b.ep.Drain(b.end.Handle(), 1+r.Intn(window))
				require.NoError(err)
				got = append(got, data...)
			}

			require.Equal(src, got)
			require.Empty(l.Failures())
			require.Equal([]sendResult{{sent: len(src)}}, a.done)

			notify, write := l.A().Counts()
			require.Positive(notify)
			require.Zero(write, "server sends with notifications only")

			m := a.ep.GetMetrics()
			require.Equal(uint64(len(src)), m.DataByteSendCount.Load())
			require.Equal(uint64(0), b.ep.GetMetrics().OverflowByteCount.Load())
			if depth == 1 {
				require.Positive(l.A().BusyCount())
				require.Positive(m.TransportBusyCount.Load())
			}
		})
	}
}

func TestLoopback_BidirectionalAutoDrain(t *testing.T) {
	require := require.New(t)
	l := newTestLink(t, WithDepth(2), WithMTU(64))
	a := newPeer(t, l.A(), tunnel.WithAutoDrain(true))
	b := newPeer(t, l.B(), tunnel.WithAutoDrain(true))
	connect(t, l, a, b)

	srcA := randomBytes(1, 5000)
	srcB := randomBytes(2, 7000)
	require.NoError(a.ep.Send(a.end.Handle(), len(srcA), bytes.NewReader(srcA)))
	require.NoError(b.ep.Send(b.end.Handle(), len(srcB), bytes.NewReader(srcB)))

	_, err := l.Pump()
	require.NoError(err)

	require.Equal(srcA, b.received.Bytes())
	require.Equal(srcB, a.received.Bytes())
	require.Len(a.done, 1)
	require.Len(b.done, 1)
	require.Empty(l.Failures())

	_, write := l.B().Counts()
	require.Positive(write)
	require.Equal(47, a.stats(t).PayloadSize)
}

func TestLoopback_MisbehavingPeerOverflows(t *testing.T) {
	require := require.New(t)
	l := newTestLink(t, WithDepth(8))
	a, b := newPeer(t, l.A()), newPeer(t, l.B())
	connect(t, l, a, b)
	_, err := l.Pump()
	require.NoError(err)

	window := b.stats(t).BufferFree
	chunk := l.MTU() - 3
	sent := 0
	for sent <= window {
		_, err := l.A().Notify(l.A().Handle(), tunnel.ChannelData, bytes.Repeat([]byte{7}, chunk))
		require.NoError(err)
		sent += chunk
	}
	_, err = l.Pump()
	require.NoError(err)

	failures := l.Failures()
	require.Len(failures, 1)
	var oerr *tunnel.OverflowError
	require.ErrorAs(failures[0], &oerr)
	require.Equal(sent-window, oerr.Lost())
	require.Equal(window, b.stats(t).Buffered)
}

func TestLoopback_PeerRecordsSharedAcrossReconnect(t *testing.T) {
	require := require.New(t)
	l := newTestLink(t)
	a, b := newPeer(t, l.A()), newPeer(t, l.B())
	connect(t, l, a, b)

	require.NoError(a.ep.OnDisconnect(a.end.Handle()))
	require.NoError(a.ep.OnConnect(a.end.Handle(), b.end.Addr(), 100, tunnel.RoleUnknown))

	rec, ok := a.ep.PeerRecord(b.end.Addr())
	require.True(ok)
	require.True(rec.IsServer)
	require.Equal(100, rec.MTU)
}
