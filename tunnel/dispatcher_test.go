package tunnel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/arloliu/go-creditlink/credit"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_SerializesEvents(t *testing.T) {
	require := require.New(t)
	tr := newScriptedTransport()
	ep, _ := newTestEndpoint(t, tr, WithInitialGrant(false), WithRingFactor(MaxRingFactor))
	connectServer(t, ep)

	d := NewDispatcher(ep)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- d.Run(ctx) }()

	const (
		writers = 8
		chunks  = 50
		size    = 2
	)

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < chunks; j++ {
				p := []byte{byte(i), byte(j)}
				require.NoError(d.OnData(testHandle, ChannelData, p))
				p[0], p[1] = 0xff, 0xff // the dispatcher keeps its own copy
			}
		}()
	}
	wg.Wait()

	var buffered []byte
	require.NoError(d.Do(ctx, func(ep *Endpoint) error {
		var err error
		buffered, err = ep.Drain(testHandle, 0)
		return err
	}))
	require.Len(buffered, writers*chunks*size)
	for k := 0; k < len(buffered); k += size {
		require.NotEqual(byte(0xff), buffered[k+1])
	}

	cancel()
	select {
	case err := <-runErr:
		require.ErrorIs(err, context.Canceled)
	case <-time.After(time.Second):
		require.Fail("dispatcher did not stop")
	}
}

func TestDispatcher_QueueAvailableResumesSend(t *testing.T) {
	require := require.New(t)
	tr := newScriptedTransport()
	ep, _ := newTestEndpoint(t, tr, WithInitialGrant(false))
	connectServer(t, ep)

	d := NewDispatcher(ep)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	tr.push(ChannelData, busy)
	require.NoError(d.Do(ctx, func(ep *Endpoint) error {
		if err := ep.GrantReceived(testHandle, 100); err != nil {
			return err
		}
		return ep.Send(testHandle, 100, RepeatingSource([]byte("dispatch")))
	}))

	d.OnQueueAvailable(testHandle)
	require.NoError(d.OnData(testHandle, ChannelCredits, credit.EncodeCredits(20)))

	var stats ConnStats
	require.NoError(d.Do(ctx, func(ep *Endpoint) error {
		var err error
		stats, err = ep.Stats(testHandle)
		return err
	}))
	require.Equal(0, stats.SendRequested)
	require.Equal(20, stats.TransmitCredits)
	require.False(stats.Backpressured)
	require.Equal([]int{64, 36}, tr.dataSizes())
}

func TestDispatcher_RunTwice(t *testing.T) {
	require := require.New(t)
	ep, _ := newTestEndpoint(t, newScriptedTransport())
	d := NewDispatcher(ep)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		d.Post(func(*Endpoint) { close(started) })
		_ = d.Run(ctx)
	}()
	<-started

	require.ErrorIs(d.Run(ctx), ErrDispatcherRunning)
	cancel()
}

func TestDispatcher_DoHonorsContext(t *testing.T) {
	require := require.New(t)
	ep, _ := newTestEndpoint(t, newScriptedTransport())
	d := NewDispatcher(ep)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// nothing runs the dispatcher
	err := d.Do(ctx, func(*Endpoint) error { return nil })
	require.ErrorIs(err, context.DeadlineExceeded)
}
