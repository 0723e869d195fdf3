package credit

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder is a DeliverFunc backed by a scripted list of results.
type recorder struct {
	results   []error
	delivered []int
}

func (r *recorder) deliver(n int) error {
	var err error
	if len(r.results) > 0 {
		err = r.results[0]
		r.results = r.results[1:]
	}
	if err == nil {
		r.delivered = append(r.delivered, n)
	}

	return err
}

func TestLedger_GrantAndDebit(t *testing.T) {
	require := require.New(t)

	var l Ledger
	require.False(l.HasCredits())
	require.ErrorIs(l.Debit(1), ErrInsufficientCredits)

	l.Grant(64)
	require.Equal(64, l.TransmitCredits())
	require.NoError(l.Debit(40))
	require.Equal(24, l.TransmitCredits())
	require.ErrorIs(l.Debit(25), ErrInsufficientCredits)
	require.Equal(24, l.TransmitCredits())
	require.ErrorIs(l.Debit(-1), ErrInsufficientCredits)

	l.Grant(0)
	require.Equal(24, l.TransmitCredits())
	require.Equal(40, l.SentSinceGrant())

	require.NoError(l.Debit(24))
	require.False(l.HasCredits())
}

func TestLedger_CreditConservation(t *testing.T) {
	var l Ledger
	steps := []struct {
		grant int
		sends []int
	}{
		{64, []int{20, 20, 24}},
		{64, []int{64}},
		{10, []int{3}},
		{100, []int{1, 2, 3, 50}},
	}

	for _, step := range steps {
		l.Grant(step.grant)
		for _, n := range step.sends {
			require.NoError(t, l.Debit(n))
			require.GreaterOrEqual(t, l.TransmitCredits(), 0)
			require.LessOrEqual(t, l.TransmitCredits(), l.LastGrant()-l.SentSinceGrant())
		}
	}
}

func TestLedger_CreditToReturn(t *testing.T) {
	var l Ledger
	require.Equal(t, 50, l.CreditToReturn(50, 192))
	require.Equal(t, 10, l.CreditToReturn(50, 10))

	l.queued = 30
	require.Equal(t, 80, l.CreditToReturn(50, 192))
	require.Equal(t, 0, l.CreditToReturn(0, 0))
	require.Equal(t, MaxCredits, l.CreditToReturn(100000, 200000))
}

func TestLedger_AnnounceBusyThenFlush(t *testing.T) {
	require := require.New(t)

	var l Ledger
	rec := &recorder{results: []error{fmt.Errorf("notify: %w", ErrTransportBusy)}}

	n, err := l.Announce(50, 192, rec.deliver)
	require.NoError(err)
	require.Zero(n)
	require.True(l.Backpressured())
	require.Equal(50, l.QueuedCredits())
	require.Empty(rec.delivered)

	n, err = l.Flush(192, rec.deliver)
	require.NoError(err)
	require.Equal(50, n)
	require.False(l.Backpressured())
	require.Zero(l.QueuedCredits())
	require.Equal([]int{50}, rec.delivered)
}

func TestLedger_BackpressureFlushIsAtomic(t *testing.T) {
	require := require.New(t)

	var l Ledger
	rec := &recorder{results: []error{ErrTransportBusy}}

	// first failure turns the ledger backpressured, later calls only accumulate
	amounts := []int{7, 11, 13, 17}
	total := 0
	for _, q := range amounts {
		_, err := l.Announce(q, 1000, rec.deliver)
		require.NoError(err)
		total += q
		require.Equal(total, l.QueuedCredits())
		require.True(l.Backpressured())
	}
	require.Empty(rec.delivered)

	// busy on the flush keeps the whole amount queued
	rec.results = []error{ErrTransportBusy}
	n, err := l.Flush(1000, rec.deliver)
	require.NoError(err)
	require.Zero(n)
	require.Equal(total, l.QueuedCredits())
	require.True(l.Backpressured())

	n, err = l.Flush(1000, rec.deliver)
	require.NoError(err)
	require.Equal(total, n)
	require.Equal([]int{total}, rec.delivered)
	require.Zero(l.QueuedCredits())
	require.False(l.Backpressured())

	// nothing left to flush
	n, err = l.Flush(1000, rec.deliver)
	require.NoError(err)
	require.Zero(n)
	require.Len(rec.delivered, 1)
}

func TestLedger_AnnounceIncludesQueuedOnNextSuccess(t *testing.T) {
	var l Ledger
	rec := &recorder{results: []error{ErrTransportBusy}}

	_, _ = l.Announce(20, 500, rec.deliver)
	l.backpressured = false // queue freed without a flush, next announce carries the queue

	n, err := l.Announce(5, 500, rec.deliver)
	require.NoError(t, err)
	require.Equal(t, 25, n)
	require.Equal(t, []int{25}, rec.delivered)
	require.Zero(t, l.QueuedCredits())
}

func TestLedger_AnnounceOtherErrorLeavesState(t *testing.T) {
	require := require.New(t)

	errRole := errors.New("role mismatch")
	var l Ledger
	l.queued = 9
	rec := &recorder{results: []error{errRole}}

	n, err := l.Announce(10, 100, rec.deliver)
	require.ErrorIs(err, errRole)
	require.Zero(n)
	require.Equal(9, l.QueuedCredits())
	require.False(l.Backpressured())

	_, err = l.Announce(-1, 100, rec.deliver)
	require.ErrorIs(err, ErrInvalidCreditValue)
}

func TestLedger_Reset(t *testing.T) {
	var l Ledger
	l.Grant(10)
	l.MarkBackpressured()
	l.queued = 4

	l.Reset()
	require.Equal(t, Ledger{}, l)
}

func TestCreditWire(t *testing.T) {
	require := require.New(t)

	require.Equal([]byte{0x34, 0x12}, EncodeCredits(0x1234))

	v, err := DecodeCredits([]byte{0xFF, 0xFF})
	require.NoError(err)
	require.Equal(uint16(65535), v)

	_, err = DecodeCredits([]byte{1})
	require.ErrorIs(err, ErrInvalidCreditValue)
}
