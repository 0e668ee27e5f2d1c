package memstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomtrade/xsession/internal/journal"
)

func TestMemstoreAppendAndRead(t *testing.T) {
	s := New()
	seq, err := s.Append(journal.DirectionOutbound, 'D', []byte("hello"), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	r, err := s.NewReader()
	require.NoError(t, err)

	e, ok := r.TryPoll()
	require.True(t, ok)
	assert.Equal(t, "hello", string(e.Payload))

	_, ok = r.TryPoll()
	assert.False(t, ok)
}

func TestMemstoreNextSeqIncrementsPerDirection(t *testing.T) {
	s := New()
	assert.Equal(t, int64(1), s.NextSeq(journal.DirectionOutbound))
	assert.Equal(t, int64(1), s.NextSeq(journal.DirectionInbound))

	_, err := s.Append(journal.DirectionOutbound, 'D', []byte("a"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), s.NextSeq(journal.DirectionOutbound))
	assert.Equal(t, int64(1), s.NextSeq(journal.DirectionInbound))
}

func TestMemstoreReaderDrain(t *testing.T) {
	s := New()
	for i := 0; i < 4; i++ {
		_, err := s.Append(journal.DirectionOutbound, 'D', []byte("m"), int64(i))
		require.NoError(t, err)
	}
	r, err := s.NewReader()
	require.NoError(t, err)
	assert.Len(t, r.Drain(), 4)
}

func TestMemstoreGetLatestPerDirection(t *testing.T) {
	s := New()
	_, err := s.Append(journal.DirectionOutbound, 'D', []byte("out-1"), 0)
	require.NoError(t, err)
	_, err = s.Append(journal.DirectionInbound, '8', []byte("in-1"), 0)
	require.NoError(t, err)
	_, err = s.Append(journal.DirectionOutbound, 'D', []byte("out-2"), 0)
	require.NoError(t, err)

	latestOut, ok := s.GetLatest(journal.DirectionOutbound)
	require.True(t, ok)
	assert.Equal(t, "out-2", string(latestOut.Payload))

	latestIn, ok := s.GetLatest(journal.DirectionInbound)
	require.True(t, ok)
	assert.Equal(t, "in-1", string(latestIn.Payload))
}

func TestMemstoreReplayRangeRestrictsToDirection(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		_, err := s.Append(journal.DirectionOutbound, 'D', []byte("m"), int64(i))
		require.NoError(t, err)
	}
	_, err := s.Append(journal.DirectionInbound, '8', []byte("in"), 0)
	require.NoError(t, err)

	out := journal.DirectionOutbound
	var seen []int64
	require.NoError(t, s.Replay(&out, 2, 4, func(e journal.Entry) error {
		seen = append(seen, e.SeqNum)
		return nil
	}))
	assert.Equal(t, []int64{2, 3, 4}, seen)
}

func TestMemstoreReplayByTimeWindow(t *testing.T) {
	s := New()
	_, err := s.Append(journal.DirectionOutbound, 'D', []byte("early"), 100)
	require.NoError(t, err)
	_, err = s.Append(journal.DirectionOutbound, 'D', []byte("mid"), 200)
	require.NoError(t, err)
	_, err = s.Append(journal.DirectionOutbound, 'D', []byte("late"), 300)
	require.NoError(t, err)

	var payloads []string
	require.NoError(t, s.ReplayByTime(nil, 150, 250, func(e journal.Entry) error {
		payloads = append(payloads, string(e.Payload))
		return nil
	}))
	assert.Equal(t, []string{"mid"}, payloads)
}
