package mmapstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomtrade/xsession/internal/journal"
)

func TestMmapstoreAppendAndReread(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 1<<20)
	require.NoError(t, err)

	seq, err := s.Append(journal.DirectionOutbound, 'D', []byte("payload"), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	r, err := s.NewReader()
	require.NoError(t, err)
	e, ok := r.TryPoll()
	require.True(t, ok)
	assert.Equal(t, "payload", string(e.Payload))

	require.NoError(t, s.Close())
}

func TestMmapstoreRecoversSequenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 1<<20)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := s.Append(journal.DirectionOutbound, 'D', []byte("m"), int64(i))
		require.NoError(t, err)
	}
	_, err = s.Append(journal.DirectionInbound, '8', []byte("in"), 0)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s2, err := Open(dir, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, int64(4), s2.NextSeq(journal.DirectionOutbound))
	assert.Equal(t, int64(2), s2.NextSeq(journal.DirectionInbound))
	require.NoError(t, s2.Close())
}

func TestMmapstoreGetLatestAndReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 1<<20)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		_, err := s.Append(journal.DirectionOutbound, 'D', []byte("m"), int64(i))
		require.NoError(t, err)
	}
	require.NoError(t, s.Close())

	s2, err := Open(dir, 1<<20)
	require.NoError(t, err)
	defer s2.Close()

	latest, ok := s2.GetLatest(journal.DirectionOutbound)
	require.True(t, ok)
	assert.Equal(t, int64(10), latest.SeqNum)

	out := journal.DirectionOutbound
	var seen []int64
	require.NoError(t, s2.Replay(&out, 3, 7, func(e journal.Entry) error {
		seen = append(seen, e.SeqNum)
		return nil
	}))
	assert.Equal(t, []int64{3, 4, 5, 6, 7}, seen)
}
