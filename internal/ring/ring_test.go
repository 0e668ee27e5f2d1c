package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingRoundsCapacityToPowerOfTwo(t *testing.T) {
	r := New(10, 64)
	assert.Equal(t, 16, r.Capacity())
}

func TestRingClaimCommitConsumeRelease(t *testing.T) {
	r := New(4, 64)

	slot, err := r.TryClaim()
	require.NoError(t, err)
	slot.SeqNum = 1
	slot.MsgType = "D"
	n := copy(slot.Payload, []byte("hello"))
	slot.PayloadLen = n
	r.Commit(slot)

	got, ok := r.TryConsume()
	require.True(t, ok)
	assert.Equal(t, int64(1), got.SeqNum)
	assert.Equal(t, "hello", string(got.Payload[:got.PayloadLen]))
	r.Release(got)
}

func TestRingFullWhenConsumerLagsBehind(t *testing.T) {
	r := New(2, 64) // rounds to 2
	for i := 0; i < 2; i++ {
		slot, err := r.TryClaim()
		require.NoError(t, err)
		r.Commit(slot)
	}
	_, err := r.TryClaim()
	assert.ErrorIs(t, err, ErrFull)
}

func TestRingFreesSlotAfterRelease(t *testing.T) {
	r := New(1, 64) // rounds to 1
	slot, err := r.TryClaim()
	require.NoError(t, err)
	r.Commit(slot)

	_, err = r.TryClaim()
	assert.ErrorIs(t, err, ErrFull)

	consumed, ok := r.TryConsume()
	require.True(t, ok)
	r.Release(consumed)

	_, err = r.TryClaim()
	assert.NoError(t, err)
}

func TestRingFIFOOrdering(t *testing.T) {
	r := New(8, 64)
	for i := int64(0); i < 5; i++ {
		slot, err := r.TryClaim()
		require.NoError(t, err)
		slot.SeqNum = i
		r.Commit(slot)
	}
	for i := int64(0); i < 5; i++ {
		got, ok := r.TryConsume()
		require.True(t, ok)
		assert.Equal(t, i, got.SeqNum)
		r.Release(got)
	}
}

func TestOverflowPoolSizeClasses(t *testing.T) {
	b := GetOverflow(100)
	assert.Equal(t, 100, len(b))
	assert.Equal(t, 4*1024, cap(b))
	PutOverflow(b)

	b2 := GetOverflow(64 * 1024)
	assert.Equal(t, 64*1024, len(b2))
	PutOverflow(b2)
}
