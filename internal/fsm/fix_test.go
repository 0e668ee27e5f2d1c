package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixSessionHappyPath(t *testing.T) {
	f := NewFixSession("SNDR", "TRGT", "FIX.4.2")
	require.Equal(t, FixCreated, f.State())

	require.NoError(t, f.Transition(FixConnecting))
	require.NoError(t, f.Transition(FixConnected))
	require.NoError(t, f.Transition(FixLogonSent))
	require.NoError(t, f.OnLogon(false))
	assert.Equal(t, FixLoggedOn, f.State())
	assert.Equal(t, int64(1), f.Seq.Expected())
}

func TestFixSessionResetOnLogon(t *testing.T) {
	f := NewFixSession("SNDR", "TRGT", "FIX.4.2")
	f.Seq.SetOutgoing(50)
	f.Seq.SetExpected(50)
	require.NoError(t, f.Transition(FixConnecting))
	require.NoError(t, f.Transition(FixConnected))
	require.NoError(t, f.Transition(FixLogonSent))
	require.NoError(t, f.OnLogon(true))
	assert.Equal(t, int64(1), f.Seq.PeekOutgoing())
	assert.Equal(t, int64(1), f.Seq.Expected())
}

func TestFixSessionIllegalTransition(t *testing.T) {
	f := NewFixSession("SNDR", "TRGT", "FIX.4.2")
	err := f.Transition(FixLoggedOn)
	require.Error(t, err)
	assert.Equal(t, FixCreated, f.State())
}

func TestFixSessionSequenceGapTriggersResend(t *testing.T) {
	f := NewFixSession("SNDR", "TRGT", "FIX.4.2")
	require.NoError(t, f.Transition(FixConnecting))
	require.NoError(t, f.Transition(FixConnected))
	require.NoError(t, f.Transition(FixLogonSent))
	require.NoError(t, f.OnLogon(false))

	require.NoError(t, f.OnSequenceGap(5, 9))
	assert.Equal(t, FixResending, f.State())
	assert.True(t, f.ResendRequested)
	assert.Equal(t, int64(5), f.ResendFrom)
	assert.Equal(t, int64(8), f.ResendTo)

	require.NoError(t, f.OnResendComplete())
	assert.Equal(t, FixLoggedOn, f.State())
	assert.False(t, f.ResendRequested)
}

func TestSequenceEngineAdvance(t *testing.T) {
	se := NewSequenceEngine()
	assert.Equal(t, int64(1), se.NextOutgoing())
	assert.Equal(t, int64(2), se.NextOutgoing())
	se.Advance(1)
	assert.Equal(t, int64(2), se.Expected())
}
