package fsm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOuchSessionHappyPath(t *testing.T) {
	o := NewOuchSession("user1")
	require.NoError(t, o.Transition(OuchConnecting))
	require.NoError(t, o.Transition(OuchConnected))
	require.NoError(t, o.Transition(OuchLoginSent))
	require.NoError(t, o.OnLogin(0))
	assert.Equal(t, OuchLoggedIn, o.State())
	assert.Equal(t, int64(1), o.IncomingSeq())
}

func TestOuchSessionRequestedSequenceNumber(t *testing.T) {
	o := NewOuchSession("user1")
	require.NoError(t, o.Transition(OuchConnecting))
	require.NoError(t, o.Transition(OuchConnected))
	require.NoError(t, o.Transition(OuchLoginSent))
	require.NoError(t, o.OnLogin(42))
	assert.Equal(t, int64(42), o.IncomingSeq())
}

func TestManagedSessionReducedState(t *testing.T) {
	f := NewFixSession("SNDR", "TRGT", "FIX.4.2")
	m := NewManagedFixSession("s1", "host:1234", f)
	assert.Equal(t, Disconnected, m.State())

	require.NoError(t, f.Transition(FixConnecting))
	assert.Equal(t, Connecting, m.State())

	require.NoError(t, f.Transition(FixConnected))
	require.NoError(t, f.Transition(FixLogonSent))
	require.NoError(t, f.OnLogon(false))
	assert.Equal(t, LoggedOn, m.State())
}
