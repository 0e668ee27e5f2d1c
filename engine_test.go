package xsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fathomtrade/xsession/internal/fsm"
)

func testConfig() *EngineConfig {
	return &EngineConfig{
		Persistence: PersistenceConfig{StoreType: StoreNone},
		Sessions: []SessionConfig{
			{ID: "venue-a", Protocol: "fix", Host: "example.com", Port: 9001, SenderCompID: "US", TargetCompID: "VENUEA", FixVersion: "FIX.4.2"},
			{ID: "venue-b", Protocol: "ouch", Host: "example.com", Port: 9002, SoupUsername: "trader1"},
		},
	}
}

func TestNewEngineBuildsConfiguredSessions(t *testing.T) {
	e, err := NewEngine(testConfig())
	require.NoError(t, err)

	fixSession := e.Session("venue-a")
	require.NotNil(t, fixSession)
	assert.Equal(t, fsm.ProtocolFix, fixSession.Protocol)
	assert.Equal(t, fsm.Disconnected, fixSession.State())

	ouchSession := e.Session("venue-b")
	require.NotNil(t, ouchSession)
	assert.Equal(t, fsm.ProtocolOuch, ouchSession.Protocol)

	assert.Nil(t, e.Session("unknown"))
}

func TestNewEngineRejectsUnconfiguredProtocol(t *testing.T) {
	cfg := &EngineConfig{Sessions: []SessionConfig{{ID: "bad", Protocol: "smtp"}}}
	_, err := NewEngine(cfg)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeConfigError))
}

func TestEngineEnqueueUpdatesMetrics(t *testing.T) {
	e, err := NewEngine(testConfig())
	require.NoError(t, err)

	require.NoError(t, e.Enqueue("venue-a", "D", []byte("new order single")))

	m := e.Metrics("venue-a")
	require.NotNil(t, m)
	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.MessagesOut)
	assert.Equal(t, uint64(len("new order single")), snap.BytesOut)
}

func TestEngineEnqueueUnknownSessionFails(t *testing.T) {
	e, err := NewEngine(testConfig())
	require.NoError(t, err)

	err = e.Enqueue("does-not-exist", "D", []byte("x"))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeConfigError))
}

func TestEngineStopIsIdempotent(t *testing.T) {
	e, err := NewEngine(testConfig())
	require.NoError(t, err)

	e.Stop()
	e.Stop() // must not panic or block on a second call
}
