package xsession

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
persistence:
  store-type: memory-mapped
  directory: /var/lib/xsession
  segment-size-bytes: 268435456
sessions:
  - id: venue-a
    protocol: fix
    host: venue-a.example.com
    port: 9001
    sender-comp-id: US
    target-comp-id: VENUEA
    fix-version: FIX.4.2
    heartbeat-interval: 30
  - id: venue-b
    protocol: ouch
    host: venue-b.example.com
    port: 9002
    soup-username: trader1
    persistence:
      store-type: none
`

func TestParseConfigInheritsEngineWidePersistence(t *testing.T) {
	cfg, err := ParseConfig([]byte(sampleConfig))
	require.NoError(t, err)
	require.Len(t, cfg.Sessions, 2)

	assert.Equal(t, StoreMemoryMapped, cfg.Sessions[0].Persistence.StoreType)
	assert.Equal(t, StoreNone, cfg.Sessions[1].Persistence.StoreType)
}

func TestParseConfigRejectsUnknownStoreType(t *testing.T) {
	bad := `
persistence:
  store-type: bogus
sessions:
  - id: venue-a
    protocol: fix
`
	_, err := ParseConfig([]byte(bad))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeConfigError))
}

func TestParseConfigRequiresProtocol(t *testing.T) {
	bad := `
sessions:
  - id: venue-a
    protocol: smtp
`
	_, err := ParseConfig([]byte(bad))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeConfigError))
}

func TestParseConfigRequiresSessionID(t *testing.T) {
	bad := `
sessions:
  - protocol: fix
`
	_, err := ParseConfig([]byte(bad))
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeConfigError))
}
