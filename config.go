package xsession

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StoreType selects the journal persistence backend. See
// backend/memstore and backend/mmapstore.
type StoreType string

const (
	StoreNone        StoreType = "none"
	StoreMemoryMapped StoreType = "memory-mapped"
	StoreChronicle    StoreType = "chronicle"
)

// PersistenceConfig configures the journal each session writes to.
type PersistenceConfig struct {
	StoreType   StoreType `yaml:"store-type"`
	Directory   string    `yaml:"directory"`
	SegmentSize int64     `yaml:"segment-size-bytes"`
}

// Auth holds optional per-session credential material. No transport
// encryption is applied to these values; they are held in memory only for
// the duration the session needs them to build a logon/login message.
type Auth struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SessionConfig is the full set of per-session options the engine
// consumes. Protocol-specific fields are ignored by the other protocol's
// session adapter.
type SessionConfig struct {
	ID       string `yaml:"id"`
	Protocol string `yaml:"protocol"` // "fix" or "ouch"

	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// FIX-specific.
	SenderCompID string `yaml:"sender-comp-id"`
	TargetCompID string `yaml:"target-comp-id"`
	FixVersion   string `yaml:"fix-version"` // e.g. "FIX.4.2"
	ResetOnLogon bool   `yaml:"reset-on-logon"`

	// OUCH-specific.
	SoupUsername string `yaml:"soup-username"`
	RequestedSeq  int64  `yaml:"requested-sequence-number"`

	HeartbeatIntervalSeconds int `yaml:"heartbeat-interval"`

	// EndOfDayUTC, if set, is a "HH:MM:SS" wall-clock time at which the
	// engine cycles a FIX session: send Logout, reset both sequence
	// counters, disconnect, and (for an enabled session) reconnect. OUCH
	// sessions ignore it.
	EndOfDayUTC string `yaml:"end-of-day-utc"`

	Auth        Auth              `yaml:"auth"`
	Persistence PersistenceConfig `yaml:"persistence"`
}

// EngineConfig is the top-level configuration: engine-wide defaults plus
// the list of sessions to manage.
type EngineConfig struct {
	Persistence PersistenceConfig `yaml:"persistence"`
	Sessions    []SessionConfig   `yaml:"sessions"`
}

// ParseConfig decodes an EngineConfig from YAML, applying session-level
// persistence defaults from the engine-wide block where a session omits
// its own, and rejecting unrecognized store types fatally at startup per
// the configured error-handling policy.
func ParseConfig(data []byte) (*EngineConfig, error) {
	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewError("ParseConfig", CodeConfigError, "invalid yaml", err)
	}
	for i := range cfg.Sessions {
		s := &cfg.Sessions[i]
		if s.Persistence.StoreType == "" {
			s.Persistence = cfg.Persistence
		}
		if err := validateStoreType(s.Persistence.StoreType); err != nil {
			return nil, err
		}
		if s.ID == "" {
			return nil, NewError("ParseConfig", CodeConfigError, "session missing id", nil)
		}
		if s.Protocol != "fix" && s.Protocol != "ouch" {
			return nil, NewSessionError("ParseConfig", s.ID, CodeConfigError,
				fmt.Sprintf("unsupported protocol %q", s.Protocol), nil)
		}
	}
	return &cfg, nil
}

func validateStoreType(t StoreType) error {
	switch t {
	case StoreNone, StoreMemoryMapped, StoreChronicle, "":
		return nil
	default:
		return NewError("ParseConfig", CodeConfigError,
			fmt.Sprintf("unknown persistence store-type %q", t), nil)
	}
}
