// Package config loads Sdk construction options from a config file,
// environment variables, or both — persistence path, schema package
// path, seed peer addresses, and anti-entropy backoff parameters.
// create_memory needs none of it; it exists for long-lived replicas that
// want their identity and storage location outside source code.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// PeerAddress seeds the Sdk's address book for one known peer at startup
// (spec.md §6's Sdk::add_address, applied before anti-entropy starts).
type PeerAddress struct {
	PeerID    string `mapstructure:"peer_id"`
	Multiaddr string `mapstructure:"multiaddr"`
}

// Backoff configures retry spacing for the out-of-scope anti-entropy
// network loop — the core only carries these numbers through from config
// to whatever calls apply_causal/unjoin on a schedule.
type Backoff struct {
	Initial    time.Duration `mapstructure:"initial"`
	Max        time.Duration `mapstructure:"max"`
	Multiplier float64       `mapstructure:"multiplier"`
}

// Config is a replica's on-disk configuration.
type Config struct {
	// PersistenceDir, if set, selects CreatePersistent over CreateMemory.
	PersistenceDir string `mapstructure:"persistence_dir"`
	// SchemaPackagePath points at the JSON archive LoadSchemaPackage reads.
	SchemaPackagePath string `mapstructure:"schema_package_path"`
	// PeerIdentityPath, if set, points at a file holding a persisted
	// Ed25519 seed for this replica's identity rather than generating one
	// fresh on every start.
	PeerIdentityPath string `mapstructure:"peer_identity_path"`

	Peers   []PeerAddress `mapstructure:"peers"`
	Backoff Backoff       `mapstructure:"backoff"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("backoff.initial", 500*time.Millisecond)
	v.SetDefault("backoff.max", 30*time.Second)
	v.SetDefault("backoff.multiplier", 2.0)
}

// Load reads configuration from path (if non-empty), overlaying any
// BASINSYNC_-prefixed environment variables, and returns the result with
// defaults injected for anything left unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("basinsync")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	for _, key := range []string{"persistence_dir", "schema_package_path", "peer_identity_path"} {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("config: bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &c, nil
}

// Persistent reports whether this config selects CreatePersistent.
func (c *Config) Persistent() bool { return c.PersistenceDir != "" }
