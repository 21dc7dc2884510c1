package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	require.False(t, c.Persistent())
	require.Equal(t, 500*time.Millisecond, c.Backoff.Initial)
	require.Equal(t, 30*time.Second, c.Backoff.Max)
	require.Equal(t, 2.0, c.Backoff.Multiplier)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "basinsync.yaml")
	contents := `
persistence_dir: /var/lib/basinsync
schema_package_path: /etc/basinsync/schemas.json
peers:
  - peer_id: abc123
    multiaddr: "tcp://10.0.0.1:4001"
backoff:
  initial: 1s
  max: 1m
  multiplier: 1.5
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(contents), 0o644))

	c, err := Load(cfgPath)
	require.NoError(t, err)
	require.True(t, c.Persistent())
	require.Equal(t, "/var/lib/basinsync", c.PersistenceDir)
	require.Equal(t, "/etc/basinsync/schemas.json", c.SchemaPackagePath)
	require.Len(t, c.Peers, 1)
	require.Equal(t, "abc123", c.Peers[0].PeerID)
	require.Equal(t, "tcp://10.0.0.1:4001", c.Peers[0].Multiaddr)
	require.Equal(t, time.Second, c.Backoff.Initial)
	require.Equal(t, time.Minute, c.Backoff.Max)
	require.Equal(t, 1.5, c.Backoff.Multiplier)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/basinsync.yaml")
	require.Error(t, err)
}
