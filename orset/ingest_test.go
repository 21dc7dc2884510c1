package orset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/schema"
	"github.com/basinsync/core/sig"
)

func testSchema() *schema.Node {
	return schema.Struct(map[string]*schema.Node{
		"acl":  schema.Policy(),
		"flag": schema.EWFlag(),
	})
}

// permissiveAuthz grants everything; used where the test exercises schema
// or signature validation, not policy.
type permissiveAuthz struct{}

func (permissiveAuthz) CanWrite([32]byte, path.Ref, []path.Path) bool             { return true }
func (permissiveAuthz) CanRevoke([32]byte, [32]byte, path.Ref, []path.Path) bool { return true }

type denyingAuthz struct{}

func (denyingAuthz) CanWrite([32]byte, path.Ref, []path.Path) bool             { return false }
func (denyingAuthz) CanRevoke([32]byte, [32]byte, path.Ref, []path.Path) bool { return false }

func TestIngestRejectsSchemaViolation(t *testing.T) {
	var docID [32]byte
	peerID, priv, err := sig.GenerateKey()
	require.NoError(t, err)

	bad := path.Path{DocID: docID, Labels: []path.Label{path.FieldLabel("nope"), path.EwFlagLabel(path.Nonce{1})}}
	signed, err := sig.Sign(priv, peerID, bad)
	require.NoError(t, err)

	s := New()
	err = Ingest(s, testSchema(), permissiveAuthz{}, causal.Causal{Store: []path.Path{signed}})
	require.Error(t, err)
	require.False(t, s.HasAny(signed.Prefix()))
}

func TestIngestRejectsBadSignature(t *testing.T) {
	var docID [32]byte
	peerID, priv, err := sig.GenerateKey()
	require.NoError(t, err)

	p := path.Path{DocID: docID, Labels: []path.Label{path.FieldLabel("flag"), path.EwFlagLabel(path.Nonce{1})}}
	signed, err := sig.Sign(priv, peerID, p)
	require.NoError(t, err)
	signed.Labels[1] = path.EwFlagLabel(path.Nonce{2}) // tamper after signing

	s := New()
	err = Ingest(s, testSchema(), permissiveAuthz{}, causal.Causal{Store: []path.Path{signed}})
	require.Error(t, err)
}

func TestIngestRejectsUnauthorizedWrite(t *testing.T) {
	var docID [32]byte
	peerID, priv, err := sig.GenerateKey()
	require.NoError(t, err)

	p := path.Path{DocID: docID, Labels: []path.Label{path.FieldLabel("flag"), path.EwFlagLabel(path.Nonce{1})}}
	signed, err := sig.Sign(priv, peerID, p)
	require.NoError(t, err)

	s := New()
	err = Ingest(s, testSchema(), denyingAuthz{}, causal.Causal{Store: []path.Path{signed}})
	require.Error(t, err)
	require.False(t, s.HasAny(signed.Prefix()))
}

func TestIngestAcceptsPolicyPathsWithoutWriteCheck(t *testing.T) {
	var docID [32]byte
	peerID, priv, err := sig.GenerateKey()
	require.NoError(t, err)

	atom := path.Says(path.Anonymous(), path.PermRead, path.Ref{DocID: docID})
	p := path.Path{DocID: docID, Labels: []path.Label{path.FieldLabel("acl"), path.PolicyLabel(atom)}}
	signed, err := sig.Sign(priv, peerID, p)
	require.NoError(t, err)

	s := New()
	// denyingAuthz never grants write, yet a policy-atom path bypasses the
	// CanWrite check entirely (it's gated by the saturation derivation, not
	// by write authority over its own container).
	err = Ingest(s, testSchema(), denyingAuthz{}, causal.Causal{Store: []path.Path{signed}})
	require.NoError(t, err)
	require.True(t, s.HasAny(signed.Prefix()))
}

func TestIngestWholeDeltaRejectedAtomically(t *testing.T) {
	var docID [32]byte
	peerID, priv, err := sig.GenerateKey()
	require.NoError(t, err)

	good := path.Path{DocID: docID, Labels: []path.Label{path.FieldLabel("flag"), path.EwFlagLabel(path.Nonce{1})}}
	signedGood, err := sig.Sign(priv, peerID, good)
	require.NoError(t, err)

	bad := path.Path{DocID: docID, Labels: []path.Label{path.FieldLabel("nope"), path.EwFlagLabel(path.Nonce{2})}}
	signedBad, err := sig.Sign(priv, peerID, bad)
	require.NoError(t, err)

	s := New()
	err = Ingest(s, testSchema(), permissiveAuthz{}, causal.Causal{Store: []path.Path{signedGood, signedBad}})
	require.Error(t, err)
	require.False(t, s.HasAny(signedGood.Prefix()), "no prefix of a rejected delta is ever applied")
}

func TestIngestProvisionallyAcceptsTombstoneForUnknownPath(t *testing.T) {
	peerID, priv, err := sig.GenerateKey()
	require.NoError(t, err)

	tomb := sig.SignTombstone(priv, peerID, path.DotHash{1, 2, 3})

	s := New()
	err = Ingest(s, testSchema(), denyingAuthz{}, causal.Causal{Expired: []path.Tombstone{tomb}})
	require.NoError(t, err, "an unknown target's authorization is enforced retroactively, not at ingest time")
}
