package sig

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/path"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	peerID, priv, err := GenerateKey()
	require.NoError(t, err)

	var docID [32]byte
	docID[0] = 1
	p := path.Path{
		DocID:  docID,
		Labels: []path.Label{path.FieldLabel("name"), path.EwFlagLabel(path.Nonce{1, 2, 3})},
	}

	signed, err := Sign(priv, peerID, p)
	require.NoError(t, err)
	require.Equal(t, peerID, signed.PeerID)
	require.NotZero(t, signed.Sig)

	require.NoError(t, Verify(signed))
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	peerID, priv, err := GenerateKey()
	require.NoError(t, err)

	var docID [32]byte
	p := path.Path{DocID: docID, Labels: []path.Label{path.EwFlagLabel(path.Nonce{9})}}

	signed, err := Sign(priv, peerID, p)
	require.NoError(t, err)

	signed.Labels[0] = path.EwFlagLabel(path.Nonce{8})
	require.Error(t, Verify(signed))
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	peerID, priv, err := GenerateKey()
	require.NoError(t, err)
	otherID, _, err := GenerateKey()
	require.NoError(t, err)

	var docID [32]byte
	p := path.Path{DocID: docID, Labels: []path.Label{path.EwFlagLabel(path.Nonce{1})}}

	signed, err := Sign(priv, peerID, p)
	require.NoError(t, err)

	signed.PeerID = otherID
	require.Error(t, Verify(signed))
}

func TestTombstoneSignVerifyRoundTrip(t *testing.T) {
	peerID, priv, err := GenerateKey()
	require.NoError(t, err)

	hash := path.DotHash{1, 2, 3}
	tomb := SignTombstone(priv, peerID, hash)
	require.Equal(t, hash, tomb.Hash)
	require.Equal(t, peerID, tomb.PeerID)
	require.NoError(t, VerifyTombstone(tomb))

	tomb.Hash[0] ^= 0xff
	require.Error(t, VerifyTombstone(tomb))
}
