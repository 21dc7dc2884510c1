package path

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/bserr"
)

func samplePath(t *testing.T) Path {
	t.Helper()
	var docID, peerID [32]byte
	docID[0], peerID[0] = 1, 2
	return Path{
		DocID: docID,
		Labels: []Label{
			FieldLabel("profile"),
			KeyStrLabel("alice"),
			EwFlagLabel(Nonce{9, 9, 9}),
		},
		PeerID: peerID,
		Sig:    [64]byte{7, 7, 7},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := samplePath(t)
	enc, err := Encode(p)
	require.NoError(t, err)

	got, err := Decode(enc)
	require.NoError(t, err)
	require.Equal(t, p.DocID, got.DocID)
	require.Equal(t, p.PeerID, got.PeerID)
	require.Equal(t, p.Sig, got.Sig)
	require.Len(t, got.Labels, len(p.Labels))
	for i := range p.Labels {
		require.True(t, p.Labels[i].Equal(got.Labels[i]), "label %d mismatch", i)
	}
}

func TestDecodeRejectsTrailingBytes(t *testing.T) {
	p := samplePath(t)
	enc, err := Encode(p)
	require.NoError(t, err)

	_, err = Decode(append(enc, 0xff))
	require.Error(t, err)
	require.True(t, bserr.IsMalformedPath(err))
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	p := samplePath(t)
	enc, err := Encode(p)
	require.NoError(t, err)

	_, err = Decode(enc[:len(enc)-10])
	require.Error(t, err)
}

func TestPrefixIsBytewisePrefixOfEncoding(t *testing.T) {
	p := samplePath(t)
	full, err := EncodeWithoutSig(p)
	require.NoError(t, err)

	prefix := EncodePrefixScan(p.Prefix())
	require.True(t, len(prefix) < len(full))
	require.Equal(t, prefix, full[:len(prefix)])
}

func TestRefRoundTripsThroughTerminal(t *testing.T) {
	p := samplePath(t)
	ref := p.Ref()
	require.Equal(t, p.DocID, ref.DocID)
	require.Equal(t, p.Labels, ref.Labels)
}

func TestLabelEqualDistinguishesNonces(t *testing.T) {
	a := EwFlagLabel(Nonce{1})
	b := EwFlagLabel(Nonce{2})
	require.False(t, a.Equal(b))
	require.True(t, a.Equal(EwFlagLabel(Nonce{1})))
}

