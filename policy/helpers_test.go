package policy

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/path"
	"github.com/basinsync/core/sig"
)

type testPeer struct {
	id   [32]byte
	priv ed25519.PrivateKey
}

func newTestPeer(t *testing.T) testPeer {
	t.Helper()
	id, priv, err := sig.GenerateKey()
	require.NoError(t, err)
	return testPeer{id: id, priv: priv}
}

// signedAtom builds a signed policy path, terminated by atom, authored by
// signer and rooted at docID.
func signedAtom(t *testing.T, docID [32]byte, signer testPeer, atom path.PolicyAtom) path.Path {
	t.Helper()
	p := path.Path{
		DocID:  docID,
		Labels: []path.Label{path.FieldLabel("acl"), path.PolicyLabel(atom)},
	}
	signed, err := sig.Sign(signer.priv, signer.id, p)
	require.NoError(t, err)
	return signed
}

// fixture wires a small ownership tree used across the authorization tests:
// root owns the whole document, alice and carol are both granted Own over
// "sub" (two independent owners of the same subtree), and alice narrows her
// own authority down to a Write grant on "sub/child".
type fixture struct {
	root, alice, carol, bob testPeer
	docID                   [32]byte
	subRef, childRef        path.Ref
	paths                   []path.Path
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := newTestPeer(t)
	alice := newTestPeer(t)
	carol := newTestPeer(t)
	bob := newTestPeer(t)
	docID := root.id

	subRef := path.Ref{DocID: docID, Labels: []path.Label{path.FieldLabel("sub")}}
	childRef := path.Ref{DocID: docID, Labels: []path.Label{path.FieldLabel("sub"), path.FieldLabel("child")}}

	rootOwn := signedAtom(t, docID, root, path.Says(path.PeerActor(root.id), path.PermOwn, path.Ref{DocID: docID}))
	aliceOwnSub := signedAtom(t, docID, root, path.Says(path.PeerActor(alice.id), path.PermOwn, subRef))
	carolOwnSub := signedAtom(t, docID, root, path.Says(path.PeerActor(carol.id), path.PermOwn, subRef))
	aliceWriteChild := signedAtom(t, docID, alice, path.Says(path.PeerActor(alice.id), path.PermWrite, childRef))

	return &fixture{
		root: root, alice: alice, carol: carol, bob: bob,
		docID: docID, subRef: subRef, childRef: childRef,
		paths: []path.Path{rootOwn, aliceOwnSub, carolOwnSub, aliceWriteChild},
	}
}
