package policy

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/path"
)

func TestRootAuthorityGrantsOwnToAnyActor(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	require.True(t, e.Can(path.PeerActor(f.alice.id), path.PermOwn, f.subRef, f.paths))
	require.True(t, e.Can(path.PeerActor(f.alice.id), path.PermOwn, f.childRef, f.paths), "own propagates to descendants")
	require.False(t, e.Can(path.PeerActor(f.alice.id), path.PermOwn, path.Ref{DocID: f.docID}, f.paths), "own does not propagate to ancestors")
	require.False(t, e.Can(path.PeerActor(f.bob.id), path.PermOwn, f.subRef, f.paths), "only the granted actor holds it")
}

func TestOwnerCanSelfNarrowAndThatCoversWrite(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	require.True(t, e.CanWrite(f.alice.id, f.childRef, f.paths))
	require.True(t, e.CanWrite(f.alice.id, f.subRef, f.paths), "the wider own grant already covers write")
	require.False(t, e.CanWrite(f.alice.id, path.Ref{DocID: f.docID}, f.paths), "write does not reach above the owned subtree")
}

func TestOwnerCanDelegateWriteToThirdParty(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	// spec.md's worked delegation example: whoever already holds own over
	// an ancestor target may grant a narrower permission to ANY actor, not
	// only to themselves — ownership delegation is keyed on the signer's
	// own standing in W, not on actor==signer.
	bobGrant := signedAtom(t, f.docID, f.alice, path.Says(path.PeerActor(f.bob.id), path.PermWrite, f.childRef))
	paths := append(append([]path.Path{}, f.paths...), bobGrant)

	require.True(t, e.CanWrite(f.bob.id, f.childRef, paths))
	require.False(t, e.Can(path.PeerActor(f.bob.id), path.PermOwn, f.childRef, paths), "write delegation does not also confer own")
}

func TestControlCanDelegateReadWriteButNotOwn(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	x := newTestPeer(t)
	y := newTestPeer(t)
	docRef := path.Ref{DocID: f.docID}
	tasksRef := path.Ref{DocID: f.docID, Labels: []path.Label{path.FieldLabel("tasks")}}

	rootGrantsControl := signedAtom(t, f.docID, f.root, path.Says(path.PeerActor(x.id), path.PermControl, docRef))
	xGrantsWrite := signedAtom(t, f.docID, x, path.Says(path.PeerActor(y.id), path.PermWrite, tasksRef))
	xAttemptsOwn := signedAtom(t, f.docID, x, path.Says(path.PeerActor(y.id), path.PermOwn, docRef))

	paths := append(append([]path.Path{}, f.paths...), rootGrantsControl, xGrantsWrite, xAttemptsOwn)

	require.True(t, e.CanWrite(y.id, tasksRef, paths), "control delegates write")
	require.False(t, e.Can(path.PeerActor(y.id), path.PermOwn, docRef, paths), "control cannot delegate own")
}

func TestPeerWithNoStandingCannotDelegate(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	stranger := newTestPeer(t)
	// bob holds nothing in W, so any grant he signs has no ancestor
	// own/control backing and is never authorized.
	bobAttempt := signedAtom(t, f.docID, f.bob, path.Says(path.PeerActor(stranger.id), path.PermWrite, f.childRef))
	paths := append(append([]path.Path{}, f.paths...), bobAttempt)

	require.False(t, e.CanWrite(stranger.id, f.childRef, paths))
}

func TestAnonymousGrantExtendsToEveryPeer(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	anonRead := signedAtom(t, f.docID, f.alice, path.Says(path.Anonymous(), path.PermRead, f.subRef))
	paths := append(append([]path.Path{}, f.paths...), anonRead)

	stranger := newTestPeer(t)
	require.True(t, e.Can(path.PeerActor(stranger.id), path.PermRead, f.childRef, paths))
	require.True(t, e.Can(path.Anonymous(), path.PermRead, f.childRef, paths))
}

func TestSaysIfUnboundFallsBackToAnonymousCondition(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	anonRead := signedAtom(t, f.docID, f.alice, path.Says(path.Anonymous(), path.PermRead, f.subRef))
	extraRef := path.Ref{DocID: f.docID, Labels: []path.Label{path.FieldLabel("sub"), path.FieldLabel("extra")}}

	// "whoever (even unidentified) already has read on sub also gets read
	// on sub/extra" — resolved through the unbound actor's anonymous
	// fallback since nobody concrete need be named.
	conditional := signedAtom(t, f.docID, f.alice, path.SaysIf(
		path.Anonymous(), path.PermRead, extraRef,
		path.Unbound("x"), path.PermRead, f.subRef,
	))
	paths := append(append([]path.Path{}, f.paths...), anonRead, conditional)

	stranger := newTestPeer(t)
	require.True(t, e.Can(path.PeerActor(stranger.id), path.PermRead, extraRef, paths))
}

func TestRevocationByRootRemovesGrant(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	hash, err := path.Hash(f.paths[1]) // aliceOwnSub
	require.NoError(t, err)
	revoke := signedAtom(t, f.docID, f.root, path.Revokes(hash))
	paths := append(append([]path.Path{}, f.paths...), revoke)

	require.False(t, e.Can(path.PeerActor(f.alice.id), path.PermOwn, f.subRef, paths))
}

func TestRevocationBySignerIsAlwaysAuthorized(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	anonRead := signedAtom(t, f.docID, f.alice, path.Says(path.Anonymous(), path.PermRead, f.subRef))
	hash, err := path.Hash(anonRead)
	require.NoError(t, err)
	revoke := signedAtom(t, f.docID, f.alice, path.Revokes(hash))

	withGrant := append(append([]path.Path{}, f.paths...), anonRead)
	withRevoke := append(append([]path.Path{}, withGrant...), revoke)

	stranger := newTestPeer(t)
	require.True(t, e.Can(path.PeerActor(stranger.id), path.PermRead, f.childRef, withGrant))
	require.False(t, e.Can(path.PeerActor(stranger.id), path.PermRead, f.childRef, withRevoke))
}

func TestEqualOwnersCannotRevokeEachOther(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	// carol also owns "sub" but holds no strictly greater authority than
	// alice over alice's narrowed write grant, so she cannot revoke it.
	require.False(t, e.CanRevoke(f.carol.id, f.alice.id, f.childRef, f.paths))
}

func TestRootCanRevokeAnything(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	require.True(t, e.CanRevoke(f.root.id, f.alice.id, f.childRef, f.paths))
}

func TestStrangerCannotRevoke(t *testing.T) {
	f := newFixture(t)
	e := NewEngine()

	stranger := newTestPeer(t)
	require.False(t, e.CanRevoke(stranger.id, f.alice.id, f.childRef, f.paths))
}

func TestAncestorOwnerCanRevokeDescendantGrant(t *testing.T) {
	root := newTestPeer(t)
	eve := newTestPeer(t)
	dave := newTestPeer(t)
	docID := root.id

	teamRef := path.Ref{DocID: docID, Labels: []path.Label{path.FieldLabel("team")}}
	eveRef := path.Ref{DocID: docID, Labels: []path.Label{path.FieldLabel("team"), path.FieldLabel("eve")}}
	notesRef := path.Ref{DocID: docID, Labels: []path.Label{path.FieldLabel("team"), path.FieldLabel("eve"), path.FieldLabel("notes")}}

	rootOwn := signedAtom(t, docID, root, path.Says(path.PeerActor(root.id), path.PermOwn, path.Ref{DocID: docID}))
	eveOwn := signedAtom(t, docID, root, path.Says(path.PeerActor(eve.id), path.PermOwn, eveRef))
	daveOwn := signedAtom(t, docID, root, path.Says(path.PeerActor(dave.id), path.PermOwn, teamRef))
	eveWriteNotes := signedAtom(t, docID, eve, path.Says(path.PeerActor(eve.id), path.PermWrite, notesRef))

	paths := []path.Path{rootOwn, eveOwn, daveOwn, eveWriteNotes}
	e := NewEngine()

	require.True(t, e.CanWrite(eve.id, notesRef, paths))
	require.True(t, e.CanRevoke(dave.id, eve.id, notesRef, paths), "dave owns a strict ancestor eve does not")
}
