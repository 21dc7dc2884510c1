package cursor_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/cursor"
	"github.com/basinsync/core/orset"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/policy"
	"github.com/basinsync/core/schema"
	"github.com/basinsync/core/sig"
)

func testSchema() *schema.Node {
	return schema.Struct(map[string]*schema.Node{
		"flag": schema.EWFlag(),
		"note": schema.MVReg(path.PrimStr),
		"tags": schema.Array(schema.MVReg(path.PrimStr)),
		"acl":  schema.Policy(),
	})
}

// newRootedDoc returns a store whose root struct field "acl" already
// carries a root own grant for the document's own keypair, letting that
// same peer write anywhere in the document thereafter.
func newRootedDoc(t *testing.T) (*orset.Store, *schema.Node, *policy.Engine, [32]byte, [32]byte, []byte) {
	t.Helper()
	store := orset.New()
	root := testSchema()
	engine := policy.NewEngine()

	docID, docKey, err := sig.GenerateKey()
	require.NoError(t, err)

	c := cursor.New(store, engine, root, docID, docID, docKey)
	require.NoError(t, c.StructField("acl"))
	require.NoError(t, c.SayCan(path.PeerActor(docID), path.PermOwn, path.Ref{DocID: docID}))

	return store, root, engine, docID, docID, docKey
}

func TestFlagEnableDisable(t *testing.T) {
	store, root, engine, docID, peerID, key := newRootedDoc(t)
	c := cursor.New(store, engine, root, docID, peerID, key)
	require.NoError(t, c.StructField("flag"))

	require.False(t, c.FlagEnabled())
	require.NoError(t, c.FlagEnable())
	require.True(t, c.FlagEnabled())
	require.NoError(t, c.FlagDisable())
	require.False(t, c.FlagEnabled())
}

func TestRegAssignClearAndSet(t *testing.T) {
	store, root, engine, docID, peerID, key := newRootedDoc(t)
	c := cursor.New(store, engine, root, docID, peerID, key)
	require.NoError(t, c.StructField("note"))

	require.Empty(t, c.RegValues())
	require.NoError(t, c.RegAssign(path.Str("hello")))
	require.ElementsMatch(t, []path.Primitive{path.Str("hello")}, c.RegValues())

	require.NoError(t, c.RegAssign(path.Str("world")))
	require.ElementsMatch(t, []path.Primitive{path.Str("world")}, c.RegValues())
}

func TestArrayMoveAndRemove(t *testing.T) {
	store, root, engine, docID, peerID, key := newRootedDoc(t)
	c := cursor.New(store, engine, root, docID, peerID, key)
	require.NoError(t, c.StructField("tags"))

	for _, v := range []string{"a", "b", "c"} {
		_, err := appendArrayElem(c, v)
		require.NoError(t, err)
	}
	require.Equal(t, 3, c.ArrayLength())

	first := c.Clone()
	require.NoError(t, first.ArrayIndex(0))
	require.NoError(t, first.ArrayMove(2))
	require.Equal(t, 3, c.ArrayLength())

	last := c.Clone()
	require.NoError(t, last.ArrayIndex(2))
	vals := last.RegValues()
	require.ElementsMatch(t, []path.Primitive{path.Str("a")}, vals)

	require.NoError(t, first.ArrayRemove())
	require.Equal(t, 2, c.ArrayLength())
}

// appendArrayElem inserts a new array element at the end carrying a single
// mvreg value.
func appendArrayElem(arr *cursor.Cursor, v string) (*cursor.Cursor, error) {
	elem := arr.Clone()
	if err := elem.ArrayInsert(uint32(arr.ArrayLength())); err != nil {
		return nil, err
	}
	if err := elem.RegAssign(path.Str(v)); err != nil {
		return nil, err
	}
	return elem, nil
}

func TestPolicyCanAndSayCan(t *testing.T) {
	store, root, engine, docID, peerID, key := newRootedDoc(t)
	rootCursor := cursor.New(store, engine, root, docID, peerID, key)

	alicePub, aliceKey, err := sig.GenerateKey()
	require.NoError(t, err)

	// The root identity can grant own on any target regardless of actor
	// (spec.md §4.5 step 2), so scoping alice's grant to the "flag"
	// subtree rather than the document root exercises that rule without
	// also needing a further self-signed delegation from alice.
	flagTarget := path.Ref{DocID: docID, Labels: []path.Label{path.FieldLabel("flag")}}

	aclRoot := rootCursor.Clone()
	require.NoError(t, aclRoot.StructField("acl"))
	require.NoError(t, aclRoot.SayCan(path.PeerActor(alicePub), path.PermOwn, flagTarget))

	require.True(t, rootCursor.Can(path.PeerActor(alicePub), path.PermWrite, flagTarget))
	require.False(t, rootCursor.Can(path.PeerActor(alicePub), path.PermOwn, path.Ref{DocID: docID}))

	aliceFlag := cursor.New(store, engine, root, docID, alicePub, aliceKey)
	require.NoError(t, aliceFlag.StructField("flag"))
	require.NoError(t, aliceFlag.FlagEnable())
	require.True(t, aliceFlag.FlagEnabled())
}
