package causal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/path"
)

func TestCausalEmpty(t *testing.T) {
	require.True(t, Causal{}.Empty())
	require.False(t, Causal{Store: []path.Path{{}}}.Empty())
	require.False(t, Causal{Expired: []path.Tombstone{{}}}.Empty())
}

func TestCausalJoinConcatenates(t *testing.T) {
	p1 := path.Path{DocID: [32]byte{1}}
	p2 := path.Path{DocID: [32]byte{2}}
	t1 := path.Tombstone{Hash: path.DotHash{3}}

	a := Causal{Store: []path.Path{p1}}
	b := Causal{Store: []path.Path{p2}, Expired: []path.Tombstone{t1}}

	joined := a.Join(b)
	require.Equal(t, []path.Path{p1, p2}, joined.Store)
	require.Equal(t, []path.Tombstone{t1}, joined.Expired)

	// the inputs are untouched
	require.Len(t, a.Store, 1)
	require.Len(t, b.Store, 1)
}

func TestNewCausalContextIsEmptyAndNonNil(t *testing.T) {
	cc := NewCausalContext()
	require.NotNil(t, cc.Active)
	require.NotNil(t, cc.Expired)
	require.Len(t, cc.Active, 0)
	require.Len(t, cc.Expired, 0)
}
