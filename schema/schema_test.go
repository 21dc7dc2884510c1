package schema

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/path"
)

func sampleRoot() *Node {
	return Struct(map[string]*Node{
		"name":    MVReg(path.PrimStr),
		"done":    EWFlag(),
		"acl":     Policy(),
		"friends": Array(MVReg(path.PrimStr)),
		"scores":  Table(path.PrimStr, MVReg(path.PrimU64)),
	})
}

func TestValidatePathAcceptsEveryLeafKind(t *testing.T) {
	root := sampleRoot()

	require.NoError(t, ValidatePath(root, []path.Label{
		path.FieldLabel("name"), path.MvRegLabel(path.Nonce{1}, path.Str("alice")),
	}))
	require.NoError(t, ValidatePath(root, []path.Label{
		path.FieldLabel("done"), path.EwFlagLabel(path.Nonce{2}),
	}))
	require.NoError(t, ValidatePath(root, []path.Label{
		path.FieldLabel("acl"), path.PolicyLabel(path.Says(path.Anonymous(), path.PermRead, path.Ref{})),
	}))
	require.NoError(t, ValidatePath(root, []path.Label{
		path.FieldLabel("friends"), path.KeyStrLabel("pos-1"), path.MvRegLabel(path.Nonce{3}, path.Str("bob")),
	}))
	require.NoError(t, ValidatePath(root, []path.Label{
		path.FieldLabel("scores"), path.KeyStrLabel("alice"), path.MvRegLabel(path.Nonce{4}, path.U64(7)),
	}))
}

func TestValidatePathRejectsUnknownField(t *testing.T) {
	err := ValidatePath(sampleRoot(), []path.Label{
		path.FieldLabel("nope"), path.EwFlagLabel(path.Nonce{1}),
	})
	require.Error(t, err)
	require.True(t, bserr.IsSchemaViolation(err))
}

func TestValidatePathRejectsTypeMismatch(t *testing.T) {
	root := sampleRoot()
	err := ValidatePath(root, []path.Label{
		path.FieldLabel("scores"), path.KeyU64Label(1), path.MvRegLabel(path.Nonce{1}, path.U64(1)),
	})
	require.Error(t, err)
	require.True(t, bserr.IsTypeMismatch(err))
}

func TestValidatePathRejectsLabelPastLeaf(t *testing.T) {
	root := sampleRoot()
	err := ValidatePath(root, []path.Label{
		path.FieldLabel("done"), path.EwFlagLabel(path.Nonce{1}), path.FieldLabel("x"),
	})
	require.Error(t, err)
}

func TestValidateRefReturnsPointedAtNode(t *testing.T) {
	root := sampleRoot()
	n, err := ValidateRef(root, []path.Label{path.FieldLabel("friends"), path.KeyStrLabel("pos-1")})
	require.NoError(t, err)
	require.Equal(t, KindMVReg, n.Kind)
}

func TestValidateTerminalMvregTypeMismatch(t *testing.T) {
	leaf := MVReg(path.PrimStr)
	err := ValidateTerminal(leaf, path.MvRegLabel(path.Nonce{1}, path.U64(1)))
	require.Error(t, err)
	require.True(t, bserr.IsTypeMismatch(err))
}
