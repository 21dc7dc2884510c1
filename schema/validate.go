package schema

import (
	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/path"
)

// step advances one label against node n, returning the node a subsequent
// label would need to match, or an error. Used for every non-terminal
// label in a path (spec.md §4.4, §4.6).
func step(n *Node, l path.Label) (*Node, error) {
	switch n.Kind {
	case KindStruct:
		if l.Kind != path.LabelField {
			return nil, bserr.New(bserr.TypeMismatch, "expected struct field label, got kind %d", l.Kind)
		}
		child, ok := n.Fields[l.Field]
		if !ok {
			return nil, bserr.New(bserr.SchemaViolation, "no field %q in struct", l.Field)
		}
		return child, nil
	case KindTable:
		if !isKeyLabel(l.Kind) {
			return nil, bserr.New(bserr.TypeMismatch, "expected table key label, got kind %d", l.Kind)
		}
		if keyKindOf(l.Kind) != n.KeyType {
			return nil, bserr.New(bserr.TypeMismatch, "table key type mismatch")
		}
		return n.Value, nil
	case KindArray:
		if l.Kind != path.LabelKeyStr {
			return nil, bserr.New(bserr.TypeMismatch, "expected array position-id label, got kind %d", l.Kind)
		}
		return n.Elem, nil
	case KindEWFlag, KindMVReg, KindPolicy:
		// Leaf kinds never have children; a label after one is a schema
		// violation (the path is longer than this document's shape allows).
		return nil, bserr.New(bserr.SchemaViolation, "label past leaf node")
	default:
		return nil, bserr.New(bserr.Invariant, "unknown schema node kind %d", n.Kind)
	}
}

// Step advances one label against node n, for callers (the cursor engine)
// that navigate one label at a time rather than validating a whole path at
// once.
func Step(n *Node, l path.Label) (*Node, error) { return step(n, l) }

// ValidateTerminal checks that a schema leaf node agrees with the label
// kind used to terminate a path there. Called separately from the
// structural walk because a terminal label (ewflag/mvreg/policy) carries
// payload the walk itself does not inspect.
func ValidateTerminal(leaf *Node, l path.Label) error {
	switch leaf.Kind {
	case KindEWFlag:
		if l.Kind != path.LabelEwFlag {
			return bserr.New(bserr.SchemaViolation, "expected ewflag at this position, got kind %d", l.Kind)
		}
	case KindMVReg:
		if l.Kind != path.LabelMvReg {
			return bserr.New(bserr.SchemaViolation, "expected mvreg at this position, got kind %d", l.Kind)
		}
		if l.Value.Kind != leaf.Prim {
			return bserr.New(bserr.TypeMismatch, "mvreg value type mismatch")
		}
	case KindPolicy:
		if l.Kind != path.LabelPolicy {
			return bserr.New(bserr.SchemaViolation, "expected policy atom at this position, got kind %d", l.Kind)
		}
	default:
		return bserr.New(bserr.SchemaViolation, "position is not a leaf (kind %d)", leaf.Kind)
	}
	return nil
}

func isKeyLabel(k path.LabelKind) bool {
	switch k {
	case path.LabelKeyBool, path.LabelKeyU64, path.LabelKeyI64, path.LabelKeyStr:
		return true
	}
	return false
}

func keyKindOf(k path.LabelKind) path.PrimKind {
	switch k {
	case path.LabelKeyBool:
		return path.PrimBool
	case path.LabelKeyU64:
		return path.PrimU64
	case path.LabelKeyI64:
		return path.PrimI64
	case path.LabelKeyStr:
		return path.PrimStr
	}
	return 0
}

// ValidatePath validates a full path's labels (including its terminal)
// against a document's schema root. Fails with SchemaViolation if the
// label sequence does not correspond to any path the schema admits, and
// TypeMismatch if a label's kind disagrees with the schema at that
// position.
func ValidatePath(root *Node, labels []path.Label) error {
	if len(labels) == 0 {
		return bserr.New(bserr.SchemaViolation, "empty path")
	}
	n := root
	for i, l := range labels {
		if i == len(labels)-1 {
			return ValidateTerminal(n, l)
		}
		next, err := step(n, l)
		if err != nil {
			return err
		}
		n = next
	}
	return nil
}

// ValidateRef validates a Ref's labels (no terminal) against root,
// returning the Node the Ref currently points at. The cursor does not call
// it; it type-checks each navigation step with Step.
func ValidateRef(root *Node, labels []path.Label) (*Node, error) {
	n := root
	for _, l := range labels {
		next, err := step(n, l)
		if err != nil {
			return nil, err
		}
		n = next
	}
	return n, nil
}
