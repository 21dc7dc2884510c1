// Package schema implements the schema registry (spec.md §4.6, C6): a
// typed tree of node kinds that every path rooted at a document must
// validate against.
package schema

import "github.com/basinsync/core/path"

// NodeKind tags the variant held by a Node.
type NodeKind byte

const (
	KindStruct NodeKind = iota + 1
	KindTable
	KindArray
	KindEWFlag
	KindMVReg
	KindPolicy
)

// Node is one position in a schema tree.
type Node struct {
	Kind NodeKind

	// Struct
	Fields map[string]*Node

	// Table
	KeyType path.PrimKind
	Value   *Node

	// Array
	Elem *Node

	// MVReg
	Prim path.PrimKind
}

func Struct(fields map[string]*Node) *Node { return &Node{Kind: KindStruct, Fields: fields} }
func Table(keyType path.PrimKind, value *Node) *Node {
	return &Node{Kind: KindTable, KeyType: keyType, Value: value}
}
func Array(elem *Node) *Node  { return &Node{Kind: KindArray, Elem: elem} }
func EWFlag() *Node           { return &Node{Kind: KindEWFlag} }
func MVReg(p path.PrimKind) *Node { return &Node{Kind: KindMVReg, Prim: p} }
func Policy() *Node           { return &Node{Kind: KindPolicy} }

// Schema names a document shape at one version (spec.md §4.6). The ordered
// lens history that produced this Root from version 0, and the machinery
// for transforming paths between two versions of the same schema name,
// live in package lens (lens.Registry) — kept out of this package to avoid
// a schema<->lens import cycle, since package lens uses schema.NodeKind
// (the kinds its Make and Destroy lenses carry) but schema itself stays
// lens-agnostic.
type Schema struct {
	Name string
	Root *Node
}
