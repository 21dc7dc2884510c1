// Package cursor implements the cursor engine (spec.md §4.4, C4):
// navigation over a document's schema shape, and the EWFlag/MVReg/ORMap/
// ORArray operation set that turns a position into a signed, policy-
// checked Causal delta. Modeled on the teacher's storage/inmem transaction
// handle — a small struct holding a position plus a reference back to the
// store it reads and writes through.
package cursor

import (
	"crypto/ed25519"

	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/orset"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/schema"
	"github.com/basinsync/core/sig"
)

// Authorizer is the policy engine capability the cursor needs: everything
// orset.PolicyEngine requires for ingest, plus the direct can(A,p,T)
// predicate the Can/SayCan/Cond convenience methods expose. policy.Engine
// satisfies this structurally.
type Authorizer interface {
	orset.PolicyEngine
	Can(actor path.Actor, perm path.Perm, target path.Ref, policyPaths []path.Path) bool
}

// Cursor carries (doc_id, path_prefix, schema_cursor) per spec.md §4.4. It
// is cheap to Clone and holds no lock between calls — each operation
// re-acquires the store's read lock internally via orset.Store.
type Cursor struct {
	store  *orset.Store
	authz  Authorizer
	root   *schema.Node
	node   *schema.Node
	docID  [32]byte
	prefix []path.Label

	peerID  [32]byte
	signKey ed25519.PrivateKey

	onCommit func(delta causal.Causal, expiredRefs map[path.DotHash]path.Ref)
}

// SetOnCommit installs a callback invoked after every delta this cursor (or
// any clone sharing its underlying struct value going forward) successfully
// submits. The cursor itself has no notion of subscribers or persistence —
// this is the seam the sdk package's Doc uses to wire both in without the
// cursor engine depending on either.
func (c *Cursor) SetOnCommit(fn func(delta causal.Causal, expiredRefs map[path.DotHash]path.Ref)) {
	c.onCommit = fn
}

// New returns a cursor positioned at a document's root.
func New(store *orset.Store, authz Authorizer, root *schema.Node, docID, peerID [32]byte, signKey ed25519.PrivateKey) *Cursor {
	return &Cursor{
		store: store, authz: authz, root: root, node: root,
		docID: docID, peerID: peerID, signKey: signKey,
	}
}

// Clone returns an independent cursor over the same document, sharing
// nothing mutable with c — the prefix buffer is copied eagerly (spec.md
// §4.4's Clone operation).
func (c *Cursor) Clone() *Cursor {
	prefix := make([]path.Label, len(c.prefix))
	copy(prefix, c.prefix)
	cp := *c
	cp.prefix = prefix
	return &cp
}

func (c *Cursor) ref() path.Ref { return path.Ref{DocID: c.docID, Labels: c.prefix} }

func (c *Cursor) advance(l path.Label) error {
	next, err := schema.Step(c.node, l)
	if err != nil {
		return err
	}
	c.prefix = append(append([]path.Label{}, c.prefix...), l)
	c.node = next
	return nil
}

// StructField navigates into a struct field.
func (c *Cursor) StructField(name string) error { return c.advance(path.FieldLabel(name)) }

// MapKeyBool navigates into a table keyed by bool.
func (c *Cursor) MapKeyBool(k bool) error { return c.advance(path.KeyBoolLabel(k)) }

// MapKeyU64 navigates into a table keyed by u64.
func (c *Cursor) MapKeyU64(k uint64) error { return c.advance(path.KeyU64Label(k)) }

// MapKeyI64 navigates into a table keyed by i64.
func (c *Cursor) MapKeyI64(k int64) error { return c.advance(path.KeyI64Label(k)) }

// MapKeyStr navigates into a table keyed by string.
func (c *Cursor) MapKeyStr(k string) error { return c.advance(path.KeyStrLabel(k)) }

// sign builds and signs a path terminated by l, rooted at the cursor's
// current prefix.
func (c *Cursor) sign(l path.Label) (path.Path, error) {
	p := path.Path{DocID: c.docID, Labels: append(append([]path.Label{}, c.prefix...), l)}
	return sig.Sign(c.signKey, c.peerID, p)
}

// tombstone signs a tombstone revoking p, authored by the local peer —
// used by every operation that retracts an existing path (flag_disable,
// reg_assign's clear half, map_remove, array_remove, array_move).
func (c *Cursor) tombstone(p path.Path) (path.Tombstone, error) {
	h, err := path.Hash(p)
	if err != nil {
		return path.Tombstone{}, err
	}
	return sig.SignTombstone(c.signKey, c.peerID, h), nil
}

// submit runs delta through the same validation pipeline every other
// ingress path uses (schema, signature, policy), atomically. Authorization
// failures are reported to the caller and nothing is emitted — spec.md
// §4.4's "if not authorized, the cursor returns PermissionDenied and emits
// nothing".
func (c *Cursor) submit(delta causal.Causal) error {
	expiredRefs := make(map[path.DotHash]path.Ref, len(delta.Expired))
	for _, t := range delta.Expired {
		if p, ok := c.store.LookupActive(t.Hash); ok {
			expiredRefs[t.Hash] = p.Ref()
		}
	}
	if err := orset.Ingest(c.store, c.root, c.authz, delta); err != nil {
		return err
	}
	if c.onCommit != nil {
		c.onCommit(delta, expiredRefs)
	}
	return nil
}
