package cursor

import (
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
)

// Condition is the (actor, perm, target) triple a conditional grant waits
// on, built by Cond and consumed by SayCanIf (spec.md §4.4's cond /
// say_can_if).
type Condition struct {
	Actor path.Actor
	Perm  path.Perm
	Path  path.Ref
}

// Ref exposes the cursor's current position as a Ref, for use as a policy
// target by Can/Cond/SayCan/SayCanIf — the atom granting the permission
// need not live at the same schema position as the subtree it governs, so
// target is always named explicitly rather than assumed.
func (c *Cursor) Ref() path.Ref { return c.ref() }

// Can reports whether actor holds at least perm on target, under the
// document's currently stored policy paths (spec.md §4.4/§4.5's can).
func (c *Cursor) Can(actor path.Actor, perm path.Perm, target path.Ref) bool {
	return c.authz.Can(actor, perm, target, c.store.PolicyPaths(c.docID))
}

// Cond builds a Condition naming target — the `cond_path` half of a
// says_if atom.
func (c *Cursor) Cond(actor path.Actor, perm path.Perm, target path.Ref) Condition {
	return Condition{Actor: actor, Perm: perm, Path: target}
}

// SayCan emits an unconditional says(actor, perm, target) policy atom at
// the cursor's current position (which must be a schema-typed Policy
// leaf), authored by the local peer. Policy atoms are exempt from the
// write-authorization check at ingest — whether this grant actually
// contributes to the derived working set is decided lazily, every time
// it's consulted (spec.md §4.5 steps 2-4).
func (c *Cursor) SayCan(actor path.Actor, perm path.Perm, target path.Ref) error {
	nonce, err := path.NewNonce()
	if err != nil {
		return err
	}
	l := path.PolicyLabel(path.Says(actor, perm, target))
	l.Nonce = nonce
	p, err := c.sign(l)
	if err != nil {
		return err
	}
	return c.submit(causal.Causal{Store: []path.Path{p}})
}

// SayCanIf emits a conditional says_if(actor, perm, target, cond) policy
// atom at the cursor's current position.
func (c *Cursor) SayCanIf(actor path.Actor, perm path.Perm, target path.Ref, cond Condition) error {
	nonce, err := path.NewNonce()
	if err != nil {
		return err
	}
	atom := path.SaysIf(actor, perm, target, cond.Actor, cond.Perm, cond.Path)
	l := path.PolicyLabel(atom)
	l.Nonce = nonce
	p, err := c.sign(l)
	if err != nil {
		return err
	}
	return c.submit(causal.Causal{Store: []path.Path{p}})
}
