// Package policy implements the inference procedure over signed policy
// statements (spec.md §4.5, C5): a saturation-based derivation of the
// working set W of currently-authorized grants, used to answer can(A,p,T)
// for every replicated write and revocation. Modeled on the teacher's
// topdown package's iterate-to-fixpoint evaluation shape — rounds repeated
// until no statement gains new support, with statements deduplicated by
// dot-hash and the number of rounds bounded so cycles terminate (spec.md
// §9).
package policy

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/basinsync/core/path"
)

// Engine derives authorization decisions from a snapshot of policy paths.
// It carries no state across calls — snapshot-scoped memoization only —
// matching spec.md §9's "no global state is required" and the
// authorization-determinism property (spec.md §8): identical policy-path
// sets always yield identical decisions.
type Engine struct {
	cache *lru.Cache[string, bool]
}

// NewEngine constructs a policy engine with a bounded memoization cache for
// repeated sub-goals within a single derivation (spec.md SPEC_FULL domain
// stack: golang-lru backs this).
func NewEngine() *Engine {
	c, _ := lru.New[string, bool](4096)
	return &Engine{cache: c}
}

// Can reports whether actor holds at least perm on target, under the
// policy paths given. This is the can(A,p,T) predicate of spec.md §4.5,
// exposed directly for the Cursor's `can` operation.
func (e *Engine) Can(actor path.Actor, perm path.Perm, target path.Ref, policyPaths []path.Path) bool {
	w := e.derive(policyPaths)
	return canIn(w, actor, perm, target)
}

// CanWrite satisfies orset.PolicyEngine: a peer may write at target iff it
// can(peer, write, target).
func (e *Engine) CanWrite(author [32]byte, target path.Ref, policyPaths []path.Path) bool {
	return e.Can(path.PeerActor(author), path.PermWrite, target, policyPaths)
}

// CanRevoke satisfies orset.PolicyEngine: an ORSet-level tombstone of a
// path authored by `author`, rooted at `subject`, is accepted from
// `revoker` under the same rule spec.md §4.5 step 5 uses for policy-grant
// revocation: revoker is root, holds control-or-better on subject strictly
// exceeding author's permission there, holds permission on an ancestor
// author lacks, or revoker is the author.
func (e *Engine) CanRevoke(revoker, author [32]byte, subject path.Ref, policyPaths []path.Path) bool {
	if revoker == author {
		return true
	}
	w := e.derive(policyPaths)
	if isRoot(w, revoker) {
		return true
	}
	revokerPerm := bestPerm(w, path.PeerActor(revoker), subject)
	authorPerm := bestPerm(w, path.PeerActor(author), subject)
	if revokerPerm >= path.PermControl && revokerPerm > authorPerm {
		return true
	}
	// (c) revoker holds permission on an ancestor of subject that the
	// author does not.
	for _, stmt := range w {
		if !isStrictAncestor(stmt.Target, subject) {
			continue
		}
		if stmt.Actor.Kind != path.ActorPeer || stmt.Actor.Peer != revoker {
			continue
		}
		if bestPerm(w, path.PeerActor(author), stmt.Target) < stmt.Perm {
			return true
		}
	}
	return false
}
