// Package causal implements the delta and causal-context types of spec.md
// §4.8 (C8): the compact digest of known active/expired dots used for
// anti-entropy, and the Causal delta type a cursor emits and the ORSet
// store joins.
package causal

import "github.com/basinsync/core/path"

// CausalContext is a compact digest of a replica's known dots: which
// dot-hashes are active in store and which are expired. A peer's unjoin
// response is the minimal delta converging the requester given this
// context (spec.md §4.3, §4.8).
type CausalContext struct {
	Active  map[path.DotHash]struct{}
	Expired map[path.DotHash]struct{}
}

func NewCausalContext() CausalContext {
	return CausalContext{
		Active:  map[path.DotHash]struct{}{},
		Expired: map[path.DotHash]struct{}{},
	}
}

// Causal is a delta: an application-owned set of paths to add and
// tombstones to apply. It is owned by the application until applied to the
// store, then absorbed (spec.md §3 "Ownership"). A delta produced by a
// single cursor call is joined atomically — no peer ever observes a
// partial transaction (spec.md §5).
type Causal struct {
	Store   []path.Path
	Expired []path.Tombstone
}

// Empty reports whether the delta carries no paths or tombstones — used by
// Doc.Unjoin to tell whether the peer is already in sync.
func (c Causal) Empty() bool {
	return len(c.Store) == 0 && len(c.Expired) == 0
}

// Join composes two deltas produced by separate cursor calls into one
// larger atomic delta, per spec.md §5: "Application-level transactions
// spanning multiple cursor calls are composed via Causal.join(other)
// producing a larger atomic delta before submission."
func (c Causal) Join(other Causal) Causal {
	out := Causal{
		Store:   make([]path.Path, 0, len(c.Store)+len(other.Store)),
		Expired: make([]path.Tombstone, 0, len(c.Expired)+len(other.Expired)),
	}
	out.Store = append(out.Store, c.Store...)
	out.Store = append(out.Store, other.Store...)
	out.Expired = append(out.Expired, c.Expired...)
	out.Expired = append(out.Expired, other.Expired...)
	return out
}
