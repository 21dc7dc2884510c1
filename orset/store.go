// Package orset implements the path-structured ORSet store (spec.md §4.3,
// C3): store/expired sets of signed paths, delta join, causal-context
// unjoin, and the prefix-indexed trie the cursor engine scans. Modeled on
// the teacher's storage/inmem package — a single RWMutex-guarded store with
// a handle-per-transaction pattern — generalized from JSON documents to
// signed, schema-typed paths.
package orset

import (
	"sync"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
	"github.com/tchap/go-patricia/v2/patricia"
)

// PolicyEngine authorizes candidate writes and revocations against a
// snapshot of the store's currently-valid policy paths. Defined here
// rather than imported from package policy so orset never depends on the
// policy derivation implementation — policy.Engine satisfies this
// interface structurally.
type PolicyEngine interface {
	// CanWrite reports whether author may write at target, given the
	// current set of signed, stored policy paths.
	CanWrite(author [32]byte, target path.Ref, policyPaths []path.Path) bool
	// CanRevoke reports whether revoker may tombstone a path authored by
	// the given peer, rooted at subject.
	CanRevoke(revoker [32]byte, author [32]byte, subject path.Ref, policyPaths []path.Path) bool
}

// Store is one document's replicated state: an ORSet of signed paths,
// guarded by a single reader-writer lock per spec.md §5. Readers include
// flag_enabled, value iteration, authorization checks, and causal-context
// snapshots; the only writer is Join.
type Store struct {
	mu sync.RWMutex

	// trie indexes store entries by their full canonical encoding
	// (path.Encode), so a Ref's EncodePrefixScan bytes are always a
	// byte-prefix of every path rooted there (spec.md §4.3's "indexed by
	// path prefix for range scans").
	trie *patricia.Trie

	byHash  map[path.DotHash]path.Path
	expired map[path.DotHash]path.Tombstone
}

// New returns an empty document store.
func New() *Store {
	return &Store{
		trie:    patricia.NewTrie(),
		byHash:  map[path.DotHash]path.Path{},
		expired: map[path.DotHash]path.Tombstone{},
	}
}

// Join absorbs a delta into the store. It assumes the delta has already
// passed signature, schema and policy validation (see Ingest) — Join
// itself implements only the ORSet algebra of spec.md §4.3 and is
// idempotent, commutative and associative by construction.
func (s *Store) Join(delta causal.Causal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range delta.Expired {
		if _, ok := s.expired[t.Hash]; !ok {
			s.expired[t.Hash] = t
		}
		if p, ok := s.byHash[t.Hash]; ok {
			s.removeLocked(p)
		}
	}
	for _, p := range delta.Store {
		h, err := path.Hash(p)
		if err != nil {
			return bserr.Wrap(bserr.Invariant, err, "hash path during join")
		}
		if _, tombstoned := s.expired[h]; tombstoned {
			continue
		}
		if _, present := s.byHash[h]; present {
			continue
		}
		key, err := path.Encode(p)
		if err != nil {
			return bserr.Wrap(bserr.Invariant, err, "encode path during join")
		}
		s.trie.Insert(patricia.Prefix(key), p)
		s.byHash[h] = p
	}
	return nil
}

func (s *Store) removeLocked(p path.Path) {
	h, err := path.Hash(p)
	if err != nil {
		return
	}
	key, err := path.Encode(p)
	if err != nil {
		return
	}
	s.trie.Delete(patricia.Prefix(key))
	delete(s.byHash, h)
}

// Unjoin produces the minimal delta converging a peer holding ctx with this
// replica (spec.md §4.3): every active path whose hash the peer doesn't
// already know about (as active or expired), plus every tombstone the peer
// doesn't have yet.
func (s *Store) Unjoin(ctx causal.CausalContext) causal.Causal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out causal.Causal
	for h, p := range s.byHash {
		_, knownActive := ctx.Active[h]
		_, knownExpired := ctx.Expired[h]
		if !knownActive && !knownExpired {
			out.Store = append(out.Store, p)
		}
	}
	for h, t := range s.expired {
		if _, known := ctx.Expired[h]; !known {
			out.Expired = append(out.Expired, t)
		}
	}
	return out
}

// CausalContext snapshots the store's known active and expired dot-hashes.
func (s *Store) CausalContext() causal.CausalContext {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := causal.NewCausalContext()
	for h := range s.byHash {
		ctx.Active[h] = struct{}{}
	}
	for h := range s.expired {
		ctx.Expired[h] = struct{}{}
	}
	return ctx
}

// ScanPrefix calls visit for every active path rooted at ref, in trie
// iteration order (not sorted — callers needing sorted order, e.g. the
// cursor's array accessor, sort the results themselves).
func (s *Store) ScanPrefix(ref path.Ref, visit func(path.Path)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := patricia.Prefix(path.EncodePrefixScan(ref))
	_ = s.trie.VisitSubtree(prefix, func(_ patricia.Prefix, item patricia.Item) error {
		visit(item.(path.Path))
		return nil
	})
}

// HasAny reports whether any active path is rooted at ref.
func (s *Store) HasAny(ref path.Ref) bool {
	found := false
	s.ScanPrefix(ref, func(path.Path) { found = true })
	return found
}

// LookupActive returns the active path with the given dot-hash, if any.
func (s *Store) LookupActive(h path.DotHash) (path.Path, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.byHash[h]
	return p, ok
}

// PolicyPaths returns a snapshot of every active path whose terminal label
// is a policy atom, rooted at the given document — the set S the policy
// engine saturates over (spec.md §4.5).
func (s *Store) PolicyPaths(docID [32]byte) []path.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []path.Path
	for _, p := range s.byHash {
		if p.DocID == docID && p.Terminal().Kind == path.LabelPolicy {
			out = append(out, p)
		}
	}
	return out
}
