package policy

import (
	"github.com/basinsync/core/path"
)

// stmt is a grant in the derivation working set W: actor holds perm on
// target, having been signed by signer (the peer who authored the
// underlying says/says_if path).
type stmt struct {
	Actor  path.Actor
	Perm   path.Perm
	Target path.Ref
	Signer [32]byte
	Hash   path.DotHash
}

// derive runs spec.md §4.5 steps 1–4 to fixpoint, producing W: the set of
// currently authorized grants, then applies step 5 (revocation) once to
// the saturated set via applyRevocations. Revocation is not part of the
// fixpoint: a revoked statement is removed from W, but statements derived
// while it was still in W during saturation stay.
func (e *Engine) derive(policyPaths []path.Path) []stmt {
	if e.cache != nil {
		e.cache.Purge()
	}

	says, saysIf, revokes, rootOwner := extract(policyPaths)

	var w []stmt
	added := map[path.DotHash]bool{}

	addIfAuthorized := func(s stmt) bool {
		if added[s.Hash] {
			return false
		}
		if !authorizedGrant(w, rootOwner, s) {
			return false
		}
		w = append(w, s)
		added[s.Hash] = true
		return true
	}

	// Bounded fixpoint: each round either adds at least one statement or
	// we stop. Bounded by len(says)+len(saysIf)+1 rounds, so a cyclic
	// condition set (`X can read if X can read`) that never gains a base
	// case simply never enters W (spec.md §9).
	maxRounds := len(says) + len(saysIf) + 1
	for round := 0; round < maxRounds; round++ {
		changed := false

		if e.cache != nil {
			e.cache.Purge() // w grew since the last round; stale memo entries are unsound to keep
		}
		can := e.memoizedCan(w)

		for _, s := range says {
			if addIfAuthorized(s) {
				changed = true
			}
		}

		for _, sif := range saysIf {
			for _, grant := range resolveConditional(w, sif, policyPaths, can) {
				if addIfAuthorized(grant) {
					changed = true
				}
			}
		}

		if !changed {
			break
		}
	}

	return applyRevocations(w, revokes)
}

// extract pulls says/says_if/revokes atoms out of the raw policy paths,
// and the doc_id's root public key (the doc_id itself — the root grant is
// authorized iff signed by the peer equal to the document id, per spec.md
// §4.5 step 2).
func extract(policyPaths []path.Path) (says []stmt, saysIf []sifRule, revokes []revokeRule, rootOwner [32]byte) {
	for _, p := range policyPaths {
		t := p.Terminal()
		if t.Kind != path.LabelPolicy {
			continue
		}
		rootOwner = p.DocID
		h, err := path.Hash(p)
		if err != nil {
			continue
		}
		switch t.Atom.Kind {
		case path.AtomSays:
			says = append(says, stmt{
				Actor: t.Atom.Actor, Perm: t.Atom.Perm, Target: t.Atom.Target,
				Signer: p.PeerID, Hash: h,
			})
		case path.AtomSaysIf:
			saysIf = append(saysIf, sifRule{atom: t.Atom, signer: p.PeerID, hash: h})
		case path.AtomRevokes:
			revokes = append(revokes, revokeRule{hash: t.Atom.RevokedHash, revoker: p.PeerID})
		}
	}
	return says, saysIf, revokes, rootOwner
}

type sifRule struct {
	atom   path.PolicyAtom
	signer [32]byte
	hash   path.DotHash
}

type revokeRule struct {
	hash    path.DotHash
	revoker [32]byte
}

// canFunc answers can(A,p,T) against a fixed, already-captured W.
type canFunc func(actor path.Actor, perm path.Perm, target path.Ref) bool

// memoizedCan returns a canFunc over w, memoized for the duration of one
// saturation round (golang-lru backed — SPEC_FULL.md domain stack).
func (e *Engine) memoizedCan(w []stmt) canFunc {
	if e.cache == nil {
		return func(actor path.Actor, perm path.Perm, target path.Ref) bool {
			return canIn(w, actor, perm, target)
		}
	}
	return func(actor path.Actor, perm path.Perm, target path.Ref) bool {
		key := memoKey(actor, perm, target)
		if v, ok := e.cache.Get(key); ok {
			return v
		}
		v := canIn(w, actor, perm, target)
		e.cache.Add(key, v)
		return v
	}
}

func memoKey(actor path.Actor, perm path.Perm, target path.Ref) string {
	b := path.EncodeRef(target)
	return string(append([]byte{byte(actor.Kind), byte(perm)}, append(actor.Peer[:], b...)...))
}

// resolveConditional evaluates one says_if atom against the
// currently-derived W, producing zero or more candidate says statements
// (spec.md §4.5 step 1). When cond_actor is unbound, it is unified against
// every concrete peer mentioned anywhere in the policy-path set — the
// closed-world unification domain spec.md §9(b) calls for.
func resolveConditional(w []stmt, r sifRule, all []path.Path, can canFunc) []stmt {
	a := r.atom
	var out []stmt

	tryBind := func(bound [32]byte) {
		if !can(path.PeerActor(bound), a.CondPerm, a.CondPath) {
			return
		}
		actor := substitute(a.Actor, a.CondActor, bound)
		out = append(out, stmt{
			Actor: actor, Perm: a.Perm, Target: a.Target,
			Signer: r.signer, Hash: r.hash,
		})
	}

	if a.CondActor.Kind == path.ActorUnbound {
		for _, p := range allPeers(all) {
			tryBind(p)
		}
		if can(path.Anonymous(), a.CondPerm, a.CondPath) {
			actor := substitute(a.Actor, a.CondActor, [32]byte{})
			if actor.Kind != path.ActorUnbound {
				out = append(out, stmt{Actor: actor, Perm: a.Perm, Target: a.Target, Signer: r.signer, Hash: r.hash})
			}
		}
	} else {
		condActor := a.CondActor
		bound := condActor.Peer
		if condActor.Kind == path.ActorAnonymous {
			if can(path.Anonymous(), a.CondPerm, a.CondPath) {
				out = append(out, stmt{Actor: a.Actor, Perm: a.Perm, Target: a.Target, Signer: r.signer, Hash: r.hash})
			}
			return out
		}
		tryBind(bound)
	}
	return out
}

// substitute replaces occurrences of the unbound variable named by cond in
// actor with a concrete peer binding, unifying the same variable wherever
// it appears in one statement (spec.md §9(b)).
func substitute(actor path.Actor, cond path.Actor, bound [32]byte) path.Actor {
	if actor.Kind == path.ActorUnbound && cond.Kind == path.ActorUnbound && actor.VarID == cond.VarID {
		return path.PeerActor(bound)
	}
	return actor
}

func allPeers(policyPaths []path.Path) [][32]byte {
	seen := map[[32]byte]bool{}
	var out [][32]byte
	add := func(id [32]byte) {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, p := range policyPaths {
		add(p.PeerID)
		t := p.Terminal()
		if t.Kind == path.LabelPolicy && t.Atom.Actor.Kind == path.ActorPeer {
			add(t.Atom.Actor.Peer)
		}
	}
	return out
}

// authorizedGrant checks spec.md §4.5 steps 2–4 for a candidate statement
// newly proposed for inclusion in W: root authority, ownership delegation,
// or control delegation.
//
// B in "signed by B" (spec.md §4.5 steps 3, 4) is the statement's signer,
// not its actor: per the worked example in spec.md §8 ("root issues
// says(X, control, doc); X issues says(Y, write, doc.tasks) ... accepted"),
// whoever already holds own/control over an ancestor target may delegate a
// narrower permission to ANY actor, not just to themselves. The signer's
// standing is looked up by actor match (s.Signer as a peer actor), since an
// own/control grant naming them is what a prior root-authority or
// delegation step put into W — it need not have been self-signed.
func authorizedGrant(w []stmt, rootOwner [32]byte, s stmt) bool {
	if s.Perm == path.PermOwn && s.Signer == rootOwner {
		return true // step 2: root authority
	}
	if s.Actor.Kind == path.ActorUnbound {
		// An actor left unbound after substitution never gains authority.
		return false
	}

	signer := path.PeerActor(s.Signer)
	for _, o := range w {
		if !actorMatches(o.Actor, signer) {
			continue
		}
		if !o.Target.Contains(s.Target) {
			continue
		}
		if o.Perm == path.PermOwn {
			return true // step 3: ownership delegation
		}
		if o.Perm == path.PermControl && (s.Perm == path.PermRead || s.Perm == path.PermWrite) {
			return true // step 4: control delegation (cannot delegate own)
		}
	}
	return false
}

// applyRevocations removes from W any statement validly revoked per
// spec.md §4.5 step 5.
func applyRevocations(w []stmt, revokes []revokeRule) []stmt {
	if len(revokes) == 0 {
		return w
	}
	byHash := map[path.DotHash]stmt{}
	for _, s := range w {
		byHash[s.Hash] = s
	}
	removed := map[path.DotHash]bool{}
	for _, r := range revokes {
		target, ok := byHash[r.hash]
		if !ok {
			continue
		}
		if revocationAuthorized(w, r.revoker, target) {
			removed[r.hash] = true
		}
	}
	if len(removed) == 0 {
		return w
	}
	out := make([]stmt, 0, len(w))
	for _, s := range w {
		if !removed[s.Hash] {
			out = append(out, s)
		}
	}
	return out
}

func revocationAuthorized(w []stmt, revoker [32]byte, target stmt) bool {
	if revoker == target.Signer {
		return true // (d)
	}
	if isRoot(w, revoker) {
		return true // (a)
	}
	revokerPerm := bestPerm(w, path.PeerActor(revoker), target.Target)
	if revokerPerm >= path.PermControl && revokerPerm > target.Perm {
		return true // (b)
	}
	for _, o := range w {
		if !actorMatches(o.Actor, path.PeerActor(revoker)) || !isStrictAncestor(o.Target, target.Target) {
			continue
		}
		if bestPerm(w, target.Actor, o.Target) < o.Perm {
			return true // (c)
		}
	}
	return false
}

// isRoot reports whether peer holds the document's root own grant — i.e.
// is named as actor in an own grant covering the whole document, not
// merely whoever signed it (the genesis grant is signed by the document's
// one-time root key, never the peer it names).
func isRoot(w []stmt, peer [32]byte) bool {
	for _, s := range w {
		if actorMatches(s.Actor, path.PeerActor(peer)) && s.Perm == path.PermOwn && len(s.Target.Labels) == 0 {
			return true
		}
	}
	return false
}

func isStrictAncestor(a, b path.Ref) bool {
	return a.Contains(b) && len(a.Labels) < len(b.Labels)
}

// bestPerm returns the strongest permission actor holds on or above target
// in W (used by revocation rules (b)/(c)).
func bestPerm(w []stmt, actor path.Actor, target path.Ref) path.Perm {
	var best path.Perm
	for _, s := range w {
		if !actorMatches(s.Actor, actor) {
			continue
		}
		if !s.Target.Contains(target) {
			continue
		}
		if s.Perm > best {
			best = s.Perm
		}
	}
	return best
}

// canIn implements can(A,p,T): some says(A',p',T') ∈ W with A' ∈ {A,
// anonymous}, p' ≥ p, T' ⊒ T.
func canIn(w []stmt, actor path.Actor, perm path.Perm, target path.Ref) bool {
	for _, s := range w {
		if !actorMatches(s.Actor, actor) && s.Actor.Kind != path.ActorAnonymous {
			continue
		}
		if s.Perm < perm {
			continue
		}
		if !s.Target.Contains(target) {
			continue
		}
		return true
	}
	return false
}

func actorMatches(granted, query path.Actor) bool {
	if granted.Kind != query.Kind {
		return false
	}
	switch granted.Kind {
	case path.ActorPeer:
		return granted.Peer == query.Peer
	case path.ActorAnonymous:
		return true
	default:
		return false
	}
}
