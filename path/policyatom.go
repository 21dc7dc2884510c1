package path

// ActorKind tags the variant held by an Actor.
type ActorKind byte

const (
	ActorPeer ActorKind = iota + 1
	ActorAnonymous
	ActorUnbound
)

// Actor identifies who a policy statement grants to, or conditions on.
// `unbound` carries a variable id that the policy engine unifies during
// conditional resolution (spec.md §4.5 step 1).
type Actor struct {
	Kind    ActorKind
	Peer    [32]byte
	VarID   string
}

func PeerActor(id [32]byte) Actor { return Actor{Kind: ActorPeer, Peer: id} }
func Anonymous() Actor            { return Actor{Kind: ActorAnonymous} }
func Unbound(varID string) Actor  { return Actor{Kind: ActorUnbound, VarID: varID} }

// Perm is one of {read, write, control, own}, ordered by strength so
// `p' >= p` comparisons in spec.md §4.5 are plain integer comparisons.
type Perm byte

const (
	PermRead Perm = iota + 1
	PermWrite
	PermControl
	PermOwn
)

func (p Perm) AtLeast(q Perm) bool { return p >= q }

// Ref names a position within a document: the doc_id plus the label
// sequence leading to it, with no terminal/peer/signature. Policy atoms use
// Ref as their `target_path`; prefix containment (T' ⊒ T) is computed over
// Refs directly.
type Ref struct {
	DocID  [32]byte
	Labels []Label
}

// Contains reports whether r is a prefix of (or equal to) other — the ⊒
// relation spec.md §4.5 uses for ownership/control propagation to
// descendants.
func (r Ref) Contains(other Ref) bool {
	if r.DocID != other.DocID {
		return false
	}
	if len(r.Labels) > len(other.Labels) {
		return false
	}
	for i, l := range r.Labels {
		if !l.Equal(other.Labels[i]) {
			return false
		}
	}
	return true
}

// PolicyAtomKind tags the variant held by a PolicyAtom.
type PolicyAtomKind byte

const (
	AtomSays PolicyAtomKind = iota + 1
	AtomSaysIf
	AtomRevokes
)

// PolicyAtom is one of {says, says_if, revokes}, embedded as the terminal
// label of a policy path (spec.md §3).
type PolicyAtom struct {
	Kind PolicyAtomKind

	// says(actor, perm, target_path)
	Actor  Actor
	Perm   Perm
	Target Ref

	// says_if(actor, perm, target_path, cond_actor, cond_perm, cond_path)
	CondActor Actor
	CondPerm  Perm
	CondPath  Ref

	// revokes(hash(path))
	RevokedHash [32]byte
}

func Says(actor Actor, perm Perm, target Ref) PolicyAtom {
	return PolicyAtom{Kind: AtomSays, Actor: actor, Perm: perm, Target: target}
}

func SaysIf(actor Actor, perm Perm, target Ref, condActor Actor, condPerm Perm, condPath Ref) PolicyAtom {
	return PolicyAtom{
		Kind: AtomSaysIf, Actor: actor, Perm: perm, Target: target,
		CondActor: condActor, CondPerm: condPerm, CondPath: condPath,
	}
}

func Revokes(hash [32]byte) PolicyAtom {
	return PolicyAtom{Kind: AtomRevokes, RevokedHash: hash}
}
