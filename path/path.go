package path

// DotHash is the 32-byte content hash of a canonical-encoded path,
// excluding its signature (spec.md §4.1). Two paths are equal iff their
// dot-hashes are equal.
type DotHash [32]byte

// Path is an ordered label sequence rooted at a document and terminated by
// an authored, signed leaf (spec.md §3). Labels holds the full sequence
// including the terminal label as its last element; Terminal returns it.
type Path struct {
	DocID  [32]byte
	Labels []Label
	PeerID [32]byte
	Sig    [64]byte
}

// Terminal returns the path's terminal label (ewflag, mvreg, or policy).
// Callers must have validated the path first; an empty or non-terminal
// trailing label indicates a malformed path (see Decode and
// schema.ValidatePath).
func (p Path) Terminal() Label {
	if len(p.Labels) == 0 {
		return Label{}
	}
	return p.Labels[len(p.Labels)-1]
}

// Prefix returns the non-terminal label sequence leading to the terminal
// label, i.e. the Ref this path's terminal is rooted at.
func (p Path) Prefix() Ref {
	if len(p.Labels) == 0 {
		return Ref{DocID: p.DocID}
	}
	return Ref{DocID: p.DocID, Labels: p.Labels[:len(p.Labels)-1]}
}

// Ref returns the full path (including its terminal label) as a Ref, for
// use as a policy target or prefix-containment comparison.
func (p Path) Ref() Ref {
	return Ref{DocID: p.DocID, Labels: p.Labels}
}

// Tombstone revokes a previously stored path, identified by its dot-hash,
// per spec.md §3's `tomb := path · peer_id · signature` production: it is
// itself a signed, authored record, but it names the revoked path only by
// hash, never by replaying its bytes.
type Tombstone struct {
	Hash   DotHash
	PeerID [32]byte
	Sig    [64]byte
}
