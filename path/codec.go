package path

import (
	"encoding/binary"
	"fmt"

	"github.com/basinsync/core/bserr"
)

// Canonical wire tags. Order is structural, never lexicographic — the
// decoder rejects any byte sequence that does not reproduce byte-for-byte
// on re-encode (spec.md §4.1).
const (
	tagField   byte = 1
	tagKeyBool byte = 2
	tagKeyU64  byte = 3
	tagKeyI64  byte = 4
	tagKeyStr  byte = 5
	tagEwFlag  byte = 6
	tagMvReg   byte = 7
	tagPolicy  byte = 8

	primBool byte = 1
	primU64  byte = 2
	primI64  byte = 3
	primStr  byte = 4

	actorPeer      byte = 1
	actorAnonymous byte = 2
	actorUnbound   byte = 3

	atomSays    byte = 1
	atomSaysIf  byte = 2
	atomRevokes byte = 3
)

// EncodeWithoutSig canonically encodes everything but the terminal
// peer_id+signature — the bytes that get signed and hashed. The label
// sequence carries no length header: each label is self-delimiting via its
// tag, and the sequence ends at its terminal (ewflag/mvreg/policy) label.
// This makes a path's Ref prefix (§4.3's trie key) a true byte-prefix of
// the path's full encoding, which is what the ORSet store's prefix scans
// rely on.
func EncodeWithoutSig(p Path) ([]byte, error) {
	buf := make([]byte, 0, 128)
	buf = append(buf, p.DocID[:]...)
	for _, l := range p.Labels {
		var err error
		buf, err = appendLabel(buf, l)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// EncodePrefixScan canonically encodes a Ref the same way a path's
// non-terminal labels are encoded, with no count header, for use as a trie
// prefix key (orset.Store scans). Must not be confused with EncodeRef,
// which frames a Ref with an explicit count for nesting inside policy
// atoms.
func EncodePrefixScan(r Ref) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, r.DocID[:]...)
	for _, l := range r.Labels {
		var err error
		buf, err = appendLabel(buf, l)
		if err != nil {
			panic(fmt.Sprintf("path: invalid label in Ref: %v", err))
		}
	}
	return buf
}

// Encode canonically encodes a full, signed path.
func Encode(p Path) ([]byte, error) {
	body, err := EncodeWithoutSig(p)
	if err != nil {
		return nil, err
	}
	body = append(body, p.PeerID[:]...)
	body = append(body, p.Sig[:]...)
	return body, nil
}

// Decode parses a canonically encoded, signed path. It fails with
// MalformedPath on any non-canonical input, including trailing bytes.
func Decode(b []byte) (Path, error) {
	var p Path
	r := &reader{b: b}
	if err := r.readFixed(p.DocID[:]); err != nil {
		return Path{}, err
	}
	for {
		if r.eof() {
			return Path{}, bserr.New(bserr.MalformedPath, "path has no terminal label")
		}
		l, err := readLabel(r)
		if err != nil {
			return Path{}, err
		}
		p.Labels = append(p.Labels, l)
		if l.IsTerminal() {
			break
		}
	}
	if err := r.readFixed(p.PeerID[:]); err != nil {
		return Path{}, err
	}
	if err := r.readFixed(p.Sig[:]); err != nil {
		return Path{}, err
	}
	if !r.eof() {
		return Path{}, bserr.New(bserr.MalformedPath, "trailing bytes after path")
	}
	return p, nil
}

// EncodeRef canonically encodes a Ref (doc_id + label prefix, no terminal,
// no peer/signature) — used for policy target_path/cond_path comparison
// and hashing.
func EncodeRef(r Ref) []byte {
	buf := make([]byte, 0, 64)
	buf = append(buf, r.DocID[:]...)
	buf = appendUvarint(buf, uint64(len(r.Labels)))
	for _, l := range r.Labels {
		// Refs only ever carry non-terminal labels; encoding errors here
		// indicate an internal bug, not malformed wire input.
		var err error
		buf, err = appendLabel(buf, l)
		if err != nil {
			panic(fmt.Sprintf("path: invalid label in Ref: %v", err))
		}
	}
	return buf
}

func appendLabel(buf []byte, l Label) ([]byte, error) {
	switch l.Kind {
	case LabelField:
		buf = append(buf, tagField)
		buf = appendString(buf, l.Field)
	case LabelKeyBool:
		buf = append(buf, tagKeyBool)
		if l.KeyBool {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case LabelKeyU64:
		buf = append(buf, tagKeyU64)
		buf = appendU64(buf, l.KeyU64)
	case LabelKeyI64:
		buf = append(buf, tagKeyI64)
		buf = appendU64(buf, uint64(l.KeyI64))
	case LabelKeyStr:
		buf = append(buf, tagKeyStr)
		buf = appendString(buf, l.KeyStr)
	case LabelEwFlag:
		buf = append(buf, tagEwFlag)
		buf = append(buf, l.Nonce[:]...)
	case LabelMvReg:
		buf = append(buf, tagMvReg)
		buf = append(buf, l.Nonce[:]...)
		var err error
		buf, err = appendPrimitive(buf, l.Value)
		if err != nil {
			return nil, err
		}
	case LabelPolicy:
		buf = append(buf, tagPolicy)
		buf = append(buf, l.Nonce[:]...)
		var err error
		buf, err = appendAtom(buf, l.Atom)
		if err != nil {
			return nil, err
		}
	default:
		return nil, bserr.New(bserr.MalformedPath, "unknown label kind %d", l.Kind)
	}
	return buf, nil
}

func appendPrimitive(buf []byte, v Primitive) ([]byte, error) {
	switch v.Kind {
	case PrimBool:
		buf = append(buf, primBool)
		if v.B {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
		}
	case PrimU64:
		buf = append(buf, primU64)
		buf = appendU64(buf, v.U)
	case PrimI64:
		buf = append(buf, primI64)
		buf = appendU64(buf, uint64(v.I))
	case PrimStr:
		buf = append(buf, primStr)
		buf = appendString(buf, v.S)
	default:
		return nil, bserr.New(bserr.MalformedPath, "unknown primitive kind %d", v.Kind)
	}
	return buf, nil
}

func appendActor(buf []byte, a Actor) ([]byte, error) {
	switch a.Kind {
	case ActorPeer:
		buf = append(buf, actorPeer)
		buf = append(buf, a.Peer[:]...)
	case ActorAnonymous:
		buf = append(buf, actorAnonymous)
	case ActorUnbound:
		buf = append(buf, actorUnbound)
		buf = appendString(buf, a.VarID)
	default:
		return nil, bserr.New(bserr.MalformedPath, "unknown actor kind %d", a.Kind)
	}
	return buf, nil
}

func appendRef(buf []byte, r Ref) ([]byte, error) {
	buf = append(buf, r.DocID[:]...)
	buf = appendUvarint(buf, uint64(len(r.Labels)))
	for _, l := range r.Labels {
		var err error
		buf, err = appendLabel(buf, l)
		if err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func appendAtom(buf []byte, a PolicyAtom) ([]byte, error) {
	var err error
	switch a.Kind {
	case AtomSays:
		buf = append(buf, atomSays)
		if buf, err = appendActor(buf, a.Actor); err != nil {
			return nil, err
		}
		buf = append(buf, byte(a.Perm))
		if buf, err = appendRef(buf, a.Target); err != nil {
			return nil, err
		}
	case AtomSaysIf:
		buf = append(buf, atomSaysIf)
		if buf, err = appendActor(buf, a.Actor); err != nil {
			return nil, err
		}
		buf = append(buf, byte(a.Perm))
		if buf, err = appendRef(buf, a.Target); err != nil {
			return nil, err
		}
		if buf, err = appendActor(buf, a.CondActor); err != nil {
			return nil, err
		}
		buf = append(buf, byte(a.CondPerm))
		if buf, err = appendRef(buf, a.CondPath); err != nil {
			return nil, err
		}
	case AtomRevokes:
		buf = append(buf, atomRevokes)
		buf = append(buf, a.RevokedHash[:]...)
	default:
		return nil, bserr.New(bserr.MalformedPath, "unknown policy atom kind %d", a.Kind)
	}
	return buf, nil
}

func appendString(buf []byte, s string) []byte {
	buf = appendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendUvarint(buf []byte, v uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	return append(buf, tmp[:n]...)
}

// reader walks canonical-encoded bytes, failing with MalformedPath on
// truncation rather than panicking.
type reader struct {
	b   []byte
	off int
}

func (r *reader) eof() bool { return r.off >= len(r.b) }

func (r *reader) readFixed(dst []byte) error {
	if len(r.b)-r.off < len(dst) {
		return bserr.New(bserr.MalformedPath, "truncated input")
	}
	copy(dst, r.b[r.off:])
	r.off += len(dst)
	return nil
}

func (r *reader) readByte() (byte, error) {
	if r.off >= len(r.b) {
		return 0, bserr.New(bserr.MalformedPath, "truncated input")
	}
	b := r.b[r.off]
	r.off++
	return b, nil
}

func (r *reader) readU64() (uint64, error) {
	if len(r.b)-r.off < 8 {
		return 0, bserr.New(bserr.MalformedPath, "truncated input")
	}
	v := binary.LittleEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) readUvarint() (uint64, error) {
	v, n := binary.Uvarint(r.b[r.off:])
	if n <= 0 {
		return 0, bserr.New(bserr.MalformedPath, "invalid varint")
	}
	if n != len(appendUvarint(nil, v)) {
		return 0, bserr.New(bserr.MalformedPath, "non-minimal varint")
	}
	r.off += n
	return v, nil
}

func (r *reader) readString() (string, error) {
	n, err := r.readUvarint()
	if err != nil {
		return "", err
	}
	if uint64(len(r.b)-r.off) < n {
		return "", bserr.New(bserr.MalformedPath, "truncated string")
	}
	s := string(r.b[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

func readLabel(r *reader) (Label, error) {
	tag, err := r.readByte()
	if err != nil {
		return Label{}, err
	}
	switch tag {
	case tagField:
		s, err := r.readString()
		if err != nil {
			return Label{}, err
		}
		return FieldLabel(s), nil
	case tagKeyBool:
		b, err := r.readByte()
		if err != nil {
			return Label{}, err
		}
		if b != 0 && b != 1 {
			return Label{}, bserr.New(bserr.MalformedPath, "invalid bool byte")
		}
		return KeyBoolLabel(b == 1), nil
	case tagKeyU64:
		v, err := r.readU64()
		if err != nil {
			return Label{}, err
		}
		return KeyU64Label(v), nil
	case tagKeyI64:
		v, err := r.readU64()
		if err != nil {
			return Label{}, err
		}
		return KeyI64Label(int64(v)), nil
	case tagKeyStr:
		s, err := r.readString()
		if err != nil {
			return Label{}, err
		}
		return KeyStrLabel(s), nil
	case tagEwFlag:
		var n Nonce
		if err := r.readFixed(n[:]); err != nil {
			return Label{}, err
		}
		return EwFlagLabel(n), nil
	case tagMvReg:
		var n Nonce
		if err := r.readFixed(n[:]); err != nil {
			return Label{}, err
		}
		v, err := readPrimitive(r)
		if err != nil {
			return Label{}, err
		}
		return MvRegLabel(n, v), nil
	case tagPolicy:
		var n Nonce
		if err := r.readFixed(n[:]); err != nil {
			return Label{}, err
		}
		a, err := readAtom(r)
		if err != nil {
			return Label{}, err
		}
		l := PolicyLabel(a)
		l.Nonce = n
		return l, nil
	default:
		return Label{}, bserr.New(bserr.MalformedPath, "unknown label tag %d", tag)
	}
}

func readPrimitive(r *reader) (Primitive, error) {
	tag, err := r.readByte()
	if err != nil {
		return Primitive{}, err
	}
	switch tag {
	case primBool:
		b, err := r.readByte()
		if err != nil {
			return Primitive{}, err
		}
		if b != 0 && b != 1 {
			return Primitive{}, bserr.New(bserr.MalformedPath, "invalid bool byte %d", b)
		}
		return Bool(b == 1), nil
	case primU64:
		v, err := r.readU64()
		if err != nil {
			return Primitive{}, err
		}
		return U64(v), nil
	case primI64:
		v, err := r.readU64()
		if err != nil {
			return Primitive{}, err
		}
		return I64(int64(v)), nil
	case primStr:
		s, err := r.readString()
		if err != nil {
			return Primitive{}, err
		}
		return Str(s), nil
	default:
		return Primitive{}, bserr.New(bserr.MalformedPath, "unknown primitive tag %d", tag)
	}
}

func readActor(r *reader) (Actor, error) {
	tag, err := r.readByte()
	if err != nil {
		return Actor{}, err
	}
	switch tag {
	case actorPeer:
		var id [32]byte
		if err := r.readFixed(id[:]); err != nil {
			return Actor{}, err
		}
		return PeerActor(id), nil
	case actorAnonymous:
		return Anonymous(), nil
	case actorUnbound:
		s, err := r.readString()
		if err != nil {
			return Actor{}, err
		}
		return Unbound(s), nil
	default:
		return Actor{}, bserr.New(bserr.MalformedPath, "unknown actor tag %d", tag)
	}
}

func readRef(r *reader) (Ref, error) {
	var ref Ref
	if err := r.readFixed(ref.DocID[:]); err != nil {
		return Ref{}, err
	}
	n, err := r.readUvarint()
	if err != nil {
		return Ref{}, err
	}
	if n > uint64(len(r.b)-r.off) {
		return Ref{}, bserr.New(bserr.MalformedPath, "ref label count %d exceeds remaining input", n)
	}
	ref.Labels = make([]Label, 0, n)
	for i := uint64(0); i < n; i++ {
		l, err := readLabel(r)
		if err != nil {
			return Ref{}, err
		}
		ref.Labels = append(ref.Labels, l)
	}
	return ref, nil
}

func readAtom(r *reader) (PolicyAtom, error) {
	tag, err := r.readByte()
	if err != nil {
		return PolicyAtom{}, err
	}
	switch tag {
	case atomSays:
		actor, err := readActor(r)
		if err != nil {
			return PolicyAtom{}, err
		}
		permByte, err := r.readByte()
		if err != nil {
			return PolicyAtom{}, err
		}
		target, err := readRef(r)
		if err != nil {
			return PolicyAtom{}, err
		}
		return Says(actor, Perm(permByte), target), nil
	case atomSaysIf:
		actor, err := readActor(r)
		if err != nil {
			return PolicyAtom{}, err
		}
		permByte, err := r.readByte()
		if err != nil {
			return PolicyAtom{}, err
		}
		target, err := readRef(r)
		if err != nil {
			return PolicyAtom{}, err
		}
		condActor, err := readActor(r)
		if err != nil {
			return PolicyAtom{}, err
		}
		condPermByte, err := r.readByte()
		if err != nil {
			return PolicyAtom{}, err
		}
		condPath, err := readRef(r)
		if err != nil {
			return PolicyAtom{}, err
		}
		return SaysIf(actor, Perm(permByte), target, condActor, Perm(condPermByte), condPath), nil
	case atomRevokes:
		var h [32]byte
		if err := r.readFixed(h[:]); err != nil {
			return PolicyAtom{}, err
		}
		return Revokes(h), nil
	default:
		return PolicyAtom{}, bserr.New(bserr.MalformedPath, "unknown policy atom tag %d", tag)
	}
}
