package path

// LabelKind tags the variant held by a Label, matching the grammar in
// spec.md §3:
//
//	label := doc_id | field(str) | key(prim) | ewflag(nonce)
//	       | mvreg(nonce, prim) | policy(policy_atom)
type LabelKind byte

const (
	LabelField LabelKind = iota + 1
	LabelKeyBool
	LabelKeyU64
	LabelKeyI64
	LabelKeyStr
	LabelEwFlag
	LabelMvReg
	LabelPolicy
)

// Nonce makes an authored atom unique; ewflag, mvreg and policy labels
// each carry one.
type Nonce [16]byte

// Label is one element of a path's label sequence. Only one of the fields
// is meaningful, selected by Kind — the tagged-variant representation
// spec.md §9 ("Polymorphism") calls for.
type Label struct {
	Kind LabelKind

	Field string

	KeyBool bool
	KeyU64  uint64
	KeyI64  int64
	KeyStr  string

	Nonce Nonce // ewflag, mvreg, policy
	Value Primitive // mvreg

	Atom PolicyAtom // policy
}

func FieldLabel(name string) Label { return Label{Kind: LabelField, Field: name} }
func KeyBoolLabel(k bool) Label    { return Label{Kind: LabelKeyBool, KeyBool: k} }
func KeyU64Label(k uint64) Label   { return Label{Kind: LabelKeyU64, KeyU64: k} }
func KeyI64Label(k int64) Label    { return Label{Kind: LabelKeyI64, KeyI64: k} }
func KeyStrLabel(k string) Label   { return Label{Kind: LabelKeyStr, KeyStr: k} }

func EwFlagLabel(n Nonce) Label { return Label{Kind: LabelEwFlag, Nonce: n} }

func MvRegLabel(n Nonce, v Primitive) Label {
	return Label{Kind: LabelMvReg, Nonce: n, Value: v}
}

func PolicyLabel(atom PolicyAtom) Label { return Label{Kind: LabelPolicy, Atom: atom} }

// IsTerminal reports whether this label kind may end a path (the grammar's
// `(ewflag | mvreg | policy)` alternative).
func (l Label) IsTerminal() bool {
	switch l.Kind {
	case LabelEwFlag, LabelMvReg, LabelPolicy:
		return true
	default:
		return false
	}
}

// KeyPrimitive extracts the key as a Primitive, for labels of kind
// LabelKey*. Panics on other kinds; callers must check Kind first.
func (l Label) KeyPrimitive() Primitive {
	switch l.Kind {
	case LabelKeyBool:
		return Bool(l.KeyBool)
	case LabelKeyU64:
		return U64(l.KeyU64)
	case LabelKeyI64:
		return I64(l.KeyI64)
	case LabelKeyStr:
		return Str(l.KeyStr)
	default:
		panic("path: KeyPrimitive on non-key label")
	}
}

// Equal reports whether two labels are structurally identical. Nonces
// participate so that two ewflag/mvreg labels issued independently are
// never equal.
func (l Label) Equal(o Label) bool {
	if l.Kind != o.Kind {
		return false
	}
	switch l.Kind {
	case LabelField:
		return l.Field == o.Field
	case LabelKeyBool:
		return l.KeyBool == o.KeyBool
	case LabelKeyU64:
		return l.KeyU64 == o.KeyU64
	case LabelKeyI64:
		return l.KeyI64 == o.KeyI64
	case LabelKeyStr:
		return l.KeyStr == o.KeyStr
	case LabelEwFlag:
		return l.Nonce == o.Nonce
	case LabelMvReg:
		return l.Nonce == o.Nonce && l.Value.Equal(o.Value)
	case LabelPolicy:
		return l.Nonce == o.Nonce // policy atoms are distinguished by dot-hash, not deep-equal here
	}
	return false
}
