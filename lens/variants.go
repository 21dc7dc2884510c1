package lens

import (
	"fmt"

	"github.com/basinsync/core/path"
	"github.com/basinsync/core/schema"
)

// Make declares that a node of the given kind now exists where there was
// none before. It never touches existing label sequences — no data could
// exist under a node that didn't exist yet — so Forward is the identity.
// Its reverse is Destroy.
type Make struct{ Kind schema.NodeKind }

func (m Make) Forward(labels []path.Label) ([]path.Label, bool, error) { return labels, true, nil }
func (m Make) Reverse() Lens                                            { return Destroy{Kind: m.Kind} }
func (m Make) Fingerprint() string                                      { return fmt.Sprintf("make(%d)", m.Kind) }

// Destroy is Make's structural inverse: every path scoped under this node
// is dropped going forward, since the destination schema no longer has it.
type Destroy struct{ Kind schema.NodeKind }

func (d Destroy) Forward(labels []path.Label) ([]path.Label, bool, error) { return nil, false, nil }
func (d Destroy) Reverse() Lens                                            { return Make{Kind: d.Kind} }
func (d Destroy) Fingerprint() string                                      { return fmt.Sprintf("destroy(%d)", d.Kind) }

// AddProperty adds a struct field that holds no data under the source
// schema — Forward is the identity, since nothing could already be
// labeled with this field name. Reverse is RemoveProperty.
type AddProperty struct{ Name string }

func (a AddProperty) Forward(labels []path.Label) ([]path.Label, bool, error) {
	return labels, true, nil
}
func (a AddProperty) Reverse() Lens       { return RemoveProperty{Name: a.Name} }
func (a AddProperty) Fingerprint() string { return "add_property(" + a.Name + ")" }

// RemoveProperty drops any path rooted at this field; it has no home in
// the destination schema.
type RemoveProperty struct{ Name string }

func (r RemoveProperty) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) > 0 && labels[0].Kind == path.LabelField && labels[0].Field == r.Name {
		return nil, false, nil
	}
	return labels, true, nil
}
func (r RemoveProperty) Reverse() Lens       { return AddProperty{Name: r.Name} }
func (r RemoveProperty) Fingerprint() string { return "remove_property(" + r.Name + ")" }

// RenameProperty rewrites a struct field's name, leaving everything
// beneath it untouched.
type RenameProperty struct{ Old, New string }

func (r RenameProperty) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) == 0 || labels[0].Kind != path.LabelField || labels[0].Field != r.Old {
		return labels, true, nil
	}
	out := append([]path.Label{path.FieldLabel(r.New)}, labels[1:]...)
	return out, true, nil
}
func (r RenameProperty) Reverse() Lens { return RenameProperty{Old: r.New, New: r.Old} }
func (r RenameProperty) Fingerprint() string {
	return "rename_property(" + r.Old + "," + r.New + ")"
}

// HoistProperty lifts host.name up to the top level, as name. Fields of
// host other than name are unaffected: they stay under host.
type HoistProperty struct{ Host, Name string }

func (h HoistProperty) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) >= 2 &&
		labels[0].Kind == path.LabelField && labels[0].Field == h.Host &&
		labels[1].Kind == path.LabelField && labels[1].Field == h.Name {
		out := append([]path.Label{path.FieldLabel(h.Name)}, labels[2:]...)
		return out, true, nil
	}
	return labels, true, nil
}
func (h HoistProperty) Reverse() Lens { return PlungeProperty{Host: h.Host, Name: h.Name} }
func (h HoistProperty) Fingerprint() string {
	return "hoist_property(" + h.Host + "," + h.Name + ")"
}

// PlungeProperty is HoistProperty's structural inverse: it pushes a
// top-level field name back down under host.
type PlungeProperty struct{ Host, Name string }

func (p PlungeProperty) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) >= 1 && labels[0].Kind == path.LabelField && labels[0].Field == p.Name {
		out := append([]path.Label{path.FieldLabel(p.Host), path.FieldLabel(p.Name)}, labels[1:]...)
		return out, true, nil
	}
	return labels, true, nil
}
func (p PlungeProperty) Reverse() Lens { return HoistProperty{Host: p.Host, Name: p.Name} }
func (p PlungeProperty) Fingerprint() string {
	return "plunge_property(" + p.Host + "," + p.Name + ")"
}

// Wrap replaces a node with a single-field struct holding it under the
// field "value" — used to give a bare leaf room to grow siblings later.
type Wrap struct{}

func (w Wrap) Forward(labels []path.Label) ([]path.Label, bool, error) {
	out := append([]path.Label{path.FieldLabel("value")}, labels...)
	return out, true, nil
}
func (w Wrap) Reverse() Lens       { return Head{} }
func (w Wrap) Fingerprint() string { return "wrap" }

// Head is Wrap's structural inverse: it projects the "value" field back
// out to its parent's position.
type Head struct{}

func (h Head) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) > 0 && labels[0].Kind == path.LabelField && labels[0].Field == "value" {
		return labels[1:], true, nil
	}
	return labels, true, nil
}
func (h Head) Reverse() Lens       { return Wrap{} }
func (h Head) Fingerprint() string { return "head" }

// LensIn scopes an inner lens to one struct field, leaving paths under
// every other field untouched.
type LensIn struct {
	Name  string
	Inner Lens
}

func (l LensIn) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) == 0 || labels[0].Kind != path.LabelField || labels[0].Field != l.Name {
		return labels, true, nil
	}
	inner, ok, err := l.Inner.Forward(labels[1:])
	if err != nil || !ok {
		return nil, ok, err
	}
	return append([]path.Label{path.FieldLabel(l.Name)}, inner...), true, nil
}
func (l LensIn) Reverse() Lens { return LensIn{Name: l.Name, Inner: l.Inner.Reverse()} }
func (l LensIn) Fingerprint() string {
	return "lens_in(" + l.Name + "," + l.Inner.Fingerprint() + ")"
}

// LensMap applies an inner lens uniformly to every element of a Table or
// Array, leaving the key/position-id label untouched.
type LensMap struct{ Inner Lens }

func (l LensMap) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) == 0 {
		return labels, true, nil
	}
	key := labels[0]
	inner, ok, err := l.Inner.Forward(labels[1:])
	if err != nil || !ok {
		return nil, ok, err
	}
	return append([]path.Label{key}, inner...), true, nil
}
func (l LensMap) Reverse() Lens       { return LensMap{Inner: l.Inner.Reverse()} }
func (l LensMap) Fingerprint() string { return "lens_map(" + l.Inner.Fingerprint() + ")" }

// Convert rewrites an mvreg terminal's value through a pairwise mapping
// (e.g. a string enum renumbered to u64 codes). The mapping must be
// injective for Reverse to be sound; Forward fails with Conflict on a
// value with no entry, rather than silently dropping or passing it
// through unconverted.
type Convert struct {
	From, To path.PrimKind
	Mapping  map[path.Primitive]path.Primitive
}

func (c Convert) Forward(labels []path.Label) ([]path.Label, bool, error) {
	if len(labels) == 0 || labels[0].Kind != path.LabelMvReg {
		return labels, true, nil
	}
	l := labels[0]
	if l.Value.Kind != c.From {
		return labels, true, nil
	}
	v, ok := c.Mapping[l.Value]
	if !ok {
		return nil, false, conflictf("convert: no mapping for value of kind %d", l.Value.Kind)
	}
	out := append([]path.Label{path.MvRegLabel(l.Nonce, v)}, labels[1:]...)
	return out, true, nil
}

func (c Convert) Reverse() Lens {
	inv := make(map[path.Primitive]path.Primitive, len(c.Mapping))
	for k, v := range c.Mapping {
		inv[v] = k // last write wins if Mapping is not injective
	}
	return Convert{From: c.To, To: c.From, Mapping: inv}
}

func (c Convert) Fingerprint() string {
	return fmt.Sprintf("convert(%d,%d,%d entries)", c.From, c.To, len(c.Mapping))
}
