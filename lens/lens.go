// Package lens implements the bidirectional schema-evolution transform
// (spec.md §4.7, C7): named lenses with a pure structural reverse, and the
// longest-common-prefix pipeline that rewrites a path between two versions
// of the same schema. Modeled on the teacher's ast.Transformer shape
// (ast/transform.go) — a small interface walked over path-shaped data,
// with a GenericTransformer-style closure variant for ad hoc cases.
package lens

import (
	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/path"
)

// Lens is one schema-evolution step (spec.md §4.7). Forward rewrites the
// label suffix remaining at this lens's scope: labels already consumed by
// an enclosing LensIn/LensMap are not passed in. A false ok return means
// the path is dropped by this lens (e.g. RemoveProperty, Destroy) — never
// an error, since a lossy transform is an expected outcome, not a failure.
// Fingerprint gives a stable, content-addressed identity used to compute
// the longest common prefix between two lens histories; two lenses with
// equal Fingerprint are treated as the same evolution step.
type Lens interface {
	Forward(labels []path.Label) (out []path.Label, ok bool, err error)
	Reverse() Lens
	Fingerprint() string
}

// Chain applies a sequence of lenses in order, stopping (and dropping the
// path) as soon as one of them reports ok=false.
func Chain(lenses []Lens, labels []path.Label) ([]path.Label, bool, error) {
	for _, l := range lenses {
		out, ok, err := l.Forward(labels)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
		labels = out
	}
	return labels, true, nil
}

// ReverseChain applies a sequence of lenses' reverses, in reverse order —
// the "apply reverse(L_src[|P|..]) in reverse order" half of spec.md §4.7's
// transform.
func ReverseChain(lenses []Lens, labels []path.Label) ([]path.Label, bool, error) {
	reversed := make([]Lens, len(lenses))
	for i, l := range lenses {
		reversed[len(lenses)-1-i] = l.Reverse()
	}
	return Chain(reversed, labels)
}

// GenericLens adapts two closures to the Lens interface, for one-off
// transforms that don't warrant a named type — mirrors the teacher's
// NewGenericTransformer pattern.
type GenericLens struct {
	ForwardFn func(labels []path.Label) ([]path.Label, bool, error)
	ReverseFn func() Lens
	Fp        string
}

func (g GenericLens) Forward(labels []path.Label) ([]path.Label, bool, error) { return g.ForwardFn(labels) }
func (g GenericLens) Reverse() Lens                                           { return g.ReverseFn() }
func (g GenericLens) Fingerprint() string                                     { return g.Fp }

func conflictf(format string, a ...interface{}) error {
	return bserr.New(bserr.Conflict, format, a...)
}
