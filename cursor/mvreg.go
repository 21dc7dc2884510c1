package cursor

import (
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
)

// RegValues enumerates every currently active mvreg value at the cursor's
// prefix — concurrent writes coexist until the next assign resolves them
// (spec.md §4.4's reg_<T>s).
func (c *Cursor) RegValues() []path.Primitive {
	var out []path.Primitive
	c.store.ScanPrefix(c.ref(), func(p path.Path) {
		if p.Terminal().Kind == path.LabelMvReg {
			out = append(out, p.Terminal().Value)
		}
	})
	return out
}

// RegAssign emits a delta that atomically tombstones every currently
// active mvreg path at the cursor's prefix and adds one fresh mvreg path
// carrying v — clear-and-set MVReg semantics under join (spec.md §4.4).
func (c *Cursor) RegAssign(v path.Primitive) error {
	var delta causal.Causal
	var err error
	c.store.ScanPrefix(c.ref(), func(p path.Path) {
		if err != nil || p.Terminal().Kind != path.LabelMvReg {
			return
		}
		var t path.Tombstone
		t, err = c.tombstone(p)
		if err == nil {
			delta.Expired = append(delta.Expired, t)
		}
	})
	if err != nil {
		return err
	}

	nonce, err := path.NewNonce()
	if err != nil {
		return err
	}
	p, err := c.sign(path.MvRegLabel(nonce, v))
	if err != nil {
		return err
	}
	delta.Store = []path.Path{p}
	return c.submit(delta)
}
