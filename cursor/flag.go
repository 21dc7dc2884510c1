package cursor

import (
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
)

// FlagEnabled reports whether any ewflag path with the cursor's prefix is
// currently active — enable-wins under concurrent enable/disable (spec.md
// §4.4).
func (c *Cursor) FlagEnabled() bool {
	found := false
	c.store.ScanPrefix(c.ref(), func(p path.Path) {
		if p.Terminal().Kind == path.LabelEwFlag {
			found = true
		}
	})
	return found
}

// FlagEnable emits a delta adding a fresh ewflag path at the cursor's
// prefix.
func (c *Cursor) FlagEnable() error {
	nonce, err := path.NewNonce()
	if err != nil {
		return err
	}
	p, err := c.sign(path.EwFlagLabel(nonce))
	if err != nil {
		return err
	}
	return c.submit(causal.Causal{Store: []path.Path{p}})
}

// FlagDisable emits a delta tombstoning every currently active ewflag path
// at the cursor's prefix.
func (c *Cursor) FlagDisable() error {
	var delta causal.Causal
	var err error
	c.store.ScanPrefix(c.ref(), func(p path.Path) {
		if err != nil || p.Terminal().Kind != path.LabelEwFlag {
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
	if len(delta.Expired) == 0 {
		return nil
	}
	return c.submit(delta)
}
