package cursor

import (
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
)

// MapKeysBool enumerates the distinct bool keys present under the
// cursor's current table position (spec.md §4.4's ORMap key enumeration).
func (c *Cursor) MapKeysBool() []bool {
	seen := map[bool]bool{}
	var out []bool
	c.forEachKey(path.LabelKeyBool, func(l path.Label) {
		if !seen[l.KeyBool] {
			seen[l.KeyBool] = true
			out = append(out, l.KeyBool)
		}
	})
	return out
}

// MapKeysU64 enumerates the distinct u64 keys present under the cursor's
// current table position.
func (c *Cursor) MapKeysU64() []uint64 {
	seen := map[uint64]bool{}
	var out []uint64
	c.forEachKey(path.LabelKeyU64, func(l path.Label) {
		if !seen[l.KeyU64] {
			seen[l.KeyU64] = true
			out = append(out, l.KeyU64)
		}
	})
	return out
}

// MapKeysI64 enumerates the distinct i64 keys present under the cursor's
// current table position.
func (c *Cursor) MapKeysI64() []int64 {
	seen := map[int64]bool{}
	var out []int64
	c.forEachKey(path.LabelKeyI64, func(l path.Label) {
		if !seen[l.KeyI64] {
			seen[l.KeyI64] = true
			out = append(out, l.KeyI64)
		}
	})
	return out
}

// MapKeysStr enumerates the distinct string keys present under the
// cursor's current table position.
func (c *Cursor) MapKeysStr() []string {
	seen := map[string]bool{}
	var out []string
	c.forEachKey(path.LabelKeyStr, func(l path.Label) {
		if !seen[l.KeyStr] {
			seen[l.KeyStr] = true
			out = append(out, l.KeyStr)
		}
	})
	return out
}

func (c *Cursor) forEachKey(kind path.LabelKind, visit func(path.Label)) {
	depth := len(c.prefix)
	c.store.ScanPrefix(c.ref(), func(p path.Path) {
		if len(p.Labels) <= depth {
			return
		}
		l := p.Labels[depth]
		if l.Kind == kind {
			visit(l)
		}
	})
}

// MapRemove tombstones every active path rooted at the cursor's current
// position — used after navigating to a table entry via MapKey* to drop
// the entire subtree at that key (spec.md §4.4's map_remove).
func (c *Cursor) MapRemove() error {
	var delta causal.Causal
	var err error
	c.store.ScanPrefix(c.ref(), func(p path.Path) {
		if err != nil {
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
