package cursor

import (
	"bytes"
	"sort"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/sig"
)

// arrayElem is one distinct occupied position under an array node. When
// two peers independently pick an identical fractional identifier, peer
// and nonce break the tie deterministically for every replica (spec.md
// §4.4's "tie-breaks ... use (author_peer_id, nonce)").
type arrayElem struct {
	id    string
	peer  [32]byte
	nonce path.Nonce
}

func elemLess(a, b arrayElem) bool {
	if a.id != b.id {
		return a.id < b.id
	}
	if a.peer != b.peer {
		return bytes.Compare(a.peer[:], b.peer[:]) < 0
	}
	return bytes.Compare(a.nonce[:], b.nonce[:]) < 0
}

// arrayElemsAt enumerates the distinct, sorted occupied positions under
// the array rooted at ref, whose elements begin at label index depth.
func (c *Cursor) arrayElemsAt(ref path.Ref, depth int) []arrayElem {
	reps := map[string]arrayElem{}
	c.store.ScanPrefix(ref, func(p path.Path) {
		if len(p.Labels) <= depth || p.Labels[depth].Kind != path.LabelKeyStr {
			return
		}
		id := p.Labels[depth].KeyStr
		cand := arrayElem{id: id, peer: p.PeerID, nonce: p.Terminal().Nonce}
		if cur, ok := reps[id]; !ok || elemLess(cand, cur) {
			reps[id] = cand
		}
	})
	out := make([]arrayElem, 0, len(reps))
	for _, v := range reps {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return elemLess(out[i], out[j]) })
	return out
}

// ArrayLength counts the array's active positions.
func (c *Cursor) ArrayLength() int {
	return len(c.arrayElemsAt(c.ref(), len(c.prefix)))
}

// ArrayIndex advances the cursor to the i-th active position in sorted
// order.
func (c *Cursor) ArrayIndex(i uint32) error {
	elems := c.arrayElemsAt(c.ref(), len(c.prefix))
	if int(i) >= len(elems) {
		return bserr.New(bserr.SchemaViolation, "array index %d out of range (%d elements)", i, len(elems))
	}
	return c.advance(path.KeyStrLabel(elems[i].id))
}

// ArrayInsert advances the cursor to a freshly allocated position
// identifier that sorts between the elements that will end up at i-1 and
// i, without writing anything there yet — the element's content is
// created by whatever write operation (RegAssign, StructField, ...) the
// caller issues next, since an ORSet array slot only exists once some
// path is stored under it.
func (c *Cursor) ArrayInsert(i uint32) error {
	elems := c.arrayElemsAt(c.ref(), len(c.prefix))
	idx := int(i)
	if idx > len(elems) {
		idx = len(elems)
	}
	lo, hi := "", ""
	if idx > 0 {
		lo = elems[idx-1].id
	}
	if idx < len(elems) {
		hi = elems[idx].id
	}
	return c.advance(path.KeyStrLabel(between(lo, hi)))
}

// ArrayRemove tombstones every path rooted at the cursor's current
// position — the whole element the cursor is positioned at.
func (c *Cursor) ArrayRemove() error { return c.MapRemove() }

// ArrayMove issues a delta tombstoning the cursor's current position
// identifier and re-inserting its content at a freshly allocated
// identifier between the elements that will end up at i-1 and i (spec.md
// §4.4's move-to-index semantics). If the cursor's current position is no
// longer active (concurrently removed elsewhere), the move is dropped: an
// empty delta, no error (per spec.md's open-question resolution on
// concurrent removal of the move source).
func (c *Cursor) ArrayMove(i uint32) error {
	if len(c.prefix) == 0 || c.prefix[len(c.prefix)-1].Kind != path.LabelKeyStr {
		return bserr.New(bserr.Invariant, "array_move called on a cursor not positioned at an array element")
	}
	parentPrefix := c.prefix[:len(c.prefix)-1]
	parentRef := path.Ref{DocID: c.docID, Labels: parentPrefix}
	oldID := c.prefix[len(c.prefix)-1].KeyStr

	var oldPaths []path.Path
	c.store.ScanPrefix(c.ref(), func(p path.Path) { oldPaths = append(oldPaths, p) })
	if len(oldPaths) == 0 {
		return nil // source concurrently removed: no-op
	}

	siblings := c.arrayElemsAt(parentRef, len(parentPrefix))
	others := siblings[:0:0]
	for _, s := range siblings {
		if s.id != oldID {
			others = append(others, s)
		}
	}
	idx := int(i)
	if idx > len(others) {
		idx = len(others)
	}
	lo, hi := "", ""
	if idx > 0 {
		lo = others[idx-1].id
	}
	if idx < len(others) {
		hi = others[idx].id
	}
	newID := between(lo, hi)

	var delta causal.Causal
	for _, p := range oldPaths {
		t, err := c.tombstone(p)
		if err != nil {
			return err
		}
		delta.Expired = append(delta.Expired, t)

		newLabels := append(append([]path.Label{}, parentPrefix...), path.KeyStrLabel(newID))
		newLabels = append(newLabels, p.Labels[len(parentPrefix)+1:]...)
		np, err := sig.Sign(c.signKey, c.peerID, path.Path{DocID: c.docID, Labels: newLabels})
		if err != nil {
			return err
		}
		delta.Store = append(delta.Store, np)
	}

	if err := c.submit(delta); err != nil {
		return err
	}
	c.prefix[len(c.prefix)-1] = path.KeyStrLabel(newID)
	return nil
}
