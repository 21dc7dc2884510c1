package sdk

import (
	"crypto/ed25519"
	"sync"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/cursor"
	"github.com/basinsync/core/internal/storagekv"
	"github.com/basinsync/core/logging"
	"github.com/basinsync/core/orset"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/policy"
	"github.com/basinsync/core/schema"
)

// DocState is one of the document state machine's states of spec.md §4:
// Fresh → Open → Syncing ⇄ Idle → Closed.
type DocState int

const (
	StateFresh DocState = iota
	StateOpen
	StateSyncing
	StateIdle
	StateClosed
)

func (s DocState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateSyncing:
		return "syncing"
	case StateIdle:
		return "idle"
	case StateClosed:
		return "closed"
	default:
		return "fresh"
	}
}

// Doc is a handle to one document's replicated state — spec.md §6's
// Doc::{id, create_cursor, apply_causal, subscribe}. Every Doc returned by
// an Sdk shares that Sdk's policy engine and, if persistent, its badger
// handle; what's private to a Doc is its own orset.Store and schema root.
type Doc struct {
	docID      [32]byte
	schemaName string
	store      *orset.Store
	root       *schema.Node
	engine     *policy.Engine
	peerID     [32]byte
	peerKey    ed25519.PrivateKey
	logger     logging.Logger
	kv         *storagekv.KV
	metrics    *metrics

	mu    sync.RWMutex
	state DocState
	subs  map[*subscription]struct{}
}

// ID returns the document's id (spec.md §6's Doc::id).
func (d *Doc) ID() [32]byte { return d.docID }

// SchemaName returns the name of the schema this document validates
// against.
func (d *Doc) SchemaName() string { return d.schemaName }

// State returns the document's current lifecycle state.
func (d *Doc) State() DocState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Doc) setState(s DocState) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

func (d *Doc) close() {
	d.mu.Lock()
	d.state = StateClosed
	subs := d.subs
	d.subs = map[*subscription]struct{}{}
	d.mu.Unlock()
	for sub := range subs {
		close(sub.ch)
	}
}

// CreateCursor returns a cursor positioned at the document's root,
// authenticated as this replica's own identity (spec.md §6's
// Doc::create_cursor). Every delta it submits flows back through the
// same commit hook apply_causal uses, so local writes persist and publish
// events identically to remote ones.
func (d *Doc) CreateCursor() *cursor.Cursor {
	c := cursor.New(d.store, d.engine, d.root, d.docID, d.peerID, d.peerKey)
	c.SetOnCommit(func(delta causal.Causal, expiredRefs map[path.DotHash]path.Ref) {
		d.afterCommit(delta, expiredRefs)
	})
	return c
}

// ApplyCausal joins a delta received from a peer (spec.md §6's
// Doc::apply_causal). Per spec.md §4's failure semantics, a delta that
// fails validation is dropped and logged rather than surfaced as an
// error — anti-entropy is expected to retry, and a rejected delta from a
// misbehaving or out-of-date peer is not this caller's fault to handle.
// Only a local I/O failure persisting an otherwise-valid delta is
// returned.
func (d *Doc) ApplyCausal(delta causal.Causal) error {
	expiredRefs := make(map[path.DotHash]path.Ref, len(delta.Expired))
	for _, t := range delta.Expired {
		if p, ok := d.store.LookupActive(t.Hash); ok {
			expiredRefs[t.Hash] = p.Ref()
		}
	}

	if err := orset.Ingest(d.store, d.root, d.engine, delta); err != nil {
		d.metrics.droppedDeltas.WithLabelValues(EncodeID(d.docID), reasonLabel(err)).Inc()
		d.logger.Warn("dropped causal delta for document %s: %v", EncodeID(d.docID), err)
		return nil
	}
	return d.afterCommit(delta, expiredRefs)
}

// Unjoin computes the minimal delta converging a peer given its causal
// context, and observes the Syncing→Idle transition when that delta turns
// out empty (spec.md §4: "empty unjoin responses move to Idle").
func (d *Doc) Unjoin(ctx causal.CausalContext) causal.Causal {
	delta := d.store.Unjoin(ctx)
	d.mu.Lock()
	if delta.Empty() && d.state != StateClosed {
		d.state = StateIdle
	}
	d.mu.Unlock()
	return delta
}

func (d *Doc) afterCommit(delta causal.Causal, expiredRefs map[path.DotHash]path.Ref) error {
	if d.kv != nil {
		if err := d.kv.PersistDelta(d.docID, delta); err != nil {
			return err
		}
	}
	d.mu.Lock()
	if d.state != StateClosed {
		d.state = StateSyncing
	}
	d.mu.Unlock()
	d.publish(delta, expiredRefs)
	return nil
}

func reasonLabel(err error) string {
	if e, ok := err.(*bserr.Error); ok {
		return e.Code.String()
	}
	return "unknown"
}
