package sdk

import (
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
)

// subscriberBuffer bounds how many events a slow subscriber can fall
// behind before publish starts dropping its events rather than blocking
// the commit path that produced them.
const subscriberBuffer = 64

// EventKind distinguishes a newly joined path from a revoked one.
type EventKind int

const (
	EventStored EventKind = iota
	EventExpired
)

// Event is one change to a document's store, filtered to a subscriber's
// prefix (spec.md §6's Doc::subscribe). Path is populated for EventStored;
// Tombstone and Ref are populated for EventExpired (the store no longer
// holds the expired path by the time it's published, so its Ref is
// resolved eagerly at commit time and carried here instead).
type Event struct {
	Kind      EventKind
	Path      path.Path
	Tombstone path.Tombstone
	Ref       path.Ref
}

type subscription struct {
	prefix path.Ref
	ch     chan Event
}

// Subscribe returns a channel of events under prefix and a cancel function
// that deregisters it. The channel is closed on cancel or when the
// document closes; callers must keep draining it or risk missing events
// once its buffer fills, per subscriberBuffer.
func (d *Doc) Subscribe(prefix path.Ref) (<-chan Event, func()) {
	sub := &subscription{prefix: prefix, ch: make(chan Event, subscriberBuffer)}

	d.mu.Lock()
	if d.subs == nil {
		d.subs = make(map[*subscription]struct{})
	}
	d.subs[sub] = struct{}{}
	closed := d.state == StateClosed
	d.mu.Unlock()

	if closed {
		close(sub.ch)
		return sub.ch, func() {}
	}

	var cancelled bool
	cancel := func() {
		d.mu.Lock()
		if cancelled {
			d.mu.Unlock()
			return
		}
		cancelled = true
		if _, ok := d.subs[sub]; ok {
			delete(d.subs, sub)
			close(sub.ch)
		}
		d.mu.Unlock()
	}
	return sub.ch, cancel
}

// publish fans a committed delta out to every subscription whose prefix
// contains the changed path, dropping rather than blocking on a
// subscriber that isn't keeping up.
func (d *Doc) publish(delta causal.Causal, expiredRefs map[path.DotHash]path.Ref) {
	d.mu.RLock()
	subs := make([]*subscription, 0, len(d.subs))
	for sub := range d.subs {
		subs = append(subs, sub)
	}
	d.mu.RUnlock()

	if len(subs) == 0 {
		return
	}

	for _, p := range delta.Store {
		ref := p.Ref()
		ev := Event{Kind: EventStored, Path: p, Ref: ref}
		for _, sub := range subs {
			if sub.prefix.Contains(ref) {
				trySend(sub.ch, ev)
			}
		}
	}
	for _, t := range delta.Expired {
		ref, ok := expiredRefs[t.Hash]
		if !ok {
			continue
		}
		ev := Event{Kind: EventExpired, Tombstone: t, Ref: ref}
		for _, sub := range subs {
			if sub.prefix.Contains(ref) {
				trySend(sub.ch, ev)
			}
		}
	}
}

func trySend(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
	}
}
