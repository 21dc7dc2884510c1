package lens

import (
	"sync"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/path"
)

// Registry holds, per schema name, the ordered lens history that produced
// its current version from version 0 (spec.md §4.6's "a schema is
// associated with ... a version (ordered list of lenses)"). Schema
// packages are loaded into a Registry at SDK creation (spec.md §6).
type Registry struct {
	mu        sync.RWMutex
	histories map[string][]Lens
}

// NewRegistry returns an empty lens registry.
func NewRegistry() *Registry {
	return &Registry{histories: map[string][]Lens{}}
}

// Register installs the lens history for a schema name, replacing any
// prior history under that name.
func (r *Registry) Register(schemaName string, history []Lens) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.histories[schemaName] = history
}

// History returns the lens history registered for a schema name, or nil if
// none has been registered — an unversioned (version-0) schema.
func (r *Registry) History(schemaName string) []Lens {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.histories[schemaName]
}

// Transform rewrites a path's non-doc_id labels from the schema version
// that produced history src to the version that produced history dst,
// following spec.md §4.7: compute the longest common prefix P of src and
// dst, apply reverse(src[|P|:]) in reverse order, then apply dst[|P|:]
// forward. A replica on src's schema handing a delta to a replica on
// dst's schema calls this once per path.
func Transform(src, dst []Lens, labels []path.Label) ([]path.Label, bool, error) {
	p := longestCommonPrefix(src, dst)

	out, ok, err := ReverseChain(src[p:], labels)
	if err != nil || !ok {
		return nil, ok, err
	}
	return Chain(dst[p:], out)
}

func longestCommonPrefix(a, b []Lens) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i].Fingerprint() == b[i].Fingerprint() {
		i++
	}
	return i
}

// ValidateChain checks that every lens in history round-trips its own
// reverse on a one-field probe path — a cheap sanity check on a newly loaded
// schema package before it's trusted for live transforms (spec.md §4.7's
// invariant-confluence requirement starts here; full confluence can only
// be checked against real data, which ValidateChain does not attempt).
func ValidateChain(history []Lens) error {
	for i, l := range history {
		probe := []path.Label{path.FieldLabel("__lens_probe__")}
		fwd, ok, err := l.Forward(probe)
		if err != nil {
			return bserr.Wrap(bserr.Conflict, err, "lens %d (%s) forward probe failed", i, l.Fingerprint())
		}
		if !ok {
			continue // a lossy lens (Destroy, RemoveProperty) has no round trip to check on an unrelated probe
		}
		back, ok, err := l.Reverse().Forward(fwd)
		if err != nil {
			return bserr.Wrap(bserr.Conflict, err, "lens %d (%s) reverse probe failed", i, l.Fingerprint())
		}
		if !ok {
			return bserr.New(bserr.Conflict, "lens %d (%s) reverse dropped a path its forward produced", i, l.Fingerprint())
		}
		if !equalLabels(probe, back) {
			return bserr.New(bserr.Conflict, "lens %d (%s) is not its own reverse's inverse on probe data", i, l.Fingerprint())
		}
	}
	return nil
}

func equalLabels(a, b []path.Label) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}
