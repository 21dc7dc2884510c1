package orset

import (
	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/schema"
	"github.com/basinsync/core/sig"
)

// Ingest runs a delta through the full validation pipeline spec.md §2
// describes — signature verification, schema typing, and policy
// authorization — then joins it. The whole delta is rejected at the first
// error; no prefix of it is ever applied (spec.md §7). It serves both
// directions of the pipeline: a cursor's locally produced delta (author
// = local peer) and an anti-entropy delta received from a peer.
func Ingest(store *Store, root *schema.Node, authz PolicyEngine, delta causal.Causal) error {
	policyPaths := policySnapshotForDelta(store, delta)

	for _, p := range delta.Store {
		if err := schema.ValidatePath(root, p.Labels); err != nil {
			return err
		}
		if err := sig.Verify(p); err != nil {
			return err
		}
		if p.Terminal().Kind == path.LabelPolicy {
			continue
		}
		target := p.Prefix()
		if !authz.CanWrite(p.PeerID, target, policyPaths) {
			return bserr.New(bserr.PermissionDenied, "peer %x may not write %v", p.PeerID, target)
		}
	}

	for _, t := range delta.Expired {
		if err := sig.VerifyTombstone(t); err != nil {
			return err
		}
		target, ok := store.LookupActive(t.Hash)
		if !ok {
			// Target not yet known locally: accepted provisionally. Its
			// authorization is enforced retroactively by the
			// expired-before-insert check in Join — an unauthorized
			// tombstone can only suppress a path whose exact dot-hash the
			// revoker already knows, which requires having observed it.
			continue
		}
		if !authz.CanRevoke(t.PeerID, target.PeerID, target.Prefix(), policyPaths) {
			return bserr.New(bserr.PermissionDenied, "peer %x may not revoke path authored by %x", t.PeerID, target.PeerID)
		}
	}

	return store.Join(delta)
}

// policySnapshotForDelta returns the policy paths the authorizer should
// derive over: the store's current policy paths, plus any policy paths
// this same delta is introducing (so a delta that both grants and
// exercises a permission in one atomic unit — e.g. root's initial own
// grant plus the first write — authorizes correctly).
func policySnapshotForDelta(store *Store, delta causal.Causal) []path.Path {
	var docID [32]byte
	for _, p := range delta.Store {
		docID = p.DocID
		break
	}
	if len(delta.Store) == 0 {
		for _, t := range delta.Expired {
			if p, ok := store.LookupActive(t.Hash); ok {
				docID = p.DocID
				break
			}
		}
	}
	out := append([]path.Path{}, store.PolicyPaths(docID)...)
	for _, p := range delta.Store {
		if p.Terminal().Kind == path.LabelPolicy {
			out = append(out, p)
		}
	}
	return out
}
