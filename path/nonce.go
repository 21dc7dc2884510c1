package path

import (
	"github.com/google/uuid"

	"github.com/basinsync/core/bserr"
)

// NewNonce draws a fresh random nonce, backing ewflag/mvreg label
// uniqueness and the tie-break component of array position identifiers
// (spec.md §4.4's "(author_peer_id, nonce)").
func NewNonce() (Nonce, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return Nonce{}, bserr.Wrap(bserr.Invariant, err, "generate nonce")
	}
	return Nonce(id), nil
}
