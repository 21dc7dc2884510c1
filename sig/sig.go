// Package sig implements the signature layer (spec.md §4.2): every path in
// store ends with (peer_id, sig), where sig = Sign_peer_sk(encode(path
// without sig)). Modeled on the teacher's internal/jwx/jws/{sign,verify}
// eddsa implementations, which wrap crypto/ed25519 directly beneath a JOSE
// envelope this module does not need — the core signs path bytes bare.
package sig

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/path"
)

// GenerateKey creates a fresh Ed25519 keypair. The returned public key
// bytes double as a peer_id or, for an ephemeral document keypair, a
// doc_id.
func GenerateKey() (pub [32]byte, priv ed25519.PrivateKey, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return pub, nil, bserr.Wrap(bserr.IO, err, "generate ed25519 key")
	}
	copy(pub[:], pubKey)
	return pub, privKey, nil
}

// Sign signs a path's canonical encoding (excluding any existing
// peer_id/sig) and returns a copy of p with PeerID and Sig populated. The
// signing key's public half must equal the peer identity the path will be
// attributed to.
func Sign(priv ed25519.PrivateKey, peerID [32]byte, p path.Path) (path.Path, error) {
	p.PeerID = peerID
	p.Sig = [64]byte{}
	body, err := path.EncodeWithoutSig(p)
	if err != nil {
		return path.Path{}, err
	}
	s := ed25519.Sign(priv, body)
	var out path.Path
	out = p
	copy(out.Sig[:], s)
	return out, nil
}

// Verify checks that p's signature validates against its terminal peer_id,
// per spec.md §4.2. Fails with BadSignature on mismatch.
func Verify(p path.Path) error {
	body, err := path.EncodeWithoutSig(p)
	if err != nil {
		return err
	}
	if !ed25519.Verify(p.PeerID[:], body, p.Sig[:]) {
		return bserr.New(bserr.BadSignature, "signature does not validate against peer_id")
	}
	return nil
}

// SignTombstone signs a tombstone revoking the path identified by hash, on
// behalf of peerID.
func SignTombstone(priv ed25519.PrivateKey, peerID [32]byte, hash path.DotHash) path.Tombstone {
	body := append(append([]byte{}, hash[:]...), peerID[:]...)
	s := ed25519.Sign(priv, body)
	var t path.Tombstone
	t.Hash = hash
	t.PeerID = peerID
	copy(t.Sig[:], s)
	return t
}

// VerifyTombstone checks a tombstone's signature against its peer_id.
func VerifyTombstone(t path.Tombstone) error {
	body := append(append([]byte{}, t.Hash[:]...), t.PeerID[:]...)
	if !ed25519.Verify(t.PeerID[:], body, t.Sig[:]) {
		return bserr.New(bserr.BadSignature, "tombstone signature does not validate against peer_id")
	}
	return nil
}
