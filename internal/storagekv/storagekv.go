// Package storagekv is the optional badger-backed persistent store —
// spec.md §6's "Persistent storage layout" reference implementation: key =
// canonical path encoding, value = empty for store; a separate table maps
// dot-hash → path (as a tombstone record) for expired. Both tables are
// updated transactionally on every persisted delta. Gated behind this
// package so the synchronous in-memory trie (orset.Store) remains the
// default and required path — create_memory never touches this package.
// Modeled on the teacher's storage/disk package: a thin badger.DB wrapper
// with one db.Update per logical write.
package storagekv

import (
	badger "github.com/dgraph-io/badger/v4"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/path"
)

// Key layout: a one-byte namespace tag, the 32-byte doc_id, then either the
// canonical path encoding (store) or the dot-hash (expired) or nothing
// (index — one row per known document).
const (
	nsStore byte = iota + 1
	nsExpired
	nsIndex
)

// KV is a single badger database backing every document this process
// persists.
type KV struct {
	db *badger.DB
}

// Open opens (creating if absent) a badger store rooted at dir.
func Open(dir string) (*KV, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, bserr.Wrap(bserr.IO, err, "open badger store at %s", dir)
	}
	return &KV{db: db}, nil
}

// Close releases the underlying database handle.
func (kv *KV) Close() error {
	if err := kv.db.Close(); err != nil {
		return bserr.Wrap(bserr.IO, err, "close badger store")
	}
	return nil
}

func storeKey(docID [32]byte, encodedPath []byte) []byte {
	k := make([]byte, 0, 1+32+len(encodedPath))
	k = append(k, nsStore)
	k = append(k, docID[:]...)
	return append(k, encodedPath...)
}

func expiredKey(docID [32]byte, h path.DotHash) []byte {
	k := make([]byte, 0, 1+32+32)
	k = append(k, nsExpired)
	k = append(k, docID[:]...)
	return append(k, h[:]...)
}

func indexKey(docID [32]byte) []byte {
	k := make([]byte, 0, 1+32)
	k = append(k, nsIndex)
	return append(k, docID[:]...)
}

// encodeTombstone/decodeTombstone are a fixed-width 128-byte record: hash,
// peer_id, signature, in that order — path.Tombstone carries no variable-
// length fields, so no length prefixes are needed.
func encodeTombstone(t path.Tombstone) []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, t.Hash[:]...)
	buf = append(buf, t.PeerID[:]...)
	buf = append(buf, t.Sig[:]...)
	return buf
}

func decodeTombstone(b []byte) (path.Tombstone, error) {
	if len(b) != 128 {
		return path.Tombstone{}, bserr.New(bserr.MalformedPath, "tombstone record has length %d, want 128", len(b))
	}
	var t path.Tombstone
	copy(t.Hash[:], b[0:32])
	copy(t.PeerID[:], b[32:64])
	copy(t.Sig[:], b[64:128])
	return t, nil
}

// RegisterDoc records that docID exists under schemaName, so it survives a
// process restart and is found by ListDocs.
func (kv *KV) RegisterDoc(docID [32]byte, schemaName string) error {
	return kv.db.Update(func(txn *badger.Txn) error {
		return txn.Set(indexKey(docID), []byte(schemaName))
	})
}

// ListDocs returns every doc_id registered under schemaName.
func (kv *KV) ListDocs(schemaName string) ([][32]byte, error) {
	var out [][32]byte
	err := kv.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte{nsIndex}
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			var docID [32]byte
			copy(docID[:], item.Key()[1:])
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(val) == schemaName {
				out = append(out, docID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, bserr.Wrap(bserr.IO, err, "list documents for schema %s", schemaName)
	}
	return out, nil
}

// PersistDelta write-through persists a delta already accepted by
// orset.Ingest — it never re-validates, matching Join's contract.
func (kv *KV) PersistDelta(docID [32]byte, delta causal.Causal) error {
	err := kv.db.Update(func(txn *badger.Txn) error {
		for _, p := range delta.Store {
			enc, err := path.Encode(p)
			if err != nil {
				return err
			}
			if err := txn.Set(storeKey(docID, enc), []byte{}); err != nil {
				return err
			}
		}
		for _, t := range delta.Expired {
			if err := txn.Set(expiredKey(docID, t.Hash), encodeTombstone(t)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return bserr.Wrap(bserr.IO, err, "persist delta for document %x", docID)
	}
	return nil
}

// LoadDoc reconstructs the full causal delta persisted for docID, suitable
// for joining directly into a fresh orset.Store (bypassing Ingest — this
// data was already validated the first time it was written).
func (kv *KV) LoadDoc(docID [32]byte) (causal.Causal, error) {
	var out causal.Causal
	err := kv.db.View(func(txn *badger.Txn) error {
		storeOpts := badger.DefaultIteratorOptions
		storePrefix := append([]byte{nsStore}, docID[:]...)
		storeOpts.Prefix = storePrefix
		sit := txn.NewIterator(storeOpts)
		defer sit.Close()
		for sit.Seek(storePrefix); sit.ValidForPrefix(storePrefix); sit.Next() {
			enc := sit.Item().KeyCopy(nil)[len(storePrefix):]
			p, err := path.Decode(enc)
			if err != nil {
				return err
			}
			out.Store = append(out.Store, p)
		}

		expiredOpts := badger.DefaultIteratorOptions
		expiredPrefix := append([]byte{nsExpired}, docID[:]...)
		expiredOpts.Prefix = expiredPrefix
		eit := txn.NewIterator(expiredOpts)
		defer eit.Close()
		for eit.Seek(expiredPrefix); eit.ValidForPrefix(expiredPrefix); eit.Next() {
			val, err := eit.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			t, err := decodeTombstone(val)
			if err != nil {
				return err
			}
			out.Expired = append(out.Expired, t)
		}
		return nil
	})
	if err != nil {
		return causal.Causal{}, bserr.Wrap(bserr.IO, err, "load document %x", docID)
	}
	return out, nil
}

// SchemaNameFor returns the schema name docID was registered under, for
// callers (the inspect CLI) that know a doc_id but not which schema it
// validates against.
func (kv *KV) SchemaNameFor(docID [32]byte) (string, bool, error) {
	var name string
	var found bool
	err := kv.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey(docID))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		name, found = string(val), true
		return nil
	})
	if err != nil {
		return "", false, bserr.Wrap(bserr.IO, err, "look up schema for document %x", docID)
	}
	return name, found, nil
}

// RemoveDoc deletes every persisted record for docID — its store entries,
// expired entries, and index row. Local state only, per spec.md §3's
// remove_doc semantics.
func (kv *KV) RemoveDoc(docID [32]byte) error {
	prefixes := [][]byte{
		append([]byte{nsStore}, docID[:]...),
		append([]byte{nsExpired}, docID[:]...),
	}
	err := kv.db.Update(func(txn *badger.Txn) error {
		for _, prefix := range prefixes {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			var keys [][]byte
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				keys = append(keys, it.Item().KeyCopy(nil))
			}
			it.Close()
			for _, k := range keys {
				if err := txn.Delete(k); err != nil {
					return err
				}
			}
		}
		return txn.Delete(indexKey(docID))
	})
	if err != nil {
		return bserr.Wrap(bserr.IO, err, "remove document %x", docID)
	}
	return nil
}
