// Package sdk implements the external interface of spec.md §6: Sdk, Doc
// and the subscribe event stream. Grounded on the teacher's sdk.OPA —
// a struct holding construction-time state behind a New(ctx, Options)
// constructor, with an Options.init() defaulting pass — generalized from
// "one policy engine instance" to "one local replica of however many
// documents it tracks".
package sdk

import (
	"crypto/ed25519"
	"encoding/base64"
	"sync"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/causal"
	"github.com/basinsync/core/cursor"
	"github.com/basinsync/core/internal/storagekv"
	"github.com/basinsync/core/lens"
	"github.com/basinsync/core/logging"
	"github.com/basinsync/core/orset"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/policy"
	"github.com/basinsync/core/schema"
	"github.com/basinsync/core/sig"
)

// EncodeID renders a peer_id or doc_id in the textual form spec.md §6
// specifies: URL-safe base64, no padding.
func EncodeID(id [32]byte) string { return base64.RawURLEncoding.EncodeToString(id[:]) }

// DecodeID parses the textual form EncodeID produces.
func DecodeID(s string) ([32]byte, error) {
	var id [32]byte
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, bserr.Wrap(bserr.MalformedPath, err, "decode id %q", s)
	}
	if len(b) != 32 {
		return id, bserr.New(bserr.MalformedPath, "id %q decodes to %d bytes, want 32", s, len(b))
	}
	copy(id[:], b)
	return id, nil
}

// Options configures an Sdk at construction time. Every field defaults
// sensibly when left zero — mirrors the teacher's sdk.Options/init()
// pattern.
type Options struct {
	// PeerID/PeerKey fix this replica's identity. Left zero, a fresh
	// Ed25519 keypair is generated — the common case for create_memory in
	// tests and short-lived processes; a long-lived replica should load a
	// persisted identity via the config package and set both explicitly.
	PeerID  [32]byte
	PeerKey ed25519.PrivateKey

	// Logger receives dropped-delta warnings. Defaults to a no-op logger.
	Logger logging.Logger
}

func (o *Options) init() error {
	if o.PeerKey == nil {
		pub, priv, err := sig.GenerateKey()
		if err != nil {
			return err
		}
		o.PeerID, o.PeerKey = pub, priv
	}
	if o.Logger == nil {
		o.Logger = logging.NewNoOpLogger()
	}
	return nil
}

// Sdk is one local replica: an identity, a set of loaded schemas and their
// lens histories, a shared policy engine, and the open documents it is
// currently tracking. Per spec.md §9 "Global state: none is required" —
// every field here is owned by this value, nothing package-level.
type Sdk struct {
	mu sync.RWMutex

	peerID  [32]byte
	peerKey ed25519.PrivateKey
	logger  logging.Logger
	metrics *metrics

	kv       *storagekv.KV // nil for create_memory
	schemas  map[string]*schema.Schema
	registry *lens.Registry
	engine   *policy.Engine

	docs      map[[32]byte]*Doc
	docSchema map[[32]byte]string
	addresses map[[32]byte][]string
}

// CreateMemory returns an Sdk whose documents live only in process memory
// (spec.md §6's create_memory).
func CreateMemory(pkg *SchemaPackage, opts Options) (*Sdk, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}
	return newSdk(nil, pkg, opts)
}

// CreatePersistent returns an Sdk backed by a badger store rooted at
// dbPath (spec.md §6's create_persistent). Every delta joined into any
// document it tracks is also written through to disk; open_doc can
// reconstruct a document's full state across a process restart.
func CreatePersistent(dbPath string, pkg *SchemaPackage, opts Options) (*Sdk, error) {
	if err := opts.init(); err != nil {
		return nil, err
	}
	kv, err := storagekv.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return newSdk(kv, pkg, opts)
}

func newSdk(kv *storagekv.KV, pkg *SchemaPackage, opts Options) (*Sdk, error) {
	return &Sdk{
		peerID:    opts.PeerID,
		peerKey:   opts.PeerKey,
		logger:    opts.Logger,
		metrics:   newMetrics(),
		kv:        kv,
		schemas:   pkg.Schemas,
		registry:  pkg.Registry,
		engine:    policy.NewEngine(),
		docs:      map[[32]byte]*Doc{},
		docSchema: map[[32]byte]string{},
		addresses: map[[32]byte][]string{},
	}, nil
}

// Close releases the persistent store handle, if any. Documents already
// handed out remain valid in-memory handles; nothing further they do will
// be persisted.
func (s *Sdk) Close() error {
	if s.kv == nil {
		return nil
	}
	return s.kv.Close()
}

// PeerID returns this replica's identity (spec.md §6's Sdk::peer_id).
func (s *Sdk) PeerID() [32]byte { return s.peerID }

// AddAddress records a known network address for peer — purely local
// bookkeeping the network collaborator consults; the core never dials it.
func (s *Sdk) AddAddress(peer [32]byte, multiaddr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.addresses[peer] {
		if a == multiaddr {
			return
		}
	}
	s.addresses[peer] = append(s.addresses[peer], multiaddr)
}

// RemoveAddress drops a previously recorded address for peer.
func (s *Sdk) RemoveAddress(peer [32]byte, multiaddr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	addrs := s.addresses[peer]
	for i, a := range addrs {
		if a == multiaddr {
			s.addresses[peer] = append(addrs[:i], addrs[i+1:]...)
			return
		}
	}
}

// Addresses returns the addresses currently recorded for peer.
func (s *Sdk) Addresses(peer [32]byte) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.addresses[peer]))
	copy(out, s.addresses[peer])
	return out
}

// Docs lists the document ids this replica currently tracks under
// schemaName (spec.md §6's Sdk::docs).
func (s *Sdk) Docs(schemaName string) [][32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out [][32]byte
	for id, name := range s.docSchema {
		if name == schemaName {
			out = append(out, id)
		}
	}
	return out
}

// TransformToLatest rewrites a label sequence authored against an older
// version of schemaName — identified by how many of its registered lenses
// that version had already applied, srcVersion — forward to the version
// this replica has loaded (spec.md §4.7's diff-and-apply transform,
// exposed at the Sdk level since the version negotiation that tells a
// caller srcVersion happens in the network collaborator, not here).
func (s *Sdk) TransformToLatest(schemaName string, srcVersion int, labels []path.Label) ([]path.Label, bool, error) {
	s.mu.RLock()
	full := s.registry.History(schemaName)
	s.mu.RUnlock()
	if srcVersion < 0 || srcVersion > len(full) {
		return nil, false, bserr.New(bserr.Conflict, "schema %q has no version %d", schemaName, srcVersion)
	}
	return lens.Transform(full[:srcVersion], full, labels)
}

// findPolicyNode locates the schema's single top-level policy field —
// every genesis grant (and every later access-control change) is written
// under it. basinsync/core requires exactly one such field per schema;
// spec.md leaves schema shape to the external compiler, so this is a
// constraint this module imposes on what it will accept as a usable
// schema, not a spec requirement.
func findPolicyNode(root *schema.Node) (string, error) {
	if root.Kind != schema.KindStruct {
		return "", bserr.New(bserr.SchemaViolation, "schema root must be a struct to host a policy field")
	}
	var found string
	count := 0
	for name, child := range root.Fields {
		if child.Kind == schema.KindPolicy {
			if found == "" || name < found {
				found = name
			}
			count++
		}
	}
	if count != 1 {
		return "", bserr.New(bserr.SchemaViolation, "schema must declare exactly one top-level policy field, found %d", count)
	}
	return found, nil
}

// CreateDoc creates a brand-new document under schemaName, genesis-grants
// this replica's own identity `own` over the whole document using a
// throwaway document root keypair, and returns an Open handle to it
// (spec.md §6's Sdk::create_doc; the Fresh→Open transition of §4's
// document state machine).
func (s *Sdk) CreateDoc(schemaName string) (*Doc, error) {
	s.mu.RLock()
	sch, ok := s.schemas[schemaName]
	s.mu.RUnlock()
	if !ok {
		return nil, bserr.New(bserr.UnknownSchema, "unknown schema %q", schemaName)
	}

	policyField, err := findPolicyNode(sch.Root)
	if err != nil {
		return nil, err
	}

	docID, docKey, err := sig.GenerateKey()
	if err != nil {
		return nil, err
	}
	store := orset.New()

	genesis := cursor.New(store, s.engine, sch.Root, docID, docID, docKey)
	if err := genesis.StructField(policyField); err != nil {
		return nil, err
	}
	docRoot := path.Ref{DocID: docID}
	if err := genesis.SayCan(path.PeerActor(s.peerID), path.PermOwn, docRoot); err != nil {
		return nil, err
	}

	doc := s.registerDoc(docID, schemaName, store, sch.Root)
	doc.setState(StateOpen)

	if s.kv != nil {
		if err := s.kv.RegisterDoc(docID, schemaName); err != nil {
			return nil, err
		}
		// The genesis cursor above wrote directly to store, bypassing the
		// commit hook doc.CreateCursor() wires up — persist its delta now
		// so the root ownership grant survives a restart.
		genesisDelta := store.Unjoin(causal.NewCausalContext())
		if err := s.kv.PersistDelta(docID, genesisDelta); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// OpenDoc returns a handle to a document this replica already tracks,
// reconstructing it from the persistent store on first access if this
// Sdk was created with CreatePersistent (spec.md §6's Sdk::open_doc).
func (s *Sdk) OpenDoc(docID [32]byte) (*Doc, error) {
	s.mu.RLock()
	doc, ok := s.docs[docID]
	s.mu.RUnlock()
	if ok {
		return doc, nil
	}

	if s.kv == nil {
		return nil, bserr.New(bserr.UnknownDoc, "document %s is not tracked by this replica", EncodeID(docID))
	}

	schemaName, ok := s.lookupPersistedSchema(docID)
	if !ok {
		return nil, bserr.New(bserr.UnknownDoc, "document %s is not tracked by this replica", EncodeID(docID))
	}
	s.mu.RLock()
	sch, ok := s.schemas[schemaName]
	s.mu.RUnlock()
	if !ok {
		return nil, bserr.New(bserr.UnknownSchema, "document %s references unknown schema %q", EncodeID(docID), schemaName)
	}

	delta, err := s.kv.LoadDoc(docID)
	if err != nil {
		return nil, err
	}
	store := orset.New()
	if err := store.Join(delta); err != nil {
		return nil, err
	}

	doc := s.registerDoc(docID, schemaName, store, sch.Root)
	doc.setState(StateOpen)
	return doc, nil
}

func (s *Sdk) lookupPersistedSchema(docID [32]byte) (string, bool) {
	for name := range s.schemas {
		ids, err := s.kv.ListDocs(name)
		if err != nil {
			continue
		}
		for _, id := range ids {
			if id == docID {
				return name, true
			}
		}
	}
	return "", false
}

// AddDoc starts tracking a document this replica did not create — docID
// is known from some out-of-band source (the network collaborator), and
// the local store begins empty; anti-entropy fills it in (spec.md §6's
// Sdk::add_doc).
func (s *Sdk) AddDoc(docID [32]byte, schemaName string) (*Doc, error) {
	s.mu.RLock()
	sch, ok := s.schemas[schemaName]
	s.mu.RUnlock()
	if !ok {
		return nil, bserr.New(bserr.UnknownSchema, "unknown schema %q", schemaName)
	}

	store := orset.New()
	doc := s.registerDoc(docID, schemaName, store, sch.Root)
	doc.setState(StateOpen)

	if s.kv != nil {
		if err := s.kv.RegisterDoc(docID, schemaName); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// RemoveDoc drops local state for docID — in-memory tracking, any
// persisted records, and transitions the handle, if held, to Closed
// (spec.md §6's Sdk::remove_doc).
func (s *Sdk) RemoveDoc(docID [32]byte) error {
	s.mu.Lock()
	doc := s.docs[docID]
	delete(s.docs, docID)
	delete(s.docSchema, docID)
	s.mu.Unlock()

	if doc != nil {
		doc.close()
	}
	if s.kv != nil {
		return s.kv.RemoveDoc(docID)
	}
	return nil
}

func (s *Sdk) registerDoc(docID [32]byte, schemaName string, store *orset.Store, root *schema.Node) *Doc {
	doc := &Doc{
		docID:      docID,
		schemaName: schemaName,
		store:      store,
		root:       root,
		engine:     s.engine,
		peerID:     s.peerID,
		peerKey:    s.peerKey,
		logger:     s.logger,
		kv:         s.kv,
		metrics:    s.metrics,
		subs:       map[*subscription]struct{}{},
	}
	s.mu.Lock()
	s.docs[docID] = doc
	s.docSchema[docID] = schemaName
	s.mu.Unlock()
	return doc
}
