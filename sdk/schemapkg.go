package sdk

import (
	"encoding/json"
	"io"

	"github.com/basinsync/core/bserr"
	"github.com/basinsync/core/lens"
	"github.com/basinsync/core/path"
	"github.com/basinsync/core/schema"
)

// SchemaPackage is the decoded form of the archive spec.md §6 describes: a
// schema compiler's output, one entry per schema name, carrying both the
// current typed shape and the ordered lens history that produced it from
// version 0. Loading one installs every history into a lens.Registry and
// returns the concrete schema.Schema trees cursors validate writes against
// — the compiler is treated as an external, out-of-scope collaborator
// (spec.md §9), so this package only parses and sanity-checks what it's
// handed, the way the teacher's bundle loader trusts a signed bundle's
// manifest rather than re-deriving it.
type SchemaPackage struct {
	Schemas  map[string]*schema.Schema
	Registry *lens.Registry
}

// Wire format. Every lens variant's fields are already plain data
// (Convert's Mapping included, once its keys/values are broken out of a
// non-string-keyed map into pairs), so the DTOs below are a direct mirror
// of schema.Node and the lens package's exported types rather than a
// separate IR.
type schemaPackageDoc struct {
	Schemas map[string]schemaDoc `json:"schemas"`
}

type schemaDoc struct {
	Root   nodeDoc   `json:"root"`
	Lenses []lensDoc `json:"lenses"`
}

type nodeDoc struct {
	Kind    string             `json:"kind"`
	Fields  map[string]nodeDoc `json:"fields,omitempty"`
	KeyType string             `json:"key_type,omitempty"`
	Value   *nodeDoc           `json:"value,omitempty"`
	Elem    *nodeDoc           `json:"elem,omitempty"`
	Prim    string             `json:"prim,omitempty"`
}

type primitiveDoc struct {
	Kind string `json:"kind"`
	Bool bool   `json:"bool,omitempty"`
	U64  uint64 `json:"u64,omitempty"`
	I64  int64  `json:"i64,omitempty"`
	Str  string `json:"str,omitempty"`
}

type mappingEntryDoc struct {
	From primitiveDoc `json:"from"`
	To   primitiveDoc `json:"to"`
}

// lensDoc is a tagged union over the 12 named lenses; Op selects which
// fields apply. Unused fields are simply omitted by whichever producer
// emits this JSON.
type lensDoc struct {
	Op      string            `json:"op"`
	Kind    string            `json:"kind,omitempty"`
	Name    string            `json:"name,omitempty"`
	Old     string            `json:"old,omitempty"`
	New     string            `json:"new,omitempty"`
	Host    string            `json:"host,omitempty"`
	Field   string            `json:"field,omitempty"`
	Inner   *lensDoc          `json:"inner,omitempty"`
	From    string            `json:"from,omitempty"`
	To      string            `json:"to,omitempty"`
	Mapping []mappingEntryDoc `json:"mapping,omitempty"`
}

func decodePrimKind(s string) (path.PrimKind, error) {
	switch s {
	case "bool":
		return path.PrimBool, nil
	case "u64":
		return path.PrimU64, nil
	case "i64":
		return path.PrimI64, nil
	case "str":
		return path.PrimStr, nil
	default:
		return 0, bserr.New(bserr.MalformedPath, "schema package: unknown primitive type %q", s)
	}
}

func decodePrimitive(d primitiveDoc) (path.Primitive, error) {
	switch d.Kind {
	case "bool":
		return path.Bool(d.Bool), nil
	case "u64":
		return path.U64(d.U64), nil
	case "i64":
		return path.I64(d.I64), nil
	case "str":
		return path.Str(d.Str), nil
	default:
		return path.Primitive{}, bserr.New(bserr.MalformedPath, "schema package: unknown primitive kind %q", d.Kind)
	}
}

func decodeNodeKind(s string) (schema.NodeKind, error) {
	switch s {
	case "struct":
		return schema.KindStruct, nil
	case "table":
		return schema.KindTable, nil
	case "array":
		return schema.KindArray, nil
	case "ewflag":
		return schema.KindEWFlag, nil
	case "mvreg":
		return schema.KindMVReg, nil
	case "policy":
		return schema.KindPolicy, nil
	default:
		return 0, bserr.New(bserr.MalformedPath, "schema package: unknown node kind %q", s)
	}
}

func decodeNode(d nodeDoc) (*schema.Node, error) {
	kind, err := decodeNodeKind(d.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case schema.KindStruct:
		fields := make(map[string]*schema.Node, len(d.Fields))
		for name, fd := range d.Fields {
			child, err := decodeNode(fd)
			if err != nil {
				return nil, bserr.Wrap(bserr.MalformedPath, err, "field %q", name)
			}
			fields[name] = child
		}
		return schema.Struct(fields), nil
	case schema.KindTable:
		if d.Value == nil {
			return nil, bserr.New(bserr.MalformedPath, "schema package: table node missing value")
		}
		keyType, err := decodePrimKind(d.KeyType)
		if err != nil {
			return nil, err
		}
		value, err := decodeNode(*d.Value)
		if err != nil {
			return nil, err
		}
		return schema.Table(keyType, value), nil
	case schema.KindArray:
		if d.Elem == nil {
			return nil, bserr.New(bserr.MalformedPath, "schema package: array node missing elem")
		}
		elem, err := decodeNode(*d.Elem)
		if err != nil {
			return nil, err
		}
		return schema.Array(elem), nil
	case schema.KindEWFlag:
		return schema.EWFlag(), nil
	case schema.KindMVReg:
		prim, err := decodePrimKind(d.Prim)
		if err != nil {
			return nil, err
		}
		return schema.MVReg(prim), nil
	case schema.KindPolicy:
		return schema.Policy(), nil
	default:
		return nil, bserr.New(bserr.Invariant, "unreachable node kind %d", kind)
	}
}

func decodeLens(d lensDoc) (lens.Lens, error) {
	switch d.Op {
	case "make":
		kind, err := decodeNodeKind(d.Kind)
		if err != nil {
			return nil, err
		}
		return lens.Make{Kind: kind}, nil
	case "destroy":
		kind, err := decodeNodeKind(d.Kind)
		if err != nil {
			return nil, err
		}
		return lens.Destroy{Kind: kind}, nil
	case "add_property":
		return lens.AddProperty{Name: d.Name}, nil
	case "remove_property":
		return lens.RemoveProperty{Name: d.Name}, nil
	case "rename_property":
		return lens.RenameProperty{Old: d.Old, New: d.New}, nil
	case "hoist_property":
		return lens.HoistProperty{Host: d.Host, Name: d.Name}, nil
	case "plunge_property":
		return lens.PlungeProperty{Host: d.Host, Name: d.Name}, nil
	case "wrap":
		return lens.Wrap{}, nil
	case "head":
		return lens.Head{}, nil
	case "lens_in":
		if d.Inner == nil {
			return nil, bserr.New(bserr.MalformedPath, "schema package: lens_in missing inner")
		}
		inner, err := decodeLens(*d.Inner)
		if err != nil {
			return nil, err
		}
		return lens.LensIn{Name: d.Field, Inner: inner}, nil
	case "lens_map":
		if d.Inner == nil {
			return nil, bserr.New(bserr.MalformedPath, "schema package: lens_map missing inner")
		}
		inner, err := decodeLens(*d.Inner)
		if err != nil {
			return nil, err
		}
		return lens.LensMap{Inner: inner}, nil
	case "convert":
		from, err := decodePrimKind(d.From)
		if err != nil {
			return nil, err
		}
		to, err := decodePrimKind(d.To)
		if err != nil {
			return nil, err
		}
		mapping := make(map[path.Primitive]path.Primitive, len(d.Mapping))
		for _, pair := range d.Mapping {
			k, err := decodePrimitive(pair.From)
			if err != nil {
				return nil, err
			}
			v, err := decodePrimitive(pair.To)
			if err != nil {
				return nil, err
			}
			mapping[k] = v
		}
		return lens.Convert{From: from, To: to, Mapping: mapping}, nil
	default:
		return nil, bserr.New(bserr.MalformedPath, "schema package: unknown lens op %q", d.Op)
	}
}

// LoadSchemaPackage parses a schema package archive and validates every
// lens history with lens.ValidateChain before trusting it — the same
// "sanity-check, don't re-derive" stance the teacher's bundle activation
// takes toward a bundle's signed manifest.
func LoadSchemaPackage(r io.Reader) (*SchemaPackage, error) {
	var doc schemaPackageDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, bserr.Wrap(bserr.MalformedPath, err, "decode schema package")
	}

	pkg := &SchemaPackage{
		Schemas:  make(map[string]*schema.Schema, len(doc.Schemas)),
		Registry: lens.NewRegistry(),
	}
	for name, sd := range doc.Schemas {
		root, err := decodeNode(sd.Root)
		if err != nil {
			return nil, bserr.Wrap(bserr.MalformedPath, err, "schema %q", name)
		}

		history := make([]lens.Lens, 0, len(sd.Lenses))
		for i, ld := range sd.Lenses {
			l, err := decodeLens(ld)
			if err != nil {
				return nil, bserr.Wrap(bserr.MalformedPath, err, "schema %q lens %d", name, i)
			}
			history = append(history, l)
		}
		if err := lens.ValidateChain(history); err != nil {
			return nil, bserr.Wrap(bserr.Conflict, err, "schema %q lens history", name)
		}

		pkg.Schemas[name] = &schema.Schema{Name: name, Root: root}
		pkg.Registry.Register(name, history)
	}
	return pkg, nil
}
