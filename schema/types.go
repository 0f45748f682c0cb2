// Package schema holds the in-memory composed supergraph schema: types,
// fields, federation directive metadata, keys, and per-field service
// ownership.
package schema

// RefKind identifies the shape of a TypeRef: a bare named type, a list
// wrapper, or a non-null wrapper.
type RefKind int

const (
	RefNamed RefKind = iota
	RefList
	RefNonNull
)

// TypeRef mirrors graphql-parser's ast.Type (NamedType/ListType/NonNullType)
// as an owned, schema-package-native value so the rest of this repo never
// has to import the operation-document AST just to describe a return type.
type TypeRef struct {
	Kind RefKind
	Name string   // set when Kind == RefNamed
	Of   *TypeRef // set when Kind == RefList or RefNonNull
}

// NamedType unwraps list/non-null wrappers and returns the underlying
// named type.
func (t *TypeRef) NamedType() string {
	if t == nil {
		return ""
	}
	if t.Kind == RefNamed {
		return t.Name
	}
	return t.Of.NamedType()
}

// IsList reports whether t is, or wraps, a list type.
func (t *TypeRef) IsList() bool {
	for cur := t; cur != nil; cur = cur.Of {
		if cur.Kind == RefList {
			return true
		}
		if cur.Kind == RefNamed {
			return false
		}
	}
	return false
}

// String renders the type the way SDL would: Name, [Name], Name!, [Name!]!.
func (t *TypeRef) String() string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case RefNamed:
		return t.Name
	case RefList:
		return "[" + t.Of.String() + "]"
	case RefNonNull:
		return t.Of.String() + "!"
	default:
		return ""
	}
}

// ArgDef describes one argument of a field definition.
type ArgDef struct {
	Name string
	Type *TypeRef
}

// EntityKey is one `@key` declaration on an entity type, scoped to the
// subgraph that declared it.
type EntityKey struct {
	FieldSet   FieldSet
	Resolvable bool
}

// FieldMeta carries per-subgraph federation metadata for one field of one
// type. The same (type, field) pair can have different FieldMeta in each
// subgraph that mentions it — e.g. `@external` in the extending service,
// nothing in the owning one.
type FieldMeta struct {
	Name         string
	Type         *TypeRef
	Args         []ArgDef
	Requires     FieldSet
	Provides     FieldSet
	External     bool
	Shareable    bool
	Inaccessible bool
	OverrideFrom string
	Tags         []string
}

// EntityDef is one subgraph's view of an object (or object extension)
// type: its declared `@key`s (if any — a non-entity type has none) and its
// fields' federation metadata.
type EntityDef struct {
	Keys        []EntityKey
	IsExtension bool
	Fields      map[string]*FieldMeta
}

// IsEntity reports whether this type declaration carries at least one key.
func (e *EntityDef) IsEntity() bool { return len(e.Keys) > 0 }

// IsResolvable reports whether at least one key is resolvable; a type
// whose only keys are `resolvable: false` is a reference stub that can
// never be an entity jump's target.
func (e *EntityDef) IsResolvable() bool {
	for _, k := range e.Keys {
		if k.Resolvable {
			return true
		}
	}
	return false
}
