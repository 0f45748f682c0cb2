package schema

import (
	"fmt"
	"sort"

	"github.com/n9te9/graphql-parser/ast"
)

// ComposedSchema is the supergraph: the merged type system plus, for every
// (type, field) pair, the list of subgraphs that can resolve it. Grounded
// on federation/graph/super_graph_v2.go's SuperGraphV2, restructured as an
// owned value (not a thin wrapper over a shared *ast.Document) so the
// planner package never has to reach back into graphql-parser's AST.
type ComposedSchema struct {
	Subgraphs []*Subgraph
	Doc       *ast.Document

	// Ownership maps "Type.field" to the names of every subgraph that can
	// resolve it (already @external/@override filtered). Order here is
	// subgraph-iteration order, not significant: the owner-selection rule
	// (spec §4.3) sorts candidates lexicographically itself.
	Ownership map[string][]string
}

// Compose merges a set of subgraph SDLs into one ComposedSchema. Grounded
// on SuperGraphV2.composeSchema/mergeSchemaDeep and buildOwnershipMap,
// extended with working `@override`/`@inaccessible` support that the
// teacher's code references but never implements.
func Compose(subgraphs []*Subgraph) (*ComposedSchema, error) {
	if len(subgraphs) == 0 {
		return nil, fmt.Errorf("schema: no subgraphs to compose")
	}

	cs := &ComposedSchema{
		Subgraphs: subgraphs,
		Doc:       &ast.Document{Definitions: make([]ast.Definition, 0)},
		Ownership: make(map[string][]string),
	}

	for _, sg := range subgraphs {
		cs.mergeDoc(sg.Doc)
	}
	cs.buildOwnership()

	return cs, nil
}

func (cs *ComposedSchema) mergeDoc(doc *ast.Document) {
	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			cs.mergeObjectTypeDefinition(d)
		case *ast.ObjectTypeExtension:
			cs.mergeObjectTypeExtension(d)
		case *ast.InterfaceTypeDefinition:
			cs.mergeInterfaceTypeDefinition(d)
		case *ast.InputObjectTypeDefinition:
			cs.mergeInputObjectTypeDefinition(d)
		case *ast.EnumTypeDefinition:
			cs.mergeEnumTypeDefinition(d)
		case *ast.ScalarTypeDefinition:
			cs.mergeScalarTypeDefinition(d)
		case *ast.UnionTypeDefinition:
			cs.mergeUnionTypeDefinition(d)
		case *ast.DirectiveDefinition:
			cs.mergeDirectiveDefinition(d)
		case *ast.SchemaDefinition:
			cs.mergeSchemaDefinition(d)
		}
	}
}

func (cs *ComposedSchema) findObjectTypeDefinition(name string) *ast.ObjectTypeDefinition {
	for _, def := range cs.Doc.Definitions {
		if od, ok := def.(*ast.ObjectTypeDefinition); ok && od.Name.String() == name {
			return od
		}
	}
	return nil
}

func (cs *ComposedSchema) mergeObjectTypeDefinition(newDef *ast.ObjectTypeDefinition) {
	if existing := cs.findObjectTypeDefinition(newDef.Name.String()); existing != nil {
		existing.Fields = mergeFields(existing.Fields, copyFields(newDef.Fields))
		existing.Directives = append(existing.Directives, copyDirectives(newDef.Directives)...)
		existing.Interfaces = append(existing.Interfaces, newDef.Interfaces...)
		return
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, &ast.ObjectTypeDefinition{
		Name:       newDef.Name,
		Interfaces: newDef.Interfaces,
		Fields:     copyFields(newDef.Fields),
		Directives: copyDirectives(newDef.Directives),
	})
}

func (cs *ComposedSchema) mergeObjectTypeExtension(newExt *ast.ObjectTypeExtension) {
	if existing := cs.findObjectTypeDefinition(newExt.Name.String()); existing != nil {
		existing.Fields = mergeFields(existing.Fields, copyFields(newExt.Fields))
		existing.Directives = append(existing.Directives, copyDirectives(newExt.Directives)...)
		return
	}
	// No base definition seen yet: the extension stands in for it so field
	// lookups still succeed regardless of subgraph merge order.
	cs.Doc.Definitions = append(cs.Doc.Definitions, &ast.ObjectTypeDefinition{
		Name:       newExt.Name,
		Fields:     copyFields(newExt.Fields),
		Directives: copyDirectives(newExt.Directives),
	})
}

func copyFields(fields []*ast.FieldDefinition) []*ast.FieldDefinition {
	if fields == nil {
		return nil
	}
	out := make([]*ast.FieldDefinition, len(fields))
	for i, f := range fields {
		out[i] = &ast.FieldDefinition{
			Name:       f.Name,
			Arguments:  f.Arguments,
			Type:       f.Type,
			Directives: copyDirectives(f.Directives),
		}
	}
	return out
}

func copyDirectives(dirs []*ast.Directive) []*ast.Directive {
	if dirs == nil {
		return nil
	}
	out := make([]*ast.Directive, len(dirs))
	for i, d := range dirs {
		out[i] = &ast.Directive{Name: d.Name, Arguments: d.Arguments}
	}
	return out
}

func mergeFields(existing, incoming []*ast.FieldDefinition) []*ast.FieldDefinition {
	seen := make(map[string]bool, len(existing))
	result := make([]*ast.FieldDefinition, 0, len(existing)+len(incoming))
	for _, f := range existing {
		seen[f.Name.String()] = true
		result = append(result, f)
	}
	for _, f := range incoming {
		if seen[f.Name.String()] {
			continue
		}
		seen[f.Name.String()] = true
		result = append(result, f)
	}
	return result
}

func (cs *ComposedSchema) mergeInterfaceTypeDefinition(newDef *ast.InterfaceTypeDefinition) {
	for _, def := range cs.Doc.Definitions {
		if existing, ok := def.(*ast.InterfaceTypeDefinition); ok && existing.Name.String() == newDef.Name.String() {
			existing.Fields = append(existing.Fields, newDef.Fields...)
			existing.Directives = append(existing.Directives, newDef.Directives...)
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

func (cs *ComposedSchema) mergeInputObjectTypeDefinition(newDef *ast.InputObjectTypeDefinition) {
	for _, def := range cs.Doc.Definitions {
		if existing, ok := def.(*ast.InputObjectTypeDefinition); ok && existing.Name.String() == newDef.Name.String() {
			existing.Fields = append(existing.Fields, newDef.Fields...)
			existing.Directives = append(existing.Directives, newDef.Directives...)
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

func (cs *ComposedSchema) mergeEnumTypeDefinition(newDef *ast.EnumTypeDefinition) {
	for _, def := range cs.Doc.Definitions {
		if existing, ok := def.(*ast.EnumTypeDefinition); ok && existing.Name.String() == newDef.Name.String() {
			existing.Values = append(existing.Values, newDef.Values...)
			existing.Directives = append(existing.Directives, newDef.Directives...)
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

func (cs *ComposedSchema) mergeScalarTypeDefinition(newDef *ast.ScalarTypeDefinition) {
	for _, def := range cs.Doc.Definitions {
		if existing, ok := def.(*ast.ScalarTypeDefinition); ok && existing.Name.String() == newDef.Name.String() {
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

func (cs *ComposedSchema) mergeUnionTypeDefinition(newDef *ast.UnionTypeDefinition) {
	for _, def := range cs.Doc.Definitions {
		if existing, ok := def.(*ast.UnionTypeDefinition); ok && existing.Name.String() == newDef.Name.String() {
			existing.Types = append(existing.Types, newDef.Types...)
			existing.Directives = append(existing.Directives, newDef.Directives...)
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

func (cs *ComposedSchema) mergeDirectiveDefinition(newDef *ast.DirectiveDefinition) {
	for _, def := range cs.Doc.Definitions {
		if existing, ok := def.(*ast.DirectiveDefinition); ok && existing.Name.String() == newDef.Name.String() {
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

func (cs *ComposedSchema) mergeSchemaDefinition(newDef *ast.SchemaDefinition) {
	for _, def := range cs.Doc.Definitions {
		if _, ok := def.(*ast.SchemaDefinition); ok {
			return
		}
	}
	cs.Doc.Definitions = append(cs.Doc.Definitions, newDef)
}

// buildOwnership computes, for every (type, field) pair in the merged
// schema, which subgraphs may resolve it: every subgraph defining the
// field, minus any subgraph named by another definition's
// `@override(from: S)`, minus any subgraph where the field is marked
// `@external`.
func (cs *ComposedSchema) buildOwnership() {
	for _, def := range cs.Doc.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok {
			continue
		}
		typeName := objDef.Name.String()

		for _, field := range objDef.Fields {
			fieldName := field.Name.String()
			key := typeName + "." + fieldName

			overrideFrom := cs.overrideFrom(typeName, fieldName)

			for _, sg := range cs.Subgraphs {
				if overrideFrom != "" && sg.Name == overrideFrom {
					continue
				}
				if cs.canResolveField(sg, typeName, fieldName) {
					cs.Ownership[key] = append(cs.Ownership[key], sg.Name)
				}
			}
		}
	}
}

func (cs *ComposedSchema) overrideFrom(typeName, fieldName string) string {
	for _, sg := range cs.Subgraphs {
		if e, ok := sg.Entity(typeName); ok {
			if fm, ok := e.Fields[fieldName]; ok && fm.OverrideFrom != "" {
				return fm.OverrideFrom
			}
		}
	}
	return ""
}

func (cs *ComposedSchema) canResolveField(sg *Subgraph, typeName, fieldName string) bool {
	for _, def := range sg.Doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			if d.Name.String() != typeName {
				continue
			}
			for _, f := range d.Fields {
				if f.Name.String() == fieldName {
					return !hasDirective(f.Directives, "external")
				}
			}
			return false
		case *ast.ObjectTypeExtension:
			if d.Name.String() != typeName {
				continue
			}
			for _, f := range d.Fields {
				if f.Name.String() == fieldName {
					return !hasDirective(f.Directives, "external")
				}
			}
			return false
		}
	}
	return false
}

// Owners returns the candidate service names that can resolve
// typeName.fieldName, in no particular order.
func (cs *ComposedSchema) Owners(typeName, fieldName string) []string {
	return cs.Ownership[typeName+"."+fieldName]
}

// SortedOwners returns Owners sorted lexicographically, matching the
// owner-selection stability rule (spec §4.3, §5).
func (cs *ComposedSchema) SortedOwners(typeName, fieldName string) []string {
	owners := append([]string(nil), cs.Owners(typeName, fieldName)...)
	sort.Strings(owners)
	return owners
}

// FieldMeta looks up the federation metadata for typeName.fieldName as
// declared by a specific subgraph, if any.
func (cs *ComposedSchema) FieldMeta(service, typeName, fieldName string) (*FieldMeta, bool) {
	for _, sg := range cs.Subgraphs {
		if sg.Name != service {
			continue
		}
		e, ok := sg.Entity(typeName)
		if !ok {
			return nil, false
		}
		fm, ok := e.Fields[fieldName]
		return fm, ok
	}
	return nil, false
}

// IsInaccessible reports whether any subgraph marks typeName.fieldName
// `@inaccessible`.
func (cs *ComposedSchema) IsInaccessible(typeName, fieldName string) bool {
	for _, sg := range cs.Subgraphs {
		if e, ok := sg.Entity(typeName); ok {
			if fm, ok := e.Fields[fieldName]; ok && fm.Inaccessible {
				return true
			}
		}
	}
	return false
}

// EntityOwner returns the subgraph that owns typeName as an entity: the
// first non-extension, resolvable declaration; if only extensions exist,
// the first resolvable one. Returns nil if typeName is not an entity
// anywhere. Grounded on SuperGraphV2.GetEntityOwnerSubGraph.
func (cs *ComposedSchema) EntityOwner(typeName string) *Subgraph {
	var fallback *Subgraph
	for _, sg := range cs.Subgraphs {
		if e, ok := sg.Entity(typeName); ok && e.IsEntity() && !e.IsExtension && e.IsResolvable() {
			return sg
		}
	}
	for _, sg := range cs.Subgraphs {
		if e, ok := sg.Entity(typeName); ok && e.IsEntity() && e.IsResolvable() {
			if fallback == nil {
				fallback = sg
			}
		}
	}
	return fallback
}

// IsEntity reports whether typeName carries a resolvable `@key` in some
// subgraph (see EntityOwner).
func (cs *ComposedSchema) IsEntity(typeName string) bool {
	return cs.EntityOwner(typeName) != nil
}

// FieldType returns the declared return type of typeName.fieldName as
// merged into the composed schema.
func (cs *ComposedSchema) FieldType(typeName, fieldName string) (*TypeRef, bool) {
	if fieldName == "__typename" {
		return &TypeRef{Kind: RefNamed, Name: "String"}, true
	}
	for _, def := range cs.Doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			if d.Name.String() != typeName {
				continue
			}
			for _, f := range d.Fields {
				if f.Name.String() == fieldName {
					return convertType(f.Type), true
				}
			}
		case *ast.InterfaceTypeDefinition:
			if d.Name.String() != typeName {
				continue
			}
			for _, f := range d.Fields {
				if f.Name.String() == fieldName {
					return convertType(f.Type), true
				}
			}
		}
	}
	return nil, false
}

// FieldArgType returns the declared type of one argument of
// typeName.fieldName.
func (cs *ComposedSchema) FieldArgType(typeName, fieldName, argName string) (*TypeRef, bool) {
	for _, def := range cs.Doc.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok || objDef.Name.String() != typeName {
			continue
		}
		for _, f := range objDef.Fields {
			if f.Name.String() != fieldName {
				continue
			}
			for _, a := range f.Arguments {
				if a.Name.String() == argName {
					return convertType(a.Type), true
				}
			}
		}
	}
	return nil, false
}

// UnionMembers returns the concrete member type names of a union, sorted
// lexicographically — a union's members can be split across subgraphs, so
// sorting (rather than merge order) keeps PossibleTypes' traversal order,
// and therefore Flatten prefix/branch allocation (spec.md S4), independent
// of composed-schema service order, matching ImplementingTypes below (spec
// .md §5's determinism contract, invariant 8.1(a)).
func (cs *ComposedSchema) UnionMembers(typeName string) []string {
	for _, def := range cs.Doc.Definitions {
		if u, ok := def.(*ast.UnionTypeDefinition); ok && u.Name.String() == typeName {
			names := make([]string, 0, len(u.Types))
			for _, t := range u.Types {
				names = append(names, t.String())
			}
			sort.Strings(names)
			return names
		}
	}
	return nil
}

// ImplementingTypes returns the object types that declare themselves as
// implementing the named interface.
func (cs *ComposedSchema) ImplementingTypes(interfaceName string) []string {
	var out []string
	for _, def := range cs.Doc.Definitions {
		objDef, ok := def.(*ast.ObjectTypeDefinition)
		if !ok {
			continue
		}
		for _, iface := range objDef.Interfaces {
			if iface.String() == interfaceName {
				out = append(out, objDef.Name.String())
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// IsAbstractType reports whether typeName is a union or an interface.
func (cs *ComposedSchema) IsAbstractType(typeName string) bool {
	for _, def := range cs.Doc.Definitions {
		switch d := def.(type) {
		case *ast.UnionTypeDefinition:
			if d.Name.String() == typeName {
				return true
			}
		case *ast.InterfaceTypeDefinition:
			if d.Name.String() == typeName {
				return true
			}
		}
	}
	return false
}

// PossibleTypes returns the concrete object types selectable under
// typeName: its own name for an object type, its members for a union, its
// implementors for an interface.
func (cs *ComposedSchema) PossibleTypes(typeName string) []string {
	if members := cs.UnionMembers(typeName); members != nil {
		return members
	}
	if impls := cs.ImplementingTypes(typeName); impls != nil {
		return impls
	}
	return []string{typeName}
}

// RootTypeName returns the object type name backing an operation kind
// ("query", "mutation", "subscription"), consulting an explicit
// `schema { ... }` definition if the subgraphs declared one and falling
// back to the conventional Query/Mutation/Subscription names otherwise.
func (cs *ComposedSchema) RootTypeName(operation string) string {
	conventional := map[string]string{"query": "Query", "mutation": "Mutation", "subscription": "Subscription"}[operation]
	for _, def := range cs.Doc.Definitions {
		sd, ok := def.(*ast.SchemaDefinition)
		if !ok {
			continue
		}
		for _, ot := range sd.OperationTypes {
			if string(ot.Operation) == operation {
				return ot.Type.Name.String()
			}
		}
	}
	return conventional
}
