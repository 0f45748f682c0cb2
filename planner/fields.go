package planner

import (
	"fmt"
	"sort"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-planner/plan"
	"github.com/n9te9/federation-planner/schema"
)

// appendSegment returns a copy of path with seg appended, so siblings that
// recurse from the same path never share a backing array.
func appendSegment(path plan.Path, seg plan.Segment) plan.Path {
	out := make(plan.Path, len(path)+1)
	copy(out, path)
	out[len(path)] = seg
	return out
}

func responseKey(f *ast.Field) string {
	if f.Alias != nil {
		return f.Alias.String()
	}
	return f.Name.String()
}

func inaccessibleMessage(fieldName, parentType string, hasSelection bool, returnType string) string {
	if hasSelection {
		return fmt.Sprintf("Cannot query field %q on type %q. Field returns type %q which is marked as @inaccessible.", fieldName, parentType, returnType)
	}
	return fmt.Sprintf("Cannot query field %q on type %q. Field is marked as @inaccessible.", fieldName, parentType)
}

// resolveSelections expands selections against parentType (concrete) and
// resolves the result. This is the entry point used wherever the caller
// still holds raw AST selections (fragment spreads/inline fragments not
// yet inlined).
func (b *builder) resolveSelections(service, parentType string, selections []ast.Selection, path plan.Path, parentStep int, providesOverride schema.FieldSet) ([]*ast.Field, int, error) {
	fields, err := b.opctx.ExpandForType(b.cs, selections, parentType)
	if err != nil {
		return nil, parentStep, err
	}
	return b.resolveFields(service, parentType, fields, path, parentStep, providesOverride)
}

// resolveFields is the heart of the field resolver (C5): it implements the
// owner-selection rule, same-service recursion, cross-service jumps via
// entity representations, the `@provides` inline optimization, and
// `@requires` deferral, for one already-expanded field list against one
// concrete parentType. Grounded on federation/planner/planner_v2.go's
// findAndBuildEntitySteps/buildStepSelections, restructured so a
// cross-service jump is resolved immediately (as a new step in the
// builder's dependency forest) instead of being recorded for a later pass.
//
// Returns the fields to render in the CURRENT service's own query at this
// level (children whose owner is a different service do not appear here —
// they surface only as key-shadow selections plus a new step), and the
// index of the last step this call created (or parentStep if it created
// none), used by callers that must order a subsequent step after this
// one's jumps (`@requires` deferral).
func (b *builder) resolveFields(service, parentType string, fields []*ast.Field, path plan.Path, parentStep int, providesOverride schema.FieldSet) ([]*ast.Field, int, error) {
	groups := make(map[string][]*ast.Field)
	var requiresFields []*ast.Field

	for _, field := range fields {
		name := field.Name.String()

		if name == "__typename" {
			groups[service] = append(groups[service], field)
			continue
		}

		ownerSvc, candidates := b.chooseOwner(parentType, name, service)
		if ownerSvc == "" {
			return nil, parentStep, newSchemaViolation("no subgraph owns field %q on type %q", name, parentType)
		}
		_ = candidates

		if providesOverride != nil {
			for _, n := range providesOverride.Names() {
				if n == name {
					ownerSvc = service
					break
				}
			}
		}

		if b.cs.IsInaccessible(parentType, name) {
			returnType, _ := b.cs.FieldType(parentType, name)
			msg := inaccessibleMessage(name, parentType, len(field.SelectionSet) > 0, returnType.NamedType())
			b.addStep(&plan.Error{Message: msg}, parentStep)
			continue
		}

		meta, _ := b.cs.FieldMeta(ownerSvc, parentType, name)
		if b.registry.Applies("requires", FieldVisit{ParentType: parentType, Service: ownerSvc, Meta: meta}) {
			requiresFields = append(requiresFields, field)
			continue
		}

		groups[ownerSvc] = append(groups[ownerSvc], field)
	}

	before := len(b.steps)
	lastStep := parentStep

	var result []*ast.Field
	if local := groups[service]; len(local) > 0 {
		resolvedLocal, err := b.recurseLocal(service, parentType, local, path, parentStep)
		if err != nil {
			return nil, parentStep, err
		}
		result = append(result, resolvedLocal...)
	}

	remoteNames := make([]string, 0, len(groups))
	for svc := range groups {
		if svc == service {
			continue
		}
		remoteNames = append(remoteNames, svc)
	}
	sort.Strings(remoteNames)

	for _, remoteSvc := range remoteNames {
		remoteFields := groups[remoteSvc]
		shadow, stepIdx, err := b.buildRemoteJump(service, remoteSvc, parentType, remoteFields, path, parentStep)
		if err != nil {
			return nil, parentStep, err
		}
		result = append(result, shadow...)
		lastStep = stepIdx
	}

	for _, field := range requiresFields {
		newLast, err := b.resolveRequiresField(service, parentType, field, path, parentStep, &result)
		if err != nil {
			return nil, parentStep, err
		}
		lastStep = newLast
	}

	if len(b.steps) > before {
		lastStep = len(b.steps) - 1
	}

	return result, lastStep, nil
}

// recurseLocal resolves each field's own sub-selection (if any) against
// its declared return type, recursing through resolveAbstractField for
// interface/union-typed fields and resolveSelections otherwise.
func (b *builder) recurseLocal(service, parentType string, fields []*ast.Field, path plan.Path, parentStep int) ([]*ast.Field, error) {
	out := make([]*ast.Field, 0, len(fields))
	for _, field := range fields {
		name := field.Name.String()
		if name == "__typename" || len(field.SelectionSet) == 0 {
			out = append(out, field)
			continue
		}

		childType, ok := b.cs.FieldType(parentType, name)
		if !ok {
			out = append(out, field)
			continue
		}

		childPath := appendSegment(path, plan.Segment{Name: responseKey(field), List: childType.IsList()})

		var meta *schema.FieldMeta
		ownerSvc, _ := b.chooseOwner(parentType, name, service)
		if ownerSvc != "" {
			meta, _ = b.cs.FieldMeta(ownerSvc, parentType, name)
		}
		var provides schema.FieldSet
		if b.registry.Applies("provides", FieldVisit{ParentType: parentType, Service: ownerSvc, Meta: meta}) {
			provides = meta.Provides
		}

		var resolvedSelections []ast.Selection
		var err error
		if b.cs.IsAbstractType(childType.NamedType()) {
			resolvedSelections, err = b.resolveAbstractField(service, childType.NamedType(), field.SelectionSet, childPath, parentStep, provides)
		} else {
			var resolved []*ast.Field
			resolved, _, err = b.resolveSelections(service, childType.NamedType(), field.SelectionSet, childPath, parentStep, provides)
			for _, f := range resolved {
				resolvedSelections = append(resolvedSelections, f)
			}
		}
		if err != nil {
			return nil, err
		}

		out = append(out, &ast.Field{
			Alias:        field.Alias,
			Name:         field.Name,
			Arguments:    field.Arguments,
			Directives:   field.Directives,
			SelectionSet: resolvedSelections,
		})
	}
	return out, nil
}

// buildRemoteJump implements spec.md §4.3's cross-service jump: it injects
// a key shadow (keyed by remoteSvc's own `@key` on parentType) to render
// alongside the caller's local selection, reserves a new step depending on
// parentStep, resolves remoteFields against remoteSvc (recursing exactly
// like any other selection, so a jump can itself trigger further jumps),
// and fills the reserved step with the resulting Flatten.
func (b *builder) buildRemoteJump(fromService, remoteSvc, parentType string, remoteFields []*ast.Field, path plan.Path, parentStep int) ([]*ast.Field, int, error) {
	prefix := b.nextKeyID()
	shadow, _, err := b.keyShadowFields(remoteSvc, parentType, prefix)
	if err != nil {
		return nil, parentStep, err
	}

	reserved := b.addStep(nil, parentStep)

	resolved, _, err := b.resolveFields(remoteSvc, parentType, remoteFields, path, reserved, nil)
	if err != nil {
		return nil, parentStep, err
	}

	qb := plan.NewQueryBuilder(b.variableTypes(resolved))
	query, vars := qb.BuildEntityQuery(parentType, resolved)
	b.steps[reserved].node = &plan.Flatten{Service: remoteSvc, Path: path, Prefix: prefix, Query: query, Variables: vars}

	return shadow, reserved, nil
}

// variableTypes resolves a type string for every variable CollectVariables
// would find in fields, consulting the argument definitions of every object
// type in the composed schema (a variable can be threaded through more than
// one identically named argument; the first match wins, which is enough for
// the well-formed operations this planner accepts).
func (b *builder) variableTypes(fields []*ast.Field) map[string]string {
	names := plan.CollectVariables(fields)
	out := make(map[string]string, len(names))
	for _, name := range names {
		if t, ok := b.lookupVariableType(fields, name); ok {
			out[name] = t
		}
	}
	return out
}

func (b *builder) lookupVariableType(fields []*ast.Field, varName string) (string, bool) {
	var found string
	var ok bool
	var walk func(fs []*ast.Field)
	walk = func(fs []*ast.Field) {
		for _, f := range fs {
			for _, arg := range f.Arguments {
				if v, isVar := arg.Value.(*ast.Variable); isVar && v.Name == varName && !ok {
					for _, def := range b.cs.Doc.Definitions {
						objDef, isObj := def.(*ast.ObjectTypeDefinition)
						if !isObj {
							continue
						}
						if t, has := b.cs.FieldArgType(objDef.Name.String(), f.Name.String(), arg.Name.String()); has {
							found, ok = t.String(), true
							break
						}
					}
				}
			}
			var children []*ast.Field
			for _, sel := range f.SelectionSet {
				if child, isField := sel.(*ast.Field); isField {
					children = append(children, child)
				}
			}
			walk(children)
		}
	}
	walk(fields)
	return found, ok
}
