package operation

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-planner/schema"
)

// ExpandForType flattens selections into the list of fields that apply
// when the concrete runtime type of the selected value is concreteType:
// fragment spreads and inline fragments are inlined, `@skip`/`@include`
// are evaluated, and any inline fragment or fragment spread whose type
// condition does not match concreteType (directly, or via interface/union
// membership) is dropped. Grounded on
// federation/planner/planner_v2.go's expandFragmentsInSelections, which
// inlines fragments unconditionally; this generalizes it to also filter
// by concrete type and directive condition, neither of which the teacher
// needs since it never branches plan building per possible type.
func (ctx *Context) ExpandForType(cs *schema.ComposedSchema, selections []ast.Selection, concreteType string) ([]*ast.Field, error) {
	var out []*ast.Field

	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			include, propagate, err := ctx.ShouldInclude(s.Directives)
			if err != nil {
				return nil, err
			}
			if !include {
				continue
			}
			out = append(out, withResolvedDirectives(s, propagate))

		case *ast.InlineFragment:
			include, propagate, err := ctx.ShouldInclude(s.Directives)
			if err != nil {
				return nil, err
			}
			if !include {
				continue
			}
			if !typeConditionMatches(cs, s.TypeCondition, concreteType) {
				continue
			}
			nested, err := ctx.ExpandForType(cs, s.SelectionSet, concreteType)
			if err != nil {
				return nil, err
			}
			out = append(out, attachPropagated(nested, propagate)...)

		case *ast.FragmentSpread:
			include, propagate, err := ctx.ShouldInclude(s.Directives)
			if err != nil {
				return nil, err
			}
			if !include {
				continue
			}
			fd, ok := ctx.Fragments[s.Name.String()]
			if !ok {
				return nil, fmt.Errorf("operation: undefined fragment %q", s.Name.String())
			}
			if !typeConditionMatches(cs, fd.TypeCondition, concreteType) {
				continue
			}
			nested, err := ctx.ExpandForType(cs, fd.SelectionSet, concreteType)
			if err != nil {
				return nil, err
			}
			out = append(out, attachPropagated(nested, propagate)...)

		default:
			return nil, fmt.Errorf("operation: unsupported selection type %T", sel)
		}
	}

	return mergeFields(out), nil
}

// typeConditionMatches reports whether cond (a fragment's `on Type` clause,
// possibly nil for an untyped inline fragment) selects concreteType: either
// because it names concreteType directly, or because concreteType
// implements the named interface or belongs to the named union.
func typeConditionMatches(cs *schema.ComposedSchema, cond *ast.NamedType, concreteType string) bool {
	if cond == nil {
		return true
	}
	condName := cond.Name.String()
	if condName == concreteType {
		return true
	}
	for _, possible := range cs.PossibleTypes(condName) {
		if possible == concreteType {
			return true
		}
	}
	return false
}

// withResolvedDirectives returns f, replacing its directive list with only
// the skip/include directives still unresolved (propagate) — every
// resolved skip/include directive is dropped since the decision it
// controlled has already been made at plan time; any other directive the
// field carries is left untouched.
func withResolvedDirectives(f *ast.Field, propagate []*ast.Directive) *ast.Field {
	filtered := filterResolvedSkipInclude(f.Directives, propagate)
	if len(filtered) == len(f.Directives) {
		return f
	}
	cp := *f
	cp.Directives = filtered
	return &cp
}

// attachPropagated forwards a fragment's own unresolved skip/include
// directives onto each of its (already-inlined) child fields, since an
// inline fragment or fragment spread has no surviving node of its own in
// the flattened selection list for those directives to stay attached to.
func attachPropagated(fields []*ast.Field, propagate []*ast.Directive) []*ast.Field {
	if len(propagate) == 0 {
		return fields
	}
	out := make([]*ast.Field, len(fields))
	for i, f := range fields {
		cp := *f
		cp.Directives = append(append([]*ast.Directive{}, f.Directives...), propagate...)
		out[i] = &cp
	}
	return out
}

// filterResolvedSkipInclude keeps every directive in directives that is
// not a skip/include directive, plus the skip/include directives present
// in propagate (by identity), dropping any skip/include directive that
// was evaluated to a decision rather than deferred.
func filterResolvedSkipInclude(directives, propagate []*ast.Directive) []*ast.Directive {
	if len(directives) == 0 {
		return directives
	}
	keep := make(map[*ast.Directive]bool, len(propagate))
	for _, d := range propagate {
		keep[d] = true
	}
	var out []*ast.Directive
	for _, d := range directives {
		if (d.Name == "skip" || d.Name == "include") && !keep[d] {
			continue
		}
		out = append(out, d)
	}
	return out
}

// mergeFields combines fields sharing a response key (alias, or name if
// unaliased) into one, concatenating their selection sets in the order
// encountered. Grounded on federation/planner/planner_v2.go's
// mergeSelections, which does the equivalent merge for step selections.
func mergeFields(fields []*ast.Field) []*ast.Field {
	if len(fields) == 0 {
		return fields
	}

	index := make(map[string]int, len(fields))
	var merged []*ast.Field

	for _, f := range fields {
		key := responseKey(f)
		if i, ok := index[key]; ok {
			if len(f.SelectionSet) > 0 {
				merged[i].SelectionSet = append(merged[i].SelectionSet, f.SelectionSet...)
			}
			continue
		}
		index[key] = len(merged)
		merged = append(merged, f)
	}

	return merged
}

// responseKey returns the key a field's result will appear under in the
// response: its alias if it has one, otherwise its name.
func responseKey(f *ast.Field) string {
	if f.Alias != nil {
		return f.Alias.String()
	}
	return f.Name.String()
}
