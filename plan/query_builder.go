package plan

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// QueryBuilder renders the GraphQL request text sent to a subgraph for one
// Fetch or Flatten node: C7, the request rewriter. Grounded directly on
// federation/executor/query_builder_v2.go's QueryBuilderV2 (buildRootQuery,
// buildEntityQuery, writeSelection, writeValue, collectVariablesRecursive),
// adapted to render from this repo's plan tree instead of the teacher's
// flat StepV2 list, and to use schema.TypeRef for variable-definition
// types instead of the teacher's crude string-trimmed
// extractBaseTypeName.
type QueryBuilder struct {
	// VariableTypes maps a variable name to its GraphQL type string (as
	// declared by the field argument(s) that reference it), used to render
	// `query($var:Type!)` definitions.
	VariableTypes map[string]string
}

// NewQueryBuilder builds a QueryBuilder seeded with a variable-type table.
func NewQueryBuilder(variableTypes map[string]string) *QueryBuilder {
	return &QueryBuilder{VariableTypes: variableTypes}
}

// BuildFetchQuery renders a direct (non-entity) subgraph request: the
// given operation keyword ("query", "mutation", "subscription") followed
// by the rendered selections. Returns the query text and the variable
// names it references, in source-encounter order (spec.md §5 determinism
// contract (iii)).
func (qb *QueryBuilder) BuildFetchQuery(operationKeyword string, selections []*ast.Field) (string, []string) {
	vars := CollectVariables(selections)

	var sb strings.Builder
	sb.WriteString(operationKeyword)
	qb.writeVariableDefs(&sb, vars)
	sb.WriteString("\n{\n")
	for _, f := range selections {
		qb.writeField(&sb, f, 1)
	}
	sb.WriteString("}")

	return sb.String(), vars
}

// BuildEntityQuery renders an `_entities(representations: ...)` envelope
// for a jump into parentType, per spec.md §4.3 step 2 / §6. The
// representations variable is always first among the variable
// definitions.
func (qb *QueryBuilder) BuildEntityQuery(parentType string, selections []*ast.Field) (string, []string) {
	vars := append([]string{"representations"}, CollectVariables(selections)...)

	var sb strings.Builder
	sb.WriteString("query")
	qb.writeVariableDefs(&sb, vars)
	sb.WriteString("\n{\n\t_entities(representations: $representations) {\n")
	sb.WriteString("\t\t... on ")
	sb.WriteString(parentType)
	sb.WriteString(" {\n")
	for _, f := range selections {
		qb.writeField(&sb, f, 3)
	}
	sb.WriteString("\t\t}\n\t}\n}")

	return sb.String(), vars
}

func (qb *QueryBuilder) writeVariableDefs(sb *strings.Builder, vars []string) {
	if len(vars) == 0 {
		return
	}
	sb.WriteByte('(')
	for i, v := range vars {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('$')
		sb.WriteString(v)
		sb.WriteByte(':')
		if v == "representations" {
			sb.WriteString("[_Any!]!")
			continue
		}
		if t, ok := qb.VariableTypes[v]; ok {
			sb.WriteString(t)
		}
	}
	sb.WriteByte(')')
}

func (qb *QueryBuilder) writeField(sb *strings.Builder, f *ast.Field, indent int) {
	qb.writeIndent(sb, indent)
	if f.Alias != nil {
		sb.WriteString(f.Alias.String())
		sb.WriteByte(':')
	}
	sb.WriteString(f.Name.String())
	if len(f.Arguments) > 0 {
		sb.WriteByte('(')
		for i, arg := range f.Arguments {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(arg.Name.String())
			sb.WriteByte(':')
			qb.writeValue(sb, arg.Value)
		}
		sb.WriteByte(')')
	}
	qb.writeDirectives(sb, f.Directives)
	if len(f.SelectionSet) > 0 {
		sb.WriteString(" {\n")
		qb.writeSelections(sb, f.SelectionSet, indent+1)
		qb.writeIndent(sb, indent)
		sb.WriteString("}\n")
	} else {
		sb.WriteByte('\n')
	}
}

// writeDirectives renders the directives still attached to a field after
// expansion — in practice only `@skip`/`@include` conditions whose
// variable was not yet known at plan time, forwarded verbatim so the
// subgraph evaluates them itself (spec.md §4.2: "they propagate into
// subgraph requests verbatim"). Directives resolved at plan time never
// reach here — operation.ExpandForType strips them once evaluated.
func (qb *QueryBuilder) writeDirectives(sb *strings.Builder, directives []*ast.Directive) {
	for _, d := range directives {
		sb.WriteByte('@')
		sb.WriteString(d.Name)
		if len(d.Arguments) == 0 {
			continue
		}
		sb.WriteByte('(')
		for i, arg := range d.Arguments {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(arg.Name.String())
			sb.WriteByte(':')
			qb.writeValue(sb, arg.Value)
		}
		sb.WriteByte(')')
	}
}

// writeSelections renders a mixed selection set: plain fields and, per
// spec.md §4.2's abstract-type rewrite, inline fragments emitted as
// `... on ConcreteType { ... }` — one per branch the planner resolved
// independently (spec.md §4.5: "Inline fragments are emitted per concrete
// possible type when the declared type is abstract").
func (qb *QueryBuilder) writeSelections(sb *strings.Builder, selections []ast.Selection, indent int) {
	for _, sel := range selections {
		switch s := sel.(type) {
		case *ast.Field:
			qb.writeField(sb, s, indent)
		case *ast.InlineFragment:
			qb.writeIndent(sb, indent)
			sb.WriteString("... on ")
			sb.WriteString(s.TypeCondition.Name.String())
			sb.WriteString(" {\n")
			qb.writeSelections(sb, s.SelectionSet, indent+1)
			qb.writeIndent(sb, indent)
			sb.WriteString("}\n")
		}
	}
}

func (qb *QueryBuilder) writeIndent(sb *strings.Builder, indent int) {
	for i := 0; i < indent; i++ {
		sb.WriteByte('\t')
	}
}

func (qb *QueryBuilder) writeValue(sb *strings.Builder, v ast.Value) {
	switch val := v.(type) {
	case *ast.StringValue:
		sb.WriteByte('"')
		sb.WriteString(val.Value)
		sb.WriteByte('"')
	case *ast.IntValue:
		sb.WriteString(val.String())
	case *ast.FloatValue:
		sb.WriteString(val.String())
	case *ast.BooleanValue:
		if val.Value {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case *ast.EnumValue:
		sb.WriteString(val.Value)
	case *ast.Variable:
		sb.WriteByte('$')
		sb.WriteString(val.Name)
	case *ast.ListValue:
		sb.WriteByte('[')
		for i, item := range val.Values {
			if i > 0 {
				sb.WriteByte(',')
			}
			qb.writeValue(sb, item)
		}
		sb.WriteByte(']')
	case *ast.ObjectValue:
		sb.WriteByte('{')
		for i, field := range val.Fields {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(field.Name.String())
			sb.WriteByte(':')
			qb.writeValue(sb, field.Value)
		}
		sb.WriteByte('}')
	default:
		sb.WriteString("null")
	}
}

// CollectVariables walks selections — field arguments and `@skip`/
// `@include` directive conditions, recursing into sub-selections and
// inline fragments — and returns every `$variable` name referenced, in
// first-encounter (source) order with duplicates removed. Grounded on
// query_builder_v2.go's collectVariablesRecursive/collectVariablesFromValue.
func CollectVariables(selections []*ast.Field) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}

	var walkValue func(v ast.Value)
	walkValue = func(v ast.Value) {
		switch val := v.(type) {
		case *ast.Variable:
			add(val.Name)
		case *ast.ListValue:
			for _, item := range val.Values {
				walkValue(item)
			}
		case *ast.ObjectValue:
			for _, f := range val.Fields {
				walkValue(f.Value)
			}
		}
	}

	var walkDirectives func(dirs []*ast.Directive)
	walkDirectives = func(dirs []*ast.Directive) {
		for _, d := range dirs {
			for _, arg := range d.Arguments {
				walkValue(arg.Value)
			}
		}
	}

	var walkSelections func(sels []ast.Selection)
	walkSelections = func(sels []ast.Selection) {
		for _, sel := range sels {
			switch s := sel.(type) {
			case *ast.Field:
				for _, arg := range s.Arguments {
					walkValue(arg.Value)
				}
				walkDirectives(s.Directives)
				walkSelections(s.SelectionSet)
			case *ast.InlineFragment:
				walkDirectives(s.Directives)
				walkSelections(s.SelectionSet)
			case *ast.FragmentSpread:
				walkDirectives(s.Directives)
			}
		}
	}

	for _, f := range selections {
		for _, arg := range f.Arguments {
			walkValue(arg.Value)
		}
		walkDirectives(f.Directives)
		walkSelections(f.SelectionSet)
	}

	return out
}
