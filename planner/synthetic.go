package planner

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-planner/schema"
)

// buildSyntheticFields turns a parsed @requires field set into AST fields
// the normal field-resolution pipeline can walk, so a required selection
// is resolved with exactly the same owner-selection/jump machinery as a
// field the client selected directly. This has no teacher counterpart —
// planner_v2.go never needs synthetic AST since its `@requires` test
// fixture only ever requires flat sibling scalars already present in the
// query (getKeyFields-style handling); spec.md S5's nested
// `user(userId:$userId){country}` form requires building real selections
// instead.
//
// sourceArgs are the arguments of the field that carries the `@requires`
// directive; a `$name` value in the field set refers to one of
// sourceArgs by name (the requires grammar's variables are bound to the
// requiring field's own arguments, not the operation's variables).
func buildSyntheticFields(fs schema.FieldSet, sourceArgs []*ast.Argument) []*ast.Field {
	fields := make([]*ast.Field, 0, len(fs))
	for _, sel := range fs {
		fields = append(fields, buildSyntheticField(sel, sourceArgs))
	}
	return fields
}

func buildSyntheticField(sel *schema.FieldSetSelection, sourceArgs []*ast.Argument) *ast.Field {
	f := &ast.Field{Name: newName(sel.Name)}

	for _, a := range sel.Args {
		f.Arguments = append(f.Arguments, &ast.Argument{
			Name:  newName(a.Name),
			Value: resolveFieldSetArgValue(a.Value, sourceArgs),
		})
	}

	for _, child := range sel.Children {
		f.SelectionSet = append(f.SelectionSet, buildSyntheticField(child, sourceArgs))
	}

	return f
}

// resolveFieldSetArgValue resolves one `name:value` pair from a field-set
// argument list: a `$ref` copies the value of the same-named argument off
// the requiring field; anything else is a literal.
func resolveFieldSetArgValue(value string, sourceArgs []*ast.Argument) ast.Value {
	if strings.HasPrefix(value, "$") {
		refName := value[1:]
		for _, a := range sourceArgs {
			if a.Name.String() == refName {
				return a.Value
			}
		}
		return &ast.Variable{Name: refName}
	}
	if strings.HasPrefix(value, `"`) {
		return &ast.StringValue{Value: strings.Trim(value, `"`)}
	}
	if value == "true" || value == "false" {
		return &ast.BooleanValue{Value: value == "true"}
	}
	return &ast.EnumValue{Value: value}
}
