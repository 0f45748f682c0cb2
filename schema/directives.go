package schema

import (
	"strings"

	"github.com/n9te9/graphql-parser/ast"
)

// findDirective returns the first directive named name, or nil.
func findDirective(dirs []*ast.Directive, name string) *ast.Directive {
	for _, d := range dirs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// hasDirective reports whether dirs contains a directive named name.
func hasDirective(dirs []*ast.Directive, name string) bool {
	return findDirective(dirs, name) != nil
}

func directiveStringArg(d *ast.Directive, name string) (string, bool) {
	if d == nil {
		return "", false
	}
	for _, arg := range d.Arguments {
		if arg.Name.String() == name {
			return strings.Trim(arg.Value.String(), `"`), true
		}
	}
	return "", false
}

func directiveBoolArg(d *ast.Directive, name string, def bool) bool {
	if d == nil {
		return def
	}
	for _, arg := range d.Arguments {
		if arg.Name.String() == name {
			return arg.Value.String() != "false"
		}
	}
	return def
}
