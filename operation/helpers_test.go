package operation_test

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
)

func fieldNamed(t *testing.T, selections []ast.Selection, name string) *ast.Field {
	t.Helper()
	for _, sel := range selections {
		if f, ok := sel.(*ast.Field); ok && f.Name.String() == name {
			return f
		}
	}
	t.Fatalf("field %q not found in selection set", name)
	return nil
}

func hasField(fields []*ast.Field, name string) bool {
	for _, f := range fields {
		if f.Name.String() == name {
			return true
		}
	}
	return false
}

func fieldNames(fields []*ast.Field) []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name.String())
	}
	return names
}
