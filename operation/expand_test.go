package operation_test

import (
	"testing"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"

	"github.com/n9te9/federation-planner/operation"
	"github.com/n9te9/federation-planner/schema"
)

func TestExpandForType_SkipInclude(t *testing.T) {
	src := `
		query($omit: Boolean!) {
			product(id: "1") {
				id
				name @skip(if: $omit)
				price @include(if: $omit)
			}
		}
	`
	l := lexer.New(src)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}

	ctx := operation.NewContext(doc, map[string]any{"omit": true})
	opDef, err := ctx.Operation("")
	if err != nil {
		t.Fatalf("Operation() failed: %v", err)
	}

	productField := fieldNamed(t, opDef.SelectionSet, "product")

	fields, err := ctx.ExpandForType(nil, productField.SelectionSet, "Product")
	if err != nil {
		t.Fatalf("ExpandForType failed: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range fields {
		names[f.Name.String()] = true
	}
	if names["name"] {
		t.Fatalf("expected name to be skipped, got fields %v", names)
	}
	if !names["price"] {
		t.Fatalf("expected price to be included, got fields %v", names)
	}
	if !names["id"] {
		t.Fatalf("expected id to always be present, got fields %v", names)
	}
}

func TestExpandForType_SkipIncludeUnknownVariablePropagates(t *testing.T) {
	src := `
		query {
			product(id: "1") {
				id
				name @skip(if: $omit)
			}
		}
	`
	l := lexer.New(src)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}

	// "omit" is never supplied: the condition is not yet known, so per
	// spec.md §4.2 the field must not be pre-dropped, and the directive
	// must survive on the returned field so it reaches the subgraph.
	ctx := operation.NewContext(doc, nil)
	opDef, err := ctx.Operation("")
	if err != nil {
		t.Fatalf("Operation() failed: %v", err)
	}
	productField := fieldNamed(t, opDef.SelectionSet, "product")

	fields, err := ctx.ExpandForType(nil, productField.SelectionSet, "Product")
	if err != nil {
		t.Fatalf("ExpandForType failed: %v", err)
	}
	if !hasField(fields, "name") {
		t.Fatalf("expected name to survive with an unresolved condition, got fields %v", fieldNames(fields))
	}

	var name *ast.Field
	for _, f := range fields {
		if f.Name.String() == "name" {
			name = f
		}
	}
	if name == nil || len(name.Directives) != 1 || name.Directives[0].Name != "skip" {
		t.Fatalf("expected name to still carry @skip, got fields %+v", fields)
	}
}

func TestExpandForType_AbstractTypeInlineFragment(t *testing.T) {
	sdl := `
		interface Node { id: ID! }
		type Book implements Node { id: ID! title: String! }
		type Movie implements Node { id: ID! runtime: Int! }
		type Query { search: [Node!]! }
	`
	sg, err := schema.ParseSubgraph("catalog", "http://catalog", []byte(sdl))
	if err != nil {
		t.Fatalf("ParseSubgraph failed: %v", err)
	}
	cs, err := schema.Compose([]*schema.Subgraph{sg})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	src := `
		query {
			search {
				id
				... on Book { title }
				... on Movie { runtime }
			}
		}
	`
	l := lexer.New(src)
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}

	ctx := operation.NewContext(doc, nil)
	opDef, err := ctx.Operation("")
	if err != nil {
		t.Fatalf("Operation() failed: %v", err)
	}
	searchField := fieldNamed(t, opDef.SelectionSet, "search")

	bookFields, err := ctx.ExpandForType(cs, searchField.SelectionSet, "Book")
	if err != nil {
		t.Fatalf("ExpandForType(Book) failed: %v", err)
	}
	if !hasField(bookFields, "title") || hasField(bookFields, "runtime") {
		t.Fatalf("Book fields = %v, want [id title]", fieldNames(bookFields))
	}

	movieFields, err := ctx.ExpandForType(cs, searchField.SelectionSet, "Movie")
	if err != nil {
		t.Fatalf("ExpandForType(Movie) failed: %v", err)
	}
	if !hasField(movieFields, "runtime") || hasField(movieFields, "title") {
		t.Fatalf("Movie fields = %v, want [id runtime]", fieldNames(movieFields))
	}
}
