package schema_test

import (
	"testing"

	"github.com/n9te9/federation-planner/schema"
)

const productSDL = `
	type Product @key(fields: "id") {
		id: ID!
		name: String!
		weight: Float! @shareable
	}

	type Query {
		product(id: ID!): Product
		topProducts(first: Int): [Product!]!
	}
`

const shippingSDL = `
	extend type Product @key(fields: "id") {
		id: ID! @external
		weight: Float! @external
		shippingCost: Float! @requires(fields: "weight")
	}

	type Query {
		estimate: Float
	}
`

func TestParseSubgraph_EntityKeys(t *testing.T) {
	sg, err := schema.ParseSubgraph("products", "http://products.example.com", []byte(productSDL))
	if err != nil {
		t.Fatalf("ParseSubgraph failed: %v", err)
	}

	e, ok := sg.Entity("Product")
	if !ok {
		t.Fatalf("expected Product entity")
	}
	if !e.IsEntity() || !e.IsResolvable() {
		t.Fatalf("expected Product to be an entity and resolvable")
	}
	if got := e.Keys[0].FieldSet.Names(); len(got) != 1 || got[0] != "id" {
		t.Fatalf("key fields = %v, want [id]", got)
	}

	weight, ok := e.Fields["weight"]
	if !ok || !weight.Shareable {
		t.Fatalf("expected weight field to be @shareable, got %+v", weight)
	}
}

func TestParseSubgraph_RequiresAndExternal(t *testing.T) {
	sg, err := schema.ParseSubgraph("shipping", "http://shipping.example.com", []byte(shippingSDL))
	if err != nil {
		t.Fatalf("ParseSubgraph failed: %v", err)
	}

	e, ok := sg.Entity("Product")
	if !ok || !e.IsExtension {
		t.Fatalf("expected Product to be parsed as an extension")
	}

	weight, ok := e.Fields["weight"]
	if !ok || !weight.External {
		t.Fatalf("expected weight to be marked @external")
	}

	cost, ok := e.Fields["shippingCost"]
	if !ok {
		t.Fatalf("expected shippingCost field")
	}
	if got := cost.Requires.Names(); len(got) != 1 || got[0] != "weight" {
		t.Fatalf("shippingCost.Requires = %v, want [weight]", got)
	}
}

func TestParseSubgraph_FieldType(t *testing.T) {
	sg, err := schema.ParseSubgraph("products", "http://products.example.com", []byte(productSDL))
	if err != nil {
		t.Fatalf("ParseSubgraph failed: %v", err)
	}
	e, _ := sg.Entity("Query")
	top, ok := e.Fields["topProducts"]
	if !ok {
		t.Fatalf("expected topProducts field")
	}
	if !top.Type.IsList() {
		t.Fatalf("topProducts type = %v, want a list type", top.Type)
	}
	if got, want := top.Type.NamedType(), "Product"; got != want {
		t.Fatalf("topProducts named type = %q, want %q", got, want)
	}
}
