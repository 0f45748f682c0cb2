package schema_test

import (
	"testing"

	"github.com/n9te9/federation-planner/schema"
)

func mustParse(t *testing.T, name, host, sdl string) *schema.Subgraph {
	t.Helper()
	sg, err := schema.ParseSubgraph(name, host, []byte(sdl))
	if err != nil {
		t.Fatalf("ParseSubgraph(%q) failed: %v", name, err)
	}
	return sg
}

func TestCompose_BasicOwnership(t *testing.T) {
	products := mustParse(t, "products", "http://products", `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
		}
		type Query {
			product(id: ID!): Product
		}
	`)
	shipping := mustParse(t, "shipping", "http://shipping", `
		extend type Product @key(fields: "id") {
			id: ID! @external
			name: String! @external
			shippingCost: Float!
		}
	`)

	cs, err := schema.Compose([]*schema.Subgraph{products, shipping})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if got := cs.SortedOwners("Product", "name"); len(got) != 1 || got[0] != "products" {
		t.Fatalf("owners of Product.name = %v, want [products]", got)
	}
	if got := cs.SortedOwners("Product", "shippingCost"); len(got) != 1 || got[0] != "shipping" {
		t.Fatalf("owners of Product.shippingCost = %v, want [shipping]", got)
	}
	if !cs.IsEntity("Product") {
		t.Fatalf("expected Product to be an entity")
	}
	if owner := cs.EntityOwner("Product"); owner == nil || owner.Name != "products" {
		t.Fatalf("EntityOwner(Product) = %v, want products", owner)
	}
}

func TestCompose_OverrideExcludesPriorOwner(t *testing.T) {
	legacy := mustParse(t, "legacy", "http://legacy", `
		type Product @key(fields: "id") {
			id: ID!
			price: Float!
		}
		type Query { product(id: ID!): Product }
	`)
	pricing := mustParse(t, "pricing", "http://pricing", `
		extend type Product @key(fields: "id") {
			id: ID! @external
			price: Float! @override(from: "legacy")
		}
	`)

	cs, err := schema.Compose([]*schema.Subgraph{legacy, pricing})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	got := cs.SortedOwners("Product", "price")
	if len(got) != 1 || got[0] != "pricing" {
		t.Fatalf("owners of Product.price = %v, want [pricing] (legacy excluded by @override)", got)
	}
}

func TestCompose_Inaccessible(t *testing.T) {
	sg := mustParse(t, "internal", "http://internal", `
		type Product @key(fields: "id") {
			id: ID!
			internalNotes: String! @inaccessible
		}
		type Query { product(id: ID!): Product }
	`)

	cs, err := schema.Compose([]*schema.Subgraph{sg})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if !cs.IsInaccessible("Product", "internalNotes") {
		t.Fatalf("expected Product.internalNotes to be @inaccessible")
	}
	if cs.IsInaccessible("Product", "id") {
		t.Fatalf("did not expect Product.id to be @inaccessible")
	}
}

func TestCompose_UnionAndInterfaceTypes(t *testing.T) {
	sg := mustParse(t, "catalog", "http://catalog", `
		interface Node { id: ID! }
		type Book implements Node { id: ID! title: String! }
		type Movie implements Node { id: ID! runtime: Int! }
		union SearchResult = Book | Movie
		type Query { search: [SearchResult!]! }
	`)

	cs, err := schema.Compose([]*schema.Subgraph{sg})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if !cs.IsAbstractType("SearchResult") {
		t.Fatalf("expected SearchResult to be abstract (union)")
	}
	if !cs.IsAbstractType("Node") {
		t.Fatalf("expected Node to be abstract (interface)")
	}
	members := cs.UnionMembers("SearchResult")
	if len(members) != 2 {
		t.Fatalf("union members = %v, want 2 entries", members)
	}
	impls := cs.ImplementingTypes("Node")
	if len(impls) != 2 || impls[0] != "Book" || impls[1] != "Movie" {
		t.Fatalf("implementing types = %v, want [Book Movie]", impls)
	}
}
