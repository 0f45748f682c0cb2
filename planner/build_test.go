package planner_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"

	"github.com/n9te9/federation-planner/plan"
	"github.com/n9te9/federation-planner/planner"
	"github.com/n9te9/federation-planner/schema"
)

func mustSubgraph(t *testing.T, name, host, sdl string) *schema.Subgraph {
	t.Helper()
	sg, err := schema.ParseSubgraph(name, host, []byte(sdl))
	if err != nil {
		t.Fatalf("ParseSubgraph(%q) failed: %v", name, err)
	}
	return sg
}

func mustCompose(t *testing.T, subgraphs ...*schema.Subgraph) *schema.ComposedSchema {
	t.Helper()
	cs, err := schema.Compose(subgraphs)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	return cs
}

func mustDoc(t *testing.T, src string) *ast.Document {
	t.Helper()
	p := parser.New(lexer.New(src))
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		t.Fatalf("parse errors: %v", p.Errors())
	}
	return doc
}

// nodeShape strips request text/variable lists down to the parts the tree
// shape and routing decisions are judged on, so assertions aren't pinned to
// exact whitespace in the rendered query text.
type nodeShape struct {
	Type    plan.NodeType
	Service string
	Path    string
	Prefix  int
	Message string
	Nodes   []nodeShape
}

func shapeOf(n plan.Node) nodeShape {
	switch v := n.(type) {
	case *plan.Fetch:
		return nodeShape{Type: plan.NodeFetch, Service: v.Service}
	case *plan.Flatten:
		return nodeShape{Type: plan.NodeFlatten, Service: v.Service, Path: v.Path.String(), Prefix: v.Prefix}
	case *plan.Sequence:
		out := nodeShape{Type: plan.NodeSequence}
		for _, c := range v.Nodes {
			out.Nodes = append(out.Nodes, shapeOf(c))
		}
		return out
	case *plan.Parallel:
		out := nodeShape{Type: plan.NodeParallel}
		for _, c := range v.Nodes {
			out.Nodes = append(out.Nodes, shapeOf(c))
		}
		return out
	case *plan.Error:
		return nodeShape{Type: plan.NodeError, Message: v.Message}
	case *plan.Introspection:
		return nodeShape{Type: plan.NodeIntrospection}
	default:
		return nodeShape{}
	}
}

// S1: a single-service query whose nested selection crosses into a second
// service via an entity-representation jump.
func TestBuild_S1_EntityJump(t *testing.T) {
	products := mustSubgraph(t, "products", "http://products", `
		type Collectible @key(fields: "id") {
			id: ID!
			name: String!
			collection: Collection!
		}
		type Collection @key(fields: "id") {
			id: ID!
		}
		type Query {
			collectiblesAll: [Collectible!]!
		}
	`)
	collections := mustSubgraph(t, "collections", "http://collections", `
		extend type Collection @key(fields: "id") {
			id: ID! @external
			name: String!
			floorPrice: Float!
		}
	`)
	cs := mustCompose(t, products, collections)

	doc := mustDoc(t, `{ collectiblesAll { __typename id name collection { __typename id name floorPrice } } }`)

	p, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := nodeShape{Type: plan.NodeSequence, Nodes: []nodeShape{
		{Type: plan.NodeFetch, Service: "products"},
		{Type: plan.NodeFlatten, Service: "collections", Path: "[collectiblesAll].collection", Prefix: 1},
	}}
	if diff := cmp.Diff(want, shapeOf(p.Root)); diff != "" {
		t.Fatalf("plan shape mismatch (-want +got):\n%s", diff)
	}
	if p.OperationType != "query" {
		t.Fatalf("OperationType = %q, want query", p.OperationType)
	}
}

// S2: a mutation whose fields are owned by three different services must
// serialize in source order, never Parallel across services.
func TestBuild_S2_MutationNeverParallel(t *testing.T) {
	carts := mustSubgraph(t, "carts", "http://carts", `
		type Mutation {
			addToCart(id: ID!): Boolean!
		}
	`)
	payments := mustSubgraph(t, "payments", "http://payments", `
		type Mutation {
			charge(id: ID!): Boolean!
		}
	`)
	shipping := mustSubgraph(t, "shipping", "http://shipping", `
		type Mutation {
			scheduleShipment(id: ID!): Boolean!
		}
	`)
	cs := mustCompose(t, carts, payments, shipping)

	doc := mustDoc(t, `mutation { addToCart(id: "1") charge(id: "1") scheduleShipment(id: "1") }`)

	p, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.OperationType != "mutation" {
		t.Fatalf("OperationType = %q, want mutation", p.OperationType)
	}

	seq, ok := p.Root.(*plan.Sequence)
	if !ok {
		t.Fatalf("root = %T, want *plan.Sequence (mutations must never run services in Parallel)", p.Root)
	}
	var order []string
	for _, n := range seq.Nodes {
		f, ok := n.(*plan.Fetch)
		if !ok {
			t.Fatalf("mutation sequence node = %T, want *plan.Fetch", n)
		}
		order = append(order, f.Service)
	}
	want := []string{"carts", "payments", "shipping"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Fatalf("mutation service order mismatch (-want +got):\n%s", diff)
	}
	for _, n := range seq.Nodes {
		if _, ok := n.(*plan.Parallel); ok {
			t.Fatalf("mutation plan must never contain a Parallel node")
		}
	}
}

// S4: a union field with members owned by different services resolves per
// concrete type, each branch's cross-service fields reached in parallel.
func TestBuild_S4_UnionAcrossServices(t *testing.T) {
	catalog := mustSubgraph(t, "catalog", "http://catalog", `
		union SearchResult = Book | Car
		type Book @key(fields: "id") {
			id: ID!
			title: String!
		}
		type Car @key(fields: "id") {
			id: ID!
			make: String!
		}
		type Query {
			search: [SearchResult!]!
		}
	`)
	books := mustSubgraph(t, "books", "http://books", `
		extend type Book @key(fields: "id") {
			id: ID! @external
			pageCount: Int!
		}
	`)
	cars := mustSubgraph(t, "cars", "http://cars", `
		extend type Car @key(fields: "id") {
			id: ID! @external
			topSpeed: Int!
		}
	`)
	cs := mustCompose(t, catalog, books, cars)

	doc := mustDoc(t, `{
		search {
			__typename
			... on Book { id title pageCount }
			... on Car { id make topSpeed }
		}
	}`)

	p, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	seq, ok := p.Root.(*plan.Sequence)
	if !ok || len(seq.Nodes) != 2 {
		t.Fatalf("root = %#v, want a 2-element Sequence", p.Root)
	}
	if _, ok := seq.Nodes[0].(*plan.Fetch); !ok {
		t.Fatalf("seq.Nodes[0] = %T, want *plan.Fetch", seq.Nodes[0])
	}
	par, ok := seq.Nodes[1].(*plan.Parallel)
	if !ok || len(par.Nodes) != 2 {
		t.Fatalf("seq.Nodes[1] = %#v, want a 2-element Parallel (books, cars jumps)", seq.Nodes[1])
	}
	services := map[string]bool{}
	for _, n := range par.Nodes {
		fl, ok := n.(*plan.Flatten)
		if !ok {
			t.Fatalf("parallel child = %T, want *plan.Flatten", n)
		}
		services[fl.Service] = true
	}
	if !services["books"] || !services["cars"] {
		t.Fatalf("services = %v, want both books and cars", services)
	}
}

// S5: a field owned by a second service that requires a field of the
// parent's service is emitted in its own Flatten into its owner, after the
// required field has been selected from the parent's service.
func TestBuild_S5_RequiresChain(t *testing.T) {
	products := mustSubgraph(t, "products", "http://products", `
		type Product @key(fields: "id") {
			id: ID!
			weight: Float!
		}
		type Query {
			productsAll: [Product!]!
		}
	`)
	shipping := mustSubgraph(t, "shipping", "http://shipping", `
		extend type Product @key(fields: "id") {
			id: ID! @external
			weight: Float! @external
			shippingEstimate: Float! @requires(fields: "weight")
		}
	`)
	cs := mustCompose(t, products, shipping)

	doc := mustDoc(t, `{ productsAll { id shippingEstimate } }`)

	p, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	var sawShipping bool
	var walk func(plan.Node)
	walk = func(n plan.Node) {
		switch v := n.(type) {
		case *plan.Sequence:
			for _, c := range v.Nodes {
				walk(c)
			}
		case *plan.Parallel:
			for _, c := range v.Nodes {
				walk(c)
			}
		case *plan.Flatten:
			if v.Service == "shipping" {
				sawShipping = true
			}
		}
	}
	walk(p.Root)
	if !sawShipping {
		t.Fatalf("expected a Flatten into shipping resolving the @requires-carrying shippingEstimate, plan = %#v", p.Root)
	}
}

// S3: a subscription's root selection resolves against its single owning
// service, and a nested cross-service selection becomes the Subscribe
// node's single flattenNode rather than a sequenced step.
func TestBuild_S3_SubscriptionWithEntityDependency(t *testing.T) {
	accounts := mustSubgraph(t, "accounts", "http://accounts", `
		type User @key(fields: "id") {
			id: ID!
			username: String!
		}
		type Subscription {
			users: [User!]!
		}
	`)
	reviews := mustSubgraph(t, "reviews", "http://reviews", `
		extend type User @key(fields: "id") {
			id: ID! @external
			reviews: [String!]!
		}
	`)
	cs := mustCompose(t, accounts, reviews)

	doc := mustDoc(t, `subscription { users { id username reviews } }`)

	p, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if p.OperationType != "subscription" {
		t.Fatalf("OperationType = %q, want subscription", p.OperationType)
	}

	sub, ok := p.Root.(*plan.Subscribe)
	if !ok {
		t.Fatalf("root = %T, want *plan.Subscribe", p.Root)
	}
	if len(sub.SubscribeNodes) != 1 || sub.SubscribeNodes[0].Service != "accounts" {
		t.Fatalf("subscribeNodes = %#v, want exactly one against accounts", sub.SubscribeNodes)
	}
	if sub.FlattenNode == nil {
		t.Fatalf("expected a flattenNode resolving reviews' entity jump, got none")
	}
	if sub.FlattenNode.Service != "reviews" {
		t.Fatalf("flattenNode.Service = %q, want reviews", sub.FlattenNode.Service)
	}
	if want := "[users]"; sub.FlattenNode.Path.String() != want {
		t.Fatalf("flattenNode.Path = %q, want %q", sub.FlattenNode.Path.String(), want)
	}
	if sub.FlattenNode.Prefix != 1 {
		t.Fatalf("flattenNode.Prefix = %d, want 1", sub.FlattenNode.Prefix)
	}
}

// S6: referencing an @inaccessible field produces an inline Error alongside
// a Fetch reduced to the remaining, accessible selections.
func TestBuild_S6_InaccessibleField(t *testing.T) {
	products := mustSubgraph(t, "products", "http://products", `
		type Product @key(fields: "id") {
			id: ID!
			name: String!
			internalCode: String! @inaccessible
		}
		type Query {
			productsAll: [Product!]!
		}
	`)
	cs := mustCompose(t, products)

	doc := mustDoc(t, `{ productsAll { id name internalCode } }`)

	p, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	seq, ok := p.Root.(*plan.Sequence)
	if !ok {
		t.Fatalf("root = %T, want *plan.Sequence", p.Root)
	}
	if _, ok := seq.Nodes[0].(*plan.Fetch); !ok {
		t.Fatalf("seq.Nodes[0] = %T, want *plan.Fetch", seq.Nodes[0])
	}
	var foundError bool
	for _, n := range seq.Nodes[1:] {
		if _, ok := n.(*plan.Error); ok {
			foundError = true
		}
		if _, ok := n.(*plan.Parallel); ok {
			t.Fatalf("inaccessible-field errors must not be Parallel-wrapped, got %#v", n)
		}
	}
	if !foundError {
		t.Fatalf("expected an *plan.Error for the @inaccessible reference, plan = %#v", p.Root)
	}
}

// Determinism: building the same operation twice must produce the exact
// same plan shape (modulo the random PlanID), regardless of any incidental
// map-iteration ordering inside the builder.
func TestBuild_Deterministic(t *testing.T) {
	products := mustSubgraph(t, "products", "http://products", `
		type Collectible @key(fields: "id") {
			id: ID!
			name: String!
			collection: Collection!
		}
		type Collection @key(fields: "id") {
			id: ID!
		}
		type Query {
			collectiblesAll: [Collectible!]!
		}
	`)
	collections := mustSubgraph(t, "collections", "http://collections", `
		extend type Collection @key(fields: "id") {
			id: ID! @external
			name: String!
			floorPrice: Float!
		}
	`)
	cs := mustCompose(t, products, collections)
	doc := mustDoc(t, `{ collectiblesAll { __typename id name collection { __typename id name floorPrice } } }`)

	first, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := planner.Build(cs, doc, "", nil, planner.Options{})
		if err != nil {
			t.Fatalf("Build failed on run %d: %v", i, err)
		}
		if diff := cmp.Diff(shapeOf(first.Root), shapeOf(again.Root)); diff != "" {
			t.Fatalf("plan shape changed across identical runs (-first +again):\n%s", diff)
		}
	}
}

// No subgraph owning a root field is a *planner.PlanError of kind NoOwner.
func TestBuild_NoOwner(t *testing.T) {
	products := mustSubgraph(t, "products", "http://products", `
		type Query {
			productsAll: [String!]!
		}
	`)
	cs := mustCompose(t, products)
	doc := mustDoc(t, `{ doesNotExist }`)

	_, err := planner.Build(cs, doc, "", nil, planner.Options{})
	if err == nil {
		t.Fatalf("expected an error for an unresolvable root field")
	}
	var planErr *planner.PlanError
	if !errors.As(err, &planErr) || planErr.Kind != planner.NoOwner {
		t.Fatalf("err = %v, want a *planner.PlanError of kind NoOwner", err)
	}
}
