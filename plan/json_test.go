package plan_test

import (
	"encoding/json"
	"testing"

	"github.com/n9te9/federation-planner/plan"
)

func TestFetchJSON_KeyOrderAndRoundTrip(t *testing.T) {
	f := &plan.Fetch{Service: "products", Variables: []string{"id"}, Query: "query($id:ID!)\n{ product(id:$id) { id name } }"}

	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"type":"fetch","service":"products","variables":["id"],"query":"query($id:ID!)\n{ product(id:$id) { id name } }"}`
	if string(b) != want {
		t.Fatalf("Marshal() = %s, want %s", b, want)
	}

	n, err := plan.Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	b2, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("re-Marshal failed: %v", err)
	}
	if string(b2) != want {
		t.Fatalf("round-trip mismatch: got %s, want %s", b2, want)
	}
}

func TestFetchJSON_OmitsEmptyVariables(t *testing.T) {
	f := &plan.Fetch{Service: "products", Query: "query\n{ topProducts { id } }"}
	b, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := `{"type":"fetch","service":"products","query":"query\n{ topProducts { id } }"}`
	if string(b) != want {
		t.Fatalf("Marshal() = %s, want %s", b, want)
	}
}

func TestSequenceOfFetchAndFlatten_S1Shape(t *testing.T) {
	seq := &plan.Sequence{
		Nodes: []plan.Node{
			&plan.Fetch{
				Service: "collectibles",
				Query:   "query\n{ collectiblesAll { __typename id name collection { id __key1___typename:__typename __key1_id:id } } }",
			},
			&plan.Flatten{
				Service: "collections",
				Path:    plan.Path{{Name: "collectiblesAll", List: true}, {Name: "collection"}},
				Prefix:  1,
				Query:   "query($representations:[_Any!]!)\n{ _entities(representations:$representations) { ... on Collection { name floorPrice } } }",
			},
		},
	}

	b, err := json.Marshal(seq)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	n, err := plan.Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got, ok := n.(*plan.Sequence)
	if !ok || len(got.Nodes) != 2 {
		t.Fatalf("Unmarshal() = %#v, want a 2-node Sequence", n)
	}
	flatten, ok := got.Nodes[1].(*plan.Flatten)
	if !ok {
		t.Fatalf("second node = %T, want *plan.Flatten", got.Nodes[1])
	}
	if got, want := flatten.Path.String(), "[collectiblesAll].collection"; got != want {
		t.Fatalf("flatten.Path = %q, want %q", got, want)
	}
	if flatten.Prefix != 1 {
		t.Fatalf("flatten.Prefix = %d, want 1", flatten.Prefix)
	}
}

func TestSubscribeJSON_RoundTrip(t *testing.T) {
	sub := &plan.Subscribe{
		SubscribeNodes: []plan.SubscribeNode{
			{Service: "accounts", Query: "subscription\n{ users { id username __key1___typename:__typename __key1_id:id } }"},
		},
		FlattenNode: &plan.Flatten{
			Service: "reviews",
			Path:    plan.Path{{Name: "users", List: true}},
			Prefix:  1,
			Query:   "query($representations:[_Any!]!)\n{ _entities(representations:$representations) { ... on User { reviews { body } } } }",
		},
	}

	b, err := json.Marshal(sub)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	n, err := plan.Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got, ok := n.(*plan.Subscribe)
	if !ok {
		t.Fatalf("Unmarshal() = %T, want *plan.Subscribe", n)
	}
	if got.FlattenNode == nil || got.FlattenNode.Path.String() != "[users]" {
		t.Fatalf("FlattenNode.Path = %v, want [users]", got.FlattenNode)
	}
	b2, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("re-Marshal failed: %v", err)
	}
	if string(b) != string(b2) {
		t.Fatalf("round-trip mismatch:\n got %s\nwant %s", b2, b)
	}
}

func TestPath_AbstractNarrowing(t *testing.T) {
	p := plan.Path{{Name: "topProducts", List: true, ConcreteType: "Book"}}
	rendered := p.String()
	if want := "[topProducts](Book)"; rendered != want {
		t.Fatalf("Path.String() = %q, want %q", rendered, want)
	}
	if got := plan.ParsePath(rendered); got.String() != rendered {
		t.Fatalf("ParsePath round trip = %q, want %q", got.String(), rendered)
	}
}

func TestErrorNodeJSON(t *testing.T) {
	e := &plan.Error{Message: `Cannot query field "internalCode" on type "Product". Field is marked as @inaccessible.`}
	b, err := json.Marshal(e)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	n, err := plan.Unmarshal(b)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	got, ok := n.(*plan.Error)
	if !ok || got.Message != e.Message {
		t.Fatalf("Unmarshal() = %#v, want matching Error", n)
	}
}
