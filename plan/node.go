// Package plan defines the tagged plan-tree IR the planner builds and the
// executor (out of scope here) consumes: Fetch, Flatten, Sequence,
// Parallel, Subscribe, Introspection, and Error nodes, plus their
// canonical, key-order-stable JSON projection. Grounded in shape on
// federation/executor/query_builder_v2.go's rendering logic and on
// other_examples/...movio-bramble__plan.go.go's QueryPlanStep/QueryPlan,
// which independently models the same tagged-step/insertion-point
// structure for the same problem domain — restructured here as a genuine
// recursive tree (Sequence/Parallel hold child Nodes) rather than either
// example's flat step list, since spec.md §4.5 calls for a tree.
package plan

// NodeType tags the concrete shape of a Node; it is always the first key
// emitted in a node's canonical JSON form (spec.md §4.5/§6).
type NodeType string

const (
	NodeFetch         NodeType = "fetch"
	NodeFlatten       NodeType = "flatten"
	NodeSequence      NodeType = "sequence"
	NodeParallel      NodeType = "parallel"
	NodeSubscribe     NodeType = "subscribe"
	NodeIntrospection NodeType = "introspection"
	NodeError         NodeType = "error"
)

// Node is any member of the plan tree.
type Node interface {
	NodeType() NodeType
}

// Fetch issues one GraphQL request to a subgraph service and is a leaf of
// the plan tree (modulo the query text it carries).
type Fetch struct {
	Service   string
	Variables []string
	Query     string
}

func (*Fetch) NodeType() NodeType { return NodeFetch }

// Flatten takes a prior fetch's response, walks Path into it, issues an
// `_entities` query to Service for the representations found there, and
// merges the result back at that path. Prefix identifies the key-shadow
// selections this flatten corresponds to (see keyShadowFields in
// planner/keyshadow.go and nextKeyID in planner/context.go).
type Flatten struct {
	Service   string
	Path      Path
	Prefix    int
	Query     string
	Variables []string
}

func (*Flatten) NodeType() NodeType { return NodeFlatten }

// Sequence runs its children in order, each depending on state produced by
// the ones before it.
type Sequence struct {
	Nodes []Node
}

func (*Sequence) NodeType() NodeType { return NodeSequence }

// Parallel runs its children concurrently; none depends on another.
type Parallel struct {
	Nodes []Node
}

func (*Parallel) NodeType() NodeType { return NodeParallel }

// SubscribeNode is one subscription request inside a Subscribe node.
type SubscribeNode struct {
	Service   string
	Query     string
	Variables []string
}

// Subscribe is the root of a subscription plan: exactly one subscription
// request, plus an optional per-event Flatten applied to each pushed
// event's payload.
type Subscribe struct {
	SubscribeNodes []SubscribeNode
	FlattenNode    *Flatten
}

func (*Subscribe) NodeType() NodeType { return NodeSubscribe }

// Introspection answers `__schema`/`__type`/`__typename` locally from the
// composed schema, bypassing every subgraph.
type Introspection struct {
	Selection string
}

func (*Introspection) NodeType() NodeType { return NodeIntrospection }

// Error is an inline plan-time refusal (e.g. an `@inaccessible` reference)
// that does not abort the whole build; it sits alongside whatever Fetch
// still resolves the rest of the selection.
type Error struct {
	Message string
}

func (*Error) NodeType() NodeType { return NodeError }

// Plan is the result of one planner.Build call: the root of the node tree
// plus request-scoped metadata that never enters the node tree's own JSON
// form. PlanID is a correlation id for logs/traces only (spec.md §4.5
// defines the canonical JSON as the node tree itself; PlanID is ambient
// bookkeeping this repo adds on top of it, not part of that contract).
type Plan struct {
	PlanID        string
	OperationType string
	Root          Node
}
