package plan

import (
	"encoding/json"
	"fmt"
)

// marshalJSONString is the one place this package calls encoding/json
// directly to render a bare string value, used by Path.MarshalJSON.
func marshalJSONString(s string) ([]byte, error) {
	return json.Marshal(s)
}

// Every concrete Node type below marshals through a private shadow struct
// whose field declaration order pins the emitted JSON key order — "type"
// first, exactly as spec.md §4.5/§6 requires — without needing a hand
// rolled ordered-map encoder.

type fetchJSON struct {
	Type      NodeType `json:"type"`
	Service   string   `json:"service"`
	Variables []string `json:"variables,omitempty"`
	Query     string   `json:"query"`
}

func (f *Fetch) MarshalJSON() ([]byte, error) {
	return json.Marshal(fetchJSON{Type: NodeFetch, Service: f.Service, Variables: f.Variables, Query: f.Query})
}

func (f *Fetch) UnmarshalJSON(data []byte) error {
	var shadow fetchJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	f.Service, f.Variables, f.Query = shadow.Service, shadow.Variables, shadow.Query
	return nil
}

type flattenJSON struct {
	Type      NodeType `json:"type"`
	Service   string   `json:"service"`
	Path      string   `json:"path"`
	Prefix    int      `json:"prefix"`
	Query     string   `json:"query"`
	Variables []string `json:"variables,omitempty"`
}

func (f *Flatten) MarshalJSON() ([]byte, error) {
	return json.Marshal(flattenJSON{
		Type: NodeFlatten, Service: f.Service, Path: f.Path.String(),
		Prefix: f.Prefix, Query: f.Query, Variables: f.Variables,
	})
}

func (f *Flatten) UnmarshalJSON(data []byte) error {
	var shadow flattenJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	f.Service, f.Prefix, f.Query, f.Variables = shadow.Service, shadow.Prefix, shadow.Query, shadow.Variables
	f.Path = ParsePath(shadow.Path)
	return nil
}

type sequenceJSON struct {
	Type  NodeType          `json:"type"`
	Nodes []json.RawMessage `json:"nodes"`
}

func (s *Sequence) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(s.Nodes))
	for i, n := range s.Nodes {
		b, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(sequenceJSON{Type: NodeSequence, Nodes: raw})
}

func (s *Sequence) UnmarshalJSON(data []byte) error {
	var shadow sequenceJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	nodes := make([]Node, len(shadow.Nodes))
	for i, raw := range shadow.Nodes {
		n, err := Unmarshal(raw)
		if err != nil {
			return err
		}
		nodes[i] = n
	}
	s.Nodes = nodes
	return nil
}

type parallelJSON struct {
	Type  NodeType          `json:"type"`
	Nodes []json.RawMessage `json:"nodes"`
}

func (p *Parallel) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(p.Nodes))
	for i, n := range p.Nodes {
		b, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		raw[i] = b
	}
	return json.Marshal(parallelJSON{Type: NodeParallel, Nodes: raw})
}

func (p *Parallel) UnmarshalJSON(data []byte) error {
	var shadow parallelJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	nodes := make([]Node, len(shadow.Nodes))
	for i, raw := range shadow.Nodes {
		n, err := Unmarshal(raw)
		if err != nil {
			return err
		}
		nodes[i] = n
	}
	p.Nodes = nodes
	return nil
}

type subscribeNodeJSON struct {
	Service   string   `json:"service"`
	Query     string   `json:"query"`
	Variables []string `json:"variables,omitempty"`
}

type subscribeJSON struct {
	Type           NodeType            `json:"type"`
	SubscribeNodes []subscribeNodeJSON `json:"subscribeNodes"`
	FlattenNode    json.RawMessage     `json:"flattenNode,omitempty"`
}

func (s *Subscribe) MarshalJSON() ([]byte, error) {
	nodes := make([]subscribeNodeJSON, len(s.SubscribeNodes))
	for i, n := range s.SubscribeNodes {
		nodes[i] = subscribeNodeJSON{Service: n.Service, Query: n.Query, Variables: n.Variables}
	}
	shadow := subscribeJSON{Type: NodeSubscribe, SubscribeNodes: nodes}
	if s.FlattenNode != nil {
		b, err := json.Marshal(s.FlattenNode)
		if err != nil {
			return nil, err
		}
		shadow.FlattenNode = b
	}
	return json.Marshal(shadow)
}

func (s *Subscribe) UnmarshalJSON(data []byte) error {
	var shadow subscribeJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	s.SubscribeNodes = make([]SubscribeNode, len(shadow.SubscribeNodes))
	for i, n := range shadow.SubscribeNodes {
		s.SubscribeNodes[i] = SubscribeNode{Service: n.Service, Query: n.Query, Variables: n.Variables}
	}
	if len(shadow.FlattenNode) > 0 {
		n, err := Unmarshal(shadow.FlattenNode)
		if err != nil {
			return err
		}
		flatten, ok := n.(*Flatten)
		if !ok {
			return fmt.Errorf("plan: subscribe.flattenNode has type %q, want flatten", n.NodeType())
		}
		s.FlattenNode = flatten
	}
	return nil
}

type introspectionJSON struct {
	Type      NodeType `json:"type"`
	Selection string   `json:"selection"`
}

func (i *Introspection) MarshalJSON() ([]byte, error) {
	return json.Marshal(introspectionJSON{Type: NodeIntrospection, Selection: i.Selection})
}

func (i *Introspection) UnmarshalJSON(data []byte) error {
	var shadow introspectionJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	i.Selection = shadow.Selection
	return nil
}

type errorJSON struct {
	Type    NodeType `json:"type"`
	Message string   `json:"message"`
}

func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(errorJSON{Type: NodeError, Message: e.Message})
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var shadow errorJSON
	if err := json.Unmarshal(data, &shadow); err != nil {
		return err
	}
	e.Message = shadow.Message
	return nil
}

// typeTag is used to peek a node's "type" key before dispatching to its
// concrete Unmarshal implementation.
type typeTag struct {
	Type NodeType `json:"type"`
}

// Unmarshal parses a single plan node (and, recursively, its children) from
// its canonical JSON form, dispatching on the "type" key. This is the
// inverse of json.Marshal(Node): invariant 7 (spec.md §8) is
// Unmarshal(json.Marshal(n)) producing a value that re-marshals identically.
func Unmarshal(data []byte) (Node, error) {
	var tag typeTag
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("plan: unmarshal node: %w", err)
	}
	var n Node
	switch tag.Type {
	case NodeFetch:
		n = &Fetch{}
	case NodeFlatten:
		n = &Flatten{}
	case NodeSequence:
		n = &Sequence{}
	case NodeParallel:
		n = &Parallel{}
	case NodeSubscribe:
		n = &Subscribe{}
	case NodeIntrospection:
		n = &Introspection{}
	case NodeError:
		n = &Error{}
	default:
		return nil, fmt.Errorf("plan: unknown node type %q", tag.Type)
	}
	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

// MarshalJSON renders the plan's root node in canonical form; PlanID and
// OperationType are deliberately not part of this output (see Plan's doc
// comment).
func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Root)
}

// String renders the plan's canonical JSON as a string.
func (p *Plan) String() (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
