package planner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/n9te9/graphql-parser/ast"

	"github.com/n9te9/federation-planner/plan"
	"github.com/n9te9/federation-planner/schema"
)

// rootGroup is one run of top-level fields assigned to the same owning
// service. Query/subscription operations group ALL fields sharing a
// service together regardless of adjacency (root siblings with no
// dependency between them run in Parallel, spec.md §4.3's "Ordering");
// mutations instead keep consecutive same-service runs separate so
// interleaved services preserve source order (spec.md S2).
type rootGroup struct {
	service string
	fields  []*ast.Field
}

// isIntrospectionField reports whether name is answered locally from the
// composed schema rather than routed to any subgraph (spec.md §4.3:
// "Introspection").
func isIntrospectionField(name string) bool {
	return name == "__schema" || name == "__type" || name == "__typename"
}

// splitIntrospection separates root-level introspection selections (which
// never reach a subgraph) from the rest.
func splitIntrospection(fields []*ast.Field) (introspection, rest []*ast.Field) {
	for _, f := range fields {
		if isIntrospectionField(f.Name.String()) {
			introspection = append(introspection, f)
			continue
		}
		rest = append(rest, f)
	}
	return introspection, rest
}

// buildIntrospectionNode renders the root's introspection selections as
// the Introspection node's schema-answered selection text, reusing the
// request rewriter's own field printer so its shape matches every other
// rendered selection in the plan.
func buildIntrospectionNode(fields []*ast.Field) *plan.Introspection {
	qb := plan.NewQueryBuilder(nil)
	query, _ := qb.BuildFetchQuery("query", fields)
	// Strip the leading "query\n" operation keyword: an Introspection node
	// carries only the selection text (spec.md §4.5), not an operation
	// envelope, since it never becomes a subgraph request.
	body := strings.TrimPrefix(query, "query")
	body = strings.TrimPrefix(body, "\n")
	return &plan.Introspection{Selection: body}
}

// childrenIndices returns the indices of every step whose parent is
// parentIdx, in the order they were allocated — already the deterministic
// traversal order the determinism contract (spec.md §5(iv)) requires,
// since nextKeyID only ever advances.
func (b *builder) childrenIndices(parentIdx int) []int {
	var out []int
	for i, s := range b.steps {
		if s.parent == parentIdx {
			out = append(out, i)
		}
	}
	return out
}

// assemble turns the flat step forest rooted at idx into the
// Sequence/Parallel tree spec.md §4.3 describes: idx's own node, then
// (if it has dependents) a Sequence of idx's node followed by its
// children — Parallel among themselves when there is more than one,
// since steps sharing a parent were triggered independently from the
// same fetch/flatten (S4's sibling union branches; S5's requires
// follow-up). Error children (inline `@inaccessible` refusals, spec.md
// §7) are never Parallel-wrapped with one another: they are inert
// annotations, not concurrent subgraph work, so they are appended to the
// Sequence directly, as S6 shows.
func (b *builder) assemble(idx int) plan.Node {
	node := b.steps[idx].node
	children := b.childrenIndices(idx)
	if len(children) == 0 {
		return node
	}

	var errNodes, otherNodes []plan.Node
	for _, c := range children {
		assembled := b.assemble(c)
		if _, ok := b.steps[c].node.(*plan.Error); ok {
			errNodes = append(errNodes, assembled)
			continue
		}
		otherNodes = append(otherNodes, assembled)
	}

	seq := []plan.Node{node}
	if len(otherNodes) > 0 {
		seq = append(seq, collapseParallel(otherNodes))
	}
	seq = append(seq, errNodes...)

	return collapseSequenceAll(seq)
}

// collapseParallel wraps nodes in a Parallel, collapsing a single child to
// itself (spec.md §4.3: "A Parallel with one child collapses to the
// child").
func collapseParallel(nodes []plan.Node) plan.Node {
	if len(nodes) == 1 {
		return nodes[0]
	}
	return &plan.Parallel{Nodes: nodes}
}

// collapseSequence builds a Sequence of (first, rest), collapsing to the
// single surviving node when the other is absent (spec.md §4.3: "A
// Sequence with one child collapses to the child").
func collapseSequence(first, rest plan.Node) plan.Node {
	if first == nil {
		return rest
	}
	if rest == nil {
		return first
	}
	return &plan.Sequence{Nodes: []plan.Node{first, rest}}
}

// collapseSequenceAll is collapseSequence generalized to N nodes in order,
// used to combine mutation runs (always Sequence, never Parallel,
// spec.md §4.3).
func collapseSequenceAll(nodes []plan.Node) plan.Node {
	nodes = compactNil(nodes)
	if len(nodes) == 0 {
		return nil
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	return &plan.Sequence{Nodes: nodes}
}

// collapseParallelAll is collapseParallel generalized with nil-compaction,
// used to combine the root query/subscription's per-service fetch trees.
func collapseParallelAll(nodes []plan.Node) plan.Node {
	nodes = compactNil(nodes)
	if len(nodes) == 0 {
		return nil
	}
	if len(nodes) == 1 {
		return nodes[0]
	}
	return &plan.Parallel{Nodes: nodes}
}

func compactNil(nodes []plan.Node) []plan.Node {
	out := make([]plan.Node, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// buildRootFetch resolves one root-level group's fields against its
// owning service and returns the finished (possibly Sequence/Parallel)
// subtree for that group: the group's own Fetch plus any entity jumps
// its sub-selections triggered.
func (b *builder) buildRootFetch(opKeyword, rootType string, group rootGroup) (plan.Node, error) {
	fetchIdx := b.addStep(nil, -1)

	resolved, err := b.recurseLocal(group.service, rootType, group.fields, nil, fetchIdx)
	if err != nil {
		return nil, err
	}

	qb := plan.NewQueryBuilder(b.variableTypes(resolved))
	query, vars := qb.BuildFetchQuery(opKeyword, resolved)
	b.steps[fetchIdx].node = &plan.Fetch{Service: group.service, Query: query, Variables: vars}

	return b.assemble(fetchIdx), nil
}

// rootFieldErrors pulls out root-level `@inaccessible` references before
// grouping, mirroring the Error-node handling resolveFields applies to
// nested fields (spec.md §3: "queries referencing it produce an Error
// plan node and the field is omitted from any fetch").
func (b *builder) rootFieldErrors(rootType string, fields []*ast.Field) (kept []*ast.Field, errs []plan.Node) {
	for _, f := range fields {
		name := f.Name.String()
		if b.cs.IsInaccessible(rootType, name) {
			returnType, _ := b.cs.FieldType(rootType, name)
			msg := inaccessibleMessage(name, rootType, len(f.SelectionSet) > 0, returnType.NamedType())
			errs = append(errs, &plan.Error{Message: msg})
			continue
		}
		kept = append(kept, f)
	}
	return kept, errs
}

// groupRootFieldsSorted assigns every field to its owning service and
// returns one rootGroup per service, sorted by service name — the
// stability rule (spec.md §4.3, §5(i)) applied at the root, where fields
// of the same service are combined into a single group regardless of
// adjacency since independent root fields carry no ordering requirement
// for queries/subscriptions.
func (b *builder) groupRootFieldsSorted(rootType string, fields []*ast.Field) ([]rootGroup, error) {
	index := make(map[string]int)
	var groups []rootGroup

	for _, f := range fields {
		name := f.Name.String()
		owner, _ := b.chooseOwner(rootType, name, "")
		if owner == "" {
			return nil, newNoOwner("no subgraph owns root field %q", name)
		}
		if i, ok := index[owner]; ok {
			groups[i].fields = append(groups[i].fields, f)
			continue
		}
		index[owner] = len(groups)
		groups = append(groups, rootGroup{service: owner, fields: []*ast.Field{f}})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].service < groups[j].service })
	return groups, nil
}

// groupRootFieldsRuns assigns every field to its owning service without
// reordering, splitting a new run each time the owner changes from the
// previous field — spec.md §4.3's mutation rule ("sibling top-level
// fields are grouped into runs of consecutive same-service fields,
// preserving source order").
func (b *builder) groupRootFieldsRuns(rootType string, fields []*ast.Field) ([]rootGroup, error) {
	var groups []rootGroup
	for _, f := range fields {
		name := f.Name.String()
		owner, _ := b.chooseOwner(rootType, name, "")
		if owner == "" {
			return nil, newNoOwner("no subgraph owns root field %q", name)
		}
		if len(groups) > 0 && groups[len(groups)-1].service == owner {
			groups[len(groups)-1].fields = append(groups[len(groups)-1].fields, f)
			continue
		}
		groups = append(groups, rootGroup{service: owner, fields: []*ast.Field{f}})
	}
	return groups, nil
}

// buildQueryLike builds the plan for a query or (non-subscribed) root: the
// root selection's introspection fields become an Introspection node,
// every other field is grouped by owner service and each group's subtree
// is combined under Parallel (collapsing to a single node when there is
// only one).
func (b *builder) buildQueryLike(kind, rootType string, opDef *ast.OperationDefinition) (plan.Node, error) {
	selections, err := b.opctx.ExpandForType(b.cs, opDef.SelectionSet, rootType)
	if err != nil {
		return nil, err
	}

	introspectionFields, rest := splitIntrospection(selections)
	rest, errNodes := b.rootFieldErrors(rootType, rest)

	groups, err := b.groupRootFieldsSorted(rootType, rest)
	if err != nil {
		return nil, err
	}

	var nodes []plan.Node
	if len(introspectionFields) > 0 {
		nodes = append(nodes, buildIntrospectionNode(introspectionFields))
	}
	nodes = append(nodes, errNodes...)

	for _, g := range groups {
		node, err := b.buildRootFetch(kind, rootType, g)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	result := collapseParallelAll(nodes)
	if result == nil {
		return nil, fmt.Errorf("planner: operation selects no fields")
	}
	return result, nil
}

// buildMutation builds the plan for a mutation: runs of consecutive
// same-service root fields are each their own Fetch subtree, always
// combined by Sequence (never Parallel) to preserve source order
// (spec.md §4.3, S2).
func (b *builder) buildMutation(rootType string, opDef *ast.OperationDefinition) (plan.Node, error) {
	selections, err := b.opctx.ExpandForType(b.cs, opDef.SelectionSet, rootType)
	if err != nil {
		return nil, err
	}

	// Mutations have no introspection root fixtures in the corpus, but the
	// rule is the same as for queries if a client ever sends one.
	introspectionFields, rest := splitIntrospection(selections)
	rest, errNodes := b.rootFieldErrors(rootType, rest)

	groups, err := b.groupRootFieldsRuns(rootType, rest)
	if err != nil {
		return nil, err
	}

	var nodes []plan.Node
	if len(introspectionFields) > 0 {
		nodes = append(nodes, buildIntrospectionNode(introspectionFields))
	}
	nodes = append(nodes, errNodes...)

	for _, g := range groups {
		node, err := b.buildRootFetch("mutation", rootType, g)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	result := collapseSequenceAll(nodes)
	if result == nil {
		return nil, fmt.Errorf("planner: operation selects no fields")
	}
	return result, nil
}

// buildSubscription builds the plan for a subscription: spec.md §4.3 only
// allows the root selection to be owned by a single subscription-capable
// service, so (unlike query/mutation) there is exactly one root group;
// any further entity resolution its nested selections trigger is
// attached as the Subscribe node's single flattenNode, applied per pushed
// event rather than sequenced inline.
func (b *builder) buildSubscription(rootType string, opDef *ast.OperationDefinition) (plan.Node, error) {
	selections, err := b.opctx.ExpandForType(b.cs, opDef.SelectionSet, rootType)
	if err != nil {
		return nil, err
	}
	selections, errNodes := b.rootFieldErrors(rootType, selections)
	if len(errNodes) > 0 {
		return nil, fmt.Errorf("planner: @inaccessible field referenced at subscription root")
	}
	if len(selections) == 0 {
		return nil, fmt.Errorf("planner: operation selects no fields")
	}

	owner, _ := b.chooseOwner(rootType, selections[0].Name.String(), "")
	if owner == "" {
		return nil, newNoOwner("no subgraph owns root field %q", selections[0].Name.String())
	}
	for _, f := range selections {
		svc, _ := b.chooseOwner(rootType, f.Name.String(), "")
		if svc != owner {
			return nil, fmt.Errorf("planner: subscription root selects fields from more than one service (%q and %q)", owner, svc)
		}
	}

	fetchIdx := b.addStep(nil, -1)
	resolved, err := b.recurseLocal(owner, rootType, selections, nil, fetchIdx)
	if err != nil {
		return nil, err
	}

	qb := plan.NewQueryBuilder(b.variableTypes(resolved))
	query, vars := qb.BuildFetchQuery("subscription", resolved)

	subscribeNode := &plan.Subscribe{
		SubscribeNodes: []plan.SubscribeNode{{Service: owner, Query: query, Variables: vars}},
	}

	// Exactly one flatten is supported per event (spec.md S3): the single
	// entity jump triggered while resolving the subscription's own
	// sub-selections becomes the per-event flattenNode. A subscription whose
	// sub-selections trigger more than one jump, or whose jump has dependent
	// steps of its own, is refused with an error.
	children := b.childrenIndices(fetchIdx)
	if len(children) > 1 {
		return nil, fmt.Errorf("planner: subscription follow-on resolution needs %d entity jumps, only one flattenNode is supported", len(children))
	}
	if len(children) > 0 {
		node := b.assemble(children[0])
		flatten, ok := node.(*plan.Flatten)
		if !ok {
			return nil, fmt.Errorf("planner: subscription follow-on resolution did not produce a flatten node")
		}
		subscribeNode.FlattenNode = flatten
	}

	return subscribeNode, nil
}

// resolveAbstractField implements spec.md §4.2's abstract-type rewrite:
// a sub-selection against an interface/union type becomes one inline
// fragment per concrete possible type, each resolved independently
// (since different branches can route to different services, spec.md
// S4), with the response path narrowed to that concrete type at the
// point the branch diverges (spec.md §4.5/§9: "attachment(Image)").
func (b *builder) resolveAbstractField(service, abstractType string, selections []ast.Selection, path plan.Path, parentStep int, providesOverride schema.FieldSet) ([]ast.Selection, error) {
	var out []ast.Selection

	for _, concrete := range b.cs.PossibleTypes(abstractType) {
		narrowed := narrowLastSegment(path, concrete)
		fields, _, err := b.resolveSelections(service, concrete, selections, narrowed, parentStep, providesOverride)
		if err != nil {
			return nil, err
		}
		if len(fields) == 0 {
			continue
		}
		frag := &ast.InlineFragment{
			TypeCondition: &ast.NamedType{Name: newName(concrete)},
			SelectionSet:  fieldsToSelections(fields),
		}
		out = append(out, frag)
	}

	return out, nil
}

// narrowLastSegment returns a copy of path with its final segment's
// ConcreteType set to concrete, the point at which an abstract-typed
// field's path diverges per possible type.
func narrowLastSegment(path plan.Path, concrete string) plan.Path {
	if len(path) == 0 {
		return path
	}
	out := make(plan.Path, len(path))
	copy(out, path)
	out[len(out)-1].ConcreteType = concrete
	return out
}

func fieldsToSelections(fields []*ast.Field) []ast.Selection {
	out := make([]ast.Selection, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

// filterResolvableRequires drops every top-level `@requires` selection
// name that does not resolve anywhere on parentType's composite type
// across all subgraphs — spec.md §4.3: "Names in X unresolvable against
// the parent's composite type across all services are dropped from X".
func (b *builder) filterResolvableRequires(parentType string, fs schema.FieldSet) schema.FieldSet {
	var out schema.FieldSet
	for _, sel := range fs {
		if len(b.cs.SortedOwners(parentType, sel.Name)) == 0 {
			continue
		}
		out = append(out, sel)
	}
	return out
}

// resolveRequiresField implements spec.md §4.3's `@requires` handling: the
// field's requires fieldset is synthesized into real selections and
// resolved first (via the ordinary field-resolution machinery, so it can
// itself trigger cross-service jumps, spec.md S5), then the requiring
// field is emitted in its own subsequent entity jump back to its owner,
// keyed against the parent entity. If the requires fieldset turns out to
// be entirely unresolvable, the requiring field is dropped silently — no
// error is raised (spec.md §4.3: "the planner emits NO error for this").
//
// result is the in-progress selection list for the CURRENT service's own
// query at this level; resolveRequiresField appends the requiring
// field's key-shadow selections to it when it proceeds.
func (b *builder) resolveRequiresField(service, parentType string, field *ast.Field, path plan.Path, parentStep int, result *[]*ast.Field) (int, error) {
	name := field.Name.String()
	ownerSvc, _ := b.chooseOwner(parentType, name, service)
	if ownerSvc == "" {
		return parentStep, newSchemaViolation("no subgraph owns field %q on type %q", name, parentType)
	}

	meta, _ := b.cs.FieldMeta(ownerSvc, parentType, name)
	if !b.registry.Applies("requires", FieldVisit{ParentType: parentType, Service: ownerSvc, Meta: meta}) {
		// Nothing actually requires anything any more (directive handler
		// found no metadata) — fall back to a plain remote field.
		shadow, stepIdx, err := b.buildRemoteJump(service, ownerSvc, parentType, []*ast.Field{field}, path, parentStep)
		if err != nil {
			return parentStep, err
		}
		*result = append(*result, shadow...)
		return stepIdx, nil
	}

	requires := b.filterResolvableRequires(parentType, meta.Requires)
	if len(requires) == 0 {
		return parentStep, nil
	}

	synthetic := buildSyntheticFields(requires, field.Arguments)
	_, afterRequires, err := b.resolveFields(service, parentType, synthetic, path, parentStep, nil)
	if err != nil {
		return parentStep, err
	}

	prefix := b.nextKeyID()
	shadow, _, err := b.keyShadowFields(ownerSvc, parentType, prefix)
	if err != nil {
		return parentStep, err
	}
	*result = append(*result, shadow...)

	reserved := b.addStep(nil, afterRequires)
	resolvedField, err := b.recurseLocal(ownerSvc, parentType, []*ast.Field{field}, path, reserved)
	if err != nil {
		return parentStep, err
	}

	qb := plan.NewQueryBuilder(b.variableTypes(resolvedField))
	query, vars := qb.BuildEntityQuery(parentType, resolvedField)
	b.steps[reserved].node = &plan.Flatten{Service: ownerSvc, Path: path, Prefix: prefix, Query: query, Variables: vars}

	return reserved, nil
}
