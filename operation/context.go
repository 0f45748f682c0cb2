// Package operation expands a client operation document's selection sets
// into the flat, concrete-type-resolved field lists the planner consumes:
// fragment spreads and inline fragments inlined, `@skip`/`@include`
// evaluated against the operation's variables, and abstract (interface,
// union) selections split per possible concrete type.
package operation

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
)

// Context carries everything needed to expand one operation document's
// selections: its fragment definitions and the variable values supplied
// for this execution. Grounded on federation/planner/planner_v2.go's
// PlannerV2.Plan, which collects fragments once up front via
// collectFragmentDefinitions and threads variables through the whole walk.
type Context struct {
	Doc       *ast.Document
	Variables map[string]any
	Fragments map[string]*ast.FragmentDefinition
}

// NewContext builds an expansion Context for doc, indexing every
// `fragment Name on Type { ... }` definition by name.
func NewContext(doc *ast.Document, variables map[string]any) *Context {
	ctx := &Context{
		Doc:       doc,
		Variables: variables,
		Fragments: make(map[string]*ast.FragmentDefinition),
	}
	for _, def := range doc.Definitions {
		if fd, ok := def.(*ast.FragmentDefinition); ok {
			ctx.Fragments[fd.Name.String()] = fd
		}
	}
	return ctx
}

// Operation returns the operation definition to execute: the one matching
// operationName, or the document's only operation if operationName is
// empty and there is exactly one.
func (ctx *Context) Operation(operationName string) (*ast.OperationDefinition, error) {
	var only *ast.OperationDefinition
	count := 0
	for _, def := range ctx.Doc.Definitions {
		op, ok := def.(*ast.OperationDefinition)
		if !ok {
			continue
		}
		count++
		only = op
		if operationName != "" && op.Name != nil && op.Name.String() == operationName {
			return op, nil
		}
	}
	if operationName == "" && count == 1 {
		return only, nil
	}
	if operationName == "" && count > 1 {
		return nil, fmt.Errorf("operation: document defines %d operations, an operation name is required", count)
	}
	return nil, fmt.Errorf("operation: no operation named %q", operationName)
}
