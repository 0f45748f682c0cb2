package planner

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/token"

	"github.com/n9te9/federation-planner/schema"
)

// newName builds an *ast.Name the way planner_v2.go's
// injectKeyFieldsIntoParentStep constructs synthesized identifiers:
// ast.Name{Token: token.Token{Type: token.IDENT, Literal: name}, Value: name}.
func newName(name string) *ast.Name {
	return &ast.Name{Token: token.Token{Type: token.IDENT, Literal: name}, Value: name}
}

// aliasedField builds `alias: name` with no arguments or sub-selection, the
// shape every key-shadow field takes.
func aliasedField(alias, name string) *ast.Field {
	return &ast.Field{Alias: newName(alias), Name: newName(name)}
}

// keyShadowFields builds the representation key-shadow selections spec.md
// §4.3 step 1 / §6 describe: `__keyN___typename: __typename` followed by
// `__keyN_<field>: <field>` for every field in targetService's declared
// `@key` on entityType, under the given prefix. Grounded on
// planner_v2.go's getKeyFields, which always prefixes `__typename` and
// reads key fields off entity.Keys[0] — generalized only to source that
// key from the **target** service's own declaration (spec.md §8 invariant
// 4: "as declared by S, not by the previous service"), rather than
// whichever subgraph happened to be current.
func (b *builder) keyShadowFields(targetService, entityType string, prefix int) ([]*ast.Field, schema.FieldSet, error) {
	var target *schema.Subgraph
	for _, sg := range b.cs.Subgraphs {
		if sg.Name == targetService {
			target = sg
			break
		}
	}
	if target == nil {
		return nil, nil, fmt.Errorf("planner: unknown service %q", targetService)
	}

	entity, ok := target.Entity(entityType)
	if !ok || len(entity.Keys) == 0 {
		return nil, nil, fmt.Errorf("planner: service %q declares no @key for entity %q", targetService, entityType)
	}
	keyFields := entity.Keys[0].FieldSet

	fields := make([]*ast.Field, 0, len(keyFields)+1)
	fields = append(fields, aliasedField(fmt.Sprintf("__key%d___typename", prefix), "__typename"))
	for _, name := range keyFields.Names() {
		fields = append(fields, aliasedField(fmt.Sprintf("__key%d_%s", prefix, name), name))
	}

	return fields, keyFields, nil
}
