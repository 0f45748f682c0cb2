package schema

import (
	"fmt"

	"github.com/n9te9/graphql-parser/ast"
	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
)

// Subgraph is one backend service's contribution to the supergraph: its
// raw SDL AST plus, for every object type it declares or extends, the
// federation metadata (`@key`, `@external`, `@requires`, `@provides`,
// `@shareable`, `@inaccessible`, `@override`, `@tag`) this repo needs that
// the teacher's own Entity/Field model never fully parsed.
type Subgraph struct {
	Name string
	Host string
	Doc  *ast.Document

	entities map[string]*EntityDef
}

// ParseSubgraph parses a subgraph's SDL and extracts its federation
// metadata. Grounded on federation/graph/subgraph_v2.go's NewSubGraphV2,
// generalized to track every object type's fields (not only ones with
// `@key`) so `@inaccessible`/`@override` on non-entity types are visible
// too.
func ParseSubgraph(name, host string, sdl []byte) (*Subgraph, error) {
	l := lexer.New(string(sdl))
	p := parser.New(l)
	doc := p.ParseDocument()
	if len(p.Errors()) > 0 {
		return nil, fmt.Errorf("schema: parse subgraph %q: %v", name, p.Errors())
	}

	sg := &Subgraph{
		Name:     name,
		Host:     host,
		Doc:      doc,
		entities: make(map[string]*EntityDef),
	}

	for _, def := range doc.Definitions {
		switch d := def.(type) {
		case *ast.ObjectTypeDefinition:
			sg.entities[d.Name.String()] = buildEntity(d.Directives, d.Fields, false)
		case *ast.ObjectTypeExtension:
			sg.entities[d.Name.String()] = buildEntity(d.Directives, d.Fields, true)
		case *ast.InterfaceTypeDefinition:
			sg.entities[d.Name.String()] = buildEntity(d.Directives, d.Fields, false)
		}
	}

	return sg, nil
}

func buildEntity(dirs []*ast.Directive, fields []*ast.FieldDefinition, isExt bool) *EntityDef {
	e := &EntityDef{IsExtension: isExt, Fields: make(map[string]*FieldMeta)}

	for _, d := range dirs {
		if d.Name != "key" {
			continue
		}
		fieldsStr, _ := directiveStringArg(d, "fields")
		fs, err := ParseFieldSet(fieldsStr)
		if err != nil {
			continue
		}
		resolvable := directiveBoolArg(d, "resolvable", true)
		e.Keys = append(e.Keys, EntityKey{FieldSet: fs, Resolvable: resolvable})
	}

	for _, f := range fields {
		e.Fields[f.Name.String()] = buildFieldMeta(f)
	}

	return e
}

func buildFieldMeta(f *ast.FieldDefinition) *FieldMeta {
	fm := &FieldMeta{Name: f.Name.String(), Type: convertType(f.Type)}

	for _, arg := range f.Arguments {
		fm.Args = append(fm.Args, ArgDef{Name: arg.Name.String(), Type: convertType(arg.Type)})
	}

	for _, d := range f.Directives {
		switch d.Name {
		case "requires":
			if s, ok := directiveStringArg(d, "fields"); ok {
				if fs, err := ParseFieldSet(s); err == nil {
					fm.Requires = fs
				}
			}
		case "provides":
			if s, ok := directiveStringArg(d, "fields"); ok {
				if fs, err := ParseFieldSet(s); err == nil {
					fm.Provides = fs
				}
			}
		case "external":
			fm.External = true
		case "shareable":
			fm.Shareable = true
		case "inaccessible":
			fm.Inaccessible = true
		case "override":
			if s, ok := directiveStringArg(d, "from"); ok {
				fm.OverrideFrom = s
			}
		case "tag":
			if s, ok := directiveStringArg(d, "name"); ok {
				fm.Tags = append(fm.Tags, s)
			}
		}
	}

	return fm
}

func convertType(t ast.Type) *TypeRef {
	switch v := t.(type) {
	case *ast.NamedType:
		return &TypeRef{Kind: RefNamed, Name: v.Name.String()}
	case *ast.ListType:
		return &TypeRef{Kind: RefList, Of: convertType(v.Type)}
	case *ast.NonNullType:
		return &TypeRef{Kind: RefNonNull, Of: convertType(v.Type)}
	default:
		return nil
	}
}

// Entity returns this subgraph's declaration of typeName, if any.
func (sg *Subgraph) Entity(typeName string) (*EntityDef, bool) {
	e, ok := sg.entities[typeName]
	return e, ok
}

// Entities returns every type this subgraph declares or extends.
func (sg *Subgraph) Entities() map[string]*EntityDef {
	return sg.entities
}
