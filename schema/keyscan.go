package schema

import (
	"bytes"
	"fmt"
	"strings"

	goliteql "github.com/n9te9/goliteql/schema"
)

// KeyScan is a lightweight, independent pre-check of a subgraph's `@key`
// and `@external` declarations, for catching SDL mistakes before a full
// Compose. `planctl validate` does not run it; that command only composes
// the schema. It is deliberately a second, narrower
// parse path built on goliteql/schema rather than graphql-parser: grounded
// on federation/graph/subgraph.go's newOwnershipMap/getObjectUniqueKeyFields,
// which scan directives byte-slice-first without building a full type
// model. Keeping it separate exercises goliteql's own directive-scanning
// surface instead of letting it go unused now that graphql-parser carries
// the authoritative composed schema.
type KeyScan struct {
	// UniqueKeyFields maps a type name to the flat key field names declared
	// on its first `@key(fields: "...")` directive.
	UniqueKeyFields map[string][]string
	// ExternalFields maps "Type.field" to true for every field marked
	// `@external`.
	ExternalFields map[string]bool
}

// ScanKeys runs a goliteql parse of sdl and extracts its `@key`/`@external`
// declarations. Only type extensions (`extend type ...`) are scanned;
// plain type definitions are not. Returns an error if the SDL fails to parse at all, but
// never fails on a directive it doesn't recognize — a pre-check should be
// permissive about what it can't interpret and let Compose be the
// authority.
func ScanKeys(sdl []byte) (*KeyScan, error) {
	sch, err := goliteql.NewParser(goliteql.NewLexer()).Parse(sdl)
	if err != nil {
		return nil, fmt.Errorf("schema: keyscan parse: %w", err)
	}

	ks := &KeyScan{
		UniqueKeyFields: make(map[string][]string),
		ExternalFields:  make(map[string]bool),
	}

	for _, ext := range sch.Extends {
		td, ok := ext.(*goliteql.TypeDefinition)
		if !ok {
			continue
		}
		typeName := string(td.Name)

		if keys := extractUniqueKeyFields(td); len(keys) > 0 {
			ks.UniqueKeyFields[typeName] = keys
		}

		for _, f := range td.Fields {
			if goliteql.Directives(f.Directives).Get([]byte("external")) != nil {
				ks.ExternalFields[typeName+"."+string(f.Name)] = true
			}
		}
	}

	return ks, nil
}

func extractUniqueKeyFields(td *goliteql.TypeDefinition) []string {
	d := goliteql.Directives(td.Directives).Get([]byte("key"))
	if d == nil {
		return nil
	}
	for _, arg := range d.Arguments {
		if string(arg.Name) != "fields" {
			continue
		}
		raw := string(bytes.Trim(arg.Value, `"`))
		return strings.Fields(raw)
	}
	return nil
}

// Validate reports every field ScanKeys found marked both `@key`-carrying
// (i.e. declared as part of a unique key on its owning type) and
// `@external` in the same SDL document, a contradiction no subgraph
// should ever declare.
func (ks *KeyScan) Validate() []error {
	var errs []error
	for typeName, keys := range ks.UniqueKeyFields {
		for _, key := range keys {
			if ks.ExternalFields[typeName+"."+key] {
				errs = append(errs, fmt.Errorf("schema: %s.%s is both a @key field and @external", typeName, key))
			}
		}
	}
	return errs
}
