// Package schemaload turns a loaded config.GatewayConfig's service list
// into parsed schema.Subgraphs ready for schema.Compose. Grounded on
// gateway/schema_fetcher.go's fetchSDL/doFetchSDL and
// federation/graph/subgraph.go's NewSubGraphV2 construction. The primary
// path, LoadSubgraphs, reads each subgraph's SDL straight off disk; the
// network path (FetchRemoteSDL in remote.go, which retries without
// backoff) is a separate helper that LoadSubgraphs does not use.
package schemaload

import (
	"fmt"
	"os"

	"github.com/n9te9/federation-planner/config"
	"github.com/n9te9/federation-planner/schema"
)

// LoadSubgraphs reads and parses every configured service's SDL file, in
// the order cfg lists them (config.Load has already de-duplicated and
// sorted this by name).
func LoadSubgraphs(cfg []config.ServiceConfig) ([]*schema.Subgraph, error) {
	subgraphs := make([]*schema.Subgraph, 0, len(cfg))
	for _, svc := range cfg {
		sdl, err := os.ReadFile(svc.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("schemaload: read schema for service %q: %w", svc.Name, err)
		}

		sg, err := schema.ParseSubgraph(svc.Name, svc.Host, sdl)
		if err != nil {
			return nil, fmt.Errorf("schemaload: parse schema for service %q: %w", svc.Name, err)
		}
		subgraphs = append(subgraphs, sg)
	}
	return subgraphs, nil
}
