// Package config loads the gateway's YAML configuration document: which
// subgraphs make up the supergraph and where their SDL lives, plus the
// optional OpenTelemetry tracing settings. Grounded on
// gateway/gateway.go's GatewayOption/GatewayService/OpentelemetrySetting
// and server/gateway.go's loadGatewaySetting, narrowed to this repo's
// file-based, single-schema-file-per-service scope (no live service
// discovery, no multi-file SDL concatenation).
package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/goccy/go-yaml"
)

// ServiceConfig describes one subgraph: its name (used as the owning
// service identifier throughout schema/planner), its host (carried
// through for the executor's benefit; unused by planning itself), and the
// path to its SDL file on disk.
type ServiceConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	SchemaFile string `yaml:"schemaFile"`
}

// OpentelemetryTracingSetting mirrors teacher's OpentelemetryTracingSetting,
// renamed to this repo's field names (`enabled`, `endpoint`) since this
// repo's tracer always exports via OTLP/HTTP rather than teacher's
// provider-agnostic stub.
type OpentelemetryTracingSetting struct {
	Enabled  bool   `yaml:"enabled" default:"false"`
	Endpoint string `yaml:"endpoint"`
}

// OpentelemetrySetting mirrors teacher's OpentelemetrySetting.
type OpentelemetrySetting struct {
	Tracing OpentelemetryTracingSetting `yaml:"tracing"`
}

// GatewayConfig is the top-level document config.Load parses, modeled on
// teacher's GatewayOption but narrowed to what this repo's planning/
// validation CLI actually consumes (no `endpoint`/`port`/
// `enable_hang_over_request_header`, which are serving-time concerns out
// of scope here).
type GatewayConfig struct {
	ServiceName    string               `yaml:"serviceName"`
	Services       []ServiceConfig      `yaml:"services"`
	Opentelemetry  OpentelemetrySetting `yaml:"opentelemetry"`
}

// Load reads and parses the YAML document at path, validates every service
// entry has a name and a schema file, and returns the service list
// de-duplicated by name and sorted, so repeated Loads of the same file
// feed the planner/schema loader in a stable order regardless of how the
// document author ordered `services:`.
func Load(path string) (*GatewayConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	var cfg GatewayConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}

	if err := validateServices(cfg.Services); err != nil {
		return nil, err
	}

	cfg.Services = dedupeAndSortServices(cfg.Services)
	return &cfg, nil
}

func validateServices(services []ServiceConfig) error {
	if len(services) == 0 {
		return fmt.Errorf("config: no services declared")
	}
	for _, s := range services {
		if s.Name == "" {
			return fmt.Errorf("config: service entry missing a name")
		}
		if s.SchemaFile == "" {
			return fmt.Errorf("config: service %q missing schemaFile", s.Name)
		}
	}
	return nil
}

// dedupeAndSortServices drops later duplicate service names (first
// declaration wins, matching how schema.Compose treats first-encounter
// order elsewhere in this repo) and sorts the rest by name.
func dedupeAndSortServices(services []ServiceConfig) []ServiceConfig {
	seen := make(map[string]bool, len(services))
	out := make([]ServiceConfig, 0, len(services))
	for _, s := range services {
		if seen[s.Name] {
			continue
		}
		seen[s.Name] = true
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
