// Command planctl is this repo's external interface: build and inspect
// federation query plans from the command line, without standing up a
// server. Grounded on cmd/federation-gateway/main.go's cobra root +
// version/init/serve triad, scoped to what this repo does (plan/validate,
// not serve traffic).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/n9te9/graphql-parser/lexer"
	"github.com/n9te9/graphql-parser/parser"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/n9te9/federation-planner/config"
	"github.com/n9te9/federation-planner/planner"
	"github.com/n9te9/federation-planner/schema"
	"github.com/n9te9/federation-planner/schemaload"
	"github.com/n9te9/federation-planner/telemetry"
)

const version = "v0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of planctl",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("planctl " + version)
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the config and subgraph schemas and report composition errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		_, _, err := composeFromConfig(configPath)
		if err != nil {
			return err
		}
		fmt.Println("schema composes cleanly")
		return nil
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Build a query plan for an operation and print its canonical JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		queryPath, _ := cmd.Flags().GetString("query")
		variablesPath, _ := cmd.Flags().GetString("variables")
		operationName, _ := cmd.Flags().GetString("operation-name")

		cfg, cs, err := composeFromConfig(configPath)
		if err != nil {
			return err
		}

		querySrc, err := os.ReadFile(queryPath)
		if err != nil {
			return fmt.Errorf("planctl: read query %q: %w", queryPath, err)
		}

		variables, err := loadVariables(variablesPath)
		if err != nil {
			return err
		}

		p := parser.New(lexer.New(string(querySrc)))
		doc := p.ParseDocument()
		if len(p.Errors()) > 0 {
			return fmt.Errorf("planctl: parse operation: %v", p.Errors())
		}

		logger := telemetry.NewLogger(cfg.ServiceName)

		ctx := context.Background()
		shutdown, err := telemetry.InitTracer(ctx, cfg.ServiceName, cfg.Opentelemetry)
		if err != nil {
			return fmt.Errorf("planctl: init tracer: %w", err)
		}
		defer shutdown(ctx)

		tracer := otel.Tracer("planctl")
		ctx, span := tracer.Start(ctx, "planner.build")
		defer span.End()

		plan, err := planner.Build(cs, doc, operationName, variables, planner.Options{})
		if err != nil {
			logger.Error("plan build failed", "reason", err.Error())
			span.SetAttributes(attribute.Bool("plan.error", true))
			return err
		}

		span.SetAttributes(
			attribute.String("plan.id", plan.PlanID),
			attribute.String("operation.type", plan.OperationType),
			attribute.Int("service.count", len(cfg.Services)),
		)

		out, err := json.MarshalIndent(plan.Root, "", "  ")
		if err != nil {
			return fmt.Errorf("planctl: marshal plan: %w", err)
		}
		fmt.Println(string(out))
		return nil
	},
}

func composeFromConfig(configPath string) (*config.GatewayConfig, *schema.ComposedSchema, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	subgraphs, err := schemaload.LoadSubgraphs(cfg.Services)
	if err != nil {
		return nil, nil, err
	}

	cs, err := schema.Compose(subgraphs)
	if err != nil {
		return nil, nil, fmt.Errorf("planctl: compose schema: %w", err)
	}

	return cfg, cs, nil
}

func loadVariables(path string) (map[string]any, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("planctl: read variables %q: %w", path, err)
	}
	var vars map[string]any
	if err := json.Unmarshal(b, &vars); err != nil {
		return nil, fmt.Errorf("planctl: parse variables %q: %w", path, err)
	}
	return vars, nil
}

func main() {
	rootCmd := &cobra.Command{Use: "planctl"}

	validateCmd.Flags().String("config", "gateway.yaml", "path to the gateway config file")
	planCmd.Flags().String("config", "gateway.yaml", "path to the gateway config file")
	planCmd.Flags().String("query", "", "path to the GraphQL operation document")
	planCmd.Flags().String("variables", "", "path to a JSON file of operation variables")
	planCmd.Flags().String("operation-name", "", "operation name, required when the document defines more than one")
	planCmd.MarkFlagRequired("query")

	rootCmd.AddCommand(versionCmd, validateCmd, planCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
