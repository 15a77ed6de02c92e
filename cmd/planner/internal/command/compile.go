/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/internal/catalog"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/metrics"
	"github.com/llm-d/llm-d-model-api-planner/internal/plan"
	"github.com/llm-d/llm-d-model-api-planner/internal/publish"
	"github.com/llm-d/llm-d-model-api-planner/internal/resolver"
	"github.com/llm-d/llm-d-model-api-planner/internal/schema"
)

// CompileOptions holds the options for the compile command.
type CompileOptions struct {
	Path    string
	Summary bool
}

func NewCompileCommand(cli *CLI) *cobra.Command {
	var opts CompileOptions

	cmd := &cobra.Command{
		Use:   "compile <config-file>",
		Short: "Compile a configuration into a deployment plan",
		Long: Highlight("model-api-planner compile <config-file>") + "\n\n" +
			"Validate a configuration document, resolve its model sources and\n" +
			"write the compiled deployment plan to the destination.\n\n" +
			"Examples:\n" +
			"  # Print the plan as YAML\n" +
			"  model-api-planner compile models.json --catalog catalog.yaml -o yaml\n\n" +
			"  # Upload the plan to an object store\n" +
			"  model-api-planner compile models.json --catalog-db catalog.db --destination s3://plans/prod.json\n",
		Args: ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Path = args[0]
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			return RunCompile(cmd.Context(), cli, cfg, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Summary, "summary", false, "print a summary table even when the plan is written to stdout")
	return cmd
}

// openLookup returns the lookup configured by cfg, or nil when no catalog is
// configured. The returned close function is never nil.
func openLookup(cfg *config.PlannerConfig) (resolver.Lookup, func() error, error) {
	noop := func() error { return nil }
	switch {
	case cfg.CatalogDB != "":
		store, err := catalog.OpenStore(cfg.CatalogDB)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil
	case cfg.Catalog != "":
		file, err := catalog.LoadFile(cfg.Catalog)
		if err != nil {
			return nil, noop, err
		}
		return file, noop, nil
	}
	return nil, noop, nil
}

// newCompiler wires a compiler from cfg.
func newCompiler(cfg *config.PlannerConfig, lookup resolver.Lookup, m *metrics.Metrics) (*plan.Compiler, error) {
	strategy, err := resolver.ParseStrategy(cfg.Resolution.Strategy)
	if err != nil {
		return nil, err
	}
	res, err := resolver.NewResolver(lookup, resolver.Options{
		Region:        cfg.Region,
		Strategy:      strategy,
		Parallelism:   cfg.Resolution.Parallelism,
		LookupTimeout: cfg.Resolution.LookupTimeout,
		Metrics:       m,
	})
	if err != nil {
		return nil, err
	}
	return plan.NewCompiler(res, plan.Options{
		AccountID: cfg.AccountID,
		Defaults:  cfg.Defaults,
		Metrics:   m,
	})
}

func RunCompile(ctx context.Context, cli *CLI, cfg *config.PlannerConfig, opts CompileOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	logger := ctrl.Log.WithName("compile").WithValues("config", opts.Path)
	ctx = ctrl.LoggerInto(ctx, logger)

	format, err := publish.ParseFormat(cfg.Output)
	if err != nil {
		return err
	}

	m := metrics.New()
	if cfg.MetricsFile != "" {
		defer func() {
			if werr := m.WriteTextfile(cfg.MetricsFile); werr != nil {
				logger.Error(werr, "Failed to write metrics", "path", cfg.MetricsFile)
			}
		}()
	}

	lookup, closeLookup, err := openLookup(cfg)
	if err != nil {
		return err
	}
	defer closeLookup() //nolint:errcheck

	compiler, err := newCompiler(cfg, lookup, m)
	if err != nil {
		return err
	}

	doc, err := schema.LoadFile(opts.Path)
	if err != nil {
		return err
	}
	p, err := compiler.Compile(ctx, doc)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.Path, err)
	}

	sink, err := publish.NewSink(cfg.Destination, cfg.ObjectStore, cli.Out)
	if err != nil {
		return err
	}
	if err := publish.Publish(ctx, sink, p, format); err != nil {
		return err
	}

	if opts.Summary || cfg.Destination != publish.Stdout {
		out := cli.Out
		if cfg.Destination == publish.Stdout {
			out = cli.Err
		}
		printPlanSummary(out, p)
	}
	return nil
}

// ExactArgs returns an error if there is not the exact number of args.
func ExactArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) == number {
			return nil
		}
		return fmt.Errorf("expected %d arguments, got %d", number, len(args))
	}
}

// MinArgs returns an error if there are fewer than number args.
func MinArgs(number int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) >= number {
			return nil
		}
		return fmt.Errorf("expected at least %d arguments, got %d", number, len(args))
	}
}
