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
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/internal/catalog"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
)

var errNoCatalogDB = errors.New("--catalog-db is required")

func NewCatalogCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog [subcommand]",
		Short: "Manage the SQLite model catalog",
		Long: Highlight("model-api-planner catalog [subcommand]") + "\n\n" +
			"Import YAML model catalogs into the SQLite catalog used by compile\n" +
			"and list its entries.\n",
	}
	cmd.AddCommand(
		newCatalogImportCommand(cli),
		newCatalogListCommand(cli),
	)
	return cmd
}

func newCatalogImportCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "import <catalog-file>",
		Short: "Import a YAML catalog into the SQLite catalog",
		Args:  ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			n, err := RunCatalogImport(cmd.Context(), cfg.CatalogDB, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cli.Out, "imported %d models into %s\n", n, cfg.CatalogDB)
			return nil
		},
	}
}

func newCatalogListCommand(cli *CLI) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the entries of the SQLite catalog",
		Args:  ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				return err
			}
			entries, err := RunCatalogList(cmd.Context(), cfg.CatalogDB)
			if err != nil {
				return err
			}
			printCatalog(cli.Out, entries)
			return nil
		},
	}
}

// RunCatalogImport upserts every entry of the YAML catalog at path into the
// SQLite catalog at db.
func RunCatalogImport(ctx context.Context, db, path string) (int, error) {
	if db == "" {
		return 0, errNoCatalogDB
	}
	if ctx == nil {
		ctx = context.Background()
	}
	file, err := catalog.LoadFile(path)
	if err != nil {
		return 0, err
	}
	store, err := catalog.OpenStore(db)
	if err != nil {
		return 0, err
	}
	defer store.Close() //nolint:errcheck

	n, err := store.Import(ctx, file)
	if err != nil {
		return 0, err
	}
	ctrl.Log.Info("Imported model catalog", "source", path, "db", db, "models", n)
	return n, nil
}

// RunCatalogList returns the entries of the SQLite catalog at db.
func RunCatalogList(ctx context.Context, db string) ([]catalog.Entry, error) {
	if db == "" {
		return nil, errNoCatalogDB
	}
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := catalog.OpenStore(db)
	if err != nil {
		return nil, err
	}
	defer store.Close() //nolint:errcheck
	return store.List(ctx)
}
