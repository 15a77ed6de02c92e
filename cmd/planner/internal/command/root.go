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
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/llm-d/llm-d-model-api-planner/cmd/planner/internal/version"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
)

// CLI holds the output streams shared by every command.
type CLI struct {
	Out io.Writer
	Err io.Writer
}

// NewCLI returns a CLI writing to out and err.
func NewCLI(out, errOut io.Writer) *CLI {
	return &CLI{Out: out, Err: errOut}
}

// Highlight renders a usage line in the heading color.
func Highlight(format string, a ...any) string {
	return color.RGB(50, 108, 229).Sprintf(format, a...)
}

// NewRootCommand returns the planner root command with its global flags.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model-api-planner",
		Short: "Compile model API configurations into deployment plans",
		Long: Highlight("model-api-planner [global options] <subcommand> [args]") + "\n\n" +
			"model-api-planner validates configuration documents describing model\n" +
			"endpoints and their public routes, resolves model sources from a\n" +
			"model catalog, and compiles a deterministic deployment plan.\n",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) == 0 {
				_ = cmd.Help()
			}
		},
	}
	cmd.CompletionOptions.DisableDefaultCmd = true

	config.BindFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().String("log-level", "info", "log verbosity: info, debug, trace or a number")
	cmd.PersistentFlags().Bool("log-development", false, "use the development log encoder")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		level, _ := cmd.Flags().GetString("log-level")
		dev, _ := cmd.Flags().GetBool("log-development")
		_, err := logging.Setup(level, dev)
		return err
	}
	return cmd
}

// AddCommands registers all subcommands on root.
func AddCommands(root *cobra.Command, cli *CLI) {
	root.AddCommand(
		NewCompileCommand(cli),
		NewValidateCommand(cli),
		NewCatalogCommand(cli),
		NewVersionCommand(cli),
	)
}

func setCobraUsageTemplate(root *cobra.Command) {
	cobra.AddTemplateFunc("StyleHeading", color.RGB(50, 108, 229).SprintFunc())
	usageTemplate := strings.NewReplacer(
		`Usage:`, `{{StyleHeading "Usage:"}}`,
		`Available Commands:`, `{{StyleHeading "Available Commands:"}}`,
		`Flags:`, `{{StyleHeading "Options:"}}`,
		`Global Flags:`, `{{StyleHeading "Global Options:"}}`,
	).Replace(root.UsageTemplate())
	root.SetUsageTemplate(usageTemplate)
}

// Execute runs the planner CLI and exits.
func Execute() {
	// NO_COLOR disables colored tables and usage.
	_, noColor := os.LookupEnv("NO_COLOR")
	color.NoColor = noColor

	root := NewRootCommand()
	setCobraUsageTemplate(root)
	root.SetVersionTemplate("{{.Version}}\n")

	cli := NewCLI(os.Stdout, os.Stderr)
	AddCommands(root, cli)

	if err := root.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintln(cli.Err, color.RedString("Error:"), msg)
		}
		os.Exit(1)
	}
}
