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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
	"github.com/llm-d/llm-d-model-api-planner/internal/schema"
)

// ValidationResult is the outcome of validating one file.
type ValidationResult struct {
	Path      string
	Models    int
	Endpoints int
	Rule      string
	Err       error
}

func NewValidateCommand(cli *CLI) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config-file>...",
		Short: "Validate configuration documents",
		Long: Highlight("model-api-planner validate <config-file>...") + "\n\n" +
			"Check configuration documents against the schema without resolving\n" +
			"model sources. The first violation of each file is reported.\n",
		Args: MinArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results := RunValidate(args)
			printValidation(cli.Out, results)
			for _, r := range results {
				if r.Err != nil {
					return errors.New("")
				}
			}
			return nil
		},
	}
	return cmd
}

// RunValidate validates every path and returns one result per path.
func RunValidate(paths []string) []ValidationResult {
	results := make([]ValidationResult, 0, len(paths))
	for _, path := range paths {
		r := ValidationResult{Path: path}
		doc, err := schema.LoadFile(path)
		if err != nil {
			r.Err = err
			results = append(results, r)
			continue
		}
		cfg, err := schema.Validate(doc)
		if err != nil {
			r.Err = err
			var v *errdefs.SchemaViolation
			if errors.As(err, &v) {
				r.Rule = v.Rule
			}
			results = append(results, r)
			continue
		}
		r.Models, r.Endpoints = len(cfg.Models), len(cfg.Endpoints)
		results = append(results, r)
	}
	return results
}

func (r ValidationResult) status() string {
	if r.Err != nil {
		return "invalid"
	}
	return "valid"
}

func (r ValidationResult) detail() string {
	if r.Err != nil {
		return r.Err.Error()
	}
	return fmt.Sprintf("%d models, %d endpoints", r.Models, r.Endpoints)
}
