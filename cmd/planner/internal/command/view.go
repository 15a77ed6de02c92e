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
	"strings"

	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/catalog"
)

func newTable(w io.Writer, columns ...any) table.Table {
	headerFmt := color.New(color.FgGreen, color.Bold).SprintfFunc()
	columnFmt := color.New(color.FgYellow).SprintfFunc()
	return table.New(columns...).
		WithWriter(w).
		WithHeaderFormatter(headerFmt).
		WithFirstColumnFormatter(columnFmt)
}

func printPlanSummary(w io.Writer, p *v1alpha1.DeploymentPlan) {
	fmt.Fprintf(w, "Plan %s (%s)\n\n", shortHash(p.Metadata.ConfigHash), p.Metadata.Region)

	endpoints := newTable(w, "Endpoint", "Source", "Instance", "Min", "Max", "Target")
	for _, ep := range p.Endpoints {
		endpoints.AddRow(ep.EndpointName, sourceKind(ep.Source), ep.InstanceType,
			ep.Autoscaling.MinCapacity, ep.Autoscaling.MaxCapacity, ep.Autoscaling.TargetValue)
	}
	endpoints.Print()
	fmt.Fprintln(w)

	routes := newTable(w, "Route", "State", "Endpoint", "Function")
	for _, r := range p.Routes {
		fn := "-"
		if m, ok := r.Integration.(*v1alpha1.MediatedIntegration); ok {
			fn = m.Function.Name
		}
		routes.AddRow("/"+r.Path, r.State, r.EndpointName, fn)
	}
	routes.Print()
	fmt.Fprintln(w)

	principals := newTable(w, "Principal", "Kind", "Managed policies", "Statements")
	for _, pp := range p.Permissions.Principals {
		principals.AddRow(pp.Name, pp.Kind, len(pp.ManagedPolicies), len(pp.Statements))
	}
	principals.Print()
}

func printValidation(w io.Writer, results []ValidationResult) {
	tbl := newTable(w, "File", "Status", "Rule", "Detail")
	for _, r := range results {
		status := color.GreenString(r.status())
		if r.Err != nil {
			status = color.RedString(r.status())
		}
		rule := r.Rule
		if rule == "" {
			rule = "-"
		}
		tbl.AddRow(r.Path, status, rule, r.detail())
	}
	tbl.Print()
}

func printCatalog(w io.Writer, entries []catalog.Entry) {
	tbl := newTable(w, "Model", "Image", "Families", "Regions")
	for _, e := range entries {
		tbl.AddRow(e.ModelID, e.Image, joinOrAny(e.InstanceFamilies), joinOrAny(e.Regions))
	}
	tbl.Print()
}

func sourceKind(src v1alpha1.ModelSource) string {
	switch src.(type) {
	case *v1alpha1.PackageSource:
		return string(v1alpha1.ModelSourcePackage)
	case *v1alpha1.LookupSource:
		return string(v1alpha1.ModelSourceLookup)
	}
	return "-"
}

func joinOrAny(list []string) string {
	if len(list) == 0 {
		return "*"
	}
	return strings.Join(list, ",")
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
