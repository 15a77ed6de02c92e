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

package schema

import (
	"fmt"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
)

// ValidateConfig applies the configuration rules to an already typed
// configuration: name pattern, model source exclusivity, integration type
// and properties, and autoscaling ranges. The first violation is returned
// as a *errdefs.SchemaViolation with the same paths Validate reports.
func ValidateConfig(cfg *v1alpha1.ModelAPIConfig) error {
	if cfg == nil {
		return errdefs.Violation(field.NewPath("document"), errdefs.RuleRequired, "configuration is required")
	}
	for i := range cfg.Models {
		if err := validateModelEntry(field.NewPath("models").Index(i), &cfg.Models[i]); err != nil {
			return err
		}
	}
	for i := range cfg.Endpoints {
		e := &cfg.Endpoints[i]
		path := field.NewPath("endpoints").Index(i)
		if err := checkName(path.Child("name"), e.Name); err != nil {
			return err
		}
		if err := validateIntegrationSpec(path.Child("integration"), &e.Integration); err != nil {
			return err
		}
	}
	return nil
}

func validateModelEntry(path *field.Path, m *v1alpha1.ModelEntry) error {
	if err := checkName(path.Child("name"), m.Name); err != nil {
		return err
	}
	hasModelID, hasARN := m.ModelID != "", m.ModelPackageARN != ""
	switch {
	case hasModelID && hasARN:
		return errdefs.ModelSourceConflict(path, fmt.Sprintf("model %q sets both model_id and model_package_arn", m.Name))
	case !hasModelID && !hasARN:
		return errdefs.ModelSourceConflict(path, fmt.Sprintf("model %q sets neither model_id nor model_package_arn", m.Name))
	}
	if m.Instance == "" {
		return errdefs.Violation(path.Child("instance"), errdefs.RuleRequired, "instance is required")
	}
	if a := m.Autoscaling; a != nil {
		p := path.Child("autoscaling")
		if a.MinCapacity < 0 {
			return errdefs.Violation(p.Child("min_capacity"), errdefs.RuleRange, "must be >= 0, got %d", a.MinCapacity)
		}
		if a.MaxCapacity < a.MinCapacity {
			return errdefs.Violation(p.Child("max_capacity"), errdefs.RuleRange,
				"must be >= min_capacity (%d), got %d", a.MinCapacity, a.MaxCapacity)
		}
		if a.InvocationsPerInstance <= 0 {
			return errdefs.Violation(p.Child("invocations_per_instance"), errdefs.RuleRange,
				"must be > 0, got %d", a.InvocationsPerInstance)
		}
	}
	return validateIntegrationSpec(path.Child("integration"), &m.Integration)
}

func checkName(path *field.Path, name string) error {
	if name == "" {
		return errdefs.Violation(path, errdefs.RuleRequired, "name is required")
	}
	if !namePattern.MatchString(name) {
		return errdefs.Violation(path, errdefs.RulePattern, "name %q must match %s", name, namePattern.String())
	}
	return nil
}

func validateIntegrationSpec(path *field.Path, spec *v1alpha1.IntegrationSpec) error {
	if spec.Type == "" {
		return errdefs.Violation(path.Child("type"), errdefs.RuleRequired, "type is required")
	}
	if !integrationTypes.Has(string(spec.Type)) {
		return errdefs.Violation(path.Child("type"), errdefs.RuleEnum,
			"unsupported integration type %q, must be one of %v", spec.Type, sets.List(integrationTypes))
	}
	props := spec.Properties
	if props == nil {
		if spec.Type == v1alpha1.IntegrationTypeLambda {
			return errdefs.Violation(path.Child("properties"), errdefs.RuleRequired,
				"properties is required when type is %q", v1alpha1.IntegrationTypeLambda)
		}
		return nil
	}
	p := path.Child("properties")
	if props.Code == "" {
		return errdefs.Violation(p.Child("code"), errdefs.RuleRequired, "code is required")
	}
	if props.Timeout == nil {
		return errdefs.Violation(p.Child("timeout"), errdefs.RuleRequired, "timeout is required")
	}
	if *props.Timeout <= 0 {
		return errdefs.Violation(p.Child("timeout"), errdefs.RuleRange, "must be > 0, got %d", *props.Timeout)
	}
	if props.Memory != nil && *props.Memory <= 0 {
		return errdefs.Violation(p.Child("memory"), errdefs.RuleRange, "must be > 0, got %d", *props.Memory)
	}
	return nil
}
