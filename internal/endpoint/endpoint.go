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

// Package endpoint builds endpoint deployment specifications from model
// entries and their resolved sources.
package endpoint

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
)

const (
	// VariantName is the production variant receiving all traffic.
	VariantName = "AllTraffic"

	// InitialInstanceCount is the instance count at creation. Autoscaling
	// takes over from there.
	InitialInstanceCount int32 = 1
	InitialVariantWeight int32 = 1

	ScalableDimension = "sagemaker:variant:DesiredInstanceCount"
	ServiceNamespace  = "sagemaker"
	PredefinedMetric  = "SageMakerVariantInvocationsPerInstance"

	endpointSuffix = "-endpoint"
	configSuffix   = "-config"
)

// KebabCase folds upper case letters into a hyphen followed by the lower case
// letter, "myModel" becomes "my-model". A leading hyphen is dropped.
func KebabCase(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)
	for _, r := range s {
		if unicode.IsUpper(r) {
			b.WriteByte('-')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimLeft(b.String(), "-")
}

// EndpointName derives the external endpoint name of a model entry.
func EndpointName(name string) string {
	return KebabCase(name) + endpointSuffix
}

// ResourceID is the autoscaling resource id of an endpoint's variant.
func ResourceID(endpointName string) string {
	return fmt.Sprintf("endpoint/%s/variant/%s", endpointName, VariantName)
}

// Build returns the endpoint specification of entry served from source.
func Build(entry *v1alpha1.ModelEntry, source v1alpha1.ModelSource, defaults config.AutoscalingDefaults) (v1alpha1.EndpointSpec, error) {
	if source == nil {
		return v1alpha1.EndpointSpec{}, fmt.Errorf("model %q: no resolved source", entry.Name)
	}

	var isolated bool
	switch s := source.(type) {
	case *v1alpha1.PackageSource:
		isolated = true
	case *v1alpha1.LookupSource:
	default:
		return v1alpha1.EndpointSpec{}, fmt.Errorf("model %q: unsupported model source %T", entry.Name, s)
	}

	scaling := defaults.Resolve(entry.Autoscaling)
	endpointName := EndpointName(entry.Name)

	return v1alpha1.EndpointSpec{
		Name:                 entry.Name,
		ModelName:            entry.Name,
		ConfigName:           entry.Name + configSuffix,
		EndpointName:         endpointName,
		Source:               source.DeepCopyModelSource(),
		InstanceType:         entry.Instance,
		VariantName:          VariantName,
		InitialInstanceCount: InitialInstanceCount,
		InitialVariantWeight: InitialVariantWeight,
		NetworkIsolation:     isolated,
		Autoscaling: v1alpha1.AutoscalingPolicy{
			ResourceID:        ResourceID(endpointName),
			ScalableDimension: ScalableDimension,
			ServiceNamespace:  ServiceNamespace,
			MinCapacity:       scaling.MinCapacity,
			MaxCapacity:       scaling.MaxCapacity,
			TargetValue:       scaling.InvocationsPerInstance,
			PredefinedMetric:  PredefinedMetric,
		},
	}, nil
}

// CheckNames rejects endpoint specs whose entries derive the same endpoint
// name. Every collision is reported against the first name found.
func CheckNames(specs []v1alpha1.EndpointSpec) error {
	owners := make(map[string][]string, len(specs))
	order := make([]string, 0, len(specs))
	for _, s := range specs {
		if _, seen := owners[s.EndpointName]; !seen {
			order = append(order, s.EndpointName)
		}
		owners[s.EndpointName] = append(owners[s.EndpointName], s.Name)
	}
	for _, name := range order {
		if entries := owners[name]; len(entries) > 1 {
			return &errdefs.DuplicateNameError{Kind: "endpoint", Name: name, Entries: entries}
		}
	}
	return nil
}
