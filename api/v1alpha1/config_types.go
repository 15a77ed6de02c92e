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

package v1alpha1

// ModelAPIConfig is the configuration document describing the models to deploy
// and the pre-existing endpoints to route to. It is the sole input of the planner.
type ModelAPIConfig struct {
	// Models are deployed as new endpoints and routed.
	// +kubebuilder:validation:Required
	Models []ModelEntry `json:"models"`

	// Endpoints already exist outside the plan and are only routed.
	// +optional
	Endpoints []EndpointEntry `json:"endpoints,omitempty"`
}

// ModelEntry describes one model to deploy as an endpoint.
// Exactly one of ModelID and ModelPackageARN is set.
type ModelEntry struct {
	// Name identifies the model within the configuration and is used as the route path.
	// +kubebuilder:validation:Pattern=`^[a-z0-9-]+$`
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// ModelID is a model-family identifier that is resolved through the model catalog.
	// +optional
	ModelID string `json:"model_id,omitempty"`

	// ModelPackageARN references a pre-built model package. No catalog lookup happens.
	// +optional
	ModelPackageARN string `json:"model_package_arn,omitempty"`

	// Instance is the hardware class used for inference (e.g. "ml.g5.xlarge").
	// +kubebuilder:validation:Required
	Instance string `json:"instance"`

	// Autoscaling bounds the live instance count. Defaults apply when omitted.
	// +optional
	Autoscaling *AutoscalingSpec `json:"autoscaling,omitempty"`

	// Integration declares how the public route reaches the endpoint.
	// +kubebuilder:validation:Required
	Integration IntegrationSpec `json:"integration"`
}

// HasModelPackage reports whether the model is backed by a pre-built package.
func (m *ModelEntry) HasModelPackage() bool {
	return m.ModelPackageARN != ""
}

// AutoscalingSpec holds the autoscaling bounds of a model endpoint.
// All three fields are present together.
type AutoscalingSpec struct {
	// MaxCapacity is the maximum number of instances behind the endpoint.
	MaxCapacity int32 `json:"max_capacity"`

	// MinCapacity is the minimum number of instances behind the endpoint.
	MinCapacity int32 `json:"min_capacity"`

	// InvocationsPerInstance is the target tracked by the scaling policy.
	InvocationsPerInstance int32 `json:"invocations_per_instance"`
}

// EndpointEntry routes to an endpoint that already exists outside the plan.
type EndpointEntry struct {
	// Name is both the route path and the name of the existing endpoint.
	// +kubebuilder:validation:Pattern=`^[a-z0-9-]+$`
	// +kubebuilder:validation:Required
	Name string `json:"name"`

	// +kubebuilder:validation:Required
	Integration IntegrationSpec `json:"integration"`
}

// IntegrationType selects how a route reaches its endpoint.
type IntegrationType string

const (
	// IntegrationTypeAPI passes requests straight through to the endpoint.
	IntegrationTypeAPI IntegrationType = "api"
	// IntegrationTypeLambda invokes a mediating function that calls the endpoint.
	IntegrationTypeLambda IntegrationType = "lambda"
)

// IntegrationTypes lists the recognised integration types.
var IntegrationTypes = []IntegrationType{IntegrationTypeAPI, IntegrationTypeLambda}

// IntegrationSpec declares the integration of a route.
type IntegrationSpec struct {
	// Type is one of "api" or "lambda".
	// +kubebuilder:validation:Enum=api;lambda
	// +kubebuilder:validation:Required
	Type IntegrationType `json:"type"`

	// Headers are extra request headers passed through by "api" integrations.
	// +optional
	Headers []string `json:"headers,omitempty"`

	// Properties configure the mediating function of "lambda" integrations.
	// Required when Type is "lambda".
	// +optional
	Properties *FunctionProperties `json:"properties,omitempty"`
}

// FunctionProperties configures the mediating function of a "lambda" integration.
type FunctionProperties struct {
	// Code is the location of the function code asset.
	// +kubebuilder:validation:Required
	Code string `json:"code"`

	// Permissions are extra actions granted to the function's identity. May be empty.
	// +kubebuilder:validation:Required
	Permissions []string `json:"permissions"`

	// Timeout in seconds.
	// +kubebuilder:validation:Required
	Timeout *int32 `json:"timeout"`

	// Memory size in MB.
	// +optional
	Memory *int32 `json:"memory,omitempty"`

	// Layers are layer version ARNs attached to the function.
	// +optional
	Layers []string `json:"layers,omitempty"`

	// Runtime identifier (e.g. "python3.12").
	// +optional
	Runtime string `json:"runtime,omitempty"`

	// Environment is merged into the function environment. The bound endpoint
	// name is always injected under a reserved key.
	// +optional
	Environment map[string]string `json:"environment,omitempty"`
}
