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

package route

import (
	"fmt"
	"slices"
	"strings"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
	"github.com/llm-d/llm-d-model-api-planner/internal/permissions"
)

const (
	// Method is the HTTP method exposed on every route.
	Method = "POST"

	// EndpointNameEnv is the reserved environment key carrying the bound
	// endpoint name to a mediating function.
	EndpointNameEnv = "ENDPOINT_NAME"

	invocationService = "runtime.sagemaker"
	jsonContentType   = "application/json"
	errorModel        = "Error"
	errorTemplate     = `{ "error": $input.path("$.OriginalMessage") }`
	successTemplate   = `$input.json('$')`
)

// BaseHeaders are passed through by every direct route.
var BaseHeaders = []string{"Content-Type", "Accept"}

// Target is an entry to route: a model entry bound to its derived endpoint
// name, or a pre-existing endpoint entry bound to its own name.
type Target struct {
	// Kind is the entry list the target comes from, TargetModel or TargetEndpoint.
	Kind string
	// Name is the entry name, used as the route path.
	Name         string
	EndpointName string
	Integration  v1alpha1.IntegrationSpec
}

// Target kinds.
const (
	TargetModel    = "model"
	TargetEndpoint = "endpoint"
)

// Entry labels the configuration entry behind t.
func (t Target) Entry() string {
	if t.Kind == "" {
		return t.Name
	}
	return t.Kind + " " + t.Name
}

// ModelTarget returns the route target of a planned endpoint.
func ModelTarget(entry *v1alpha1.ModelEntry, spec *v1alpha1.EndpointSpec) Target {
	return Target{Kind: TargetModel, Name: entry.Name, EndpointName: spec.EndpointName, Integration: entry.Integration}
}

// EndpointTarget returns the route target of a pre-existing endpoint.
func EndpointTarget(entry *v1alpha1.EndpointEntry) Target {
	return Target{Kind: TargetEndpoint, Name: entry.Name, EndpointName: entry.Name, Integration: entry.Integration}
}

// Builder builds route plans and tracks the state of every path.
type Builder struct {
	planner  *permissions.Planner
	defaults config.FunctionDefaults
	states   map[string]v1alpha1.RouteState
	// owners records the entry that bound each path.
	owners map[string]string
}

// NewBuilder returns a Builder registering function principals with planner.
func NewBuilder(planner *permissions.Planner, defaults config.FunctionDefaults) *Builder {
	return &Builder{
		planner:  planner,
		defaults: defaults,
		states:   map[string]v1alpha1.RouteState{},
		owners:   map[string]string{},
	}
}

// State returns the state of path.
func (b *Builder) State(path string) v1alpha1.RouteState {
	if s, ok := b.states[path]; ok {
		return s
	}
	return v1alpha1.RouteUnrouted
}

// Build binds target's path to its integration and returns the route plan.
func (b *Builder) Build(target Target) (v1alpha1.RoutePlan, error) {
	if state := b.State(target.Name); state != v1alpha1.RouteUnrouted {
		return v1alpha1.RoutePlan{}, &errdefs.DuplicateNameError{
			Kind:    "route",
			Name:    target.Name,
			Entries: []string{b.owners[target.Name], target.Entry()},
		}
	}
	if target.EndpointName == "" {
		return v1alpha1.RoutePlan{}, &errdefs.IntegrationSpecError{
			Entry: target.Name, Field: "endpoint", Detail: "no endpoint to bind"}
	}

	plan := v1alpha1.RoutePlan{
		Path:         target.Name,
		Method:       Method,
		EndpointName: target.EndpointName,
	}

	switch target.Integration.Type {
	case v1alpha1.IntegrationTypeAPI:
		plan.Integration = b.direct(target)
		plan.State = v1alpha1.RouteDirectBound
	case v1alpha1.IntegrationTypeLambda:
		integration, err := b.mediated(target)
		if err != nil {
			return v1alpha1.RoutePlan{}, err
		}
		plan.Integration = integration
		plan.State = v1alpha1.RouteMediatedBound
	default:
		return v1alpha1.RoutePlan{}, &errdefs.IntegrationSpecError{
			Entry:  target.Name,
			Field:  "type",
			Detail: fmt.Sprintf("unsupported integration type %q", target.Integration.Type),
		}
	}

	b.states[target.Name] = plan.State
	b.owners[target.Name] = target.Entry()
	ctrl.Log.V(logging.DEBUG).Info("Bound route",
		"path", plan.Path,
		"endpoint", plan.EndpointName,
		"state", plan.State)
	return plan, nil
}

// RequiredHeaders returns BaseHeaders followed by headers, without duplicates.
// Header names compare case-insensitively.
func RequiredHeaders(headers []string) []string {
	out := slices.Clone(BaseHeaders)
	seen := make(map[string]struct{}, len(out)+len(headers))
	for _, h := range out {
		seen[strings.ToLower(h)] = struct{}{}
	}
	for _, h := range headers {
		key := strings.ToLower(h)
		if _, dup := seen[key]; dup || h == "" {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h)
	}
	return out
}

func (b *Builder) direct(target Target) *v1alpha1.DirectIntegration {
	headers := RequiredHeaders(target.Integration.Headers)
	params := make(map[string]string, len(headers))
	for _, h := range headers {
		params["integration.request.header."+h] = "method.request.header." + h
	}
	errorTemplates := func() map[string]string {
		return map[string]string{jsonContentType: errorTemplate}
	}
	errorModels := func() map[string]string {
		return map[string]string{jsonContentType: errorModel}
	}

	return &v1alpha1.DirectIntegration{
		Service:              invocationService,
		HTTPMethod:           Method,
		Path:                 fmt.Sprintf("endpoints/%s/invocations", target.EndpointName),
		CredentialsPrincipal: permissions.RoutingPrincipal,
		RequiredHeaders:      headers,
		RequestParameters:    params,
		IntegrationResponses: []v1alpha1.IntegrationResponse{
			{StatusCode: "200", ResponseTemplates: map[string]string{jsonContentType: successTemplate}},
			{StatusCode: "400", SelectionPattern: `4\d{2}`, ResponseTemplates: errorTemplates()},
			{StatusCode: "500", SelectionPattern: `5\d{2}`, ResponseTemplates: errorTemplates()},
		},
		MethodResponses: []v1alpha1.MethodResponse{
			{StatusCode: "200"},
			{StatusCode: "400", ResponseModels: errorModels()},
			{StatusCode: "500", ResponseModels: errorModels()},
		},
	}
}

func (b *Builder) mediated(target Target) (*v1alpha1.MediatedIntegration, error) {
	props := target.Integration.Properties
	if props == nil {
		return nil, &errdefs.IntegrationSpecError{
			Entry:  target.Name,
			Field:  "properties",
			Detail: fmt.Sprintf("required for integration type %q", v1alpha1.IntegrationTypeLambda),
		}
	}
	if props.Code == "" {
		return nil, &errdefs.IntegrationSpecError{Entry: target.Name, Field: "properties.code", Detail: "required"}
	}

	layers := make([]v1alpha1.LayerRef, 0, len(props.Layers))
	layerARNs := make(map[string]string, len(props.Layers))
	for _, arn := range props.Layers {
		name, err := layerName(target.Name, arn)
		if err != nil {
			return nil, &errdefs.IntegrationSpecError{Entry: target.Name, Field: "properties.layers", Detail: err.Error()}
		}
		if prev, ok := layerARNs[name]; ok {
			return nil, &errdefs.IntegrationSpecError{
				Entry:  target.Name,
				Field:  "properties.layers",
				Detail: fmt.Sprintf("layers %q and %q both derive %s", prev, arn, name),
			}
		}
		layerARNs[name] = arn
		layers = append(layers, v1alpha1.LayerRef{Name: name, ARN: arn})
	}

	principal, err := b.planner.AddFunction(target.Name, props.Permissions)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", target.Name, err)
	}

	env := make(map[string]string, len(props.Environment)+1)
	for k, v := range props.Environment {
		env[k] = v
	}
	env[EndpointNameEnv] = target.EndpointName

	resolved := b.defaults.Resolve(props)
	return &v1alpha1.MediatedIntegration{
		Function: v1alpha1.FunctionConfig{
			Name:           "LambdaFuncModel-" + target.Name,
			Principal:      principal,
			Code:           props.Code,
			Handler:        resolved.Handler,
			Runtime:        resolved.Runtime,
			TimeoutSeconds: resolved.TimeoutSeconds,
			MemoryMB:       resolved.MemoryMB,
			Layers:         layers,
			Environment:    env,
		},
	}, nil
}

// layerName derives the logical name of a layer from the layer name segment
// of its version ARN, arn:aws:lambda:<region>:<account>:layer:<name>:<version>.
func layerName(route, arn string) (string, error) {
	parts := strings.Split(arn, ":")
	if len(parts) < 2 || parts[len(parts)-2] == "" {
		return "", fmt.Errorf("invalid layer version arn %q", arn)
	}
	return fmt.Sprintf("Layer-%s-%s", route, parts[len(parts)-2]), nil
}
