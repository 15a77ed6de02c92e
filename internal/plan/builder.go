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

// Package plan compiles a configuration document into a DeploymentPlan.
package plan

import (
	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/permissions"
)

// API defaults recorded on every plan.
const (
	APIName        = "ModelService"
	APIDescription = "This service serves all the model endpoints either directly or through mediating functions."
)

var (
	corsAllOrigins = []string{"*"}
	corsAllMethods = []string{"OPTIONS", "GET", "PUT", "POST", "DELETE", "PATCH", "HEAD"}
	corsAllHeaders = []string{"*"}
)

// DefaultAPISpec returns the routing layer shared by every route.
func DefaultAPISpec() v1alpha1.APISpec {
	return v1alpha1.APISpec{
		Name:        APIName,
		Description: APIDescription,
		CORS: v1alpha1.CORSSpec{
			AllowOrigins: append([]string(nil), corsAllOrigins...),
			AllowMethods: append([]string(nil), corsAllMethods...),
			AllowHeaders: append([]string(nil), corsAllHeaders...),
		},
	}
}

// Builder is the mutable state of one compilation. It is passed by reference
// through the pipeline stages; Build returns an independent plan.
type Builder struct {
	metadata  v1alpha1.PlanMetadata
	api       v1alpha1.APISpec
	endpoints []v1alpha1.EndpointSpec
	routes    []v1alpha1.RoutePlan
	acc       *permissions.Accumulator
}

// NewBuilder returns an empty Builder for region whose permissions are
// collected in acc.
func NewBuilder(region string, acc *permissions.Accumulator) *Builder {
	return &Builder{
		metadata: v1alpha1.PlanMetadata{Region: region},
		api:      DefaultAPISpec(),
		acc:      acc,
	}
}

// SetConfigHash records the hash of the compiled configuration.
func (b *Builder) SetConfigHash(hash string) { b.metadata.ConfigHash = hash }

// AddEndpoint appends an endpoint in configuration order.
func (b *Builder) AddEndpoint(spec v1alpha1.EndpointSpec) {
	b.endpoints = append(b.endpoints, *spec.DeepCopy())
}

// Endpoints returns the endpoints added so far. The slice must not be modified.
func (b *Builder) Endpoints() []v1alpha1.EndpointSpec { return b.endpoints }

// AddRoute appends a route in configuration order.
func (b *Builder) AddRoute(route v1alpha1.RoutePlan) {
	b.routes = append(b.routes, *route.DeepCopy())
}

// Build freezes the permission accumulator and returns a deep copy of the
// builder state as a DeploymentPlan.
func (b *Builder) Build() *v1alpha1.DeploymentPlan {
	plan := &v1alpha1.DeploymentPlan{
		Metadata:    b.metadata,
		API:         *b.api.DeepCopy(),
		Endpoints:   make([]v1alpha1.EndpointSpec, 0, len(b.endpoints)),
		Routes:      make([]v1alpha1.RoutePlan, 0, len(b.routes)),
		Permissions: v1alpha1.PermissionSet{Principals: b.acc.Freeze()},
	}
	for i := range b.endpoints {
		plan.Endpoints = append(plan.Endpoints, *b.endpoints[i].DeepCopy())
	}
	for i := range b.routes {
		plan.Routes = append(plan.Routes, *b.routes[i].DeepCopy())
	}
	plan.Metadata.Summary = Summarize(plan)
	return plan
}

// Summarize counts the contents of plan.
func Summarize(plan *v1alpha1.DeploymentPlan) v1alpha1.PlanSummary {
	s := v1alpha1.PlanSummary{
		Endpoints:  len(plan.Endpoints),
		Routes:     len(plan.Routes),
		Principals: len(plan.Permissions.Principals),
	}
	for _, r := range plan.Routes {
		switch r.State {
		case v1alpha1.RouteDirectBound:
			s.DirectRoutes++
		case v1alpha1.RouteMediatedBound:
			s.MediatedRoutes++
		}
	}
	return s
}
