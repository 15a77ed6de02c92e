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

import "fmt"

// DeploymentPlan is the compiled output of a ModelAPIConfig. It is handed
// unmodified to the provisioning layer.
type DeploymentPlan struct {
	// Metadata describes how the plan was produced.
	Metadata PlanMetadata `json:"metadata"`

	// API describes the public routing layer shared by all routes.
	API APISpec `json:"api"`

	// Endpoints are the endpoints to deploy, in configuration order.
	Endpoints []EndpointSpec `json:"endpoints"`

	// Routes are the public routes, models first then pre-existing endpoints,
	// each in configuration order.
	Routes []RoutePlan `json:"routes"`

	// Permissions holds every permission statement partitioned by principal.
	Permissions PermissionSet `json:"permissions"`
}

// PlanMetadata identifies a compiled plan.
type PlanMetadata struct {
	// Region the plan was resolved for.
	Region string `json:"region"`

	// ConfigHash is the SHA-256 of the canonical validated configuration.
	ConfigHash string `json:"configHash"`

	// Summary counts the plan contents.
	Summary PlanSummary `json:"summary"`
}

// PlanSummary counts the plan contents.
type PlanSummary struct {
	Endpoints      int `json:"endpoints"`
	Routes         int `json:"routes"`
	DirectRoutes   int `json:"directRoutes"`
	MediatedRoutes int `json:"mediatedRoutes"`
	Principals     int `json:"principals"`
}

// APISpec describes the public routing layer.
type APISpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	CORS        CORSSpec `json:"cors"`
}

// CORSSpec is the preflight configuration applied to every route.
type CORSSpec struct {
	AllowOrigins []string `json:"allowOrigins"`
	AllowMethods []string `json:"allowMethods"`
	AllowHeaders []string `json:"allowHeaders"`
}

// ModelSourceKind discriminates the ModelSource variants.
type ModelSourceKind string

const (
	// ModelSourcePackage is a pre-built model package reference.
	ModelSourcePackage ModelSourceKind = "package"
	// ModelSourceLookup is an image and artifact resolved from the model catalog.
	ModelSourceLookup ModelSourceKind = "lookup"
)

// ModelSource is the resolved source of a model: either a *PackageSource or a
// *LookupSource. Consumers switch exhaustively over the two variants.
type ModelSource interface {
	// Kind returns the variant discriminator.
	Kind() ModelSourceKind
	// DeepCopyModelSource returns an independent copy of the variant.
	DeepCopyModelSource() ModelSource

	isModelSource()
}

// PackageSource is a model defined by a pre-built package reference.
type PackageSource struct {
	ModelPackageARN string `json:"modelPackageArn"`
}

func (*PackageSource) Kind() ModelSourceKind { return ModelSourcePackage }
func (*PackageSource) isModelSource()        {}

// LookupSource is a model defined by a container image and an artifact location
// resolved from the model catalog.
type LookupSource struct {
	Image    string           `json:"image"`
	Artifact ArtifactLocation `json:"artifact"`
}

func (*LookupSource) Kind() ModelSourceKind { return ModelSourceLookup }
func (*LookupSource) isModelSource()        {}

// ArtifactLocation is the object-storage location of model artifacts.
type ArtifactLocation struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// URL renders the location as an s3:// URL.
func (a ArtifactLocation) URL() string {
	return fmt.Sprintf("s3://%s/%s", a.Bucket, a.Key)
}

// EndpointSpec is the deployment specification of one model endpoint.
type EndpointSpec struct {
	// Name is the model entry name.
	Name string `json:"name"`

	// ModelName is the name of the model resource.
	ModelName string `json:"modelName"`

	// ConfigName is the name of the endpoint configuration.
	ConfigName string `json:"configName"`

	// EndpointName is the stable external name derived from Name.
	EndpointName string `json:"endpointName"`

	// Source is the resolved model source.
	Source ModelSource `json:"-"`

	// InstanceType is the hardware class of the production variant.
	InstanceType string `json:"instanceType"`

	// VariantName is the production variant receiving all traffic.
	VariantName string `json:"variantName"`

	// InitialInstanceCount is the instance count at creation, before autoscaling.
	InitialInstanceCount int32 `json:"initialInstanceCount"`

	// InitialVariantWeight is the traffic weight of the production variant.
	InitialVariantWeight int32 `json:"initialVariantWeight"`

	// NetworkIsolation is enabled for package-backed models.
	NetworkIsolation bool `json:"networkIsolation,omitempty"`

	// Autoscaling binds the live instance count to a target-tracking policy.
	Autoscaling AutoscalingPolicy `json:"autoscaling"`
}

// AutoscalingPolicy is the autoscaling binding of an endpoint variant.
type AutoscalingPolicy struct {
	ResourceID        string `json:"resourceId"`
	ScalableDimension string `json:"scalableDimension"`
	ServiceNamespace  string `json:"serviceNamespace"`
	MinCapacity       int32  `json:"minCapacity"`
	MaxCapacity       int32  `json:"maxCapacity"`
	TargetValue       int32  `json:"targetValue"`
	PredefinedMetric  string `json:"predefinedMetric"`
}

// Effect of a permission statement.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// PermissionStatement grants or denies actions on resources.
type PermissionStatement struct {
	Sid       string   `json:"sid,omitempty"`
	Effect    Effect   `json:"effect"`
	Actions   []string `json:"actions"`
	Resources []string `json:"resources"`
}

// PrincipalKind partitions principals by role in the plan.
type PrincipalKind string

const (
	// PrincipalRouting is the identity the routing layer uses to invoke endpoints.
	PrincipalRouting PrincipalKind = "routing"
	// PrincipalEndpointExecution is the identity endpoints run as.
	PrincipalEndpointExecution PrincipalKind = "endpoint-execution"
	// PrincipalFunction is the identity of one route's mediating function.
	PrincipalFunction PrincipalKind = "function"
)

// PrincipalPolicy is the full permission set of one principal.
type PrincipalPolicy struct {
	// Name is the logical name of the identity.
	Name string `json:"name"`

	Kind PrincipalKind `json:"kind"`

	// Service is the service principal allowed to assume the identity.
	Service string `json:"service"`

	// Route is the route path owning a function principal.
	Route string `json:"route,omitempty"`

	ManagedPolicies []string              `json:"managedPolicies,omitempty"`
	Statements      []PermissionStatement `json:"statements,omitempty"`
}

// PermissionSet holds every principal of the plan, routing first, then endpoint
// execution, then function principals in route order.
type PermissionSet struct {
	Principals []PrincipalPolicy `json:"principals"`
}

// Principal returns the principal with the given name.
func (p PermissionSet) Principal(name string) (PrincipalPolicy, bool) {
	for _, pp := range p.Principals {
		if pp.Name == name {
			return pp, true
		}
	}
	return PrincipalPolicy{}, false
}

// ByKind returns the principals of the given kind in plan order.
func (p PermissionSet) ByKind(kind PrincipalKind) []PrincipalPolicy {
	var out []PrincipalPolicy
	for _, pp := range p.Principals {
		if pp.Kind == kind {
			out = append(out, pp)
		}
	}
	return out
}

// RouteState is the integration state of a route entry.
type RouteState string

const (
	RouteUnrouted      RouteState = "Unrouted"
	RouteDirectBound   RouteState = "DirectBound"
	RouteMediatedBound RouteState = "MediatedBound"
)

// RoutePlan is one public route bound to an endpoint.
type RoutePlan struct {
	// Path is the route path, equal to the entry name.
	Path string `json:"path"`

	// Method is the HTTP method exposed on the path.
	Method string `json:"method"`

	// EndpointName is the endpoint the route is bound to.
	EndpointName string `json:"endpointName"`

	// State is the terminal integration state of the route.
	State RouteState `json:"state"`

	// Integration is a *DirectIntegration or a *MediatedIntegration.
	Integration RouteIntegration `json:"-"`
}

// RouteIntegration is the resolved integration of a route: either a
// *DirectIntegration or a *MediatedIntegration.
type RouteIntegration interface {
	// Type returns the integration type the variant implements.
	Type() IntegrationType
	// DeepCopyRouteIntegration returns an independent copy of the variant.
	DeepCopyRouteIntegration() RouteIntegration

	isRouteIntegration()
}

// DirectIntegration passes requests through to the endpoint's invocation API.
type DirectIntegration struct {
	Service    string `json:"service"`
	HTTPMethod string `json:"httpMethod"`
	Path       string `json:"path"`

	// CredentialsPrincipal is the principal the routing layer assumes.
	CredentialsPrincipal string `json:"credentialsPrincipal"`

	// RequiredHeaders are the request headers passed through, Content-Type and
	// Accept first, then declared headers, without duplicates.
	RequiredHeaders []string `json:"requiredHeaders"`

	// RequestParameters maps integration request parameters to method request parameters.
	RequestParameters map[string]string `json:"requestParameters"`

	IntegrationResponses []IntegrationResponse `json:"integrationResponses"`
	MethodResponses      []MethodResponse      `json:"methodResponses"`
}

func (*DirectIntegration) Type() IntegrationType { return IntegrationTypeAPI }
func (*DirectIntegration) isRouteIntegration()   {}

// IntegrationResponse maps downstream responses to a status code.
type IntegrationResponse struct {
	StatusCode        string            `json:"statusCode"`
	SelectionPattern  string            `json:"selectionPattern,omitempty"`
	ResponseTemplates map[string]string `json:"responseTemplates"`
}

// MethodResponse declares a response shape of the public method.
type MethodResponse struct {
	StatusCode     string            `json:"statusCode"`
	ResponseModels map[string]string `json:"responseModels,omitempty"`
}

// MediatedIntegration routes requests through a mediating function.
type MediatedIntegration struct {
	Function FunctionConfig `json:"function"`
}

func (*MediatedIntegration) Type() IntegrationType { return IntegrationTypeLambda }
func (*MediatedIntegration) isRouteIntegration()   {}

// FunctionConfig is the declared configuration of a mediating function.
type FunctionConfig struct {
	Name           string            `json:"name"`
	Principal      string            `json:"principal"`
	Code           string            `json:"code"`
	Handler        string            `json:"handler"`
	Runtime        string            `json:"runtime"`
	TimeoutSeconds int32             `json:"timeoutSeconds"`
	MemoryMB       int32             `json:"memoryMB"`
	Layers         []LayerRef        `json:"layers,omitempty"`
	Environment    map[string]string `json:"environment"`
}

// LayerRef references a layer version attached to a function.
type LayerRef struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}
