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

func copyStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func copyStringMap(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModelAPIConfig) DeepCopyInto(out *ModelAPIConfig) {
	*out = *in
	if in.Models != nil {
		out.Models = make([]ModelEntry, len(in.Models))
		for i := range in.Models {
			in.Models[i].DeepCopyInto(&out.Models[i])
		}
	}
	if in.Endpoints != nil {
		out.Endpoints = make([]EndpointEntry, len(in.Endpoints))
		for i := range in.Endpoints {
			in.Endpoints[i].DeepCopyInto(&out.Endpoints[i])
		}
	}
}

// DeepCopy copies the receiver, creating a new ModelAPIConfig.
func (in *ModelAPIConfig) DeepCopy() *ModelAPIConfig {
	if in == nil {
		return nil
	}
	out := new(ModelAPIConfig)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *ModelEntry) DeepCopyInto(out *ModelEntry) {
	*out = *in
	if in.Autoscaling != nil {
		out.Autoscaling = new(AutoscalingSpec)
		*out.Autoscaling = *in.Autoscaling
	}
	in.Integration.DeepCopyInto(&out.Integration)
}

// DeepCopy copies the receiver, creating a new ModelEntry.
func (in *ModelEntry) DeepCopy() *ModelEntry {
	if in == nil {
		return nil
	}
	out := new(ModelEntry)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *EndpointEntry) DeepCopyInto(out *EndpointEntry) {
	*out = *in
	in.Integration.DeepCopyInto(&out.Integration)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *IntegrationSpec) DeepCopyInto(out *IntegrationSpec) {
	*out = *in
	out.Headers = copyStrings(in.Headers)
	if in.Properties != nil {
		out.Properties = new(FunctionProperties)
		in.Properties.DeepCopyInto(out.Properties)
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *FunctionProperties) DeepCopyInto(out *FunctionProperties) {
	*out = *in
	out.Permissions = copyStrings(in.Permissions)
	if in.Timeout != nil {
		out.Timeout = new(int32)
		*out.Timeout = *in.Timeout
	}
	if in.Memory != nil {
		out.Memory = new(int32)
		*out.Memory = *in.Memory
	}
	out.Layers = copyStrings(in.Layers)
	out.Environment = copyStringMap(in.Environment)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *DeploymentPlan) DeepCopyInto(out *DeploymentPlan) {
	*out = *in
	in.API.DeepCopyInto(&out.API)
	if in.Endpoints != nil {
		out.Endpoints = make([]EndpointSpec, len(in.Endpoints))
		for i := range in.Endpoints {
			in.Endpoints[i].DeepCopyInto(&out.Endpoints[i])
		}
	}
	if in.Routes != nil {
		out.Routes = make([]RoutePlan, len(in.Routes))
		for i := range in.Routes {
			in.Routes[i].DeepCopyInto(&out.Routes[i])
		}
	}
	in.Permissions.DeepCopyInto(&out.Permissions)
}

// DeepCopy copies the receiver, creating a new DeploymentPlan.
func (in *DeploymentPlan) DeepCopy() *DeploymentPlan {
	if in == nil {
		return nil
	}
	out := new(DeploymentPlan)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *APISpec) DeepCopyInto(out *APISpec) {
	*out = *in
	out.CORS.AllowOrigins = copyStrings(in.CORS.AllowOrigins)
	out.CORS.AllowMethods = copyStrings(in.CORS.AllowMethods)
	out.CORS.AllowHeaders = copyStrings(in.CORS.AllowHeaders)
}

// DeepCopy copies the receiver, creating a new APISpec.
func (in *APISpec) DeepCopy() *APISpec {
	if in == nil {
		return nil
	}
	out := new(APISpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyModelSource copies the receiver, creating a new ModelSource.
func (in *PackageSource) DeepCopyModelSource() ModelSource {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

// DeepCopyModelSource copies the receiver, creating a new ModelSource.
func (in *LookupSource) DeepCopyModelSource() ModelSource {
	if in == nil {
		return nil
	}
	out := *in
	return &out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *EndpointSpec) DeepCopyInto(out *EndpointSpec) {
	*out = *in
	if in.Source != nil {
		out.Source = in.Source.DeepCopyModelSource()
	}
}

// DeepCopy copies the receiver, creating a new EndpointSpec.
func (in *EndpointSpec) DeepCopy() *EndpointSpec {
	if in == nil {
		return nil
	}
	out := new(EndpointSpec)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PermissionStatement) DeepCopyInto(out *PermissionStatement) {
	*out = *in
	out.Actions = copyStrings(in.Actions)
	out.Resources = copyStrings(in.Resources)
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PrincipalPolicy) DeepCopyInto(out *PrincipalPolicy) {
	*out = *in
	out.ManagedPolicies = copyStrings(in.ManagedPolicies)
	if in.Statements != nil {
		out.Statements = make([]PermissionStatement, len(in.Statements))
		for i := range in.Statements {
			in.Statements[i].DeepCopyInto(&out.Statements[i])
		}
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *PermissionSet) DeepCopyInto(out *PermissionSet) {
	*out = *in
	if in.Principals != nil {
		out.Principals = make([]PrincipalPolicy, len(in.Principals))
		for i := range in.Principals {
			in.Principals[i].DeepCopyInto(&out.Principals[i])
		}
	}
}

// DeepCopyInto copies the receiver, writing into out. in must be non-nil.
func (in *RoutePlan) DeepCopyInto(out *RoutePlan) {
	*out = *in
	if in.Integration != nil {
		out.Integration = in.Integration.DeepCopyRouteIntegration()
	}
}

// DeepCopy copies the receiver, creating a new RoutePlan.
func (in *RoutePlan) DeepCopy() *RoutePlan {
	if in == nil {
		return nil
	}
	out := new(RoutePlan)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyRouteIntegration copies the receiver, creating a new RouteIntegration.
func (in *DirectIntegration) DeepCopyRouteIntegration() RouteIntegration {
	if in == nil {
		return nil
	}
	out := new(DirectIntegration)
	*out = *in
	out.RequiredHeaders = copyStrings(in.RequiredHeaders)
	out.RequestParameters = copyStringMap(in.RequestParameters)
	if in.IntegrationResponses != nil {
		out.IntegrationResponses = make([]IntegrationResponse, len(in.IntegrationResponses))
		for i, r := range in.IntegrationResponses {
			r.ResponseTemplates = copyStringMap(r.ResponseTemplates)
			out.IntegrationResponses[i] = r
		}
	}
	if in.MethodResponses != nil {
		out.MethodResponses = make([]MethodResponse, len(in.MethodResponses))
		for i, r := range in.MethodResponses {
			r.ResponseModels = copyStringMap(r.ResponseModels)
			out.MethodResponses[i] = r
		}
	}
	return out
}

// DeepCopyRouteIntegration copies the receiver, creating a new RouteIntegration.
func (in *MediatedIntegration) DeepCopyRouteIntegration() RouteIntegration {
	if in == nil {
		return nil
	}
	out := new(MediatedIntegration)
	*out = *in
	if in.Function.Layers != nil {
		out.Function.Layers = make([]LayerRef, len(in.Function.Layers))
		copy(out.Function.Layers, in.Function.Layers)
	}
	out.Function.Environment = copyStringMap(in.Function.Environment)
	return out
}
