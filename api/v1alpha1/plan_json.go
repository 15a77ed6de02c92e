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

import (
	"encoding/json"
	"fmt"
)

// modelSourceJSON is the wire form of ModelSource, discriminated by Kind.
type modelSourceJSON struct {
	Kind            ModelSourceKind   `json:"kind"`
	ModelPackageARN string            `json:"modelPackageArn,omitempty"`
	Image           string            `json:"image,omitempty"`
	Artifact        *ArtifactLocation `json:"artifact,omitempty"`
	ModelDataURL    string            `json:"modelDataUrl,omitempty"`
}

func encodeModelSource(src ModelSource) (*modelSourceJSON, error) {
	switch s := src.(type) {
	case nil:
		return nil, nil
	case *PackageSource:
		return &modelSourceJSON{Kind: ModelSourcePackage, ModelPackageARN: s.ModelPackageARN}, nil
	case *LookupSource:
		artifact := s.Artifact
		return &modelSourceJSON{
			Kind:         ModelSourceLookup,
			Image:        s.Image,
			Artifact:     &artifact,
			ModelDataURL: artifact.URL(),
		}, nil
	default:
		return nil, fmt.Errorf("unsupported model source %T", src)
	}
}

func decodeModelSource(in *modelSourceJSON) (ModelSource, error) {
	if in == nil {
		return nil, nil
	}
	switch in.Kind {
	case ModelSourcePackage:
		return &PackageSource{ModelPackageARN: in.ModelPackageARN}, nil
	case ModelSourceLookup:
		out := &LookupSource{Image: in.Image}
		if in.Artifact != nil {
			out.Artifact = *in.Artifact
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown model source kind %q", in.Kind)
	}
}

// MarshalJSON renders the endpoint with its source variant under "source".
func (e EndpointSpec) MarshalJSON() ([]byte, error) {
	type alias EndpointSpec
	src, err := encodeModelSource(e.Source)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		alias
		Source *modelSourceJSON `json:"source"`
	}{alias: alias(e), Source: src})
}

// UnmarshalJSON decodes the "source" variant.
func (e *EndpointSpec) UnmarshalJSON(data []byte) error {
	type alias EndpointSpec
	aux := struct {
		*alias
		Source *modelSourceJSON `json:"source"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	src, err := decodeModelSource(aux.Source)
	if err != nil {
		return err
	}
	e.Source = src
	return nil
}

// routeIntegrationJSON is the wire form of RouteIntegration, discriminated by Type.
type routeIntegrationJSON struct {
	Type     IntegrationType      `json:"type"`
	Direct   *DirectIntegration   `json:"direct,omitempty"`
	Mediated *MediatedIntegration `json:"mediated,omitempty"`
}

// MarshalJSON renders the route with its integration variant under "integration".
func (r RoutePlan) MarshalJSON() ([]byte, error) {
	type alias RoutePlan
	var integ *routeIntegrationJSON
	switch i := r.Integration.(type) {
	case nil:
	case *DirectIntegration:
		integ = &routeIntegrationJSON{Type: IntegrationTypeAPI, Direct: i}
	case *MediatedIntegration:
		integ = &routeIntegrationJSON{Type: IntegrationTypeLambda, Mediated: i}
	default:
		return nil, fmt.Errorf("unsupported route integration %T", r.Integration)
	}
	return json.Marshal(struct {
		alias
		Integration *routeIntegrationJSON `json:"integration"`
	}{alias: alias(r), Integration: integ})
}

// UnmarshalJSON decodes the "integration" variant.
func (r *RoutePlan) UnmarshalJSON(data []byte) error {
	type alias RoutePlan
	aux := struct {
		*alias
		Integration *routeIntegrationJSON `json:"integration"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Integration = nil
	if aux.Integration == nil {
		return nil
	}
	switch aux.Integration.Type {
	case IntegrationTypeAPI:
		if aux.Integration.Direct == nil {
			return fmt.Errorf("route %q: integration type %q without direct settings", r.Path, aux.Integration.Type)
		}
		r.Integration = aux.Integration.Direct
	case IntegrationTypeLambda:
		if aux.Integration.Mediated == nil {
			return fmt.Errorf("route %q: integration type %q without mediated settings", r.Path, aux.Integration.Type)
		}
		r.Integration = aux.Integration.Mediated
	default:
		return fmt.Errorf("route %q: unknown integration type %q", r.Path, aux.Integration.Type)
	}
	return nil
}
