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

// Package catalog implements the model lookup collaborator. A catalog maps a
// model identifier to the container image and artifacts that serve it, per
// instance family and region. Catalogs are read from YAML files or from a
// SQLite store populated from them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/llm-d/llm-d-model-api-planner/internal/resolver"
)

// RegionPlaceholder is substituted with the lookup region in images and artifacts.
const RegionPlaceholder = "{region}"

// acceleratedFamilies are instance family prefixes served by the GPU image.
var acceleratedFamilies = []string{"ml.g", "ml.p", "ml.inf", "ml.trn"}

// Entry is one model of the catalog.
type Entry struct {
	// ModelID is the identifier model entries reference.
	ModelID string `yaml:"id" json:"id"`

	// Image is the inference image, may contain {region}.
	Image string `yaml:"image" json:"image"`

	// GPUImage replaces Image on accelerated instance families when set.
	GPUImage string `yaml:"gpuImage,omitempty" json:"gpuImage,omitempty"`

	// Artifact is the s3:// URL of the model artifacts, may contain {region}.
	Artifact string `yaml:"artifact" json:"artifact"`

	// InstanceFamilies restricts the entry to instance families such as "ml.g5".
	// Empty means every family.
	InstanceFamilies []string `yaml:"instanceFamilies,omitempty" json:"instanceFamilies,omitempty"`

	// Regions restricts the entry to regions. Empty means every region.
	Regions []string `yaml:"regions,omitempty" json:"regions,omitempty"`
}

// Validate checks the entry for missing fields.
func (e *Entry) Validate() error {
	if e.ModelID == "" {
		return fmt.Errorf("id is required")
	}
	if e.Image == "" {
		return fmt.Errorf("model %q: image is required", e.ModelID)
	}
	if e.Artifact == "" {
		return fmt.Errorf("model %q: artifact is required", e.ModelID)
	}
	if _, err := resolver.ParseArtifactURL(expand(e.Artifact, "us-east-1")); err != nil {
		return fmt.Errorf("model %q: %w", e.ModelID, err)
	}
	return nil
}

// Supports reports whether the entry serves instanceType in region.
func (e *Entry) Supports(instanceType, region string) bool {
	if len(e.Regions) > 0 && !contains(e.Regions, region) {
		return false
	}
	if len(e.InstanceFamilies) > 0 && !contains(e.InstanceFamilies, InstanceFamily(instanceType)) {
		return false
	}
	return true
}

// Artifacts renders the image and artifact URL for instanceType in region.
func (e *Entry) Artifacts(instanceType, region string) resolver.ModelArtifacts {
	image := e.Image
	if e.GPUImage != "" && IsAccelerated(instanceType) {
		image = e.GPUImage
	}
	return resolver.ModelArtifacts{
		Image:       expand(image, region),
		ArtifactURL: expand(e.Artifact, region),
	}
}

// InstanceFamily returns the family of an instance type, "ml.g5" for "ml.g5.xlarge".
func InstanceFamily(instanceType string) string {
	if i := strings.LastIndex(instanceType, "."); i > 0 {
		return instanceType[:i]
	}
	return instanceType
}

// IsAccelerated reports whether instanceType belongs to a GPU or accelerator family.
func IsAccelerated(instanceType string) bool {
	for _, prefix := range acceleratedFamilies {
		if strings.HasPrefix(instanceType, prefix) {
			return true
		}
	}
	return false
}

func expand(s, region string) string {
	return strings.ReplaceAll(s, RegionPlaceholder, region)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
