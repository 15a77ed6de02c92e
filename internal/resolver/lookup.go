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

// Package resolver turns model entries into resolved model sources. Package
// backed entries resolve locally; model_id entries go through a Lookup.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
)

var (
	// ErrNotFound is returned by a Lookup that has no image and artifact for
	// the requested model, instance type and region.
	ErrNotFound = errdefs.ErrNotFound

	// ErrNoLookup is returned when a model_id entry is resolved without a Lookup.
	ErrNoLookup = errors.New("no model catalog configured")

	// ErrInvalidArtifact is returned for artifact URLs that are not s3://bucket/key.
	ErrInvalidArtifact = errors.New("invalid artifact url")
)

// ModelArtifacts is what a Lookup returns for a model.
type ModelArtifacts struct {
	// Image is the inference container image.
	Image string
	// ArtifactURL is the s3:// URL of the model artifacts.
	ArtifactURL string
}

// Lookup maps a model identifier to the image and artifacts to deploy it with
// on an instance type in a region.
type Lookup interface {
	Lookup(ctx context.Context, modelID, instanceType, region string) (ModelArtifacts, error)
}

// LookupFunc adapts a function to the Lookup interface.
type LookupFunc func(ctx context.Context, modelID, instanceType, region string) (ModelArtifacts, error)

func (f LookupFunc) Lookup(ctx context.Context, modelID, instanceType, region string) (ModelArtifacts, error) {
	return f(ctx, modelID, instanceType, region)
}

// ParseArtifactURL splits an s3://bucket/key URL at the first slash after the
// bucket. The key is kept verbatim, including any '?', '#' or '%'.
func ParseArtifactURL(raw string) (v1alpha1.ArtifactLocation, error) {
	rest, ok := strings.CutPrefix(raw, "s3://")
	if !ok {
		return v1alpha1.ArtifactLocation{}, fmt.Errorf("%w %q: want s3://bucket/key", ErrInvalidArtifact, raw)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return v1alpha1.ArtifactLocation{}, fmt.Errorf("%w %q: want s3://bucket/key", ErrInvalidArtifact, raw)
	}
	return v1alpha1.ArtifactLocation{Bucket: bucket, Key: key}, nil
}
