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

package catalog

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
	"github.com/llm-d/llm-d-model-api-planner/internal/resolver"
)

// File is a catalog read from a YAML document.
type File struct {
	Models []Entry `yaml:"models"`

	index map[string]int
}

// ParseFile parses a YAML catalog. Invalid entries are rejected; for duplicate
// ids the first entry wins.
func ParseFile(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	kept := make([]Entry, 0, len(f.Models))
	f.index = make(map[string]int, len(f.Models))
	for i := range f.Models {
		e := f.Models[i]
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid catalog entry %d: %w", i, err)
		}
		if first, exists := f.index[e.ModelID]; exists {
			ctrl.Log.Info("Duplicate model id in catalog - first entry wins",
				"modelId", e.ModelID,
				"winningEntry", first,
				"duplicateEntry", i)
			continue
		}
		f.index[e.ModelID] = len(kept)
		kept = append(kept, e)
	}
	f.Models = kept

	ctrl.Log.V(logging.DEBUG).Info("Parsed model catalog", "modelCount", len(f.Models))
	return &f, nil
}

// LoadFile reads and parses the catalog at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseFile(data)
}

// Entry returns the catalog entry for modelID.
func (f *File) Entry(modelID string) (Entry, bool) {
	i, ok := f.index[modelID]
	if !ok {
		return Entry{}, false
	}
	return f.Models[i], true
}

// Lookup implements resolver.Lookup.
func (f *File) Lookup(ctx context.Context, modelID, instanceType, region string) (resolver.ModelArtifacts, error) {
	if err := ctx.Err(); err != nil {
		return resolver.ModelArtifacts{}, err
	}
	e, ok := f.Entry(modelID)
	if !ok {
		return resolver.ModelArtifacts{}, fmt.Errorf("model %q: %w", modelID, resolver.ErrNotFound)
	}
	if !e.Supports(instanceType, region) {
		return resolver.ModelArtifacts{}, fmt.Errorf("model %q does not support instance %q in region %q: %w",
			modelID, instanceType, region, resolver.ErrNotFound)
	}
	return e.Artifacts(instanceType, region), nil
}
