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

package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
	"github.com/llm-d/llm-d-model-api-planner/internal/metrics"
)

// Strategy is an enumeration of the ways ResolveAll dispatches lookups.
type Strategy int

// enumeration of Strategy
const (
	SequentialStrategy Strategy = iota
	ConcurrentStrategy
)

func (s Strategy) String() string {
	switch s {
	case SequentialStrategy:
		return config.SequentialResolution
	case ConcurrentStrategy:
		return config.ConcurrentResolution
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// ParseStrategy converts a configured strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", config.SequentialResolution:
		return SequentialStrategy, nil
	case config.ConcurrentResolution:
		return ConcurrentStrategy, nil
	default:
		return 0, fmt.Errorf("unsupported resolution strategy: %q", name)
	}
}

// Options configure a Resolver.
type Options struct {
	Region   string
	Strategy Strategy
	// Parallelism bounds in-flight lookups for ConcurrentStrategy.
	Parallelism int
	// LookupTimeout bounds each lookup. Zero means no timeout.
	LookupTimeout time.Duration
	Metrics       *metrics.Metrics
}

// Resolver resolves the model source of model entries.
type Resolver struct {
	lookup Lookup
	opts   Options
}

// NewResolver returns a Resolver using lookup for model_id entries. lookup may
// be nil when every entry is package backed.
func NewResolver(lookup Lookup, opts Options) (*Resolver, error) {
	if opts.Region == "" {
		return nil, errors.New("resolver: region is required")
	}
	switch opts.Strategy {
	case SequentialStrategy:
	case ConcurrentStrategy:
		if opts.Parallelism < 1 {
			return nil, fmt.Errorf("resolver: parallelism must be >= 1, got %d", opts.Parallelism)
		}
	default:
		return nil, fmt.Errorf("unsupported resolution strategy: %v", opts.Strategy)
	}
	return &Resolver{lookup: lookup, opts: opts}, nil
}

// Region returns the region lookups are made for.
func (r *Resolver) Region() string { return r.opts.Region }

// Resolve returns the model source of entry deployed on instanceType. Package
// backed entries never reach the Lookup.
func (r *Resolver) Resolve(ctx context.Context, entry *v1alpha1.ModelEntry, instanceType string) (v1alpha1.ModelSource, error) {
	logger := ctrl.LoggerFrom(ctx).WithValues("model", entry.Name)

	if entry.HasModelPackage() {
		logger.V(logging.TRACE).Info("Model is package backed, skipping lookup",
			"modelPackageArn", entry.ModelPackageARN)
		return &v1alpha1.PackageSource{ModelPackageARN: entry.ModelPackageARN}, nil
	}

	wrap := func(err error) error {
		return &errdefs.ModelResolutionError{
			Model:        entry.Name,
			ModelID:      entry.ModelID,
			InstanceType: instanceType,
			Region:       r.opts.Region,
			Err:          err,
		}
	}
	if r.lookup == nil {
		return nil, wrap(ErrNoLookup)
	}

	lookupCtx := ctx
	if r.opts.LookupTimeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, r.opts.LookupTimeout)
		defer cancel()
	}

	start := time.Now()
	artifacts, err := r.lookup.Lookup(lookupCtx, entry.ModelID, instanceType, r.opts.Region)
	elapsed := time.Since(start)
	if err != nil {
		outcome := metrics.LookupError
		if errors.Is(err, ErrNotFound) {
			outcome = metrics.LookupNotFound
		}
		r.opts.Metrics.ObserveLookup(elapsed, outcome)
		return nil, wrap(err)
	}
	r.opts.Metrics.ObserveLookup(elapsed, metrics.LookupHit)

	location, err := ParseArtifactURL(artifacts.ArtifactURL)
	if err != nil {
		return nil, wrap(err)
	}
	if artifacts.Image == "" {
		return nil, wrap(errors.New("lookup returned an empty image"))
	}

	logger.V(logging.DEBUG).Info("Resolved model source",
		"modelId", entry.ModelID,
		"instanceType", instanceType,
		"image", artifacts.Image,
		"artifact", location.URL(),
		"duration", elapsed)

	return &v1alpha1.LookupSource{Image: artifacts.Image, Artifact: location}, nil
}

// ResolveAll resolves every entry and returns the sources in entry order. The
// first failure aborts the remaining lookups and is returned.
func (r *Resolver) ResolveAll(ctx context.Context, entries []v1alpha1.ModelEntry) ([]v1alpha1.ModelSource, error) {
	sources := make([]v1alpha1.ModelSource, len(entries))

	switch r.opts.Strategy {
	case SequentialStrategy:
		for i := range entries {
			src, err := r.Resolve(ctx, &entries[i], entries[i].Instance)
			if err != nil {
				return nil, err
			}
			sources[i] = src
		}
	case ConcurrentStrategy:
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(r.opts.Parallelism)
		for i := range entries {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				src, err := r.Resolve(gctx, &entries[i], entries[i].Instance)
				if err != nil {
					return err
				}
				sources[i] = src
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported resolution strategy: %v", r.opts.Strategy)
	}

	return sources, nil
}
