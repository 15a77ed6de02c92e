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

package plan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/endpoint"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
	"github.com/llm-d/llm-d-model-api-planner/internal/metrics"
	"github.com/llm-d/llm-d-model-api-planner/internal/permissions"
	"github.com/llm-d/llm-d-model-api-planner/internal/resolver"
	"github.com/llm-d/llm-d-model-api-planner/internal/route"
	"github.com/llm-d/llm-d-model-api-planner/internal/schema"
)

// Compilation stages, reported by errdefs.StageOf on failure.
const (
	StageValidate    = "validate"
	StageResolve     = "resolve"
	StageEndpoints   = "endpoints"
	StageNames       = "names"
	StagePermissions = "permissions"
	StageRoutes      = "routes"
)

// Options configure a Compiler.
type Options struct {
	// AccountID scopes endpoint resource patterns. Empty means any account.
	AccountID string
	Defaults  config.PlanDefaults
	Metrics   *metrics.Metrics
}

// Compiler compiles configuration documents into deployment plans. A
// Compiler holds no state between compilations.
type Compiler struct {
	resolver *resolver.Resolver
	opts     Options
}

// NewCompiler returns a Compiler resolving model sources with res.
func NewCompiler(res *resolver.Resolver, opts Options) (*Compiler, error) {
	if res == nil {
		return nil, errors.New("compiler: resolver is required")
	}
	if err := opts.Defaults.Validate(); err != nil {
		return nil, fmt.Errorf("compiler: %w", err)
	}
	return &Compiler{resolver: res, opts: opts}, nil
}

// Compile validates doc, an untyped configuration tree, and compiles it.
func (c *Compiler) Compile(ctx context.Context, doc any) (*v1alpha1.DeploymentPlan, error) {
	start := time.Now()
	cfg, err := schema.Validate(doc)
	if err != nil {
		err = errdefs.Terminal(StageValidate, err)
		c.opts.Metrics.ObserveCompilation(time.Since(start), StageValidate, err)
		return nil, err
	}
	return c.CompileConfig(ctx, cfg)
}

// CompileConfig checks a typed configuration with schema.ValidateConfig and
// compiles it. Nothing is returned unless every stage succeeds.
func (c *Compiler) CompileConfig(ctx context.Context, cfg *v1alpha1.ModelAPIConfig) (*v1alpha1.DeploymentPlan, error) {
	start := time.Now()
	if err := schema.ValidateConfig(cfg); err != nil {
		err = errdefs.Terminal(StageValidate, err)
		c.opts.Metrics.ObserveCompilation(time.Since(start), StageValidate, err)
		return nil, err
	}
	plan, err := c.compile(ctx, cfg)
	c.opts.Metrics.ObserveCompilation(time.Since(start), errdefs.StageOf(err), err)
	if err != nil {
		return nil, err
	}
	c.opts.Metrics.ObservePlan(plan.Metadata.Summary)
	return plan, nil
}

func (c *Compiler) compile(ctx context.Context, cfg *v1alpha1.ModelAPIConfig) (*v1alpha1.DeploymentPlan, error) {
	logger := ctrl.LoggerFrom(ctx)
	region := c.resolver.Region()

	hash, err := ConfigHash(cfg)
	if err != nil {
		return nil, errdefs.Terminal(StageValidate, err)
	}

	acc := permissions.NewAccumulator()
	planner := permissions.NewPlanner(acc, region, c.opts.AccountID)
	b := NewBuilder(region, acc)
	b.SetConfigHash(hash)

	logger.V(logging.DEBUG).Info("Compiling configuration",
		"configHash", hash,
		"models", len(cfg.Models),
		"endpoints", len(cfg.Endpoints))

	sources, err := c.resolver.ResolveAll(ctx, cfg.Models)
	if err != nil {
		return nil, errdefs.Terminal(StageResolve, err)
	}

	for i := range cfg.Models {
		spec, err := endpoint.Build(&cfg.Models[i], sources[i], c.opts.Defaults.Autoscaling)
		if err != nil {
			return nil, errdefs.Terminal(StageEndpoints, err)
		}
		b.AddEndpoint(spec)
	}

	if err := endpoint.CheckNames(b.Endpoints()); err != nil {
		return nil, errdefs.Terminal(StageNames, err)
	}

	if err := planner.Accumulate(b.Endpoints(), cfg.Endpoints); err != nil {
		return nil, errdefs.Terminal(StagePermissions, err)
	}

	routes := route.NewBuilder(planner, c.opts.Defaults.Function)
	specs := b.Endpoints()
	for i := range cfg.Models {
		r, err := routes.Build(route.ModelTarget(&cfg.Models[i], &specs[i]))
		if err != nil {
			return nil, errdefs.Terminal(StageRoutes, err)
		}
		b.AddRoute(r)
	}
	for i := range cfg.Endpoints {
		r, err := routes.Build(route.EndpointTarget(&cfg.Endpoints[i]))
		if err != nil {
			return nil, errdefs.Terminal(StageRoutes, err)
		}
		b.AddRoute(r)
	}

	plan := b.Build()
	logger.Info("Compiled deployment plan",
		"configHash", hash,
		"endpoints", plan.Metadata.Summary.Endpoints,
		"routes", plan.Metadata.Summary.Routes,
		"principals", plan.Metadata.Summary.Principals)
	return plan, nil
}

// ConfigHash returns the hex SHA-256 of the canonical JSON encoding of cfg.
func ConfigHash(cfg *v1alpha1.ModelAPIConfig) (string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("failed to encode configuration: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
