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
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/google/go-cmp/cmp"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
	"github.com/llm-d/llm-d-model-api-planner/internal/metrics"
	"github.com/llm-d/llm-d-model-api-planner/internal/permissions"
	"github.com/llm-d/llm-d-model-api-planner/internal/resolver"
	"github.com/llm-d/llm-d-model-api-planner/internal/schema"
)

const (
	bertImage    = "763104351884.dkr.ecr.us-east-1.amazonaws.com/huggingface-pytorch-inference:2.1"
	bertArtifact = "s3://jumpstart-cache-prod-us-east-1/huggingface-infer/bert.tar.gz"
	packageARN   = "arn:aws:sagemaker:us-east-1:123456789012:model-package/x"
)

// stubLookup serves huggingface-bert and counts calls.
type stubLookup struct {
	calls atomic.Int32
}

func (s *stubLookup) Lookup(_ context.Context, modelID, instanceType, region string) (resolver.ModelArtifacts, error) {
	s.calls.Add(1)
	if modelID != "huggingface-bert" {
		return resolver.ModelArtifacts{}, fmt.Errorf("%s on %s in %s: %w", modelID, instanceType, region, resolver.ErrNotFound)
	}
	return resolver.ModelArtifacts{Image: bertImage, ArtifactURL: bertArtifact}, nil
}

func parse(doc string) any {
	tree, err := schema.Parse([]byte(doc))
	Expect(err).NotTo(HaveOccurred())
	return tree
}

func newCompiler(lookup resolver.Lookup, strategy resolver.Strategy, m *metrics.Metrics) *Compiler {
	res, err := resolver.NewResolver(lookup, resolver.Options{
		Region:      "us-east-1",
		Strategy:    strategy,
		Parallelism: 4,
	})
	Expect(err).NotTo(HaveOccurred())
	c, err := NewCompiler(res, Options{
		AccountID: "123456789012",
		Defaults:  config.BuiltinDefaults(),
		Metrics:   m,
	})
	Expect(err).NotTo(HaveOccurred())
	return c
}

const mixedConfig = `{
	"models": [
		{"name": "bert", "model_id": "huggingface-bert", "instance": "ml.m5.xlarge",
		 "integration": {"type": "api", "headers": ["X-Amzn-SageMaker-Custom-Attributes"]}},
		{"name": "summarizer", "model_package_arn": "arn:aws:sagemaker:us-east-1:123456789012:model-package/sum/1",
		 "instance": "ml.g5.xlarge",
		 "autoscaling": {"max_capacity": 4, "min_capacity": 2, "invocations_per_instance": 30},
		 "integration": {"type": "lambda", "properties": {
			"code": "functions/summarizer", "permissions": ["sagemaker:InvokeEndpoint"], "timeout": 20}}}
	],
	"endpoints": [
		{"name": "legacy", "integration": {"type": "api"}},
		{"name": "translator", "integration": {"type": "lambda", "properties": {
			"code": "functions/translator", "permissions": [], "timeout": 29, "memory": 256}}}
	]
}`

var _ = Describe("Compiler", func() {
	var (
		ctx    context.Context
		lookup *stubLookup
	)

	BeforeEach(func() {
		ctx = context.Background()
		lookup = &stubLookup{}
	})

	Context("for a model_id entry with a direct integration", func() {
		It("should compile one endpoint with default autoscaling and one direct route", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			plan, err := c.Compile(ctx, parse(`{"models":[{"name":"bert","model_id":"huggingface-bert","instance":"ml.m5.xlarge","integration":{"type":"api"}}]}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(plan.Endpoints).To(HaveLen(1))
			ep := plan.Endpoints[0]
			Expect(ep.Name).To(Equal("bert"))
			Expect(ep.EndpointName).To(Equal("bert-endpoint"))
			Expect(ep.InstanceType).To(Equal("ml.m5.xlarge"))
			Expect(ep.InitialInstanceCount).To(Equal(int32(1)))
			Expect(ep.Autoscaling.MinCapacity).To(Equal(int32(1)))
			Expect(ep.Autoscaling.MaxCapacity).To(Equal(int32(1)))
			Expect(ep.Autoscaling.TargetValue).To(Equal(int32(5)))
			Expect(ep.Source).To(Equal(&v1alpha1.LookupSource{
				Image:    bertImage,
				Artifact: v1alpha1.ArtifactLocation{Bucket: "jumpstart-cache-prod-us-east-1", Key: "huggingface-infer/bert.tar.gz"},
			}))

			Expect(plan.Routes).To(HaveLen(1))
			Expect(plan.Routes[0].Path).To(Equal("bert"))
			Expect(plan.Routes[0].State).To(Equal(v1alpha1.RouteDirectBound))
			Expect(plan.Routes[0].Integration).To(BeAssignableToTypeOf(&v1alpha1.DirectIntegration{}))
			Expect(lookup.calls.Load()).To(Equal(int32(1)))
		})
	})

	Context("with a package-backed entry", func() {
		It("should compile without calling the lookup", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			plan, err := c.Compile(ctx, parse(`{"models":[{"name":"bert","model_package_arn":"`+packageARN+`","instance":"ml.m5.xlarge","integration":{"type":"api"}}]}`))
			Expect(err).NotTo(HaveOccurred())

			Expect(lookup.calls.Load()).To(BeZero())
			Expect(plan.Endpoints).To(HaveLen(1))
			Expect(plan.Endpoints[0].Source).To(Equal(&v1alpha1.PackageSource{ModelPackageARN: packageARN}))
			Expect(plan.Endpoints[0].NetworkIsolation).To(BeTrue())
			Expect(plan.Routes[0].Path).To(Equal("bert"))
		})
	})

	Context("for an entry declaring both model sources", func() {
		It("should fail validation with a model source conflict", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			plan, err := c.Compile(ctx, parse(`{"models":[{"name":"bert","model_id":"huggingface-bert","model_package_arn":"`+packageARN+`","instance":"ml.m5.xlarge","integration":{"type":"api"}}]}`))

			Expect(plan).To(BeNil())
			Expect(errdefs.IsModelSourceConflict(err)).To(BeTrue())
			Expect(errdefs.IsSchemaViolation(err)).To(BeTrue())
			Expect(errdefs.StageOf(err)).To(Equal(StageValidate))
			Expect(lookup.calls.Load()).To(BeZero())
		})
	})

	Context("with a lambda integration without properties", func() {
		It("should fail validation citing the missing properties", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			_, err := c.Compile(ctx, parse(`{"models":[{"name":"bert","model_id":"huggingface-bert","instance":"ml.m5.xlarge","integration":{"type":"lambda"}}]}`))

			var violation *errdefs.SchemaViolation
			Expect(err).To(BeAssignableToTypeOf(&errdefs.TerminalError{}))
			Expect(errorsAs(err, &violation)).To(BeTrue())
			Expect(violation.Path.String()).To(Equal("models[0].integration.properties"))
			Expect(violation.Rule).To(Equal(errdefs.RuleRequired))
		})
	})

	Context("with models and pre-existing endpoints", func() {
		It("should order routes models first then endpoints", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			plan, err := c.Compile(ctx, parse(mixedConfig))
			Expect(err).NotTo(HaveOccurred())

			var paths []string
			for _, r := range plan.Routes {
				paths = append(paths, r.Path)
			}
			Expect(paths).To(Equal([]string{"bert", "summarizer", "legacy", "translator"}))
			Expect(plan.Routes[2].EndpointName).To(Equal("legacy"))
			Expect(plan.Routes[3].Integration.(*v1alpha1.MediatedIntegration).Function.Environment).
				To(HaveKeyWithValue("ENDPOINT_NAME", "translator"))
		})

		It("should partition permissions by principal", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			plan, err := c.Compile(ctx, parse(mixedConfig))
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, p := range plan.Permissions.Principals {
				names = append(names, p.Name)
			}
			Expect(names).To(Equal([]string{
				permissions.RoutingPrincipal,
				permissions.EndpointExecutionPrincipal,
				"RoleLambda-summarizer",
				"RoleLambda-translator",
			}))

			routing, ok := plan.Permissions.Principal(permissions.RoutingPrincipal)
			Expect(ok).To(BeTrue())
			Expect(routing.Statements[0].Resources).To(Equal([]string{
				"arn:aws:sagemaker:us-east-1:123456789012:endpoint/bert-endpoint*",
				"arn:aws:sagemaker:us-east-1:123456789012:endpoint/summarizer-endpoint*",
				"arn:aws:sagemaker:us-east-1:123456789012:endpoint/legacy*",
				"arn:aws:sagemaker:us-east-1:123456789012:endpoint/translator*",
			}))

			for _, fn := range plan.Permissions.ByKind(v1alpha1.PrincipalFunction) {
				Expect(fn.ManagedPolicies).To(ContainElement(permissions.FunctionManagedPolicy))
			}
			translator, _ := plan.Permissions.Principal("RoleLambda-translator")
			Expect(translator.Statements).To(BeEmpty())
		})

		It("should fill the metadata", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			plan, err := c.Compile(ctx, parse(mixedConfig))
			Expect(err).NotTo(HaveOccurred())

			Expect(plan.Metadata.Region).To(Equal("us-east-1"))
			Expect(plan.Metadata.ConfigHash).To(HaveLen(64))
			Expect(plan.Metadata.Summary).To(Equal(v1alpha1.PlanSummary{
				Endpoints: 2, Routes: 4, DirectRoutes: 2, MediatedRoutes: 2, Principals: 4,
			}))
			Expect(plan.API.Name).To(Equal(APIName))
			Expect(plan.API.CORS.AllowOrigins).To(Equal([]string{"*"}))
		})

		It("should be deterministic across compilations and strategies", func() {
			first, err := newCompiler(lookup, resolver.SequentialStrategy, nil).Compile(ctx, parse(mixedConfig))
			Expect(err).NotTo(HaveOccurred())
			second, err := newCompiler(lookup, resolver.ConcurrentStrategy, nil).Compile(ctx, parse(mixedConfig))
			Expect(err).NotTo(HaveOccurred())

			Expect(cmp.Diff(first, second)).To(BeEmpty())

			a, err := json.Marshal(first)
			Expect(err).NotTo(HaveOccurred())
			b, err := json.Marshal(second)
			Expect(err).NotTo(HaveOccurred())
			Expect(a).To(MatchJSON(b))
		})

		It("should record compilation metrics", func() {
			m := metrics.New()
			c := newCompiler(lookup, resolver.SequentialStrategy, m)
			_, err := c.Compile(ctx, parse(mixedConfig))
			Expect(err).NotTo(HaveOccurred())
			_, err = c.Compile(ctx, parse(`{"endpoints": []}`))
			Expect(err).To(HaveOccurred())

			count, err := testutil.GatherAndCount(m.Registry(), "model_api_planner_compilations_total")
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(2))
		})
	})

	Context("when compilation fails after validation", func() {
		It("should abort on a resolution failure without a partial plan", func() {
			c := newCompiler(lookup, resolver.ConcurrentStrategy, nil)
			plan, err := c.Compile(ctx, parse(`{"models":[
				{"name":"bert","model_id":"huggingface-bert","instance":"ml.m5.xlarge","integration":{"type":"api"}},
				{"name":"gpt","model_id":"unknown-model","instance":"ml.m5.xlarge","integration":{"type":"api"}}]}`))

			Expect(plan).To(BeNil())
			Expect(errdefs.IsModelResolution(err)).To(BeTrue())
			Expect(errdefs.StageOf(err)).To(Equal(StageResolve))
			Expect(errdefs.IsTerminal(err)).To(BeTrue())
		})

		It("should reject entries deriving the same endpoint name", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			cfg := &v1alpha1.ModelAPIConfig{Models: []v1alpha1.ModelEntry{
				{Name: "foo", ModelPackageARN: packageARN, Instance: "ml.m5.xlarge", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI}},
				{Name: "foo", ModelPackageARN: packageARN, Instance: "ml.m5.xlarge", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI}},
			}}

			plan, err := c.CompileConfig(ctx, cfg)
			Expect(plan).To(BeNil())
			Expect(errdefs.IsDuplicateName(err)).To(BeTrue())
			Expect(errdefs.StageOf(err)).To(Equal(StageNames))
		})

		It("should reject a model and an endpoint sharing a route path", func() {
			c := newCompiler(lookup, resolver.SequentialStrategy, nil)
			_, err := c.Compile(ctx, parse(`{
				"models":[{"name":"bert","model_package_arn":"`+packageARN+`","instance":"ml.m5.xlarge","integration":{"type":"api"}}],
				"endpoints":[{"name":"bert","integration":{"type":"api"}}]}`))

			var dup *errdefs.DuplicateNameError
			Expect(errorsAs(err, &dup)).To(BeTrue())
			Expect(dup.Entries).To(Equal([]string{"model bert", "endpoint bert"}))
			Expect(errdefs.StageOf(err)).To(Equal(StageRoutes))
		})
	})

	Context("with a typed configuration", func() {
		var c *Compiler

		BeforeEach(func() {
			c = newCompiler(lookup, resolver.SequentialStrategy, nil)
		})

		It("should reject an entry declaring both model sources before any lookup", func() {
			cfg := &v1alpha1.ModelAPIConfig{Models: []v1alpha1.ModelEntry{{
				Name: "bert", ModelID: "huggingface-bert", ModelPackageARN: packageARN,
				Instance: "ml.m5.xlarge", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI},
			}}}

			plan, err := c.CompileConfig(ctx, cfg)
			Expect(plan).To(BeNil())
			Expect(errdefs.IsModelSourceConflict(err)).To(BeTrue())
			Expect(errdefs.StageOf(err)).To(Equal(StageValidate))
			Expect(lookup.calls.Load()).To(BeZero())
		})

		It("should reject a name that is not a valid route path", func() {
			cfg := &v1alpha1.ModelAPIConfig{Models: []v1alpha1.ModelEntry{{
				Name: "Bert", ModelPackageARN: packageARN,
				Instance: "ml.m5.xlarge", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI},
			}}}

			_, err := c.CompileConfig(ctx, cfg)
			var violation *errdefs.SchemaViolation
			Expect(errorsAs(err, &violation)).To(BeTrue())
			Expect(violation.Path.String()).To(Equal("models[0].name"))
			Expect(violation.Rule).To(Equal(errdefs.RulePattern))
			Expect(errdefs.StageOf(err)).To(Equal(StageValidate))
		})

		It("should reject a lambda integration without properties", func() {
			cfg := &v1alpha1.ModelAPIConfig{Endpoints: []v1alpha1.EndpointEntry{
				{Name: "legacy", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeLambda}},
			}}

			_, err := c.CompileConfig(ctx, cfg)
			var violation *errdefs.SchemaViolation
			Expect(errorsAs(err, &violation)).To(BeTrue())
			Expect(violation.Path.String()).To(Equal("endpoints[0].integration.properties"))
			Expect(errdefs.StageOf(err)).To(Equal(StageValidate))
		})

		It("should reject an unsupported integration type", func() {
			cfg := &v1alpha1.ModelAPIConfig{Endpoints: []v1alpha1.EndpointEntry{
				{Name: "legacy", Integration: v1alpha1.IntegrationSpec{Type: "grpc"}},
			}}

			_, err := c.CompileConfig(ctx, cfg)
			var violation *errdefs.SchemaViolation
			Expect(errorsAs(err, &violation)).To(BeTrue())
			Expect(violation.Rule).To(Equal(errdefs.RuleEnum))
		})

		It("should reject inverted autoscaling bounds", func() {
			cfg := &v1alpha1.ModelAPIConfig{Models: []v1alpha1.ModelEntry{{
				Name: "bert", ModelPackageARN: packageARN, Instance: "ml.m5.xlarge",
				Autoscaling: &v1alpha1.AutoscalingSpec{MaxCapacity: 1, MinCapacity: 2, InvocationsPerInstance: 5},
				Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI},
			}}}

			_, err := c.CompileConfig(ctx, cfg)
			var violation *errdefs.SchemaViolation
			Expect(errorsAs(err, &violation)).To(BeTrue())
			Expect(violation.Path.String()).To(Equal("models[0].autoscaling.max_capacity"))
		})
	})

	It("should reject zero-valued defaults", func() {
		res, err := resolver.NewResolver(lookup, resolver.Options{Region: "us-east-1"})
		Expect(err).NotTo(HaveOccurred())
		_, err = NewCompiler(res, Options{})
		Expect(err).To(MatchError(ContainSubstring("maxCapacity")))
	})

	It("should require a resolver", func() {
		_, err := NewCompiler(nil, Options{Defaults: config.BuiltinDefaults()})
		Expect(err).To(HaveOccurred())
	})
})
