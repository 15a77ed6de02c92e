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

package route

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
	"github.com/llm-d/llm-d-model-api-planner/internal/permissions"
)

func apiTarget(name string, headers ...string) Target {
	return Target{
		Name:         name,
		EndpointName: name + "-endpoint",
		Integration:  v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI, Headers: headers},
	}
}

func lambdaTarget(name string, props *v1alpha1.FunctionProperties) Target {
	return Target{
		Name:         name,
		EndpointName: name + "-endpoint",
		Integration:  v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeLambda, Properties: props},
	}
}

var _ = Describe("Builder", func() {
	var (
		acc     *permissions.Accumulator
		builder *Builder
	)

	BeforeEach(func() {
		acc = permissions.NewAccumulator()
		builder = NewBuilder(permissions.NewPlanner(acc, "us-east-1", "123456789012"), config.BuiltinDefaults().Function)
	})

	Context("with a direct integration", func() {
		It("should bind the path to the endpoint invocation API", func() {
			plan, err := builder.Build(apiTarget("bert"))
			Expect(err).NotTo(HaveOccurred())

			Expect(plan.Path).To(Equal("bert"))
			Expect(plan.Method).To(Equal("POST"))
			Expect(plan.EndpointName).To(Equal("bert-endpoint"))
			Expect(plan.State).To(Equal(v1alpha1.RouteDirectBound))
			Expect(builder.State("bert")).To(Equal(v1alpha1.RouteDirectBound))

			direct, ok := plan.Integration.(*v1alpha1.DirectIntegration)
			Expect(ok).To(BeTrue())
			Expect(direct.Service).To(Equal("runtime.sagemaker"))
			Expect(direct.HTTPMethod).To(Equal("POST"))
			Expect(direct.Path).To(Equal("endpoints/bert-endpoint/invocations"))
			Expect(direct.CredentialsPrincipal).To(Equal(permissions.RoutingPrincipal))
			Expect(direct.RequiredHeaders).To(Equal([]string{"Content-Type", "Accept"}))
			Expect(direct.RequestParameters).To(Equal(map[string]string{
				"integration.request.header.Content-Type": "method.request.header.Content-Type",
				"integration.request.header.Accept":       "method.request.header.Accept",
			}))
		})

		It("should map success, client and server errors", func() {
			plan, err := builder.Build(apiTarget("bert"))
			Expect(err).NotTo(HaveOccurred())
			direct := plan.Integration.(*v1alpha1.DirectIntegration)

			Expect(direct.IntegrationResponses).To(HaveLen(3))
			Expect(direct.IntegrationResponses[0].StatusCode).To(Equal("200"))
			Expect(direct.IntegrationResponses[0].SelectionPattern).To(BeEmpty())
			Expect(direct.IntegrationResponses[0].ResponseTemplates).To(HaveKeyWithValue("application/json", "$input.json('$')"))
			Expect(direct.IntegrationResponses[1].SelectionPattern).To(Equal(`4\d{2}`))
			Expect(direct.IntegrationResponses[2].SelectionPattern).To(Equal(`5\d{2}`))
			for _, r := range direct.IntegrationResponses[1:] {
				Expect(r.ResponseTemplates).To(HaveKeyWithValue("application/json", `{ "error": $input.path("$.OriginalMessage") }`))
			}

			Expect(direct.MethodResponses).To(Equal([]v1alpha1.MethodResponse{
				{StatusCode: "200"},
				{StatusCode: "400", ResponseModels: map[string]string{"application/json": "Error"}},
				{StatusCode: "500", ResponseModels: map[string]string{"application/json": "Error"}},
			}))
		})

		It("should union declared headers without duplicates", func() {
			plan, err := builder.Build(apiTarget("bert", "X-Custom", "accept", "X-Custom", "X-Trace"))
			Expect(err).NotTo(HaveOccurred())
			direct := plan.Integration.(*v1alpha1.DirectIntegration)

			Expect(direct.RequiredHeaders).To(Equal([]string{"Content-Type", "Accept", "X-Custom", "X-Trace"}))
			Expect(direct.RequestParameters).To(HaveLen(4))
			Expect(direct.RequestParameters).To(HaveKeyWithValue("integration.request.header.X-Trace", "method.request.header.X-Trace"))
		})

		It("should not declare a function principal", func() {
			_, err := builder.Build(apiTarget("bert"))
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.Freeze()).To(BeEmpty())
		})
	})

	Context("with a mediated integration", func() {
		It("should apply function defaults and inject the endpoint name", func() {
			plan, err := builder.Build(lambdaTarget("summarizer", &v1alpha1.FunctionProperties{
				Code:        "functions/summarizer",
				Permissions: []string{},
				Timeout:     ptr.To[int32](29),
			}))
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.State).To(Equal(v1alpha1.RouteMediatedBound))

			mediated, ok := plan.Integration.(*v1alpha1.MediatedIntegration)
			Expect(ok).To(BeTrue())
			fn := mediated.Function
			Expect(fn.Name).To(Equal("LambdaFuncModel-summarizer"))
			Expect(fn.Principal).To(Equal("RoleLambda-summarizer"))
			Expect(fn.Code).To(Equal("functions/summarizer"))
			Expect(fn.Handler).To(Equal("index.lambda_handler"))
			Expect(fn.Runtime).To(Equal("python3.9"))
			Expect(fn.TimeoutSeconds).To(Equal(int32(29)))
			Expect(fn.MemoryMB).To(Equal(int32(128)))
			Expect(fn.Layers).To(BeEmpty())
			Expect(fn.Environment).To(Equal(map[string]string{"ENDPOINT_NAME": "summarizer-endpoint"}))
		})

		It("should honour declared settings and derive layer names", func() {
			plan, err := builder.Build(lambdaTarget("summarizer", &v1alpha1.FunctionProperties{
				Code:        "functions/summarizer",
				Permissions: []string{"s3:GetObject"},
				Timeout:     ptr.To[int32](10),
				Memory:      ptr.To[int32](512),
				Runtime:     "python3.12",
				Layers:      []string{"arn:aws:lambda:us-east-1:123456789012:layer:pandas:3"},
				Environment: map[string]string{"LOG_LEVEL": "debug", "ENDPOINT_NAME": "spoofed"},
			}))
			Expect(err).NotTo(HaveOccurred())
			fn := plan.Integration.(*v1alpha1.MediatedIntegration).Function

			Expect(fn.Runtime).To(Equal("python3.12"))
			Expect(fn.TimeoutSeconds).To(Equal(int32(10)))
			Expect(fn.MemoryMB).To(Equal(int32(512)))
			Expect(fn.Layers).To(Equal([]v1alpha1.LayerRef{{
				Name: "Layer-summarizer-pandas",
				ARN:  "arn:aws:lambda:us-east-1:123456789012:layer:pandas:3",
			}}))
			Expect(fn.Environment).To(Equal(map[string]string{
				"LOG_LEVEL":     "debug",
				"ENDPOINT_NAME": "summarizer-endpoint",
			}))
		})

		It("should give the function the basic execution baseline plus custom permissions", func() {
			_, err := builder.Build(lambdaTarget("summarizer", &v1alpha1.FunctionProperties{
				Code:        "functions/summarizer",
				Permissions: []string{"sagemaker:InvokeEndpoint", "s3:GetObject"},
				Timeout:     ptr.To[int32](29),
			}))
			Expect(err).NotTo(HaveOccurred())

			principals := acc.Freeze()
			Expect(principals).To(HaveLen(1))
			fn := principals[0]
			Expect(fn.Kind).To(Equal(v1alpha1.PrincipalFunction))
			Expect(fn.Route).To(Equal("summarizer"))
			Expect(fn.ManagedPolicies).To(ContainElement(permissions.FunctionManagedPolicy))
			Expect(fn.Statements).To(ConsistOf(v1alpha1.PermissionStatement{
				Sid:       permissions.CustomSid,
				Effect:    v1alpha1.EffectAllow,
				Actions:   []string{"sagemaker:InvokeEndpoint", "s3:GetObject"},
				Resources: []string{"*"},
			}))
		})

		It("should reject a missing properties block", func() {
			_, err := builder.Build(lambdaTarget("summarizer", nil))
			Expect(err).To(HaveOccurred())
			Expect(errdefs.IsIntegrationSpec(err)).To(BeTrue())
			Expect(builder.State("summarizer")).To(Equal(v1alpha1.RouteUnrouted))
			Expect(acc.Freeze()).To(BeEmpty())
		})

		It("should reject two versions of the same layer", func() {
			_, err := builder.Build(lambdaTarget("summarizer", &v1alpha1.FunctionProperties{
				Code:    "functions/summarizer",
				Timeout: ptr.To[int32](29),
				Layers: []string{
					"arn:aws:lambda:us-east-1:123456789012:layer:pandas:3",
					"arn:aws:lambda:us-east-1:123456789012:layer:pandas:4",
				},
			}))
			Expect(errdefs.IsIntegrationSpec(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("Layer-summarizer-pandas"))
			Expect(builder.State("summarizer")).To(Equal(v1alpha1.RouteUnrouted))
			Expect(acc.Freeze()).To(BeEmpty())
		})

		It("should reject a malformed layer arn", func() {
			_, err := builder.Build(lambdaTarget("summarizer", &v1alpha1.FunctionProperties{
				Code:    "functions/summarizer",
				Timeout: ptr.To[int32](29),
				Layers:  []string{"pandas"},
			}))
			Expect(errdefs.IsIntegrationSpec(err)).To(BeTrue())
		})
	})

	Context("state machine", func() {
		It("should start every path unrouted", func() {
			Expect(builder.State("anything")).To(Equal(v1alpha1.RouteUnrouted))
		})

		It("should reject a second binding of the same path", func() {
			_, err := builder.Build(apiTarget("bert"))
			Expect(err).NotTo(HaveOccurred())

			_, err = builder.Build(lambdaTarget("bert", &v1alpha1.FunctionProperties{Code: "c", Timeout: ptr.To[int32](1)}))
			Expect(errdefs.IsDuplicateName(err)).To(BeTrue())
			Expect(builder.State("bert")).To(Equal(v1alpha1.RouteDirectBound))
		})

		It("should name both entries bound to a path", func() {
			model := apiTarget("bert")
			model.Kind = TargetModel
			_, err := builder.Build(model)
			Expect(err).NotTo(HaveOccurred())

			_, err = builder.Build(EndpointTarget(&v1alpha1.EndpointEntry{
				Name: "bert", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI}}))
			var dup *errdefs.DuplicateNameError
			Expect(errors.As(err, &dup)).To(BeTrue())
			Expect(dup.Kind).To(Equal("route"))
			Expect(dup.Entries).To(Equal([]string{"model bert", "endpoint bert"}))
		})

		It("should reject an unknown integration type", func() {
			target := apiTarget("bert")
			target.Integration.Type = "grpc"

			_, err := builder.Build(target)
			Expect(errdefs.IsIntegrationSpec(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring(`"grpc"`))
			Expect(builder.State("bert")).To(Equal(v1alpha1.RouteUnrouted))
		})
	})

	Context("targets", func() {
		It("should bind model entries to their derived endpoint name", func() {
			entry := &v1alpha1.ModelEntry{Name: "bert", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI}}
			spec := &v1alpha1.EndpointSpec{Name: "bert", EndpointName: "bert-endpoint"}
			Expect(ModelTarget(entry, spec)).To(Equal(Target{Kind: TargetModel, Name: "bert", EndpointName: "bert-endpoint", Integration: entry.Integration}))
		})

		It("should bind pre-existing endpoints to their own name", func() {
			entry := &v1alpha1.EndpointEntry{Name: "legacy", Integration: v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationTypeAPI}}
			Expect(EndpointTarget(entry).EndpointName).To(Equal("legacy"))
			Expect(EndpointTarget(entry).Entry()).To(Equal("endpoint legacy"))
		})
	})
})

var _ = Describe("RequiredHeaders", func() {
	DescribeTable("union with the base headers",
		func(declared, want []string) {
			Expect(RequiredHeaders(declared)).To(Equal(want))
		},
		Entry("none declared", nil, []string{"Content-Type", "Accept"}),
		Entry("base repeated", []string{"Content-Type", "Accept"}, []string{"Content-Type", "Accept"}),
		Entry("case-insensitive", []string{"content-type", "X-A"}, []string{"Content-Type", "Accept", "X-A"}),
		Entry("order kept", []string{"X-B", "X-A", "X-B"}, []string{"Content-Type", "Accept", "X-B", "X-A"}),
	)
})
