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
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/permissions"
)

func errorsAs(err error, target any) bool {
	return errors.As(err, target)
}

var _ = Describe("Builder", func() {
	var (
		acc *permissions.Accumulator
		b   *Builder
	)

	BeforeEach(func() {
		acc = permissions.NewAccumulator()
		Expect(permissions.NewPlanner(acc, "us-east-1", "").Accumulate(nil, nil)).To(Succeed())
		b = NewBuilder("us-east-1", acc)
		b.SetConfigHash("abc")
		b.AddEndpoint(v1alpha1.EndpointSpec{
			Name:         "bert",
			EndpointName: "bert-endpoint",
			Source:       &v1alpha1.PackageSource{ModelPackageARN: "arn:x"},
		})
		b.AddRoute(v1alpha1.RoutePlan{
			Path:         "bert",
			State:        v1alpha1.RouteDirectBound,
			Integration:  &v1alpha1.DirectIntegration{RequiredHeaders: []string{"Content-Type", "Accept"}},
			EndpointName: "bert-endpoint",
		})
	})

	It("should assemble the plan in insertion order", func() {
		plan := b.Build()
		Expect(plan.Metadata.Region).To(Equal("us-east-1"))
		Expect(plan.Metadata.ConfigHash).To(Equal("abc"))
		Expect(plan.Endpoints).To(HaveLen(1))
		Expect(plan.Routes).To(HaveLen(1))
		Expect(plan.Permissions.Principals).To(HaveLen(2))
		Expect(plan.Metadata.Summary).To(Equal(v1alpha1.PlanSummary{Endpoints: 1, Routes: 1, DirectRoutes: 1, Principals: 2}))
	})

	It("should not share state with the builder", func() {
		plan := b.Build()

		b.Endpoints()[0].Source.(*v1alpha1.PackageSource).ModelPackageARN = "mutated"
		b.AddEndpoint(v1alpha1.EndpointSpec{Name: "late"})

		Expect(plan.Endpoints).To(HaveLen(1))
		Expect(plan.Endpoints[0].Source.(*v1alpha1.PackageSource).ModelPackageARN).To(Equal("arn:x"))
	})

	It("should not share state between plans", func() {
		first := b.Build()
		second := b.Build()

		first.Routes[0].Integration.(*v1alpha1.DirectIntegration).RequiredHeaders[0] = "mutated"
		first.API.CORS.AllowMethods[0] = "mutated"

		Expect(second.Routes[0].Integration.(*v1alpha1.DirectIntegration).RequiredHeaders[0]).To(Equal("Content-Type"))
		Expect(second.API.CORS.AllowMethods[0]).To(Equal("OPTIONS"))
		Expect(DefaultAPISpec().CORS.AllowMethods[0]).To(Equal("OPTIONS"))
	})
})
