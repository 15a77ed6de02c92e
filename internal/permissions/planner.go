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

package permissions

import (
	"fmt"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
)

// Principal names and services.
const (
	RoutingPrincipal           = "ApiGatewayRole"
	EndpointExecutionPrincipal = "SagemakerRole"

	RoutingService           = "apigateway.amazonaws.com"
	EndpointExecutionService = "sagemaker.amazonaws.com"
	FunctionService          = "lambda.amazonaws.com"

	EndpointExecutionManagedPolicy = "AmazonSageMakerFullAccess"
	FunctionManagedPolicy          = "service-role/AWSLambdaBasicExecutionRole"

	InvokeEndpointAction = "sagemaker:InvokeEndpoint"

	// AnyAccount stands in for the account id when none is configured.
	AnyAccount = "*"
)

// Statement ids.
const (
	InvokeEndpointsSid = "InvokeEndpoints"
	ExecutionSid       = "EndpointExecution"
	CustomSid          = "CustomPermissions"
)

// ExecutionBaselineActions are granted to the endpoint execution identity for
// telemetry writes, artifact reads and image pulls.
var ExecutionBaselineActions = []string{
	"cloudwatch:PutMetricData",
	"logs:CreateLogStream",
	"logs:PutLogEvents",
	"logs:CreateLogGroup",
	"logs:DescribeLogStreams",
	"s3:GetObject",
	"s3:ListBucket",
	"ecr:GetAuthorizationToken",
	"ecr:BatchCheckLayerAvailability",
	"ecr:GetDownloadUrlForLayer",
	"ecr:BatchGetImage",
}

// Planner writes the permission statements of a plan to an Accumulator.
type Planner struct {
	acc       *Accumulator
	region    string
	accountID string
}

// NewPlanner returns a Planner writing to acc. An empty accountID is
// rendered as a wildcard in resource patterns.
func NewPlanner(acc *Accumulator, region, accountID string) *Planner {
	if accountID == "" {
		accountID = AnyAccount
	}
	return &Planner{acc: acc, region: region, accountID: accountID}
}

// Accumulator returns the accumulator the planner writes to.
func (p *Planner) Accumulator() *Accumulator { return p.acc }

// EndpointPattern is the resource pattern matching an endpoint and any
// qualifier appended to its name at provisioning time.
func (p *Planner) EndpointPattern(endpointName string) string {
	return fmt.Sprintf("arn:aws:sagemaker:%s:%s:endpoint/%s*", p.region, p.accountID, endpointName)
}

// Accumulate declares the routing and endpoint execution principals and
// grants the routing principal invoke access to every planned and
// pre-existing endpoint.
func (p *Planner) Accumulate(specs []v1alpha1.EndpointSpec, preexisting []v1alpha1.EndpointEntry) error {
	if err := p.acc.AddPrincipal(RoutingPrincipal, v1alpha1.PrincipalRouting, RoutingService, ""); err != nil {
		return err
	}
	if err := p.acc.AddPrincipal(EndpointExecutionPrincipal, v1alpha1.PrincipalEndpointExecution, EndpointExecutionService, ""); err != nil {
		return err
	}

	resources := make([]string, 0, len(specs)+len(preexisting))
	for _, s := range specs {
		resources = append(resources, p.EndpointPattern(s.EndpointName))
	}
	for _, e := range preexisting {
		resources = append(resources, p.EndpointPattern(e.Name))
	}
	if len(resources) > 0 {
		if err := p.acc.AddStatement(RoutingPrincipal, v1alpha1.PermissionStatement{
			Sid:       InvokeEndpointsSid,
			Effect:    v1alpha1.EffectAllow,
			Actions:   []string{InvokeEndpointAction},
			Resources: resources,
		}); err != nil {
			return err
		}
	}

	if err := p.acc.AttachManagedPolicy(EndpointExecutionPrincipal, EndpointExecutionManagedPolicy); err != nil {
		return err
	}
	if err := p.acc.AddStatement(EndpointExecutionPrincipal, v1alpha1.PermissionStatement{
		Sid:       ExecutionSid,
		Effect:    v1alpha1.EffectAllow,
		Actions:   ExecutionBaselineActions,
		Resources: []string{"*"},
	}); err != nil {
		return err
	}

	ctrl.Log.V(logging.DEBUG).Info("Accumulated endpoint permissions",
		"endpoints", len(specs),
		"preexisting", len(preexisting),
		"resources", len(resources))
	return nil
}

// FunctionPrincipalName is the principal of the mediating function of route.
func FunctionPrincipalName(route string) string {
	return "RoleLambda-" + route
}

// AddFunction declares the principal of a route's mediating function with the
// basic execution policy, plus one statement granting the custom actions on
// every resource when any are given. The concrete resources are unknown when
// planning, so the custom statement is deliberately broad.
func (p *Planner) AddFunction(route string, actions []string) (string, error) {
	name := FunctionPrincipalName(route)
	if err := p.acc.AddPrincipal(name, v1alpha1.PrincipalFunction, FunctionService, route); err != nil {
		return "", err
	}
	if err := p.acc.AttachManagedPolicy(name, FunctionManagedPolicy); err != nil {
		return "", err
	}
	if len(actions) > 0 {
		if err := p.acc.AddStatement(name, v1alpha1.PermissionStatement{
			Sid:       CustomSid,
			Effect:    v1alpha1.EffectAllow,
			Actions:   actions,
			Resources: []string{"*"},
		}); err != nil {
			return "", err
		}
	}
	return name, nil
}
