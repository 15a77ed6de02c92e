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

package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
)

// Built-in plan defaults.
const (
	DefaultMaxCapacity            int32 = 1
	DefaultMinCapacity            int32 = 1
	DefaultInvocationsPerInstance int32 = 5

	DefaultFunctionRuntime       = "python3.9"
	DefaultFunctionHandler       = "index.lambda_handler"
	DefaultFunctionTimeout int32 = 29
	DefaultFunctionMemory  int32 = 128
)

// AutoscalingDefaults are applied to model entries that omit autoscaling.
type AutoscalingDefaults struct {
	MaxCapacity            int32 `yaml:"maxCapacity,omitempty" json:"maxCapacity,omitempty" mapstructure:"maxCapacity"`
	MinCapacity            int32 `yaml:"minCapacity,omitempty" json:"minCapacity,omitempty" mapstructure:"minCapacity"`
	InvocationsPerInstance int32 `yaml:"invocationsPerInstance,omitempty" json:"invocationsPerInstance,omitempty" mapstructure:"invocationsPerInstance"`
}

// FunctionDefaults fill the optional fields of a mediating function.
type FunctionDefaults struct {
	Runtime        string `yaml:"runtime,omitempty" json:"runtime,omitempty" mapstructure:"runtime"`
	Handler        string `yaml:"handler,omitempty" json:"handler,omitempty" mapstructure:"handler"`
	TimeoutSeconds int32  `yaml:"timeoutSeconds,omitempty" json:"timeoutSeconds,omitempty" mapstructure:"timeoutSeconds"`
	MemoryMB       int32  `yaml:"memoryMB,omitempty" json:"memoryMB,omitempty" mapstructure:"memoryMB"`
}

// PlanDefaults holds every default the compiler applies.
type PlanDefaults struct {
	Autoscaling AutoscalingDefaults `yaml:"autoscaling,omitempty" json:"autoscaling,omitempty" mapstructure:"autoscaling"`
	Function    FunctionDefaults    `yaml:"function,omitempty" json:"function,omitempty" mapstructure:"function"`
}

// BuiltinDefaults returns the defaults used when nothing is overridden.
func BuiltinDefaults() PlanDefaults {
	return PlanDefaults{
		Autoscaling: AutoscalingDefaults{
			MaxCapacity:            DefaultMaxCapacity,
			MinCapacity:            DefaultMinCapacity,
			InvocationsPerInstance: DefaultInvocationsPerInstance,
		},
		Function: FunctionDefaults{
			Runtime:        DefaultFunctionRuntime,
			Handler:        DefaultFunctionHandler,
			TimeoutSeconds: DefaultFunctionTimeout,
			MemoryMB:       DefaultFunctionMemory,
		},
	}
}

// Validate checks for invalid default values. Defaults must describe a
// deployable endpoint on their own, so zero values are rejected.
func (d *PlanDefaults) Validate() error {
	a := d.Autoscaling
	if a.MinCapacity < 0 {
		return fmt.Errorf("autoscaling minCapacity must be >= 0, got %d", a.MinCapacity)
	}
	if a.MaxCapacity < 1 {
		return fmt.Errorf("autoscaling maxCapacity must be >= 1, got %d", a.MaxCapacity)
	}
	if a.MinCapacity > a.MaxCapacity {
		return fmt.Errorf("autoscaling minCapacity (%d) should be <= maxCapacity (%d)", a.MinCapacity, a.MaxCapacity)
	}
	if a.InvocationsPerInstance <= 0 {
		return fmt.Errorf("autoscaling invocationsPerInstance must be > 0, got %d", a.InvocationsPerInstance)
	}
	f := d.Function
	if f.Runtime == "" {
		return errors.New("function runtime is required")
	}
	if f.Handler == "" {
		return errors.New("function handler is required")
	}
	if f.TimeoutSeconds <= 0 {
		return fmt.Errorf("function timeoutSeconds must be > 0, got %d", f.TimeoutSeconds)
	}
	if f.MemoryMB <= 0 {
		return fmt.Errorf("function memoryMB must be > 0, got %d", f.MemoryMB)
	}
	return nil
}

// ParsePlanDefaults parses a YAML defaults document over base. Fields left
// out keep their value from base; fields present replace it, zero included.
func ParsePlanDefaults(data []byte, base PlanDefaults) (PlanDefaults, error) {
	merged := base
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return PlanDefaults{}, fmt.Errorf("failed to parse plan defaults: %w", err)
	}
	if err := merged.Validate(); err != nil {
		return PlanDefaults{}, fmt.Errorf("invalid plan defaults: %w", err)
	}
	ctrl.Log.V(logging.DEBUG).Info("Parsed plan defaults",
		"autoscaling", merged.Autoscaling,
		"function", merged.Function)
	return merged, nil
}

// LoadPlanDefaults reads a defaults file and parses it over base.
func LoadPlanDefaults(path string, base PlanDefaults) (PlanDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PlanDefaults{}, fmt.Errorf("failed to read plan defaults %s: %w", path, err)
	}
	d, err := ParsePlanDefaults(data, base)
	if err != nil {
		return PlanDefaults{}, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Resolve returns the autoscaling bounds of an entry, falling back to d when
// the entry declares none. The three bounds are never mixed across sources.
func (d AutoscalingDefaults) Resolve(spec *v1alpha1.AutoscalingSpec) v1alpha1.AutoscalingSpec {
	if spec != nil {
		return *spec
	}
	return v1alpha1.AutoscalingSpec{
		MaxCapacity:            d.MaxCapacity,
		MinCapacity:            d.MinCapacity,
		InvocationsPerInstance: d.InvocationsPerInstance,
	}
}

// ResolvedFunction is a mediating function configuration with every default applied.
type ResolvedFunction struct {
	Runtime        string
	Handler        string
	TimeoutSeconds int32
	MemoryMB       int32
}

// Resolve applies d to the optional fields of props.
func (d FunctionDefaults) Resolve(props *v1alpha1.FunctionProperties) ResolvedFunction {
	out := ResolvedFunction{
		Runtime:        d.Runtime,
		Handler:        d.Handler,
		TimeoutSeconds: d.TimeoutSeconds,
		MemoryMB:       d.MemoryMB,
	}
	if props == nil {
		return out
	}
	if props.Runtime != "" {
		out.Runtime = props.Runtime
	}
	if props.Timeout != nil {
		out.TimeoutSeconds = *props.Timeout
	}
	if props.Memory != nil {
		out.MemoryMB = *props.Memory
	}
	return out
}
