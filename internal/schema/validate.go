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

package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"

	"k8s.io/apimachinery/pkg/util/sets"
	"k8s.io/apimachinery/pkg/util/validation/field"
	"k8s.io/utils/ptr"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
	"github.com/llm-d/llm-d-model-api-planner/internal/errdefs"
)

var (
	namePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

	integrationTypes = sets.New[string]()
)

func init() {
	for _, t := range v1alpha1.IntegrationTypes {
		integrationTypes.Insert(string(t))
	}
}

// Validate checks doc against the configuration shape and returns the typed
// configuration. The first violation found is returned as a
// *errdefs.SchemaViolation.
func Validate(doc any) (*v1alpha1.ModelAPIConfig, error) {
	root := field.NewPath("document")
	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, errdefs.Violation(root, errdefs.RuleType, "document must be an object, got %s", typeName(doc))
	}

	cfg := &v1alpha1.ModelAPIConfig{Models: []v1alpha1.ModelEntry{}}

	rawModels, ok := obj["models"]
	if !ok {
		return nil, errdefs.Violation(field.NewPath("models"), errdefs.RuleRequired, "models is required")
	}
	models, err := asArray(field.NewPath("models"), rawModels)
	if err != nil {
		return nil, err
	}
	for i, raw := range models {
		entry, err := validateModel(field.NewPath("models").Index(i), raw)
		if err != nil {
			return nil, err
		}
		cfg.Models = append(cfg.Models, *entry)
	}

	if rawEndpoints, ok := obj["endpoints"]; ok {
		endpoints, err := asArray(field.NewPath("endpoints"), rawEndpoints)
		if err != nil {
			return nil, err
		}
		for i, raw := range endpoints {
			entry, err := validateEndpoint(field.NewPath("endpoints").Index(i), raw)
			if err != nil {
				return nil, err
			}
			cfg.Endpoints = append(cfg.Endpoints, *entry)
		}
	}

	return cfg, nil
}

func validateModel(path *field.Path, raw any) (*v1alpha1.ModelEntry, error) {
	obj, err := asObject(path, raw)
	if err != nil {
		return nil, err
	}

	name, err := validateName(path, obj)
	if err != nil {
		return nil, err
	}
	entry := &v1alpha1.ModelEntry{Name: name}

	modelID, hasModelID, err := optionalString(path.Child("model_id"), obj, "model_id")
	if err != nil {
		return nil, err
	}
	arn, hasARN, err := optionalString(path.Child("model_package_arn"), obj, "model_package_arn")
	if err != nil {
		return nil, err
	}
	switch {
	case hasModelID && hasARN:
		return nil, errdefs.ModelSourceConflict(path, fmt.Sprintf("model %q sets both model_id and model_package_arn", name))
	case !hasModelID && !hasARN:
		return nil, errdefs.ModelSourceConflict(path, fmt.Sprintf("model %q sets neither model_id nor model_package_arn", name))
	}
	entry.ModelID = modelID
	entry.ModelPackageARN = arn

	instance, err := requiredString(path.Child("instance"), obj, "instance")
	if err != nil {
		return nil, err
	}
	entry.Instance = instance

	if rawScaling, ok := obj["autoscaling"]; ok {
		scaling, err := validateAutoscaling(path.Child("autoscaling"), rawScaling)
		if err != nil {
			return nil, err
		}
		entry.Autoscaling = scaling
	}

	rawIntegration, ok := obj["integration"]
	if !ok {
		return nil, errdefs.Violation(path.Child("integration"), errdefs.RuleRequired, "integration is required")
	}
	integration, err := validateIntegration(path.Child("integration"), rawIntegration)
	if err != nil {
		return nil, err
	}
	entry.Integration = *integration

	return entry, nil
}

func validateEndpoint(path *field.Path, raw any) (*v1alpha1.EndpointEntry, error) {
	obj, err := asObject(path, raw)
	if err != nil {
		return nil, err
	}
	name, err := validateName(path, obj)
	if err != nil {
		return nil, err
	}
	rawIntegration, ok := obj["integration"]
	if !ok {
		return nil, errdefs.Violation(path.Child("integration"), errdefs.RuleRequired, "integration is required")
	}
	integration, err := validateIntegration(path.Child("integration"), rawIntegration)
	if err != nil {
		return nil, err
	}
	return &v1alpha1.EndpointEntry{Name: name, Integration: *integration}, nil
}

func validateName(path *field.Path, obj map[string]any) (string, error) {
	name, err := requiredString(path.Child("name"), obj, "name")
	if err != nil {
		return "", err
	}
	if !namePattern.MatchString(name) {
		return "", errdefs.Violation(path.Child("name"), errdefs.RulePattern,
			"name %q must match %s", name, namePattern.String())
	}
	return name, nil
}

func validateAutoscaling(path *field.Path, raw any) (*v1alpha1.AutoscalingSpec, error) {
	obj, err := asObject(path, raw)
	if err != nil {
		return nil, err
	}
	maxCapacity, err := requiredInt(path.Child("max_capacity"), obj, "max_capacity")
	if err != nil {
		return nil, err
	}
	minCapacity, err := requiredInt(path.Child("min_capacity"), obj, "min_capacity")
	if err != nil {
		return nil, err
	}
	invocations, err := requiredInt(path.Child("invocations_per_instance"), obj, "invocations_per_instance")
	if err != nil {
		return nil, err
	}
	if minCapacity < 0 {
		return nil, errdefs.Violation(path.Child("min_capacity"), errdefs.RuleRange, "must be >= 0, got %d", minCapacity)
	}
	if maxCapacity < minCapacity {
		return nil, errdefs.Violation(path.Child("max_capacity"), errdefs.RuleRange,
			"must be >= min_capacity (%d), got %d", minCapacity, maxCapacity)
	}
	if invocations <= 0 {
		return nil, errdefs.Violation(path.Child("invocations_per_instance"), errdefs.RuleRange, "must be > 0, got %d", invocations)
	}
	return &v1alpha1.AutoscalingSpec{
		MaxCapacity:            maxCapacity,
		MinCapacity:            minCapacity,
		InvocationsPerInstance: invocations,
	}, nil
}

func validateIntegration(path *field.Path, raw any) (*v1alpha1.IntegrationSpec, error) {
	obj, err := asObject(path, raw)
	if err != nil {
		return nil, err
	}
	typ, err := requiredString(path.Child("type"), obj, "type")
	if err != nil {
		return nil, err
	}
	if !integrationTypes.Has(typ) {
		return nil, errdefs.Violation(path.Child("type"), errdefs.RuleEnum,
			"unsupported integration type %q, must be one of %v", typ, sets.List(integrationTypes))
	}
	spec := &v1alpha1.IntegrationSpec{Type: v1alpha1.IntegrationType(typ)}

	headers, _, err := optionalStrings(path.Child("headers"), obj, "headers")
	if err != nil {
		return nil, err
	}
	spec.Headers = headers

	rawProps, hasProps := obj["properties"]
	if !hasProps {
		if spec.Type == v1alpha1.IntegrationTypeLambda {
			return nil, errdefs.Violation(path.Child("properties"), errdefs.RuleRequired,
				"properties is required when type is %q", v1alpha1.IntegrationTypeLambda)
		}
		return spec, nil
	}
	props, err := validateProperties(path.Child("properties"), rawProps)
	if err != nil {
		return nil, err
	}
	spec.Properties = props
	return spec, nil
}

func validateProperties(path *field.Path, raw any) (*v1alpha1.FunctionProperties, error) {
	obj, err := asObject(path, raw)
	if err != nil {
		return nil, err
	}
	props := &v1alpha1.FunctionProperties{}

	if props.Code, err = requiredString(path.Child("code"), obj, "code"); err != nil {
		return nil, err
	}
	permissions, ok, err := optionalStrings(path.Child("permissions"), obj, "permissions")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errdefs.Violation(path.Child("permissions"), errdefs.RuleRequired, "permissions is required")
	}
	props.Permissions = permissions
	if props.Permissions == nil {
		props.Permissions = []string{}
	}
	timeout, err := requiredInt(path.Child("timeout"), obj, "timeout")
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, errdefs.Violation(path.Child("timeout"), errdefs.RuleRange, "must be > 0, got %d", timeout)
	}
	props.Timeout = ptr.To(timeout)

	if rawMemory, ok := obj["memory"]; ok {
		memory, err := asInt(path.Child("memory"), rawMemory)
		if err != nil {
			return nil, err
		}
		if memory <= 0 {
			return nil, errdefs.Violation(path.Child("memory"), errdefs.RuleRange, "must be > 0, got %d", memory)
		}
		props.Memory = ptr.To(memory)
	}
	if props.Layers, _, err = optionalStrings(path.Child("layers"), obj, "layers"); err != nil {
		return nil, err
	}
	if props.Runtime, _, err = optionalString(path.Child("runtime"), obj, "runtime"); err != nil {
		return nil, err
	}
	if rawEnv, ok := obj["environment"]; ok {
		env, err := asObject(path.Child("environment"), rawEnv)
		if err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(env))
		for k := range env {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		props.Environment = make(map[string]string, len(env))
		for _, k := range keys {
			v, ok := env[k].(string)
			if !ok {
				return nil, errdefs.Violation(path.Child("environment").Key(k), errdefs.RuleType,
					"must be a string, got %s", typeName(env[k]))
			}
			props.Environment[k] = v
		}
	}
	return props, nil
}

func asObject(path *field.Path, raw any) (map[string]any, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, errdefs.Violation(path, errdefs.RuleType, "must be an object, got %s", typeName(raw))
	}
	return obj, nil
}

func asArray(path *field.Path, raw any) ([]any, error) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, errdefs.Violation(path, errdefs.RuleType, "must be an array, got %s", typeName(raw))
	}
	return arr, nil
}

func requiredString(path *field.Path, obj map[string]any, key string) (string, error) {
	s, ok, err := optionalString(path, obj, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errdefs.Violation(path, errdefs.RuleRequired, "%s is required", key)
	}
	return s, nil
}

func optionalString(path *field.Path, obj map[string]any, key string) (string, bool, error) {
	raw, ok := obj[key]
	if !ok {
		return "", false, nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", false, errdefs.Violation(path, errdefs.RuleType, "must be a string, got %s", typeName(raw))
	}
	return s, true, nil
}

func optionalStrings(path *field.Path, obj map[string]any, key string) ([]string, bool, error) {
	raw, ok := obj[key]
	if !ok {
		return nil, false, nil
	}
	arr, err := asArray(path, raw)
	if err != nil {
		return nil, false, err
	}
	out := make([]string, 0, len(arr))
	for i, item := range arr {
		s, ok := item.(string)
		if !ok {
			return nil, false, errdefs.Violation(path.Index(i), errdefs.RuleType, "must be a string, got %s", typeName(item))
		}
		out = append(out, s)
	}
	return out, true, nil
}

func requiredInt(path *field.Path, obj map[string]any, key string) (int32, error) {
	raw, ok := obj[key]
	if !ok {
		return 0, errdefs.Violation(path, errdefs.RuleRequired, "%s is required", key)
	}
	return asInt(path, raw)
}

// asInt accepts every integral number representation an untyped tree may
// carry: Go integers, integral float64 values and json.Number.
func asInt(path *field.Path, raw any) (int32, error) {
	var v int64
	switch n := raw.(type) {
	case int:
		v = int64(n)
	case int32:
		v = int64(n)
	case int64:
		v = n
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) {
			return 0, errdefs.Violation(path, errdefs.RuleType, "must be an integer, got %v", n)
		}
		v = int64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, errdefs.Violation(path, errdefs.RuleType, "must be an integer, got %s", n.String())
		}
		v = i
	default:
		return 0, errdefs.Violation(path, errdefs.RuleType, "must be an integer, got %s", typeName(raw))
	}
	if v > math.MaxInt32 || v < math.MinInt32 {
		return 0, errdefs.Violation(path, errdefs.RuleRange, "%d is out of range", v)
	}
	return int32(v), nil
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case string:
		return "string"
	case bool:
		return "boolean"
	case int, int32, int64, float64, json.Number:
		return "number"
	default:
		return fmt.Sprintf("%T", v)
	}
}
