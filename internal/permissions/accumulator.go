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

// Package permissions aggregates the permission statements of a plan,
// partitioned by principal. Aggregation is append-only: statements are never
// removed or narrowed once added.
package permissions

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
)

// ErrFrozen is returned for writes to a frozen Accumulator.
var ErrFrozen = errors.New("permission accumulator is frozen")

var kindRank = map[v1alpha1.PrincipalKind]int{
	v1alpha1.PrincipalRouting:           0,
	v1alpha1.PrincipalEndpointExecution: 1,
	v1alpha1.PrincipalFunction:          2,
}

// Accumulator collects principals and their statements. It has a single
// writer and is not safe for concurrent use.
type Accumulator struct {
	principals []*v1alpha1.PrincipalPolicy
	index      map[string]int
	frozen     bool
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{index: map[string]int{}}
}

// AddPrincipal declares a principal. Declaring an existing principal again is
// a no-op when kind and service match.
func (a *Accumulator) AddPrincipal(name string, kind v1alpha1.PrincipalKind, service, route string) error {
	if a.frozen {
		return ErrFrozen
	}
	if _, ok := kindRank[kind]; !ok {
		return fmt.Errorf("principal %q: unknown kind %q", name, kind)
	}
	if i, ok := a.index[name]; ok {
		p := a.principals[i]
		if p.Kind != kind || p.Service != service || p.Route != route {
			return fmt.Errorf("principal %q already declared as %s for %s", name, p.Kind, p.Service)
		}
		return nil
	}
	a.index[name] = len(a.principals)
	a.principals = append(a.principals, &v1alpha1.PrincipalPolicy{
		Name:    name,
		Kind:    kind,
		Service: service,
		Route:   route,
	})
	return nil
}

func (a *Accumulator) principal(name string) (*v1alpha1.PrincipalPolicy, error) {
	if a.frozen {
		return nil, ErrFrozen
	}
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("principal %q is not declared", name)
	}
	return a.principals[i], nil
}

// AttachManagedPolicy attaches a managed policy to a principal once.
func (a *Accumulator) AttachManagedPolicy(principal, policy string) error {
	p, err := a.principal(principal)
	if err != nil {
		return err
	}
	if !slices.Contains(p.ManagedPolicies, policy) {
		p.ManagedPolicies = append(p.ManagedPolicies, policy)
	}
	return nil
}

// AddStatement adds stmt to a principal. A statement with the same Sid,
// effect and actions as an existing one widens its resources instead.
func (a *Accumulator) AddStatement(principal string, stmt v1alpha1.PermissionStatement) error {
	p, err := a.principal(principal)
	if err != nil {
		return err
	}
	if len(stmt.Actions) == 0 {
		return fmt.Errorf("principal %q: statement %q has no actions", principal, stmt.Sid)
	}
	if len(stmt.Resources) == 0 {
		return fmt.Errorf("principal %q: statement %q has no resources", principal, stmt.Sid)
	}
	for i := range p.Statements {
		existing := &p.Statements[i]
		if stmt.Sid != "" && existing.Sid == stmt.Sid &&
			existing.Effect == stmt.Effect && slices.Equal(existing.Actions, stmt.Actions) {
			existing.Resources = union(existing.Resources, stmt.Resources)
			return nil
		}
	}
	p.Statements = append(p.Statements, v1alpha1.PermissionStatement{
		Sid:       stmt.Sid,
		Effect:    stmt.Effect,
		Actions:   union(nil, stmt.Actions),
		Resources: union(nil, stmt.Resources),
	})
	return nil
}

// Len returns the number of declared principals.
func (a *Accumulator) Len() int { return len(a.principals) }

// Freeze stops further writes and returns the principals ordered routing
// first, then endpoint execution, then function principals in the order they
// were declared.
func (a *Accumulator) Freeze() []v1alpha1.PrincipalPolicy {
	a.frozen = true
	out := make([]v1alpha1.PrincipalPolicy, len(a.principals))
	for i, p := range a.principals {
		p.DeepCopyInto(&out[i])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return kindRank[out[i].Kind] < kindRank[out[j].Kind]
	})
	return out
}

// union appends the values of add missing from base, keeping order.
func union(base, add []string) []string {
	out := slices.Clone(base)
	for _, v := range add {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}
