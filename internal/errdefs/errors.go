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

// Package errdefs defines the compilation error taxonomy. Every error in it is
// terminal: the configuration must change before compiling again.
package errdefs

import (
	"errors"
	"fmt"

	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Rules reported by SchemaViolation.
const (
	RuleRequired    = "required"
	RuleType        = "type"
	RulePattern     = "pattern"
	RuleEnum        = "enum"
	RuleModelSource = "model-source"
	RuleRange       = "range"
)

var (
	// ErrModelSourceConflict matches schema violations where both or neither of
	// model_id and model_package_arn are set.
	ErrModelSourceConflict = errors.New("exactly one of model_id and model_package_arn must be set")

	// ErrNotFound matches lookups that could not resolve a model.
	ErrNotFound = errors.New("model not found")
)

// SchemaViolation is a malformed or incomplete configuration document.
type SchemaViolation struct {
	Path   *field.Path
	Rule   string
	Detail string
	Err    error
}

func (e *SchemaViolation) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("schema violation at %s: %s", e.Path, e.Rule)
	}
	return fmt.Sprintf("schema violation at %s (%s): %s", e.Path, e.Rule, e.Detail)
}

func (e *SchemaViolation) Unwrap() error { return e.Err }

// Violation builds a SchemaViolation with a formatted detail.
func Violation(path *field.Path, rule, format string, a ...any) *SchemaViolation {
	return &SchemaViolation{Path: path, Rule: rule, Detail: fmt.Sprintf(format, a...)}
}

// ModelSourceConflict builds the SchemaViolation for a model entry setting both
// or neither of the two model source fields.
func ModelSourceConflict(path *field.Path, detail string) *SchemaViolation {
	return &SchemaViolation{Path: path, Rule: RuleModelSource, Detail: detail, Err: ErrModelSourceConflict}
}

// ModelResolutionError is a failed catalog lookup for a model_id entry.
type ModelResolutionError struct {
	Model        string
	ModelID      string
	InstanceType string
	Region       string
	Err          error
}

func (e *ModelResolutionError) Error() string {
	return fmt.Sprintf("model %q: resolving %q for instance %q in region %q: %v",
		e.Model, e.ModelID, e.InstanceType, e.Region, e.Err)
}

func (e *ModelResolutionError) Unwrap() error { return e.Err }

// DuplicateNameError is two entries deriving the same external name.
type DuplicateNameError struct {
	// Kind is what the name identifies (endpoint, route).
	Kind    string
	Name    string
	Entries []string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate %s name %q derived from entries %q", e.Kind, e.Name, e.Entries)
}

// IntegrationSpecError is an unrecognized or incomplete integration.
type IntegrationSpecError struct {
	Entry  string
	Field  string
	Detail string
}

func (e *IntegrationSpecError) Error() string {
	return fmt.Sprintf("entry %q: invalid integration %s: %s", e.Entry, e.Field, e.Detail)
}

// TerminalError records the compilation stage an error stopped at. The
// configuration must change before compiling again.
type TerminalError struct {
	Stage string
	Err   error
}

func (e *TerminalError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *TerminalError) Unwrap() error { return e.Err }

// Terminal wraps err with the stage it occurred in. A nil err stays nil.
func Terminal(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &TerminalError{Stage: stage, Err: err}
}

// StageOf returns the stage err stopped at, or "" when err carries none.
func StageOf(err error) string {
	var te *TerminalError
	if errors.As(err, &te) {
		return te.Stage
	}
	return ""
}

// IsSchemaViolation reports whether err (or any error in its chain) is a SchemaViolation.
func IsSchemaViolation(err error) bool {
	var se *SchemaViolation
	return errors.As(err, &se)
}

// IsModelSourceConflict reports whether err is a model source conflict.
func IsModelSourceConflict(err error) bool {
	return errors.Is(err, ErrModelSourceConflict)
}

// IsModelResolution reports whether err (or any error in its chain) is a ModelResolutionError.
func IsModelResolution(err error) bool {
	var re *ModelResolutionError
	return errors.As(err, &re)
}

// IsDuplicateName reports whether err (or any error in its chain) is a DuplicateNameError.
func IsDuplicateName(err error) bool {
	var de *DuplicateNameError
	return errors.As(err, &de)
}

// IsIntegrationSpec reports whether err (or any error in its chain) is an IntegrationSpecError.
func IsIntegrationSpec(err error) bool {
	var ie *IntegrationSpecError
	return errors.As(err, &ie)
}

// IsTerminal reports whether err belongs to the compilation taxonomy.
func IsTerminal(err error) bool {
	var te *TerminalError
	if errors.As(err, &te) {
		return true
	}
	return IsSchemaViolation(err) || IsModelResolution(err) || IsDuplicateName(err) || IsIntegrationSpec(err)
}
