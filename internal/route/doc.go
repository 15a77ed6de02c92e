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

// Package route resolves the declared integration of each model and
// pre-existing endpoint entry into a route plan.
//
// Every route path starts Unrouted and makes exactly one transition, to
// DirectBound for "api" integrations or to MediatedBound for "lambda"
// integrations. Binding a path twice is an error.
package route
