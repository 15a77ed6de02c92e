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

// Package version reports the planner build version, set at link time with
// -ldflags "-X github.com/llm-d/llm-d-model-api-planner/cmd/planner/internal/version.Version=...".
package version

import (
	"fmt"
	"io"
	"runtime"
)

var Version = "dev"

func Fprint(w io.Writer) {
	fmt.Fprintf(w, "model-api-planner version %s\n", Version)
	fmt.Fprintf(w, "%s/%s\n", runtime.GOOS, runtime.GOARCH)
}
