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

package mediator

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
)

// MaxBodyBytes limits the size of a forwarded request body.
const MaxBodyBytes = 6 << 20

// Handler forwards requests to the endpoint it is bound to.
type Handler struct {
	endpointName string
	invoker      Invoker
}

// NewHandler binds a Handler to endpointName.
func NewHandler(endpointName string, invoker Invoker) (*Handler, error) {
	if endpointName == "" {
		return nil, errors.New("endpoint name is required")
	}
	if invoker == nil {
		return nil, errors.New("invoker is required")
	}
	return &Handler{endpointName: endpointName, invoker: invoker}, nil
}

// EndpointName returns the bound endpoint.
func (h *Handler) EndpointName() string { return h.endpointName }

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := ctrl.Log.WithName("mediator").WithValues("endpoint", h.endpointName, "path", r.URL.Path)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, "MethodNotAllowed: "+r.Method)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, "InvalidRequest: "+err.Error())
		return
	}
	// Forwarded as compact JSON with numbers kept verbatim.
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil {
		writeJSON(w, http.StatusBadRequest, "InvalidRequest: "+err.Error())
		return
	}
	forward := compact.Bytes()

	in := Invocation{
		EndpointName: h.endpointName,
		Body:         forward,
		ContentType:  headerOr(r, "Content-Type", DefaultContentType),
		Accept:       headerOr(r, "Accept", DefaultContentType),
	}
	out, err := h.invoker.Invoke(r.Context(), in)
	if err != nil {
		if ie, ok := AsInvocationError(err); ok {
			logger.Error(err, "Endpoint invocation failed", "status", ie.StatusCode)
			writeJSON(w, ie.StatusCode, ie.Error())
			return
		}
		logger.Error(err, "Endpoint invocation failed")
		writeJSON(w, http.StatusBadGateway, "InternalFailure: "+err.Error())
		return
	}

	if !json.Valid(out) {
		logger.Error(errors.New("invalid JSON"), "Endpoint returned a non-JSON response", "responseBytes", len(out))
		writeJSON(w, http.StatusBadGateway, "ModelError: response is not valid JSON")
		return
	}
	logger.V(logging.DEBUG).Info("Invoked endpoint", "requestBytes", len(forward), "responseBytes", len(out))
	writeJSON(w, http.StatusOK, json.RawMessage(out))
}

func headerOr(r *http.Request, key, def string) string {
	if v := r.Header.Get(key); v != "" {
		return v
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", DefaultContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
