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

// Package mediator implements the runtime request handler of mediated routes.
// The handler forwards a JSON request body to the endpoint it is bound to and
// maps provider invocation errors onto the HTTP response.
package mediator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultContentType is used for Content-Type and Accept when a request omits them.
const DefaultContentType = "application/json"

// DefaultInvokeTimeout bounds one endpoint invocation.
const DefaultInvokeTimeout = 60 * time.Second

// Invocation is one request forwarded to an endpoint.
type Invocation struct {
	EndpointName string
	Body         []byte
	ContentType  string
	Accept       string
}

// InvocationError is a provider-level failure of an invocation.
type InvocationError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *InvocationError) Error() string {
	return e.Code + ": " + e.Message
}

// Invoker invokes a deployed endpoint and returns the raw response body.
type Invoker interface {
	Invoke(ctx context.Context, in Invocation) ([]byte, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(ctx context.Context, in Invocation) ([]byte, error)

func (f InvokerFunc) Invoke(ctx context.Context, in Invocation) ([]byte, error) {
	return f(ctx, in)
}

// HTTPInvoker posts invocations to <BaseURL>/endpoints/<name>/invocations.
type HTTPInvoker struct {
	BaseURL string
	HTTP    *http.Client
}

// NewHTTPInvoker returns an HTTPInvoker for baseURL.
func NewHTTPInvoker(baseURL string, timeout time.Duration) (*HTTPInvoker, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid runtime base URL %q", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultInvokeTimeout
	}
	return &HTTPInvoker{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}, nil
}

// providerError is the error payload returned by the runtime.
type providerError struct {
	ErrorCode string `json:"ErrorCode"`
	Code      string `json:"__type"`
	Message   string `json:"Message"`
	Lower     string `json:"message"`
}

func (c *HTTPInvoker) Invoke(ctx context.Context, in Invocation) ([]byte, error) {
	target := c.BaseURL + "/endpoints/" + url.PathEscape(in.EndpointName) + "/invocations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(in.Body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", in.ContentType)
	req.Header.Set("Accept", in.Accept)

	res, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response of %s: %w", in.EndpointName, err)
	}
	if res.StatusCode/100 != 2 {
		return nil, parseProviderError(res.StatusCode, body)
	}
	return body, nil
}

func parseProviderError(status int, body []byte) *InvocationError {
	out := &InvocationError{StatusCode: status}
	var pe providerError
	if err := json.Unmarshal(body, &pe); err == nil {
		out.Code = pe.ErrorCode
		if out.Code == "" {
			out.Code = pe.Code
		}
		out.Message = pe.Message
		if out.Message == "" {
			out.Message = pe.Lower
		}
	}
	if out.Code == "" {
		out.Code = strings.ReplaceAll(http.StatusText(status), " ", "")
	}
	if out.Message == "" {
		out.Message = strings.TrimSpace(string(body))
	}
	return out
}

// AsInvocationError reports whether err carries an *InvocationError.
func AsInvocationError(err error) (*InvocationError, bool) {
	var ie *InvocationError
	ok := errors.As(err, &ie)
	return ie, ok
}
