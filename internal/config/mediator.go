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
	"net/url"
	"time"

	"github.com/spf13/viper"
)

// Mediator defaults.
const (
	DefaultListenAddress = ":8080"
	DefaultInvokeTimeout = 60 * time.Second
)

// MediatorConfig configures the runtime request handler of mediated routes.
// Keys are read from the environment without a prefix, matching the
// environment injected into mediating functions.
type MediatorConfig struct {
	// EndpointName is the endpoint requests are forwarded to.
	EndpointName string `mapstructure:"ENDPOINT_NAME"`
	// RuntimeURL is the base URL of the endpoint invocation API.
	RuntimeURL    string        `mapstructure:"RUNTIME_URL"`
	ListenAddress string        `mapstructure:"LISTEN_ADDRESS"`
	InvokeTimeout time.Duration `mapstructure:"INVOKE_TIMEOUT"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
}

// Validate checks that the handler can be bound.
func (c *MediatorConfig) Validate() error {
	if c.EndpointName == "" {
		return errors.New("ENDPOINT_NAME is required")
	}
	u, err := url.Parse(c.RuntimeURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("RUNTIME_URL must be an absolute URL, got %q", c.RuntimeURL)
	}
	if c.InvokeTimeout <= 0 {
		return fmt.Errorf("INVOKE_TIMEOUT must be positive, got %s", c.InvokeTimeout)
	}
	return nil
}

// LoadMediator reads the mediator configuration from the environment.
func LoadMediator() (*MediatorConfig, error) {
	v := viper.New()
	v.SetDefault("ENDPOINT_NAME", "")
	v.SetDefault("RUNTIME_URL", "")
	v.SetDefault("LISTEN_ADDRESS", DefaultListenAddress)
	v.SetDefault("INVOKE_TIMEOUT", DefaultInvokeTimeout)
	v.SetDefault("LOG_LEVEL", "info")
	v.AutomaticEnv()

	var cfg MediatorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode mediator config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
