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

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/llm-d/llm-d-model-api-planner/internal/config"
	"github.com/llm-d/llm-d-model-api-planner/internal/logging"
	"github.com/llm-d/llm-d-model-api-planner/internal/mediator"
)

func main() {
	setupLog := ctrl.Log.WithName("setup")

	cfg, err := config.LoadMediator()
	if err != nil {
		_, _ = logging.Setup("info", false)
		setupLog.Error(err, "Invalid mediator configuration")
		os.Exit(1)
	}
	if _, err := logging.Setup(cfg.LogLevel, false); err != nil {
		setupLog.Error(err, "Invalid log level")
		os.Exit(1)
	}

	invoker, err := mediator.NewHTTPInvoker(cfg.RuntimeURL, cfg.InvokeTimeout)
	if err != nil {
		setupLog.Error(err, "Unable to create invoker")
		os.Exit(1)
	}
	handler, err := mediator.NewHandler(cfg.EndpointName, invoker)
	if err != nil {
		setupLog.Error(err, "Unable to create handler")
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/", handler)

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx := ctrl.SetupSignalHandler()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			setupLog.Error(err, "Graceful shutdown failed")
		}
	}()

	setupLog.Info("Serving mediated route",
		"address", cfg.ListenAddress,
		"endpoint", cfg.EndpointName,
		"runtime", cfg.RuntimeURL)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		setupLog.Error(err, "Server failed")
		os.Exit(1)
	}
}
