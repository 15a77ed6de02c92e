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

// Package metrics records compilation and lookup metrics and writes them in the
// Prometheus text exposition format.
package metrics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/llm-d/llm-d-model-api-planner/api/v1alpha1"
)

const (
	namespace = "model_api_planner"

	resultSuccess = "success"
	resultError   = "error"
)

// Lookup outcomes.
const (
	LookupHit      = "hit"
	LookupNotFound = "not_found"
	LookupError    = "error"
)

// Metrics holds the planner's prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	compilations        *prometheus.CounterVec
	compilationDuration *prometheus.HistogramVec
	lookups             *prometheus.CounterVec
	lookupDuration      prometheus.Histogram
	planObjects         *prometheus.GaugeVec
}

// New creates the collectors and registers them on a dedicated registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		compilations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compilations_total",
				Help:      "Total number of plan compilations by result and failing stage.",
			},
			[]string{"result", "stage"},
		),
		compilationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compilation_duration_seconds",
				Help:      "Plan compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10), // 100µs to ~26s
			},
			[]string{"result"},
		),
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "lookups_total",
				Help:      "Total number of model catalog lookups by outcome.",
			},
			[]string{"outcome"},
		),
		lookupDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "lookup_duration_seconds",
				Help:      "Model catalog lookup latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		planObjects: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "plan",
				Name:      "objects",
				Help:      "Number of objects in the last compiled plan by kind.",
			},
			[]string{"kind"},
		),
	}
	m.MustRegister(m.registry)
	return m
}

// MustRegister registers the collectors with the given registerer.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.compilations,
		m.compilationDuration,
		m.lookups,
		m.lookupDuration,
		m.planObjects,
	)
}

// Registry returns the registry the collectors were registered on by New.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCompilation records one compilation. stage is the stage a failed
// compilation stopped at and is ignored on success.
func (m *Metrics) ObserveCompilation(d time.Duration, stage string, err error) {
	if m == nil {
		return
	}
	result := resultSuccess
	if err != nil {
		result = resultError
	} else {
		stage = ""
	}
	m.compilations.WithLabelValues(result, stage).Inc()
	m.compilationDuration.WithLabelValues(result).Observe(d.Seconds())
}

// ObserveLookup records one catalog lookup.
func (m *Metrics) ObserveLookup(d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(outcome).Inc()
	m.lookupDuration.Observe(d.Seconds())
}

// ObservePlan records the size of a compiled plan.
func (m *Metrics) ObservePlan(s v1alpha1.PlanSummary) {
	if m == nil {
		return
	}
	m.planObjects.WithLabelValues("endpoints").Set(float64(s.Endpoints))
	m.planObjects.WithLabelValues("routes").Set(float64(s.Routes))
	m.planObjects.WithLabelValues("direct_routes").Set(float64(s.DirectRoutes))
	m.planObjects.WithLabelValues("mediated_routes").Set(float64(s.MediatedRoutes))
	m.planObjects.WithLabelValues("principals").Set(float64(s.Principals))
}

// Write encodes every gathered metric family to w in the text format.
func (m *Metrics) Write(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode metric family %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// WriteTextfile atomically replaces path with the current metrics, for
// collection by a node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create metrics file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := m.Write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close metrics file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}
