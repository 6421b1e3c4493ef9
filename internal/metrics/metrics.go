// Copyright 2026 the Pinniped contributors. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package metrics exposes prometheus counters for password import requests and directory validations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.pinniped.dev/passwordhook/internal/pversion"
	"go.pinniped.dev/passwordhook/internal/upstreamldap"
)

const namespace = "password_hook"

// RequestResult is how a password import request was answered.
type RequestResult string

const (
	RequestVerified       RequestResult = "verified"
	RequestNotVerified    RequestResult = "not_verified"
	RequestUnauthorized   RequestResult = "unauthorized"
	RequestInvalidPayload RequestResult = "invalid_payload"
)

func allRequestResults() []RequestResult {
	return []RequestResult{RequestVerified, RequestNotVerified, RequestUnauthorized, RequestInvalidPayload}
}

// Recorder is implemented by Metrics and NoopMetrics.
type Recorder interface {
	RecordRequest(result RequestResult)
	RecordValidation(outcome upstreamldap.Outcome, duration time.Duration)
}

var (
	_ Recorder = (*Metrics)(nil)
	_ Recorder = NoopMetrics{}
)

// Metrics records into its own registry so that tests and multiple servers never collide.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      *prometheus.CounterVec
	validationsTotal   *prometheus.CounterVec
	validationDuration *prometheus.HistogramVec
}

// Init returns a prometheus backed Recorder and its scrape handler, or a NoopMetrics and a nil handler.
func Init(enabled bool) (Recorder, http.Handler) {
	if !enabled {
		return NoopMetrics{}, nil
	}
	m := New()
	return m, m.Handler()
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m := &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of password import requests by result",
			},
			[]string{"result"},
		),
		validationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "directory_validations_total",
				Help:      "Total number of directory credential validations by outcome",
			},
			[]string{"outcome"},
		),
		validationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "directory_validation_duration_seconds",
				Help:      "Time spent validating a credential against the directory",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
	}

	buildInfo := factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Always 1, labeled with the version the binary was built from",
		},
		[]string{"version", "commit", "goversion"},
	)
	info := pversion.Get()
	buildInfo.WithLabelValues(info.Version, info.Commit, info.GoVersion).Set(1)

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// start every series at zero so rates work from the first scrape
	for _, result := range allRequestResults() {
		m.requestsTotal.WithLabelValues(string(result))
	}
	for _, outcome := range upstreamldap.AllOutcomes() {
		m.validationsTotal.WithLabelValues(string(outcome))
	}

	return m
}

func (m *Metrics) RecordRequest(result RequestResult) {
	m.requestsTotal.WithLabelValues(string(result)).Inc()
}

func (m *Metrics) RecordValidation(outcome upstreamldap.Outcome, duration time.Duration) {
	m.validationsTotal.WithLabelValues(string(outcome)).Inc()
	m.validationDuration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// NoopMetrics is used when the metrics endpoint is disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordRequest(RequestResult) {}

func (NoopMetrics) RecordValidation(upstreamldap.Outcome, time.Duration) {}
