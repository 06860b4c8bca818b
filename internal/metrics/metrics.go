// Copyright © 2015-2020 Platina Systems, Inc. All rights reserved.
// Use of this source code is governed by the GPL-2 license described in the
// LICENSE file.

// Package metrics exports the SmartUPS poll loop and telemetry to
// Prometheus.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/platinasystems/smartups/external/log"
)

const Namespace = "smartups"

type Metrics struct {
	Registry *prometheus.Registry

	Polls        prometheus.Counter
	PollErrors   prometheus.Counter
	PollDuration prometheus.Histogram
	Stale        prometheus.Gauge
	Shutdown     prometheus.Gauge
	Telemetry    *prometheus.GaugeVec

	srv *http.Server
}

// New returns collectors registered on their own registry along with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Polls: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "polls_total",
			Help:      "Register window polls.",
		}),
		PollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "poll_errors_total",
			Help:      "Polls that left the data stale.",
		}),
		PollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "poll_duration_seconds",
			Help:      "Time to poll and publish the register window.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		Stale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "stale",
			Help:      "1 while the published data is stale.",
		}),
		Shutdown: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "forced_shutdown",
			Help:      "1 while the forced shutdown latch is set.",
		}),
		Telemetry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "telemetry",
			Help:      "Numeric values published to the store.",
		}, []string{"key"}),
	}
	m.Registry.MustRegister(
		m.Polls,
		m.PollErrors,
		m.PollDuration,
		m.Stale,
		m.Shutdown,
		m.Telemetry,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe times a poll.
func (m *Metrics) Observe(start time.Time) {
	m.Polls.Inc()
	m.PollDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) SetStale(stale bool) {
	m.Stale.Set(b2f(stale))
}

func (m *Metrics) SetShutdown(fsd bool) {
	m.Shutdown.Set(b2f(fsd))
}

func (m *Metrics) SetTelemetry(key string, v float64) {
	m.Telemetry.WithLabelValues(key).Set(v)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Listen serves /metrics on addr until Close. An empty addr disables it.
func (m *Metrics) Listen(addr string) error {
	if len(addr) == 0 {
		return nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	m.srv = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func(srv *http.Server) {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Print("err", "metrics: ", err)
		}
	}(m.srv)
	return nil
}

func (m *Metrics) Close() error {
	if m.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err := m.srv.Shutdown(ctx)
	m.srv = nil
	return err
}

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
