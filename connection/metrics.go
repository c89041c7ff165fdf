// Copyright 2024 The RecallGraph Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package connection

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus metrics for the request pipeline. All record
// methods are nil-safe, so an unset collector costs a nil check per event.
type Metrics struct {
	requestsTotal  *prometheus.CounterVec
	retriesTotal   prometheus.Counter
	failoversTotal prometheus.Counter
	redirectsTotal prometheus.Counter
	inFlight       prometheus.Gauge
}

// NewMetrics creates a collector registered with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a collector registered with the given
// registerer.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "arangojs_requests_total",
				Help: "Total number of requests, by method and HTTP status ('error' for transport failures)",
			},
			[]string{"method", "status"},
		),
		retriesTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "arangojs_retries_total",
				Help: "Total number of transparent retries after connection-refused errors",
			},
		),
		failoversTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "arangojs_failovers_total",
				Help: "Total number of active-host cursor advances caused by request failures",
			},
		),
		redirectsTotal: promauto.With(registry).NewCounter(
			prometheus.CounterOpts{
				Name: "arangojs_leader_redirects_total",
				Help: "Total number of transparent leader redirects",
			},
		),
		inFlight: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "arangojs_requests_in_flight",
				Help: "Number of requests currently dispatched to a transport",
			},
		),
	}
}

func (m *Metrics) recordRequest(method string, statusCode int) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(statusCode)).Inc()
}

func (m *Metrics) recordTransportError(method string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(method, "error").Inc()
}

func (m *Metrics) recordRetry() {
	if m == nil {
		return
	}
	m.retriesTotal.Inc()
}

func (m *Metrics) recordFailover() {
	if m == nil {
		return
	}
	m.failoversTotal.Inc()
}

func (m *Metrics) recordRedirect() {
	if m == nil {
		return
	}
	m.redirectsTotal.Inc()
}

func (m *Metrics) requestStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) requestFinished() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}
