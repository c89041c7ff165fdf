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
	"context"
	"net/http"
	"syscall"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.recordRequest(http.MethodGet, http.StatusOK)
	metrics.recordTransportError(http.MethodGet)
	metrics.recordRetry()
	metrics.recordFailover()
	metrics.recordRedirect()
	metrics.requestStarted()
	metrics.requestFinished()
}

func TestMetricsCountPipelineEvents(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	metrics := NewMetricsWithRegistry(registry)

	factory := newFakeFactory(func(_ context.Context, endpoint string, _ *TransportRequest) (*Response, error) {
		if endpoint == "http://a:8529" {
			return nil, syscall.ECONNREFUSED
		}
		return okResponse(), nil
	})
	conn, err := New(
		WithEndpoints("http://a:8529", "http://b:8529"),
		WithMetrics(metrics),
		WithTransport(factory),
	)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Request(context.Background(), &Request{Path: "/"})
	require.NoError(t, err)

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.retriesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.failoversTotal))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.redirectsTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.requestsTotal.WithLabelValues(http.MethodGet, "200")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.inFlight))
}
