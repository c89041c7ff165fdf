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
	"encoding/base64"
	"net/http"
	"time"

	"github.com/RecallGraph/arangojs/internal"
	"github.com/rs/zerolog"
)

// DefaultEndpoint is the endpoint used when none is configured.
const DefaultEndpoint = "http://127.0.0.1:8529"

// defaultArangoVersion is the driver protocol version sent in the
// x-arango-version header on every request.
const defaultArangoVersion = 31100

// LoadBalancingStrategy determines how hosts are selected for requests that
// are neither pinned nor dirty-read eligible.
type LoadBalancingStrategy int

const (
	// LoadBalancingNone sticks to the first host and only moves the active
	// host cursor on failover.
	LoadBalancingNone LoadBalancingStrategy = iota
	// LoadBalancingOneRandom picks one random host at construction time and
	// sticks to it, moving only on failover.
	LoadBalancingOneRandom
	// LoadBalancingRoundRobin rotates through all hosts, one request each.
	LoadBalancingRoundRobin
)

func (s LoadBalancingStrategy) String() string {
	switch s {
	case LoadBalancingNone:
		return "NONE"
	case LoadBalancingOneRandom:
		return "ONE_RANDOM"
	case LoadBalancingRoundRobin:
		return "ROUND_ROBIN"
	default:
		return "UNKNOWN"
	}
}

// Option is an option used to customize a Conn.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(cfg *config) {
	f(cfg)
}

// WithEndpoints configures the initial server endpoints. Accepted schemes are
// http, https, h2c, and the aliases tcp (http), ssl and tls (https), plus the
// unix-socket forms "unix:///path" and "scheme+unix:///path". If no
// WithEndpoints option is given, DefaultEndpoint is used.
func WithEndpoints(urls ...string) Option {
	return optionFunc(func(cfg *config) {
		cfg.endpoints = append(cfg.endpoints, urls...)
	})
}

// WithBasicAuth configures HTTP basic authentication for every request.
func WithBasicAuth(username, password string) Option {
	return optionFunc(func(cfg *config) {
		cfg.auth = basicAuthHeader(username, password)
	})
}

// WithBearerAuth configures bearer-token authentication for every request.
func WithBearerAuth(token string) Option {
	return optionFunc(func(cfg *config) {
		cfg.auth = "Bearer " + token
	})
}

// WithArangoVersion overrides the numeric driver protocol version reported
// to the server.
func WithArangoVersion(version int) Option {
	return optionFunc(func(cfg *config) {
		cfg.arangoVersion = version
	})
}

// WithLoadBalancing selects the host selection strategy. The default is
// LoadBalancingNone.
func WithLoadBalancing(strategy LoadBalancingStrategy) Option {
	return optionFunc(func(cfg *config) {
		cfg.loadBalancing = strategy
	})
}

// WithMaxRetries caps the number of transparent retries after
// connection-refused errors. Zero (the default) means up to one attempt per
// additional known host. Also see WithoutRetries.
func WithMaxRetries(n int) Option {
	return optionFunc(func(cfg *config) {
		cfg.maxRetries = n
		cfg.retryDisabled = false
	})
}

// WithoutRetries disables transparent retries entirely.
func WithoutRetries() Option {
	return optionFunc(func(cfg *config) {
		cfg.retryDisabled = true
	})
}

// WithHeader adds a default header sent on every request. Per-request
// headers take precedence.
func WithHeader(name, value string) Option {
	return optionFunc(func(cfg *config) {
		cfg.headers.Set(name, value)
	})
}

// WithTransportOptions configures the transports created for each host.
func WithTransportOptions(opts TransportOptions) Option {
	return optionFunc(func(cfg *config) {
		cfg.transport = opts
	})
}

// WithTransport replaces the factory used to build each host's transport.
// This is the extension point for custom wire handling; the connection
// itself never opens sockets.
func WithTransport(factory TransportFactory) Option {
	return optionFunc(func(cfg *config) {
		cfg.factory = factory
	})
}

// WithLogger attaches a logger. Host pool changes, failovers, transparent
// retries and leader redirects are logged at debug level. The default logger
// discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return optionFunc(func(cfg *config) {
		cfg.logger = logger
	})
}

// WithMetrics attaches a metrics collector. The default is no metrics.
func WithMetrics(metrics *Metrics) Option {
	return optionFunc(func(cfg *config) {
		cfg.metrics = metrics
	})
}

type config struct {
	endpoints     []string
	auth          string
	arangoVersion int
	loadBalancing LoadBalancingStrategy
	maxRetries    int
	retryDisabled bool
	headers       http.Header
	transport     TransportOptions
	factory       TransportFactory
	logger        zerolog.Logger
	metrics       *Metrics
	clock         internal.Clock
}

func newConfig(options ...Option) *config {
	cfg := &config{
		headers: make(http.Header),
		logger:  zerolog.Nop(),
	}
	for _, opt := range options {
		opt.apply(cfg)
	}
	cfg.applyDefaults()
	return cfg
}

func (cfg *config) applyDefaults() {
	if len(cfg.endpoints) == 0 {
		cfg.endpoints = []string{DefaultEndpoint}
	}
	if cfg.arangoVersion == 0 {
		cfg.arangoVersion = defaultArangoVersion
	}
	if cfg.transport.MaxSockets == 0 {
		cfg.transport.MaxSockets = 3
		// Keep-alive is only defaulted alongside MaxSockets: a caller who
		// passes explicit TransportOptions gets them verbatim.
		cfg.transport.KeepAlive = true
	}
	if cfg.transport.IdleConnTimeout == 0 {
		cfg.transport.IdleConnTimeout = 90 * time.Second
	}
	if cfg.transport.TLSHandshakeTimeout == 0 {
		cfg.transport.TLSHandshakeTimeout = 10 * time.Second
	}
	if cfg.clock == nil {
		cfg.clock = internal.NewRealClock()
	}
	if cfg.factory == nil {
		cfg.factory = httpTransportFactory{clock: cfg.clock}
	}
}

// maxInFlight derives the in-flight request bound from the transport
// configuration: with persistent connections the server can interleave
// responses, so twice the socket count may be outstanding.
func (cfg *config) maxInFlight() int64 {
	if cfg.transport.KeepAlive {
		return int64(cfg.transport.MaxSockets) * 2
	}
	return int64(cfg.transport.MaxSockets)
}

func basicAuthHeader(username, password string) string {
	credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
	return "Basic " + credentials
}
