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
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/RecallGraph/arangojs/internal"
	"golang.org/x/net/http2"
)

//nolint:gochecknoglobals
var defaultDialer = &net.Dialer{
	Timeout:   30 * time.Second,
	KeepAlive: 30 * time.Second,
}

// TransportRequest is the fully serialized form of a request handed to a
// Transport: the body is already encoded and the headers are fully merged.
type TransportRequest struct {
	Method string
	// PathQuery is the request path plus encoded query string, starting
	// with "/". The transport prepends its own base endpoint.
	PathQuery string
	Header    http.Header
	Body      []byte
	// Timeout, if positive, bounds the whole exchange. The transport must
	// abort the request when it elapses.
	Timeout time.Duration
}

// Transport performs one HTTP exchange against a fixed base endpoint. One
// Transport exists per host pool entry; implementations must be safe for
// concurrent use.
type Transport interface {
	RoundTrip(ctx context.Context, req *TransportRequest) (*Response, error)
	// Close releases any resources held by the transport, such as idle
	// network connections.
	Close()
}

// TransportFactory creates the Transport for a normalized endpoint URL. The
// default factory handles "http", "https" and "h2c" endpoints, including the
// "scheme://unix:/path" socket form; supply a custom factory via
// WithTransport to substitute something else.
type TransportFactory interface {
	New(endpoint string, opts TransportOptions) (Transport, error)
}

// TransportOptions configures the transports built by a TransportFactory.
type TransportOptions struct {
	// MaxSockets caps the number of network connections per host.
	MaxSockets int
	// KeepAlive enables persistent connections. With keep-alive on, the
	// connection allows MaxSockets*2 concurrent in-flight requests; without
	// it, MaxSockets.
	KeepAlive bool
	// IdleConnTimeout expires idle network connections, if non-zero.
	IdleConnTimeout time.Duration
	// TLSClientConfig, if present, provides custom TLS configuration for
	// "https" endpoints.
	TLSClientConfig *tls.Config
	// TLSHandshakeTimeout bounds the TLS handshake.
	TLSHandshakeTimeout time.Duration
	// DialFunc, if non-nil, replaces the default dialer. It is ignored for
	// unix-socket endpoints.
	DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)
}

type httpTransportFactory struct {
	clock internal.Clock
}

func (f httpTransportFactory) New(endpoint string, opts TransportOptions) (Transport, error) {
	scheme, rest, ok := strings.Cut(endpoint, "://")
	if !ok {
		return nil, fmt.Errorf("malformed endpoint %q", endpoint)
	}

	dial := opts.DialFunc
	if dial == nil {
		dial = defaultDialer.DialContext
	}
	baseURL := endpoint
	if socketPath, isUnix := strings.CutPrefix(rest, "unix:"); isUnix {
		// All requests go through the socket; the host part of the URL is
		// only a placeholder.
		dial = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return defaultDialer.DialContext(ctx, "unix", socketPath)
		}
		baseURL = scheme + "://unix"
	}

	switch scheme {
	case "http", "https":
		transport := &http.Transport{
			DialContext:           dial,
			ForceAttemptHTTP2:     true,
			MaxConnsPerHost:       opts.MaxSockets,
			MaxIdleConnsPerHost:   opts.MaxSockets,
			IdleConnTimeout:       opts.IdleConnTimeout,
			TLSClientConfig:       opts.TLSClientConfig,
			TLSHandshakeTimeout:   opts.TLSHandshakeTimeout,
			DisableKeepAlives:     !opts.KeepAlive,
			ExpectContinueTimeout: 1 * time.Second,
		}
		return &httpTransport{
			baseURL: baseURL,
			rt:      transport,
			clock:   f.clock,
			closeFn: transport.CloseIdleConnections,
		}, nil
	case "h2c":
		// HTTP/2 over clear text. The http2 transport expects "http" URLs.
		transport := &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				return dial(ctx, network, addr)
			},
		}
		return &httpTransport{
			baseURL: "http" + strings.TrimPrefix(baseURL, "h2c"),
			rt:      transport,
			clock:   f.clock,
			closeFn: transport.CloseIdleConnections,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported endpoint scheme %q", scheme)
	}
}

// httpTransport adapts an http.RoundTripper to the Transport contract for a
// single base endpoint.
type httpTransport struct {
	baseURL string
	rt      http.RoundTripper
	clock   internal.Clock
	closeFn func()
}

func (t *httpTransport) RoundTrip(ctx context.Context, req *TransportRequest) (*Response, error) {
	var timedOut atomic.Bool
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		timer := t.clock.AfterFunc(req.Timeout, func() {
			timedOut.Store(true)
			cancel()
		})
		defer timer.Stop()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, t.baseURL+req.PathQuery, body)
	if err != nil {
		return nil, err
	}
	for name, values := range req.Header {
		httpReq.Header[name] = values
	}
	httpReq.ContentLength = int64(len(req.Body))

	httpResp, err := t.rt.RoundTrip(httpReq)
	if err != nil {
		if timedOut.Load() {
			return nil, fmt.Errorf("request timed out after %v: %w", req.Timeout, err)
		}
		return nil, err
	}
	defer httpResp.Body.Close()
	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		if timedOut.Load() {
			return nil, fmt.Errorf("request timed out after %v: %w", req.Timeout, err)
		}
		return nil, err
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

func (t *httpTransport) Close() {
	if t.closeFn != nil {
		t.closeFn()
	}
}
