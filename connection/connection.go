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
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/RecallGraph/arangojs/internal"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
)

// Headers the pipeline produces or inspects.
const (
	headerArangoVersion  = "x-arango-version"
	headerDirtyRead      = "x-arango-allow-dirty-read"
	headerTransactionID  = "x-arango-trx-id"
	headerLeaderEndpoint = "x-arango-endpoint"
)

// Conn is the request pipeline shared by all higher-level handles. It owns
// the host pool and decides, per request, which host to dispatch to, honoring
// the configured load-balancing strategy, transparent connection-refused
// retries, leader redirects and dirty-read routing. Conn is safe for
// concurrent use.
//
// Requests are admitted in FIFO order up to an in-flight bound derived from
// the transport configuration; a transparently retried request re-enters the
// queue at the tail. Completion order is not guaranteed.
type Conn struct {
	pool          *hostPool
	inFlight      *semaphore.Weighted
	loadBalancing LoadBalancingStrategy
	maxRetries    int
	retryDisabled bool
	logger        zerolog.Logger
	metrics       *Metrics
	closed        atomic.Bool

	mu              sync.Mutex
	activeHost      int
	activeDirtyHost int
	headers         http.Header
	transactionID   string
}

// New creates a Conn from the given options and registers the configured
// endpoints with its host pool.
func New(options ...Option) (*Conn, error) {
	cfg := newConfig(options...)
	conn := &Conn{
		inFlight:      semaphore.NewWeighted(cfg.maxInFlight()),
		loadBalancing: cfg.loadBalancing,
		maxRetries:    cfg.maxRetries,
		retryDisabled: cfg.retryDisabled,
		logger:        cfg.logger,
		metrics:       cfg.metrics,
		headers:       cfg.headers.Clone(),
	}
	conn.pool = newHostPool(func(endpoint string) (Transport, error) {
		return cfg.factory.New(endpoint, cfg.transport)
	})
	conn.headers.Set(headerArangoVersion, strconv.Itoa(cfg.arangoVersion))
	if cfg.auth != "" {
		conn.headers.Set("Authorization", cfg.auth)
	}
	if _, err := conn.AddHosts(cfg.endpoints...); err != nil {
		return nil, err
	}
	if cfg.loadBalancing == LoadBalancingOneRandom {
		conn.activeHost = internal.NewRand().Intn(conn.pool.size())
	}
	return conn, nil
}

// task tracks the dispatch state of one request across transparent retries
// and redirects.
type task struct {
	pinned    bool
	hostIndex int
	dirty     bool
	retries   int
}

// Request dispatches a request and returns the raw response. Transport
// errors, responses carrying the server error envelope, and responses with
// status >= 400 are returned as errors; connection-refused failures and
// leader redirects are handled transparently first (see the package
// documentation). Callers decode successful responses via
// Response.UnmarshalBody.
//
// Cancelling ctx while the request is queued or in flight aborts it.
func (c *Conn) Request(ctx context.Context, req *Request) (*Response, error) {
	body, contentType, err := req.payload()
	if err != nil {
		return nil, err
	}
	wire := &TransportRequest{
		Method:    req.Method,
		PathQuery: req.pathQuery(),
		Header:    c.buildHeader(req, contentType),
		Body:      body,
		Timeout:   req.Timeout,
	}
	if wire.Method == "" {
		wire.Method = http.MethodGet
	}
	currentTask := &task{
		pinned:    req.hostPinned,
		hostIndex: req.host,
		dirty:     req.AllowDirtyRead,
	}

	for {
		if c.closed.Load() {
			return nil, ErrConnectionClosed
		}
		if err := c.inFlight.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		index := c.pickHost(currentTask)
		transport := c.pool.get(index).transport
		c.metrics.requestStarted()
		resp, err := transport.RoundTrip(ctx, wire)
		c.metrics.requestFinished()
		c.inFlight.Release(1)

		if err != nil {
			c.noteFailure(currentTask, index)
			if c.shouldRetry(currentTask, err) {
				currentTask.retries++
				c.metrics.recordRetry()
				c.logger.Debug().Int("host", index).Int("retry", currentTask.retries).
					Msg("connection refused, retrying on next host")
				continue
			}
			c.metrics.recordTransportError(wire.Method)
			return nil, fmt.Errorf("arangojs: %s %s: %w", wire.Method, req.Path, err)
		}

		if endpoint := resp.Header.Get(headerLeaderEndpoint); resp.StatusCode == http.StatusServiceUnavailable && endpoint != "" {
			if err := c.redirectToLeader(currentTask, index, endpoint); err != nil {
				return nil, err
			}
			continue
		}

		resp.Host = index
		c.metrics.recordRequest(wire.Method, resp.StatusCode)
		if !req.ExpectBinary {
			if aerr := parseArangoError(resp); aerr != nil {
				return nil, aerr
			}
		}
		if resp.StatusCode >= 400 {
			return nil, &HTTPError{Code: resp.StatusCode}
		}
		return resp, nil
	}
}

// pickHost chooses the host for the next dispatch. Pinned tasks bypass both
// cursors; dirty-read tasks rotate on their own cursor; everything else uses
// the active host cursor, which only advances here under round-robin.
func (c *Conn) pickHost(currentTask *task) int {
	if currentTask.pinned {
		return currentTask.hostIndex
	}
	size := c.pool.size()
	c.mu.Lock()
	defer c.mu.Unlock()
	if currentTask.dirty {
		index := c.activeDirtyHost
		c.activeDirtyHost = (c.activeDirtyHost + 1) % size
		return index
	}
	index := c.activeHost
	if c.loadBalancing == LoadBalancingRoundRobin {
		c.activeHost = (c.activeHost + 1) % size
	}
	return index
}

// noteFailure advances the active host cursor away from a host that failed a
// non-pinned, non-dirty request, when there is somewhere to advance to. Under
// round-robin the cursor already rotates on every dispatch, so failures do
// not move it again.
func (c *Conn) noteFailure(currentTask *task, index int) {
	if currentTask.pinned || currentTask.dirty {
		return
	}
	size := c.pool.size()
	c.mu.Lock()
	defer c.mu.Unlock()
	if size > 1 && c.activeHost == index && c.loadBalancing != LoadBalancingRoundRobin {
		c.activeHost = (index + 1) % size
		c.metrics.recordFailover()
		c.logger.Debug().Int("failed", index).Int("next", c.activeHost).Msg("failing over to next host")
	}
}

// shouldRetry reports whether a failed dispatch may be transparently
// retried: only unpinned tasks, only connection-refused errors, and only
// while the retry budget lasts. A zero budget configuration means one
// attempt per additional known host.
func (c *Conn) shouldRetry(currentTask *task, err error) bool {
	if currentTask.pinned || c.retryDisabled || !isConnectionRefused(err) {
		return false
	}
	budget := c.maxRetries
	if budget <= 0 {
		budget = c.pool.size() - 1
	}
	return currentTask.retries < budget
}

// redirectToLeader registers the endpoint announced by a 503 response, pins
// the task to it, and drags the active host cursor along if it still pointed
// at the host that answered. The retry budget is not consumed.
func (c *Conn) redirectToLeader(currentTask *task, index int, endpoint string) error {
	indices, err := c.pool.addHosts(endpoint)
	if err != nil {
		return fmt.Errorf("arangojs: cannot follow leader redirect to %q: %w", endpoint, err)
	}
	leader := indices[0]
	c.mu.Lock()
	if c.activeHost == index {
		c.activeHost = leader
	}
	c.mu.Unlock()
	currentTask.pinned = true
	currentTask.hostIndex = leader
	c.metrics.recordRedirect()
	c.logger.Debug().Str("endpoint", endpoint).Int("host", leader).Msg("following leader redirect")
	return nil
}

// buildHeader merges the connection's default headers, the active
// transaction id, the body content type and the per-request overrides, in
// ascending precedence.
func (c *Conn) buildHeader(req *Request, contentType string) http.Header {
	header := make(http.Header, len(req.Header)+4)
	c.mu.Lock()
	for name, values := range c.headers {
		header[name] = values
	}
	if c.transactionID != "" {
		header.Set(headerTransactionID, c.transactionID)
	}
	c.mu.Unlock()
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	for name, values := range req.Header {
		header[http.CanonicalHeaderKey(name)] = values
	}
	if req.AllowDirtyRead {
		header.Set(headerDirtyRead, "true")
	}
	return header
}

// AddHosts registers additional endpoints with the host pool and returns
// their pool indices, in input order. Known endpoints (after normalization)
// keep their existing index; the pool only ever grows.
func (c *Conn) AddHosts(urls ...string) ([]int, error) {
	before := c.pool.size()
	indices, err := c.pool.addHosts(urls...)
	if err != nil {
		return nil, err
	}
	if added := c.pool.size() - before; added > 0 {
		c.logger.Debug().Strs("endpoints", c.pool.urls()).Msg("host pool grown")
	}
	return indices, nil
}

// Endpoints returns the normalized URLs of all known hosts, in pool order.
func (c *Conn) Endpoints() []string {
	return c.pool.urls()
}

// SetHeader sets a default header sent on every subsequent request.
func (c *Conn) SetHeader(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Set(name, value)
}

// RemoveHeader removes a default header.
func (c *Conn) RemoveHeader(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headers.Del(name)
}

// SetBasicAuth switches every subsequent request to HTTP basic
// authentication.
func (c *Conn) SetBasicAuth(username, password string) {
	c.SetHeader("Authorization", basicAuthHeader(username, password))
}

// SetBearerAuth switches every subsequent request to bearer-token
// authentication.
func (c *Conn) SetBearerAuth(token string) {
	c.SetHeader("Authorization", "Bearer "+token)
}

// SetTransactionID attaches a stream transaction id to every subsequent
// request until ClearTransactionID is called.
func (c *Conn) SetTransactionID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactionID = id
}

// ClearTransactionID detaches the active stream transaction id.
func (c *Conn) ClearTransactionID() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transactionID = ""
}

// Close releases the transports of every known host. Requests dispatched
// after Close fail with ErrConnectionClosed; requests already in flight are
// not interrupted.
func (c *Conn) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.pool.closeAll()
}
