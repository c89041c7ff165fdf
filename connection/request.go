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
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request describes one logical request to the server. The zero value of
// every field is usable: method defaults to GET and the request is not
// pinned to any host.
type Request struct {
	// Method is the HTTP method. Empty means GET.
	Method string
	// Path is the URL path, starting with "/".
	Path string
	// Query holds URL query parameters, if any.
	Query url.Values
	// Header holds per-request header overrides. These win over the
	// connection's default headers.
	Header http.Header
	// Body is the request payload. A []byte is sent verbatim as
	// application/octet-stream, a string as text/plain, and anything else
	// is JSON-encoded.
	Body any
	// Timeout, if positive, bounds the duration of a single transport
	// exchange. Transparent retries each get a fresh timeout.
	Timeout time.Duration
	// AllowDirtyRead permits the request to be answered by a follower.
	// Dirty-read requests rotate through hosts on their own cursor and
	// carry the x-arango-allow-dirty-read header.
	AllowDirtyRead bool
	// ExpectBinary indicates the response body is binary and should not be
	// inspected for a server error envelope.
	ExpectBinary bool

	host       int
	hostPinned bool
}

// PinToHost pins the request to the host with the given pool index, typically
// a Response.Host from an earlier request. Pinned requests bypass host
// selection, never advance any cursor, and are never transparently retried.
func (r *Request) PinToHost(index int) {
	r.host = index
	r.hostPinned = true
}

// pathQuery renders the path plus encoded query string.
func (r *Request) pathQuery() string {
	if len(r.Query) == 0 {
		return r.Path
	}
	return r.Path + "?" + r.Query.Encode()
}

// payload serializes the request body and names its content type. A nil body
// yields a nil payload and no content type.
func (r *Request) payload() ([]byte, string, error) {
	switch body := r.Body.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return body, "application/octet-stream", nil
	case string:
		return []byte(body), "text/plain", nil
	case json.RawMessage:
		return body, "application/json", nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("arangojs: cannot encode request body: %w", err)
		}
		return data, "application/json", nil
	}
}

// Response is the raw outcome of a request.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Body is the raw response body.
	Body []byte
	// Host is the pool index of the host that served the response. Pass it
	// to Request.PinToHost to direct follow-up requests to the same host,
	// e.g. for cursor continuation.
	Host int
}

// UnmarshalBody decodes the JSON response body into v.
func (r *Response) UnmarshalBody(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("arangojs: cannot decode response body: %w", err)
	}
	return nil
}
