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
	"errors"
	"fmt"
	"mime"
	"net/http"
	"syscall"
)

// ErrConnectionClosed is returned by Conn.Request after Close has been called.
var ErrConnectionClosed = errors.New("arangojs: connection is closed")

// Well-known ArangoDB error numbers, for use with IsArangoError.
const (
	ErrDocumentNotFound    = 1202
	ErrDataSourceNotFound  = 1203
	ErrUniqueConstraint    = 1210
	ErrTransactionNotFound = 1655
)

// ArangoError is the structured error envelope returned by the server:
//
//	{"error": true, "code": 404, "errorNum": 1202, "errorMessage": "..."}
//
// Code is the HTTP status the server chose; ErrorNum is the ArangoDB-specific
// error number.
type ArangoError struct {
	Code         int    `json:"code"`
	ErrorNum     int    `json:"errorNum"`
	ErrorMessage string `json:"errorMessage"`
}

func (e *ArangoError) Error() string {
	return fmt.Sprintf("arangojs: server error %d (HTTP %d): %s", e.ErrorNum, e.Code, e.ErrorMessage)
}

// Is matches any *ArangoError, so errors.Is(err, &ArangoError{}) reports
// whether err carries a server error envelope.
func (e *ArangoError) Is(target error) bool {
	_, ok := target.(*ArangoError)
	return ok
}

// IsArangoError reports whether err is a server error envelope with the given
// ArangoDB error number.
func IsArangoError(err error, errorNum int) bool {
	var aerr *ArangoError
	return errors.As(err, &aerr) && aerr.ErrorNum == errorNum
}

// HTTPError is a response with status >= 400 that did not carry the
// structured error envelope.
type HTTPError struct {
	Code int
}

func (e *HTTPError) Error() string {
	reason := http.StatusText(e.Code)
	if reason == "" {
		reason = "unknown status"
	}
	return fmt.Sprintf("arangojs: HTTP %d %s", e.Code, reason)
}

// IsHTTPError reports whether err is a plain HTTP error with the given status.
func IsHTTPError(err error, status int) bool {
	var herr *HTTPError
	return errors.As(err, &herr) && herr.Code == status
}

// isConnectionRefused reports whether err is a connection-refused class
// transport error. The check is explicit rather than structural: net and
// http errors wrap the originating syscall error, so errors.Is walks the
// chain down to the errno.
func isConnectionRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

// envelope mirrors the server's error body with pointer fields so that a
// body is only treated as an error envelope when every field is present.
type envelope struct {
	Error        *bool   `json:"error"`
	Code         *int    `json:"code"`
	ErrorNum     *int    `json:"errorNum"`
	ErrorMessage *string `json:"errorMessage"`
}

// parseArangoError extracts the server error envelope from a JSON response
// body, if there is one. It returns nil for non-JSON bodies, bodies that do
// not match the envelope shape, and envelopes with error=false.
func parseArangoError(resp *Response) *ArangoError {
	if len(resp.Body) == 0 || !isJSONContentType(resp.Header.Get("Content-Type")) {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil
	}
	if env.Error == nil || env.Code == nil || env.ErrorNum == nil || env.ErrorMessage == nil || !*env.Error {
		return nil
	}
	return &ArangoError{
		Code:         *env.Code,
		ErrorNum:     *env.ErrorNum,
		ErrorMessage: *env.ErrorMessage,
	}
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || mediaType == "application/x-arango-dump"
}
