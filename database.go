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

package arangojs

import (
	"context"
	"net/url"
	"strings"

	"github.com/RecallGraph/arangojs/connection"
)

// Database is a handle to one database on a server or cluster. Handles are
// cheap; all of them share the connection they were created from.
type Database struct {
	conn *connection.Conn
	name string
}

// Name returns the database name.
func (db *Database) Name() string {
	return db.name
}

// Database returns a handle to a sibling database on the same connection.
func (db *Database) Database(name string) *Database {
	return NewDatabase(db.conn, name)
}

// Connection exposes the underlying connection, e.g. for endpoint
// management or switching credentials.
func (db *Database) Connection() *connection.Conn {
	return db.conn
}

// Close releases the underlying connection. All handles sharing it become
// unusable.
func (db *Database) Close() {
	db.conn.Close()
}

// path joins URL path segments under this database's prefix, escaping each
// segment.
func (db *Database) path(segments ...string) string {
	var builder strings.Builder
	builder.WriteString("/_db/")
	builder.WriteString(url.PathEscape(db.name))
	for _, segment := range segments {
		builder.WriteString("/")
		builder.WriteString(url.PathEscape(segment))
	}
	return builder.String()
}

// apiPath joins segments under this database's /_api prefix. The segments
// are escaped individually, so document keys and collection names are safe
// to pass through.
func (db *Database) apiPath(segments ...string) string {
	return db.path(append([]string{"_api"}, segments...)...)
}

// VersionInfo describes the server, as reported by /_api/version.
type VersionInfo struct {
	Server  string `json:"server"`
	License string `json:"license"`
	Version string `json:"version"`
}

// Version returns the server's version information.
func (db *Database) Version(ctx context.Context) (VersionInfo, error) {
	resp, err := db.conn.Request(ctx, &connection.Request{
		Path: db.apiPath("version"),
	})
	if err != nil {
		return VersionInfo{}, err
	}
	var info VersionInfo
	if err := resp.UnmarshalBody(&info); err != nil {
		return VersionInfo{}, err
	}
	return info, nil
}

// AcquireHostList asks a coordinator for the cluster's current endpoints and
// registers them with the connection's host pool. Endpoints learned this way
// participate in load balancing and failover like configured ones; the pool
// only ever grows.
func (db *Database) AcquireHostList(ctx context.Context) error {
	resp, err := db.conn.Request(ctx, &connection.Request{
		Path: db.apiPath("cluster", "endpoints"),
	})
	if err != nil {
		return err
	}
	var result struct {
		Endpoints []struct {
			Endpoint string `json:"endpoint"`
		} `json:"endpoints"`
	}
	if err := resp.UnmarshalBody(&result); err != nil {
		return err
	}
	if len(result.Endpoints) == 0 {
		return nil
	}
	urls := make([]string, len(result.Endpoints))
	for i, endpoint := range result.Endpoints {
		urls[i] = endpoint.Endpoint
	}
	_, err = db.conn.AddHosts(urls...)
	return err
}

// QueryOptions tunes AQL query execution.
type QueryOptions struct {
	// BatchSize caps the number of results per round trip. Zero uses the
	// server default.
	BatchSize int
	// Count makes the server report the total result count, available via
	// Cursor.Count.
	Count bool
	// TTL is the cursor's time-to-live on the server, in seconds.
	TTL int
	// AllowDirtyRead permits the query to be answered by a follower.
	// Follow-up batch fetches stick to the host that created the cursor.
	AllowDirtyRead bool
}

// Query executes an AQL query and returns a cursor over its results. A nil
// opts uses the defaults.
func (db *Database) Query(ctx context.Context, query string, bindVars map[string]any, opts *QueryOptions) (*Cursor, error) {
	if opts == nil {
		opts = &QueryOptions{}
	}
	body := map[string]any{
		"query": query,
	}
	if len(bindVars) > 0 {
		body["bindVars"] = bindVars
	}
	if opts.BatchSize > 0 {
		body["batchSize"] = opts.BatchSize
	}
	if opts.Count {
		body["count"] = true
	}
	if opts.TTL > 0 {
		body["ttl"] = opts.TTL
	}
	resp, err := db.conn.Request(ctx, &connection.Request{
		Method:         "POST",
		Path:           db.apiPath("cursor"),
		Body:           body,
		AllowDirtyRead: opts.AllowDirtyRead,
	})
	if err != nil {
		return nil, err
	}
	return newCursor(db, resp, opts.AllowDirtyRead)
}
