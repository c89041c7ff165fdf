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

// Package connection implements the request pipeline underneath the
// arangojs driver: an append-only pool of server endpoints, host selection
// with pluggable load balancing (none, one-random, round-robin), transparent
// failover and retry on connection-refused errors, transparent leader
// redirects in active-failover deployments, and dirty-read routing to
// follower servers.
//
// Higher-level handles (databases, collections, cursors) are thin mappings
// from method calls to REST paths; they all funnel through [Conn.Request].
//
// A request outcome is exactly one of: a successful *[Response], a transport
// error, an *[ArangoError] carrying the server's error envelope, or an
// *[HTTPError] for other non-2xx statuses. Failures that the pipeline can
// absorb — a connection refused while other hosts remain and retries are in
// budget, or a 503 naming the current leader — are never surfaced.
package connection
