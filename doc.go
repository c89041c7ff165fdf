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

// Package arangojs is a Go driver for the ArangoDB multi-model database.
//
// A Database handle is obtained with Connect and gives access to AQL
// queries, collections, documents and stream transactions:
//
//	db, err := arangojs.Connect(
//		connection.WithEndpoints("http://localhost:8529"),
//		connection.WithBasicAuth("root", ""),
//	)
//	if err != nil {
//		// ...
//	}
//	defer db.Close()
//
//	cursor, err := db.Query(ctx, "FOR u IN users RETURN u", nil, nil)
//
// All handles share one [connection.Conn], which manages the pool of server
// endpoints, load balancing, failover and transparent retries. See the
// connection package for details and for cluster-related options.
package arangojs
