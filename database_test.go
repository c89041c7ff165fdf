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

package arangojs_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RecallGraph/arangojs"
	"github.com/RecallGraph/arangojs/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDatabase starts a fake server with the given routes and connects a
// _system database handle to it. Routes and server are cleaned up with the
// test.
func newTestDatabase(t *testing.T, mux *http.ServeMux, options ...connection.Option) *arangojs.Database {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	db, err := arangojs.Connect(append([]connection.Option{
		connection.WithEndpoints(server.URL),
	}, options...)...)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func writeArangoError(t *testing.T, w http.ResponseWriter, status, errorNum int, message string) {
	t.Helper()
	writeJSON(t, w, status, map[string]any{
		"error":        true,
		"code":         status,
		"errorNum":     errorNum,
		"errorMessage": message,
	})
}

func TestDatabaseVersion(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /_db/_system/_api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]string{
			"server":  "arango",
			"license": "community",
			"version": "3.11.5",
		})
	})
	db := newTestDatabase(t, mux)

	info, err := db.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, arangojs.VersionInfo{Server: "arango", License: "community", Version: "3.11.5"}, info)
}

func TestDatabaseHandles(t *testing.T) {
	t.Parallel()

	db := newTestDatabase(t, http.NewServeMux())
	assert.Equal(t, arangojs.SystemDatabase, db.Name())

	other := db.Database("myapp")
	assert.Equal(t, "myapp", other.Name())
	assert.Same(t, db.Connection(), other.Connection())
}

func TestDatabasePathEscaping(t *testing.T) {
	t.Parallel()

	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		writeJSON(t, w, http.StatusOK, map[string]any{})
	})
	db := newTestDatabase(t, mux)

	_, err := db.Database("my db").Collection("col/x").ReadDocument(context.Background(), "key#1", nil)
	require.NoError(t, err)
	assert.Equal(t, "/_db/my%20db/_api/document/col%2Fx/key%231", gotPath)
}

func TestAcquireHostList(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /_db/_system/_api/cluster/endpoints", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"endpoints": []map[string]string{
				{"endpoint": "tcp://coordinator1:8529"},
				{"endpoint": "ssl://coordinator2:8529"},
			},
		})
	})
	db := newTestDatabase(t, mux)

	require.NoError(t, db.AcquireHostList(context.Background()))
	endpoints := db.Connection().Endpoints()
	require.Len(t, endpoints, 3)
	assert.Equal(t, "http://coordinator1:8529", endpoints[1])
	assert.Equal(t, "https://coordinator2:8529", endpoints[2])

	// Learning the same endpoints again must not grow the pool.
	require.NoError(t, db.AcquireHostList(context.Background()))
	assert.Len(t, db.Connection().Endpoints(), 3)
}

func TestQuerySingleBatch(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /_db/_system/_api/cursor", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "FOR u IN users RETURN u.name", body["query"])
		assert.Equal(t, map[string]any{"active": true}, body["bindVars"])
		assert.Equal(t, true, body["count"])
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"result":  []string{"ann", "bob"},
			"hasMore": false,
			"count":   2,
		})
	})
	db := newTestDatabase(t, mux)

	cursor, err := db.Query(context.Background(),
		"FOR u IN users RETURN u.name",
		map[string]any{"active": true},
		&arangojs.QueryOptions{Count: true},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, cursor.Count())

	var names []string
	for cursor.HasMore() {
		var name string
		require.NoError(t, cursor.Next(context.Background(), &name))
		names = append(names, name)
	}
	assert.Equal(t, []string{"ann", "bob"}, names)

	var discard string
	assert.ErrorIs(t, cursor.Next(context.Background(), &discard), arangojs.ErrNoMoreDocuments)
	assert.NoError(t, cursor.Close(context.Background()))
}

func TestQueryError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("POST /_db/_system/_api/cursor", func(w http.ResponseWriter, r *http.Request) {
		writeArangoError(t, w, http.StatusBadRequest, 1501, "syntax error near 'RETRUN'")
	})
	db := newTestDatabase(t, mux)

	_, err := db.Query(context.Background(), "RETRUN 1", nil, nil)
	require.Error(t, err)
	assert.True(t, connection.IsArangoError(err, 1501))
}
