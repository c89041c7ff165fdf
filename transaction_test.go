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
	"testing"

	"github.com/RecallGraph/arangojs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionLifecycle(t *testing.T) {
	t.Parallel()

	var insertTrxID, commitTrxID string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /_db/_system/_api/transaction/begin", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Collections arangojs.TransactionCollections `json:"collections"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"users"}, body.Collections.Write)
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"result": map[string]any{"id": "trx-7", "status": "running"},
		})
	})
	mux.HandleFunc("POST /_db/_system/_api/document/users", func(w http.ResponseWriter, r *http.Request) {
		insertTrxID = r.Header.Get("x-arango-trx-id")
		writeJSON(t, w, http.StatusAccepted, map[string]string{"_id": "users/1", "_key": "1"})
	})
	mux.HandleFunc("GET /_db/_system/_api/transaction/trx-7", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, map[string]any{
			"result": map[string]any{"id": "trx-7", "status": "running"},
		})
	})
	mux.HandleFunc("PUT /_db/_system/_api/transaction/trx-7", func(w http.ResponseWriter, r *http.Request) {
		commitTrxID = r.Header.Get("x-arango-trx-id")
		writeJSON(t, w, http.StatusOK, map[string]any{
			"result": map[string]any{"id": "trx-7", "status": "committed"},
		})
	})
	db := newTestDatabase(t, mux)

	trx, err := db.BeginTransaction(context.Background(), arangojs.TransactionCollections{Write: []string{"users"}})
	require.NoError(t, err)
	assert.Equal(t, "trx-7", trx.ID())

	status, err := trx.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, arangojs.TransactionRunning, status)

	trx.Attach()
	_, err = db.Collection("users").CreateDocument(context.Background(), map[string]string{"name": "ann"})
	require.NoError(t, err)
	assert.Equal(t, "trx-7", insertTrxID)

	require.NoError(t, trx.Commit(context.Background()))
	// Commit detaches first, so the commit itself runs outside the
	// transaction header.
	assert.Empty(t, commitTrxID)
}

func TestTransactionAbort(t *testing.T) {
	t.Parallel()

	var aborted bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /_db/_system/_api/transaction/begin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusCreated, map[string]any{
			"result": map[string]any{"id": "trx-9", "status": "running"},
		})
	})
	mux.HandleFunc("DELETE /_db/_system/_api/transaction/trx-9", func(w http.ResponseWriter, r *http.Request) {
		aborted = true
		writeJSON(t, w, http.StatusOK, map[string]any{
			"result": map[string]any{"id": "trx-9", "status": "aborted"},
		})
	})
	db := newTestDatabase(t, mux)

	trx, err := db.BeginTransaction(context.Background(), arangojs.TransactionCollections{Read: []string{"users"}})
	require.NoError(t, err)
	require.NoError(t, trx.Abort(context.Background()))
	assert.True(t, aborted)
}
