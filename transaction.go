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
	"net/http"

	"github.com/RecallGraph/arangojs/connection"
)

// TransactionCollections names the collections a stream transaction will
// touch, by access mode. The server rejects operations on collections not
// declared here.
type TransactionCollections struct {
	Read      []string `json:"read,omitempty"`
	Write     []string `json:"write,omitempty"`
	Exclusive []string `json:"exclusive,omitempty"`
}

// TransactionStatus is the server-side state of a stream transaction.
type TransactionStatus string

const (
	TransactionRunning   TransactionStatus = "running"
	TransactionCommitted TransactionStatus = "committed"
	TransactionAborted   TransactionStatus = "aborted"
)

// transactionResult is the server's response shape for the stream
// transaction endpoints.
type transactionResult struct {
	Result struct {
		ID     string            `json:"id"`
		Status TransactionStatus `json:"status"`
	} `json:"result"`
}

// BeginTransaction starts a stream transaction over the given collections
// and returns a handle to it.
func (db *Database) BeginTransaction(ctx context.Context, collections TransactionCollections) (*Transaction, error) {
	resp, err := db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPost,
		Path:   db.apiPath("transaction", "begin"),
		Body:   map[string]any{"collections": collections},
	})
	if err != nil {
		return nil, err
	}
	var result transactionResult
	if err := resp.UnmarshalBody(&result); err != nil {
		return nil, err
	}
	return &Transaction{db: db, id: result.Result.ID}, nil
}

// Transaction is a handle to a running stream transaction. Individual
// requests join it by carrying its id; Attach makes the connection do that
// for every request until Detach.
type Transaction struct {
	db *Database
	id string
}

// ID returns the transaction id assigned by the server.
func (t *Transaction) ID() string {
	return t.id
}

// Attach makes every subsequent request on the underlying connection run
// inside this transaction, until Detach is called. Only one transaction can
// be attached at a time.
func (t *Transaction) Attach() {
	t.db.conn.SetTransactionID(t.id)
}

// Detach stops sending this transaction's id with subsequent requests. The
// transaction itself keeps running until committed or aborted.
func (t *Transaction) Detach() {
	t.db.conn.ClearTransactionID()
}

// Status fetches the transaction's current server-side state.
func (t *Transaction) Status(ctx context.Context) (TransactionStatus, error) {
	resp, err := t.db.conn.Request(ctx, &connection.Request{
		Path: t.db.apiPath("transaction", t.id),
	})
	if err != nil {
		return "", err
	}
	var result transactionResult
	if err := resp.UnmarshalBody(&result); err != nil {
		return "", err
	}
	return result.Result.Status, nil
}

// Commit makes the transaction's changes durable and detaches it from the
// connection.
func (t *Transaction) Commit(ctx context.Context) error {
	t.Detach()
	_, err := t.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPut,
		Path:   t.db.apiPath("transaction", t.id),
	})
	return err
}

// Abort discards the transaction's changes and detaches it from the
// connection.
func (t *Transaction) Abort(ctx context.Context) error {
	t.Detach()
	_, err := t.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodDelete,
		Path:   t.db.apiPath("transaction", t.id),
	})
	return err
}
