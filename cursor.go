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
	"encoding/json"
	"errors"

	"github.com/RecallGraph/arangojs/connection"
)

// ErrNoMoreDocuments is returned by [Cursor.Next] once the result set is
// exhausted.
var ErrNoMoreDocuments = errors.New("arangojs: no more documents")

// cursorBatch is the server's response shape for cursor creation and
// continuation.
type cursorBatch struct {
	ID      string            `json:"id"`
	Result  []json.RawMessage `json:"result"`
	HasMore bool              `json:"hasMore"`
	Count   int               `json:"count"`
}

// Cursor iterates over the result set of an AQL query, fetching further
// batches from the server on demand. Batches of a server-side cursor are
// held by the host that created it, so all follow-up requests are pinned to
// that host. Cursor is not safe for concurrent use.
type Cursor struct {
	db    *Database
	id    string
	host  int
	dirty bool
	count int

	batch   []json.RawMessage
	offset  int
	hasMore bool
	closed  bool
}

func newCursor(db *Database, resp *connection.Response, dirty bool) (*Cursor, error) {
	var batch cursorBatch
	if err := resp.UnmarshalBody(&batch); err != nil {
		return nil, err
	}
	return &Cursor{
		db:      db,
		id:      batch.ID,
		host:    resp.Host,
		dirty:   dirty,
		count:   batch.Count,
		batch:   batch.Result,
		hasMore: batch.HasMore,
	}, nil
}

// Count returns the total number of results, if the query was executed with
// QueryOptions.Count; zero otherwise.
func (c *Cursor) Count() int {
	return c.count
}

// HasMore reports whether another call to Next can yield a result without
// returning ErrNoMoreDocuments.
func (c *Cursor) HasMore() bool {
	return c.offset < len(c.batch) || c.hasMore
}

// Next decodes the next result into v. When the current batch is exhausted
// it fetches the next one from the host holding the cursor. Returns
// ErrNoMoreDocuments after the final result.
func (c *Cursor) Next(ctx context.Context, v any) error {
	if c.offset >= len(c.batch) {
		if c.closed || !c.hasMore {
			return ErrNoMoreDocuments
		}
		if err := c.fetchBatch(ctx); err != nil {
			return err
		}
		if len(c.batch) == 0 {
			return ErrNoMoreDocuments
		}
	}
	raw := c.batch[c.offset]
	c.offset++
	return json.Unmarshal(raw, v)
}

func (c *Cursor) fetchBatch(ctx context.Context) error {
	req := &connection.Request{
		Method:         "POST",
		Path:           c.db.apiPath("cursor", c.id),
		AllowDirtyRead: c.dirty,
	}
	req.PinToHost(c.host)
	resp, err := c.db.conn.Request(ctx, req)
	if err != nil {
		return err
	}
	var batch cursorBatch
	if err := resp.UnmarshalBody(&batch); err != nil {
		return err
	}
	c.batch = batch.Result
	c.offset = 0
	c.hasMore = batch.HasMore
	return nil
}

// Close discards the server-side cursor. It is safe to call on exhausted or
// already-closed cursors.
func (c *Cursor) Close(ctx context.Context) error {
	if c.closed {
		return nil
	}
	c.closed = true
	if c.id == "" || !c.hasMore {
		// The server drops a cursor with the final batch, and never
		// creates one when the whole result fits in the first.
		c.hasMore = false
		return nil
	}
	c.hasMore = false
	req := &connection.Request{
		Method:         "DELETE",
		Path:           c.db.apiPath("cursor", c.id),
		AllowDirtyRead: c.dirty,
	}
	req.PinToHost(c.host)
	_, err := c.db.conn.Request(ctx, req)
	return err
}
