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
	"net/url"

	"github.com/RecallGraph/arangojs/connection"
)

// CollectionType distinguishes document and edge collections.
type CollectionType int

const (
	CollectionTypeDocument CollectionType = 2
	CollectionTypeEdge     CollectionType = 3
)

// CollectionInfo describes a collection as reported by the server.
type CollectionInfo struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	IsSystem bool           `json:"isSystem"`
	Status   int            `json:"status"`
	Type     CollectionType `json:"type"`
}

// CreateCollectionOptions tunes collection creation. The zero value creates
// a document collection with server defaults.
type CreateCollectionOptions struct {
	Type              CollectionType
	WaitForSync       bool
	NumberOfShards    int
	ReplicationFactor int
}

// DocumentMeta carries the identifying attributes every ArangoDB document
// has.
type DocumentMeta struct {
	Key string `json:"_key,omitempty"`
	ID  string `json:"_id,omitempty"`
	Rev string `json:"_rev,omitempty"`
}

// Collections lists the non-system collections of the database.
func (db *Database) Collections(ctx context.Context) ([]CollectionInfo, error) {
	resp, err := db.conn.Request(ctx, &connection.Request{
		Path:  db.apiPath("collection"),
		Query: url.Values{"excludeSystem": {"true"}},
	})
	if err != nil {
		return nil, err
	}
	var result struct {
		Result []CollectionInfo `json:"result"`
	}
	if err := resp.UnmarshalBody(&result); err != nil {
		return nil, err
	}
	return result.Result, nil
}

// CreateCollection creates a collection and returns a handle to it. A nil
// opts creates a document collection with server defaults.
func (db *Database) CreateCollection(ctx context.Context, name string, opts *CreateCollectionOptions) (*Collection, error) {
	body := map[string]any{"name": name}
	if opts != nil {
		if opts.Type != 0 {
			body["type"] = opts.Type
		}
		if opts.WaitForSync {
			body["waitForSync"] = true
		}
		if opts.NumberOfShards > 0 {
			body["numberOfShards"] = opts.NumberOfShards
		}
		if opts.ReplicationFactor > 0 {
			body["replicationFactor"] = opts.ReplicationFactor
		}
	}
	_, err := db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPost,
		Path:   db.apiPath("collection"),
		Body:   body,
	})
	if err != nil {
		return nil, err
	}
	return db.Collection(name), nil
}

// Collection returns a handle to the named collection. No request is made;
// use [Collection.Exists] or [Collection.Info] to check the server.
func (db *Database) Collection(name string) *Collection {
	return &Collection{db: db, name: name}
}

// Collection is a handle to one collection. It is as cheap as the Database
// handle it came from.
type Collection struct {
	db   *Database
	name string
}

// Name returns the collection name.
func (c *Collection) Name() string {
	return c.name
}

// Database returns the database this collection belongs to.
func (c *Collection) Database() *Database {
	return c.db
}

// Info fetches the collection's properties from the server.
func (c *Collection) Info(ctx context.Context) (CollectionInfo, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Path: c.db.apiPath("collection", c.name),
	})
	if err != nil {
		return CollectionInfo{}, err
	}
	var info CollectionInfo
	if err := resp.UnmarshalBody(&info); err != nil {
		return CollectionInfo{}, err
	}
	return info, nil
}

// Exists reports whether the collection exists on the server.
func (c *Collection) Exists(ctx context.Context) (bool, error) {
	_, err := c.db.conn.Request(ctx, &connection.Request{
		Path: c.db.apiPath("collection", c.name),
	})
	if connection.IsHTTPError(err, http.StatusNotFound) ||
		connection.IsArangoError(err, connection.ErrDataSourceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Truncate removes all documents but keeps the collection.
func (c *Collection) Truncate(ctx context.Context) error {
	_, err := c.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPut,
		Path:   c.db.apiPath("collection", c.name, "truncate"),
	})
	return err
}

// Drop deletes the collection and all of its documents.
func (c *Collection) Drop(ctx context.Context) error {
	_, err := c.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodDelete,
		Path:   c.db.apiPath("collection", c.name),
	})
	return err
}

// Count returns the number of documents in the collection.
func (c *Collection) Count(ctx context.Context) (int64, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Path: c.db.apiPath("collection", c.name, "count"),
	})
	if err != nil {
		return 0, err
	}
	var result struct {
		Count int64 `json:"count"`
	}
	if err := resp.UnmarshalBody(&result); err != nil {
		return 0, err
	}
	return result.Count, nil
}

// ReadDocument reads the document with the given key into v. v may be nil
// to only fetch the metadata.
func (c *Collection) ReadDocument(ctx context.Context, key string, v any) (DocumentMeta, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Path: c.db.apiPath("document", c.name, key),
	})
	if err != nil {
		return DocumentMeta{}, err
	}
	return documentResult(resp, v)
}

// DocumentExists reports whether a document with the given key exists.
func (c *Collection) DocumentExists(ctx context.Context, key string) (bool, error) {
	_, err := c.db.conn.Request(ctx, &connection.Request{
		Method:       http.MethodHead,
		Path:         c.db.apiPath("document", c.name, key),
		ExpectBinary: true,
	})
	if connection.IsHTTPError(err, http.StatusNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// CreateDocument stores doc as a new document and returns its metadata.
func (c *Collection) CreateDocument(ctx context.Context, doc any) (DocumentMeta, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPost,
		Path:   c.db.apiPath("document", c.name),
		Body:   doc,
	})
	if err != nil {
		return DocumentMeta{}, err
	}
	return documentResult(resp, nil)
}

// ReplaceDocument replaces the document with the given key by doc.
func (c *Collection) ReplaceDocument(ctx context.Context, key string, doc any) (DocumentMeta, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPut,
		Path:   c.db.apiPath("document", c.name, key),
		Body:   doc,
	})
	if err != nil {
		return DocumentMeta{}, err
	}
	return documentResult(resp, nil)
}

// UpdateDocument patches the document with the given key with the
// attributes of update.
func (c *Collection) UpdateDocument(ctx context.Context, key string, update any) (DocumentMeta, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodPatch,
		Path:   c.db.apiPath("document", c.name, key),
		Body:   update,
	})
	if err != nil {
		return DocumentMeta{}, err
	}
	return documentResult(resp, nil)
}

// RemoveDocument deletes the document with the given key.
func (c *Collection) RemoveDocument(ctx context.Context, key string) (DocumentMeta, error) {
	resp, err := c.db.conn.Request(ctx, &connection.Request{
		Method: http.MethodDelete,
		Path:   c.db.apiPath("document", c.name, key),
	})
	if err != nil {
		return DocumentMeta{}, err
	}
	return documentResult(resp, nil)
}

// documentResult decodes a document endpoint response: the metadata always,
// and the full body into v if v is non-nil.
func documentResult(resp *connection.Response, v any) (DocumentMeta, error) {
	var meta DocumentMeta
	if err := resp.UnmarshalBody(&meta); err != nil {
		return DocumentMeta{}, err
	}
	if v != nil {
		if err := resp.UnmarshalBody(v); err != nil {
			return meta, err
		}
	}
	return meta, nil
}
