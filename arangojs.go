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
	"github.com/RecallGraph/arangojs/connection"
)

// SystemDatabase is the name of the database every server has.
const SystemDatabase = "_system"

// Connect creates a connection from the given options and returns a handle
// to the _system database. Use [Database.Database] for handles to other
// databases on the same connection.
func Connect(options ...connection.Option) (*Database, error) {
	conn, err := connection.New(options...)
	if err != nil {
		return nil, err
	}
	return NewDatabase(conn, SystemDatabase), nil
}

// NewDatabase returns a handle to the named database on an existing
// connection.
func NewDatabase(conn *connection.Conn, name string) *Database {
	return &Database{conn: conn, name: name}
}
