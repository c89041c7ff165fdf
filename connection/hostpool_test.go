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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input string
		want  string
	}{
		{"http://localhost:8529", "http://localhost:8529"},
		{"http://localhost:8529/", "http://localhost:8529"},
		{"http://localhost:8529///", "http://localhost:8529"},
		{"HTTPS://db.example.com", "https://db.example.com"},
		{"tcp://localhost:8529", "http://localhost:8529"},
		{"ssl://db.example.com:8529", "https://db.example.com:8529"},
		{"tls://db.example.com:8529", "https://db.example.com:8529"},
		{"h2c://localhost:8529", "h2c://localhost:8529"},
		{"unix:///var/run/arangodb.sock", "http://unix:/var/run/arangodb.sock"},
		{"http+unix:///var/run/arangodb.sock", "http://unix:/var/run/arangodb.sock"},
		{"tcp+unix:///var/run/arangodb.sock", "http://unix:/var/run/arangodb.sock"},
		{"ssl+unix:///var/run/arangodb.sock", "https://unix:/var/run/arangodb.sock"},
		{"+unix:///var/run/arangodb.sock", "http://unix:/var/run/arangodb.sock"},
	}
	for _, testCase := range testCases {
		got, err := normalizeEndpoint(testCase.input)
		require.NoError(t, err, "input %q", testCase.input)
		assert.Equal(t, testCase.want, got, "input %q", testCase.input)
	}

	for _, invalid := range []string{"", "localhost:8529", "http://"} {
		_, err := normalizeEndpoint(invalid)
		assert.Error(t, err, "input %q", invalid)
	}
}

func TestHostPoolAddHosts(t *testing.T) {
	t.Parallel()

	pool := newHostPool(func(endpoint string) (Transport, error) {
		return &stubTransport{}, nil
	})

	indices, err := pool.addHosts("http://a:8529", "http://b:8529")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, indices)
	assert.Equal(t, 2, pool.size())

	// Aliases of known endpoints map to the existing entries; only the new
	// endpoint grows the pool.
	indices, err = pool.addHosts("tcp://a:8529", "http://c:8529", "http://b:8529/")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, indices)
	assert.Equal(t, 3, pool.size())
	assert.Equal(t, []string{"http://a:8529", "http://b:8529", "http://c:8529"}, pool.urls())

	// Duplicates within one call resolve to one entry.
	indices, err = pool.addHosts("http://d:8529", "http://d:8529")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 3}, indices)
	assert.Equal(t, 4, pool.size())
}

func TestHostPoolCloseAll(t *testing.T) {
	t.Parallel()

	var transports []*stubTransport
	pool := newHostPool(func(endpoint string) (Transport, error) {
		transport := &stubTransport{}
		transports = append(transports, transport)
		return transport, nil
	})
	_, err := pool.addHosts("http://a:8529", "http://b:8529", "http://c:8529")
	require.NoError(t, err)

	pool.closeAll()
	require.Len(t, transports, 3)
	for _, transport := range transports {
		assert.True(t, transport.closed.Load())
	}
}
