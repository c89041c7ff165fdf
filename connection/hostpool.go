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
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// hostEntry is one known server endpoint and its transport. Entries are
// immutable once created.
type hostEntry struct {
	url       string
	transport Transport
}

// hostPool is the append-only list of known endpoints. Indices handed out
// stay valid for the lifetime of the pool; entries are never removed or
// replaced.
type hostPool struct {
	newTransport func(endpoint string) (Transport, error)

	mu      sync.RWMutex
	entries []hostEntry
}

func newHostPool(newTransport func(endpoint string) (Transport, error)) *hostPool {
	return &hostPool{newTransport: newTransport}
}

// addHosts normalizes the given endpoint URLs, appends entries for the ones
// not yet known, and returns the pool index of every input URL in input
// order. Re-adding a known URL is a no-op that returns its existing index.
func (p *hostPool) addHosts(urls ...string) ([]int, error) {
	normalized := make([]string, len(urls))
	for i, raw := range urls {
		u, err := normalizeEndpoint(raw)
		if err != nil {
			return nil, err
		}
		normalized[i] = u
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	indices := make([]int, len(normalized))
	for i, u := range normalized {
		idx := p.indexOfLocked(u)
		if idx < 0 {
			transport, err := p.newTransport(u)
			if err != nil {
				return nil, fmt.Errorf("arangojs: cannot create transport for %q: %w", u, err)
			}
			idx = len(p.entries)
			p.entries = append(p.entries, hostEntry{url: u, transport: transport})
		}
		indices[i] = idx
	}
	return indices, nil
}

func (p *hostPool) indexOfLocked(url string) int {
	for i := range p.entries {
		if p.entries[i].url == url {
			return i
		}
	}
	return -1
}

func (p *hostPool) get(index int) hostEntry {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.entries[index]
}

func (p *hostPool) size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

func (p *hostPool) urls() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	urls := make([]string, len(p.entries))
	for i := range p.entries {
		urls[i] = p.entries[i].url
	}
	return urls
}

// closeAll closes every transport concurrently and waits for them.
func (p *hostPool) closeAll() {
	p.mu.RLock()
	entries := p.entries
	p.mu.RUnlock()

	var group errgroup.Group
	for i := range entries {
		transport := entries[i].transport
		group.Go(func() error {
			transport.Close()
			return nil
		})
	}
	_ = group.Wait()
}

// normalizeEndpoint brings an endpoint URL into canonical form so that
// aliases of the same endpoint compare equal:
//
//   - tcp:// becomes http://, ssl:// and tls:// become https://
//   - unix-socket forms ("unix:///path" and "scheme+unix:///path") collapse
//     to "scheme://unix:/path"
//   - trailing slashes are trimmed
//
// The h2c scheme passes through untouched; it selects the plain-text HTTP/2
// transport.
func normalizeEndpoint(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	scheme, rest, ok := strings.Cut(trimmed, "://")
	if !ok || rest == "" {
		return "", fmt.Errorf("arangojs: invalid endpoint URL %q", raw)
	}
	scheme = strings.ToLower(scheme)

	if base, isUnix := strings.CutSuffix(scheme, "+unix"); isUnix {
		if base == "" {
			base = "tcp"
		}
		return aliasScheme(base) + "://unix:" + ensureLeadingSlash(rest), nil
	}
	if scheme == "unix" {
		return "http://unix:" + ensureLeadingSlash(rest), nil
	}
	return aliasScheme(scheme) + "://" + rest, nil
}

func aliasScheme(scheme string) string {
	switch scheme {
	case "tcp":
		return "http"
	case "ssl", "tls":
		return "https"
	default:
		return scheme
	}
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
