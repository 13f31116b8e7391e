// Package cache holds the per-document AST cache: a documentUri ->
// parsedAstJson map with shared-reader/exclusive-writer access. Entries
// are populated on open/save, invalidated eagerly on change, and
// recreated lazily by the orchestrator on the next query if absent.
package cache

import (
	"encoding/json"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/solidity-lsp/internal/debug"
)

// Entry is one cached AST, plus the content hash of its raw bytes so
// callers can cheaply tell whether a fresh compiler run actually changed
// anything.
type Entry struct {
	AST  json.RawMessage
	Hash uint64
}

// AstCache is the per-URI AST cache.
type AstCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New returns an empty AstCache.
func New() *AstCache {
	return &AstCache{entries: make(map[string]Entry)}
}

// Get returns the cached AST for uri, and whether it was present. Callers
// must treat the returned bytes as read-only: the cache does not clone
// on read, but json.RawMessage values are never mutated in place by any
// core package, so sharing the backing array is safe.
func (c *AstCache) Get(uri string) (json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[uri]
	if !ok {
		return nil, false
	}
	return e.AST, true
}

// Put stores ast under uri, replacing any previous entry. Returns true
// when the content actually changed (by hash), so callers can skip
// redundant downstream work such as republishing identical diagnostics.
func (c *AstCache) Put(uri string, ast json.RawMessage) bool {
	hash := xxhash.Sum64(ast)

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[uri]; ok && existing.Hash == hash {
		return false
	}
	c.entries[uri] = Entry{AST: ast, Hash: hash}
	debug.LogCache("populated %s (%d bytes)", uri, len(ast))
	return true
}

// Invalidate eagerly removes uri's entry. Nothing is recomputed here;
// the next query repopulates on demand.
func (c *AstCache) Invalidate(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[uri]; ok {
		delete(c.entries, uri)
		debug.LogCache("invalidated %s", uri)
	}
}

// Len reports the number of cached entries (diagnostics/tests only).
func (c *AstCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
