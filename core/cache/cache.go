// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package cache provides a thread-safe, fixed-capacity least-recently-used
cache for values derived from file contents.

Entries are keyed by a namespace and the SHA-256 digest of the file they
were computed from, so a changed file can never hit a stale entry and no
explicit invalidation is needed. Values are byte slices, optionally
stored zstd-compressed.
*/
package cache

import (
	"bytes"
	"container/list"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"os"
	"sync"
	"sync/atomic"

	"github.com/klauspost/compress/zstd"
)

var ErrInvalidSize = errors.New("must provide a positive size")

// Key identifies a value computed from some content.
type Key struct {
	Namespace string
	Digest    [sha256.Size]byte
}

// String renders the key for logs.
func (k Key) String() string {
	return k.Namespace + ":" + hex.EncodeToString(k.Digest[:8])
}

// KeyOf returns the key for content under namespace.
func KeyOf(namespace string, content []byte) Key {
	return Key{Namespace: namespace, Digest: sha256.Sum256(content)}
}

// FileKey reads path and returns its key together with the content.
func FileKey(namespace, path string) (Key, []byte, error) {
	content, err := os.ReadFile(path) // #nosec G304 -- callers pass files they manage
	if err != nil {
		return Key{}, nil, err
	}

	return KeyOf(namespace, content), content, nil
}

// Cache is a fixed-capacity LRU cache. The zero value is not usable; use New.
// A nil *Cache is valid and never stores anything.
type Cache struct {
	size  int
	order *list.List
	items map[Key]*list.Element
	mu    sync.Mutex

	compress bool
	enc      *zstd.Encoder
	dec      *zstd.Decoder

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key        Key
	value      []byte
	compressed bool
}

// New creates a cache holding at most size entries.
func New(size int, compress bool) (*Cache, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	c := &Cache{
		size:     size,
		order:    list.New(),
		items:    make(map[Key]*list.Element),
		compress: compress,
	}

	if compress {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}

		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
		if err != nil {
			return nil, err
		}

		c.enc, c.dec = enc, dec
	}

	return c, nil
}

// Put stores value under key, evicting the least recently used entry when
// full. It reports whether an eviction happened.
func (c *Cache) Put(key Key, value []byte) bool {
	if c == nil {
		return false
	}

	stored, compressed := c.encode(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.order.MoveToFront(el)

		e := el.Value.(*entry)
		e.value, e.compressed = stored, compressed

		return false
	}

	c.items[key] = c.order.PushFront(&entry{key: key, value: stored, compressed: compressed})

	if c.order.Len() <= c.size {
		return false
	}

	oldest := c.order.Back()
	c.order.Remove(oldest)
	delete(c.items, oldest.Value.(*entry).key)

	return true
}

// Get returns a copy of the value under key and marks it most recently used.
func (c *Cache) Get(key Key) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()

	el, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		c.misses.Add(1)

		return nil, false
	}

	c.order.MoveToFront(el)
	e := *el.Value.(*entry)

	c.mu.Unlock()

	value, ok := c.decode(e)
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}

	return value, ok
}

// PutValue gob-encodes v and stores it under key.
func (c *Cache) PutValue(key Key, v any) error {
	if c == nil {
		return nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return err
	}

	c.Put(key, buf.Bytes())

	return nil
}

// GetValue decodes the value under key into v. It reports false on a
// miss or when the stored bytes do not decode into v.
func (c *Cache) GetValue(key Key, v any) bool {
	raw, ok := c.Get(key)
	if !ok {
		return false
	}

	return gob.NewDecoder(bytes.NewReader(raw)).Decode(v) == nil
}

// Remove deletes key and reports whether it was present.
func (c *Cache) Remove(key Key) bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}

	c.order.Remove(el)
	delete(c.items, key)

	return true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.order.Len()
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses int64) {
	if c == nil {
		return 0, 0
	}

	return c.hits.Load(), c.misses.Load()
}

// encode compresses value when that saves space, and otherwise stores a
// private copy. zstd.Encoder.EncodeAll is safe for concurrent use.
func (c *Cache) encode(value []byte) ([]byte, bool) {
	if c.compress && len(value) > 0 {
		if packed := c.enc.EncodeAll(value, nil); len(packed) < len(value) {
			return packed, true
		}
	}

	return bytes.Clone(value), false
}

func (c *Cache) decode(e entry) ([]byte, bool) {
	if !e.compressed {
		return bytes.Clone(e.value), true
	}

	out, err := c.dec.DecodeAll(e.value, nil)
	if err != nil {
		return nil, false
	}

	return out, true
}
