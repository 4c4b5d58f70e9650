// Copyright 2025, the Vertimus contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package keylock provides mutual exclusion scoped to a key, such as a
// module name or a workflow state.
package keylock

import (
	"context"
	"sync"
)

// Locker hands out one lock per key. Locks for different keys never block
// each other. Entries are dropped once no goroutine holds or waits for them.
type Locker[K comparable] struct {
	mu    sync.Mutex
	locks map[K]*entry
}

type entry struct {
	// ch has capacity 1; a token in it means the key is held.
	ch      chan struct{}
	waiters int
}

// New returns an empty Locker.
func New[K comparable]() *Locker[K] {
	return &Locker[K]{locks: make(map[K]*entry)}
}

func (l *Locker[K]) acquire(key K) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.locks[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		l.locks[key] = e
	}

	e.waiters++

	return e
}

func (l *Locker[K]) release(key K, e *entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e.waiters--
	if e.waiters == 0 {
		delete(l.locks, key)
	}
}

// Lock blocks until key is held or ctx is done. The returned function
// releases the lock and must be called exactly once.
func (l *Locker[K]) Lock(ctx context.Context, key K) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e := l.acquire(key)

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, e)

		return nil, ctx.Err()
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, nil
}

// TryLock acquires key without waiting.
func (l *Locker[K]) TryLock(key K) (func(), bool) {
	e := l.acquire(key)

	select {
	case e.ch <- struct{}{}:
	default:
		l.release(key, e)

		return nil, false
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-e.ch
			l.release(key, e)
		})
	}, true
}

// Len returns the number of keys currently held or waited for.
func (l *Locker[K]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
