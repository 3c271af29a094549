// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// userLocks serializes writes to the same user within one process.
// Entries are dropped once no goroutine holds or waits on them.
type userLocks struct {
	mu    sync.Mutex
	locks map[ulid.ULID]*userLock
}

type userLock struct {
	mu   sync.Mutex
	refs int
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[ulid.ULID]*userLock)}
}

// lock acquires the lock for id and returns its release func.
func (l *userLocks) lock(id ulid.ULID) func() {
	l.mu.Lock()
	ul, ok := l.locks[id]
	if !ok {
		ul = &userLock{}
		l.locks[id] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	return func() {
		ul.mu.Unlock()

		l.mu.Lock()
		ul.refs--
		if ul.refs == 0 {
			delete(l.locks, id)
		}
		l.mu.Unlock()
	}
}

// size returns the number of tracked users.
func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
