package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Sternrassler/tiercache/pkg/cache"
)

// ErrLocked indicates another pass holds the sync lock.
var ErrLocked = cache.ErrLocked

// Locker hands out named mutual-exclusion tokens.
// *cache.Locker satisfies it with a Redis lock shared across processes.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), err error)
}

type localLock struct {
	token   string
	expires time.Time
}

// LocalLocker is an in-process Locker with the same expiry semantics as the
// Redis lock.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]localLock
}

// NewLocalLocker creates an empty in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]localLock)}
}

// Acquire takes the named lock for at most ttl.
func (l *LocalLocker) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if held, ok := l.locks[name]; ok && now.Before(held.expires) {
		return nil, ErrLocked
	}

	token := uuid.NewString()
	l.locks[name] = localLock{token: token, expires: now.Add(ttl)}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.locks[name]; ok && held.token == token {
			delete(l.locks, name)
		}
	}, nil
}
