package memory

import (
	"context"
	"sync"
	"time"

	"github.com/aretw0/nodegraph/pkg/store"
)

// Locker implements store.Locker for editors sharing one process.
// A lock that is not released expires after its ttl.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
	now   func() time.Time
}

type lockEntry struct {
	released chan struct{}
	expires  time.Time
}

// NewLocker creates an in-process locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*lockEntry), now: time.Now}
}

// Lock blocks until key is free, its holder's ttl has passed, or ctx is done.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (store.UnlockFunc, error) {
	for {
		l.mu.Lock()
		current, held := l.locks[key]
		if !held || (!current.expires.IsZero() && l.now().After(current.expires)) {
			entry := &lockEntry{released: make(chan struct{})}
			if ttl > 0 {
				entry.expires = l.now().Add(ttl)
			}
			l.locks[key] = entry
			l.mu.Unlock()
			return l.unlock(key, entry), nil
		}
		wait := current.released
		l.mu.Unlock()

		var (
			timer   *time.Timer
			expired <-chan time.Time
		)
		if !current.expires.IsZero() {
			timer = time.NewTimer(current.expires.Sub(l.now()))
			expired = timer.C
		}
		select {
		case <-ctx.Done():
			stop(timer)
			return nil, ctx.Err()
		case <-wait:
		case <-expired:
		}
		stop(timer)
	}
}

func stop(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

func (l *Locker) unlock(key string, entry *lockEntry) store.UnlockFunc {
	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.locks[key] == entry {
				delete(l.locks, key)
			}
			close(entry.released)
		})
		return nil
	}
}
