// Package locks serializes work per key, inside this process and across
// processes sharing the same lock files.
package locks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const retryDelay = 100 * time.Millisecond

// Keyed hands out one lock per key.
type Keyed struct {
	pathFor func(key string) string

	mu   sync.Mutex
	keys map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// New returns a Keyed lock. pathFor maps a key to its lock file; when pathFor
// is nil only in-process exclusion is provided.
func New(pathFor func(key string) string) *Keyed {
	return &Keyed{pathFor: pathFor, keys: make(map[string]*slot)}
}

// Lock blocks until key is held or ctx is done. The returned function
// releases the lock and may be called more than once.
func (k *Keyed) Lock(ctx context.Context, key string) (func(), error) {
	s := k.ref(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		k.unref(key)
		return nil, ctx.Err()
	}

	var fl *flock.Flock
	if k.pathFor != nil {
		var err error
		fl, err = lockFile(ctx, k.pathFor(key))
		if err != nil {
			<-s.ch
			k.unref(key)
			return nil, err
		}
	}

	return k.releaser(key, s, fl), nil
}

// TryLock takes key only if nobody holds it, here or in another process.
// ok is false when the key is busy.
func (k *Keyed) TryLock(key string) (unlock func(), ok bool, err error) {
	s := k.ref(key)
	select {
	case s.ch <- struct{}{}:
	default:
		k.unref(key)
		return nil, false, nil
	}

	var fl *flock.Flock
	if k.pathFor != nil {
		path := k.pathFor(key)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			<-s.ch
			k.unref(key)
			return nil, false, fmt.Errorf("creating lock dir: %w", err)
		}
		fl = flock.New(path)
		locked, err := fl.TryLock()
		if err != nil || !locked {
			<-s.ch
			k.unref(key)
			if err != nil {
				return nil, false, fmt.Errorf("acquire lock %s: %w", filepath.Base(path), err)
			}
			return nil, false, nil
		}
	}
	return k.releaser(key, s, fl), true, nil
}

func (k *Keyed) releaser(key string, s *slot, fl *flock.Flock) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if fl != nil {
				_ = fl.Unlock()
			}
			<-s.ch
			k.unref(key)
		})
	}
}

func lockFile(ctx context.Context, path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLockContext(ctx, retryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", filepath.Base(path), err)
	}
	if !ok {
		return nil, fmt.Errorf("acquire lock %s: not acquired", filepath.Base(path))
	}
	return fl, nil
}

func (k *Keyed) ref(key string) *slot {
	k.mu.Lock()
	defer k.mu.Unlock()
	s, ok := k.keys[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		k.keys[key] = s
	}
	s.refs++
	return s
}

func (k *Keyed) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	s := k.keys[key]
	s.refs--
	if s.refs == 0 {
		delete(k.keys, key)
	}
}
