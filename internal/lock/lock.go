// Package lock serializes check-then-commit work per (date, slot)
// partition.  Locks on different keys never block each other.
package lock

import (
	"context"
	"sort"
	"sync"
)

// Locker acquires exclusive locks on a set of keys.  Keys are taken in
// sorted order so two callers locking overlapping sets cannot deadlock.
// Lock returns ctx.Err() if ctx ends before every key is held; in that
// case nothing stays locked.  The returned unlock is idempotent.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// normalize sorts and de-duplicates keys.
func normalize(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// releaseAll returns an idempotent func running each release in reverse.
func releaseAll(releases []func()) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(releases) - 1; i >= 0; i-- {
				releases[i]()
			}
		})
	}
}
