// Package globaltime is the process clock. Tests freeze it to get stable
// rule timestamps.
package globaltime

import (
	"sync"
	"time"
)

var (
	mu     sync.RWMutex
	frozen *time.Time
)

func Now() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	if frozen != nil {
		return *frozen
	}
	return time.Now()
}

func UTC() time.Time {
	return Now().UTC()
}

// Freeze pins the clock to t until the returned restore func is called.
func Freeze(t time.Time) (restore func()) {
	mu.Lock()
	previous := frozen
	pinned := t
	frozen = &pinned
	mu.Unlock()

	return func() {
		mu.Lock()
		defer mu.Unlock()
		frozen = previous
	}
}
