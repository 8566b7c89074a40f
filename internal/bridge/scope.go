package bridge

import (
	"log/slog"
	"sync"
)

// releaseOnce wraps a release function so it runs at most once, regardless of
// which exit path triggers it — normal completion, error, or panic unwind via
// defer. Release errors are logged, not returned: by the time a scope is torn
// down the call outcome has already been decided.
func releaseOnce(fn func() error) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := fn(); err != nil {
				slog.Warn("bridge: release error", "err", err)
			}
		})
	}
}
