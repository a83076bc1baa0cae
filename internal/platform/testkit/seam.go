package testkit

import (
	"sync"
	"testing"
)

var seamMu sync.Mutex

// Swap replaces the value behind target for the duration of the test and
// restores the original on cleanup. Used for the injected clock and sleep
// seams (snapshot stamping, upstream page pacing)
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}

// Serial runs the test under a global lock so tests swapping package-level
// seams cannot interleave
func Serial(t *testing.T) {
	t.Helper()
	seamMu.Lock()
	t.Cleanup(func() { seamMu.Unlock() })
}
