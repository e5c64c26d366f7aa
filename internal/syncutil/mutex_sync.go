//go:build !deadlock

// Package syncutil selects the mutex implementation used across the module.
// By default the standard sync types are used.
// Build with -tags=deadlock to enable deadlock detection via github.com/sasha-s/go-deadlock.
package syncutil

import (
	"sync"
	"time"
)

// Mutex wraps sync.Mutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // embedding exposes Lock/Unlock directly
type Mutex struct {
	sync.Mutex
}

// RWMutex wraps sync.RWMutex. Build with -tags=deadlock for deadlock detection.
//
//nolint:gocritic // embedding exposes the full RWMutex method set
type RWMutex struct {
	sync.RWMutex
}

// DetectionEnabled reports whether locks are checked for deadlocks.
const DetectionEnabled = false

// SetLockTimeout is a no-op without the deadlock build tag.
func SetLockTimeout(time.Duration) {}
