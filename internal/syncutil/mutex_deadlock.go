//go:build deadlock

// Package syncutil selects the mutex implementation used across the module.
// This file is compiled with -tags=deadlock and routes
// every lock through github.com/sasha-s/go-deadlock.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// Mutex wraps deadlock.Mutex for deadlock detection.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex wraps deadlock.RWMutex for deadlock detection.
type RWMutex struct {
	deadlock.RWMutex
}

// DetectionEnabled reports whether locks are checked for deadlocks.
const DetectionEnabled = true

// SetLockTimeout sets how long a lock may be waited on before it is
// reported as a potential deadlock. A full-bank erase holds the emulator
// lock for its whole duration, so callers raise this above the erase time.
func SetLockTimeout(d time.Duration) {
	deadlock.Opts.DeadlockTimeout = d
}
