package runtime

import (
	"sync"
	"time"
)

// Caps holds the config-declared resource caps of spec.md §4.4. There are
// no silent defaults: a zero value for any limit here means "unbounded"
// only if Config explicitly says so — see internal/config for the loader
// that refuses to leave these unset.
type Caps struct {
	MaxDepth       int
	MaxObjects     int
	MaxBytes       int
	ScanTime       time.Duration
	ModuleTime     time.Duration
	MaxChildSize   int
	MaxChildrenPerModule int
}

// Governor tracks per-scan mutable resource usage against Caps: wall-clock,
// object count, and total bytes (spec.md §4.4 "global scan budget", P4).
// One Governor is created per scan and shared read/write by the driver and
// the executor.
type Governor struct {
	caps      Caps
	startedAt time.Time

	mu          sync.Mutex
	objectCount int
	byteCount   int
	aborted     bool
}

func NewGovernor(caps Caps, startedAt time.Time) *Governor {
	return &Governor{caps: caps, startedAt: startedAt}
}

// TimeExceeded reports whether the scan-wide wall-clock budget has elapsed
// (spec.md §5, checked "between module invocations and inside the enqueue
// loop").
func (g *Governor) TimeExceeded() bool {
	if g.caps.ScanTime <= 0 {
		return false
	}
	return time.Since(g.startedAt) >= g.caps.ScanTime
}

// Abort marks the scan as aborted; once set, Exceeded reports true
// regardless of remaining budget. Idempotent.
func (g *Governor) Abort() {
	g.mu.Lock()
	g.aborted = true
	g.mu.Unlock()
}

func (g *Governor) Aborted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.aborted
}

// Exceeded reports whether any scan-wide cap (time, objects, bytes) has
// been hit, or the scan was explicitly aborted.
func (g *Governor) Exceeded() bool {
	if g.Aborted() || g.TimeExceeded() {
		return true
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.caps.MaxObjects > 0 && g.objectCount >= g.caps.MaxObjects {
		return true
	}
	if g.caps.MaxBytes > 0 && g.byteCount >= g.caps.MaxBytes {
		return true
	}
	return false
}

// ReserveObject accounts for one more object of size bytes. It reports
// false — without mutating counters — if admitting it would break
// max_objects or max_bytes, so the caller can reject the object instead of
// silently exceeding the cap (spec.md P4: totals must never exceed the
// configured caps, not merely trend toward them).
func (g *Governor) ReserveObject(size int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.caps.MaxObjects > 0 && g.objectCount+1 > g.caps.MaxObjects {
		return false
	}
	if g.caps.MaxBytes > 0 && g.byteCount+size > g.caps.MaxBytes {
		return false
	}
	g.objectCount++
	g.byteCount += size
	return true
}

func (g *Governor) ObjectCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.objectCount
}

func (g *Governor) ByteCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.byteCount
}
