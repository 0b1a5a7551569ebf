package model

import (
	"sync"
	"time"
)

// Verbosity controls how much of the object tree ScanResult.Serialize
// projects (spec.md §3.3, §4.6).
type Verbosity int

const (
	Minimal Verbosity = iota
	Full
	Everything
	NoBuffer
)

// ScanResult is the returned artifact of a scan (spec.md §3.3). It is
// mutated only by the core's driver and modules during the scan and
// returned immutable to the caller.
type ScanResult struct {
	mu sync.RWMutex

	Source    string
	Level     string
	StartTime time.Time
	RootUID   string

	objects map[string]*ScanObject
	order   []string // insertion order, root first
}

func NewScanResult(source, level, rootUID string, start time.Time) *ScanResult {
	return &ScanResult{
		Source:    source,
		Level:     level,
		RootUID:   rootUID,
		StartTime: start,
		objects:   make(map[string]*ScanObject),
	}
}

// AddObject registers a ScanObject with the result. The driver calls this
// as each object is constructed, before it is dispatched.
func (r *ScanResult) AddObject(o *ScanObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objects[o.UUID]; !exists {
		r.order = append(r.order, o.UUID)
	}
	r.objects[o.UUID] = o
}

func (r *ScanResult) Get(uid string) (*ScanObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.objects[uid]
	return o, ok
}

func (r *ScanResult) Root() *ScanObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.objects[r.RootUID]
}

// Objects returns every ScanObject in the tree in construction order (root
// first, then children in the order the driver enqueued them).
func (r *ScanResult) Objects() []*ScanObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ScanObject, 0, len(r.order))
	for _, uid := range r.order {
		out = append(out, r.objects[uid])
	}
	return out
}

func (r *ScanResult) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.objects)
}

// TotalBytes sums ObjectSize across every object currently in the tree, used
// to enforce max_bytes (spec.md §4.4, P4).
func (r *ScanResult) TotalBytes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, o := range r.objects {
		total += o.ObjectSize
	}
	return total
}

// AnyFlag reports whether flag is present on any object anywhere in the
// tree — the dispositioner's sole input vocabulary (spec.md §4.5).
func (r *ScanResult) AnyFlag(flag string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, o := range r.objects {
		if o.HasFlag(flag) {
			return true
		}
	}
	return false
}

// UnionFlags returns the set of every flag present anywhere in the tree.
func (r *ScanResult) UnionFlags() map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]bool)
	for _, o := range r.objects {
		for _, f := range o.Flags() {
			out[f] = true
		}
	}
	return out
}

// Release drops references to every object's buffer so a long-lived caller
// need not retain scanned bytes until GC (SPEC_FULL.md §4, supplemented
// feature 5). Idempotent; never called by the core itself mid-scan.
func (r *ScanResult) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.objects {
		o.buffer = nil
	}
}
