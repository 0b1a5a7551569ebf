package model

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ScanObject is one node of the scan tree: a buffer plus its accumulated
// findings (spec.md §3.2). Buffer is read-only after construction; callers
// obtain read views via Buffer().
type ScanObject struct {
	mu sync.Mutex

	buffer []byte

	UUID         string
	ParentUUID   string
	RootUUID     string
	Depth        int
	Filename     string
	ObjectHash   string
	ObjectSize   int
	SourceModule string

	objectType  orderedSet
	contentType orderedSet
	flags       orderedSet
	scanModules []string
	scanModuleSet map[string]bool

	// metadata is namespaced by module name; only that module may write to
	// its own entry (spec.md I5).
	metadata map[string]map[string]Value
}

// orderedSet is an append-only, duplicate-suppressing string sequence, used
// for flags/object_type/content_type which spec.md defines as "ordered
// set"s that grow monotonically (I6) and are idempotent under repeat adds.
type orderedSet struct {
	order []string
	seen  map[string]bool
}

func (s *orderedSet) add(v string) bool {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[v] {
		return false
	}
	s.seen[v] = true
	s.order = append(s.order, v)
	return true
}

func (s *orderedSet) values() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *orderedSet) has(v string) bool {
	return s.seen != nil && s.seen[v]
}

// NewRoot constructs the root ScanObject of a scan from raw bytes and its
// ExternalVars. Construction is total and infallible unless the configured
// hash function is unrecognized (spec.md §4.1).
func NewRoot(buf []byte, ev ExternalVars, hashMethod HashMethod) (*ScanObject, error) {
	id := uuid.NewString()
	hash, err := ComputeHash(hashMethod, buf)
	if err != nil {
		return nil, err
	}
	o := &ScanObject{
		buffer:        buf,
		UUID:          id,
		ParentUUID:    "",
		RootUUID:      id,
		Depth:         0,
		Filename:      ev.Filename,
		ObjectHash:    hash,
		ObjectSize:    len(buf),
		SourceModule:  "",
		scanModuleSet: make(map[string]bool),
		metadata:      make(map[string]map[string]Value),
	}
	if ev.ContentType != "" {
		o.contentType.add(ev.ContentType)
	}
	return o, nil
}

// NewChild constructs a child ScanObject from raw bytes and the parent that
// produced it, inheriting root_uuid and depth+1 (spec.md §4.1). sourceModule
// is the name of the module that emitted this child.
func NewChild(buf []byte, parent *ScanObject, filename, sourceModule string, hashMethod HashMethod) (*ScanObject, error) {
	id := uuid.NewString()
	hash, err := ComputeHash(hashMethod, buf)
	if err != nil {
		return nil, err
	}
	o := &ScanObject{
		buffer:        buf,
		UUID:          id,
		ParentUUID:    parent.UUID,
		RootUUID:      parent.RootUUID,
		Depth:         parent.Depth + 1,
		Filename:      filename,
		ObjectHash:    hash,
		ObjectSize:    len(buf),
		SourceModule:  sourceModule,
		scanModuleSet: make(map[string]bool),
		metadata:      make(map[string]map[string]Value),
	}
	return o, nil
}

// Buffer returns a read view of the object's buffer. Callers must not
// mutate the returned slice.
func (o *ScanObject) Buffer() []byte { return o.buffer }

// AddFlag appends a flag. Idempotent: adding an existing flag is a no-op
// (spec.md contract, I6 flags never shrink).
func (o *ScanObject) AddFlag(flag string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.flags.add(flag)
}

func (o *ScanObject) AddFlags(flags ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, f := range flags {
		o.flags.add(f)
	}
}

func (o *ScanObject) HasFlag(flag string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flags.has(flag)
}

func (o *ScanObject) Flags() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.flags.values()
}

func (o *ScanObject) AddObjectType(t ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, v := range t {
		o.objectType.add(v)
	}
}

func (o *ScanObject) ObjectType() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.objectType.values()
}

func (o *ScanObject) AddContentType(t ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, v := range t {
		o.contentType.add(v)
	}
}

func (o *ScanObject) ContentType() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.contentType.values()
}

// RecordModuleRun appends name to scan_modules. Contract: a module name
// appears at most once per object unless rescan permits it (spec.md I4);
// the caller (module runtime) is responsible for checking CanRescan before
// calling this a second time — RecordModuleRun itself only tracks presence.
func (o *ScanObject) RecordModuleRun(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.scanModules = append(o.scanModules, name)
	o.scanModuleSet[name] = true
}

func (o *ScanObject) HasRun(name string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scanModuleSet[name]
}

func (o *ScanObject) RunCount(name string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, m := range o.scanModules {
		if m == name {
			n++
		}
	}
	return n
}

func (o *ScanObject) ScanModules() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.scanModules))
	copy(out, o.scanModules)
	return out
}

// AddMetadata writes field=value into the namespace named by module. It does
// not check the name itself; namespace isolation (spec.md I5) comes from the
// runtime, which supplies the name of the module presently executing, so no
// module can forge another module's name.
//
// allowOverwrite governs whether an existing field may be replaced; the
// runtime passes true when the module is rescanning per ExternalVars.Rescan
// (rescans overwrite rather than append, to avoid unbounded duplicate
// accumulation across rescans of the same module) and for its own
// SCAN_FAILURES records.
func (o *ScanObject) AddMetadata(module, field string, value Value, allowOverwrite bool) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	ns, ok := o.metadata[module]
	if !ok {
		ns = make(map[string]Value)
		o.metadata[module] = ns
	}
	if _, exists := ns[field]; exists && !allowOverwrite {
		return fmt.Errorf("model: module %q already wrote metadata field %q", module, field)
	}
	ns[field] = value
	return nil
}

// Metadata returns the namespace written by module, or nil if module never
// wrote metadata on this object.
func (o *ScanObject) Metadata(module string) map[string]Value {
	o.mu.Lock()
	defer o.mu.Unlock()
	ns, ok := o.metadata[module]
	if !ok {
		return nil
	}
	out := make(map[string]Value, len(ns))
	for k, v := range ns {
		out[k] = v
	}
	return out
}

// AllMetadata returns a shallow copy of the full module->field->value map,
// used by serialization and the dispositioner's tree-wide flag scan.
func (o *ScanObject) AllMetadata() map[string]map[string]Value {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]map[string]Value, len(o.metadata))
	for mod, ns := range o.metadata {
		cp := make(map[string]Value, len(ns))
		for k, v := range ns {
			cp[k] = v
		}
		out[mod] = cp
	}
	return out
}
