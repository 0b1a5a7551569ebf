// Package runtime implements the module runtime (spec.md §4.4, C4): it
// loads modules by name, invokes them with a bounded execution budget,
// captures their emitted children/flags/metadata, and enforces per-scan
// resource caps.
package runtime

import (
	"context"

	"github.com/Nigelli/laikaboss/internal/model"
)

// ChildSpec is a child object a module wants to emit. The runtime turns
// each surviving ChildSpec into a real *model.ScanObject (assigning uuid,
// hash, size, depth, parent, source_module) after applying child limits.
type ChildSpec struct {
	Buffer      []byte
	Filename    string
	ContentType []string
}

// Module is a named analysis routine (spec.md §4.4's "module contract").
//
// The source contract allows a module to mutate metadata on scan_object
// directly, in addition to returning children/flags/metadata. That is not
// safe to offer verbatim in Go across a cancellable goroutine boundary (a
// module that free-mutates a shared object cannot have its partial writes
// cleanly reverted on timeout, per spec.md §5's cancellation requirement).
// Instead Run receives a *Handle: its AddFlag/AddMetadata calls look like
// direct mutation from the module's point of view, but land in a scratch
// buffer the runtime commits atomically only if Run returns within budget
// (see Executor.Run) — an explicit ScanContext lent read-only to modules,
// per spec.md §9's re-architecture hint.
type Module interface {
	Name() string
	Run(ctx context.Context, h *Handle, result *model.ScanResult, opts map[string]interface{}) ([]ChildSpec, error)
}

// Handle is the read/write view of the current object a Module receives.
// Reads see the object's committed state as of invocation start; writes
// accumulate in scratch state private to this invocation.
type Handle struct {
	obj    *model.ScanObject
	name   string
	depth  int
	rescan bool

	flags    []string
	metadata map[string]model.Value
}

func newHandle(obj *model.ScanObject, moduleName string, rescan bool) *Handle {
	return &Handle{
		obj:      obj,
		name:     moduleName,
		depth:    obj.Depth,
		rescan:   rescan,
		metadata: make(map[string]model.Value),
	}
}

func (h *Handle) Buffer() []byte        { return h.obj.Buffer() }
func (h *Handle) Filename() string      { return h.obj.Filename }
func (h *Handle) UUID() string          { return h.obj.UUID }
func (h *Handle) ParentUUID() string    { return h.obj.ParentUUID }
func (h *Handle) RootUUID() string      { return h.obj.RootUUID }
func (h *Handle) Depth() int            { return h.depth }
func (h *Handle) ExistingFlags() []string { return h.obj.Flags() }
func (h *Handle) ObjectType() []string  { return h.obj.ObjectType() }
func (h *Handle) ContentType() []string { return h.obj.ContentType() }

// Metadata reads another module's already-committed namespace. A module
// may read any namespace but only ever write its own (spec.md I5) — write
// access below is not parameterized by module name for that reason.
func (h *Handle) Metadata(module string) map[string]model.Value { return h.obj.Metadata(module) }

// AddFlag stages a flag in scratch state, applied to the object only if
// this invocation completes within its budget.
func (h *Handle) AddFlag(flag string) { h.flags = append(h.flags, flag) }

// AddMetadata stages field=value in this module's own namespace.
func (h *Handle) AddMetadata(field string, value interface{}) {
	h.metadata[field] = model.NewValue(value)
}
