package runtime

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"github.com/Nigelli/laikaboss/internal/model"
)

// Outcome is what one (object, module) execution produced, after the
// runtime has already committed surviving flags/metadata/children onto the
// object (spec.md §4.4 steps 4-6).
type Outcome struct {
	Children []*model.ScanObject
	TimedOut bool
	Errored  bool
}

// Executor runs one module against one object under a bounded budget,
// grounded on the teacher's internal/core/recovery.go SafeRun (panic
// recovery -> structured result) generalized to also enforce a wall-clock
// timeout, since the teacher's plugins ran to completion with no time cap.
type Executor struct {
	Registry *Registry
	Logger   *zap.Logger
	HashMethod model.HashMethod
}

// Run executes spec.md §4.4's per-(object,module) cycle: arm timeout, run
// the module, commit or discard its output, enforce child limits, and
// unconditionally record the attempt in scan_modules for audit — including
// on timeout or error, since S4/S5 require the audit trail to show the
// module ran even when it failed.
func (e *Executor) Run(ctx context.Context, inv Invocation, obj *model.ScanObject, result *model.ScanResult, ev model.ExternalVars, caps Caps, gov *Governor, moduleTimeout time.Duration) Outcome {
	mod, ok := e.Registry.New(inv.Name)
	if !ok {
		obj.AddFlag(model.FlagDispatchMissingModule(inv.Name))
		return Outcome{}
	}

	rescan := ev.CanRescan(inv.Name) && obj.HasRun(inv.Name)
	h := newHandle(obj, inv.Name, rescan)

	if moduleTimeout <= 0 {
		moduleTimeout = caps.ModuleTime
	}
	// A zero module_time cap means unbounded: no deadline is armed.
	var runCtx context.Context
	var cancel context.CancelFunc
	if moduleTimeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, moduleTimeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	type runOutput struct {
		children []ChildSpec
		err      error
	}
	done := make(chan runOutput, 1)

	go func() {
		var children []ChildSpec
		var runErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					stack := string(debug.Stack())
					runErr = fmt.Errorf("panic: %v", r)
					h.AddMetadata("__panic_stack", stack)
				}
			}()
			children, runErr = mod.Run(runCtx, h, result, inv.Options)
		}()
		done <- runOutput{children: children, err: runErr}
	}()

	var out Outcome
	select {
	case <-runCtx.Done():
		obj.AddFlag(model.FlagModuleTimeout(inv.Name))
		out.TimedOut = true
		if e.Logger != nil {
			e.Logger.Warn("module timeout", zap.String("module", inv.Name), zap.String("object", obj.UUID))
		}
	case r := <-done:
		if r.err != nil {
			obj.AddFlag(model.FlagModuleError(inv.Name))
			out.Errored = true
			stack, _ := h.metadata["__panic_stack"]
			e.recordFailure(obj, inv.Name, r.err, stack.AsString())
			if e.Logger != nil {
				e.Logger.Error("module error", zap.String("module", inv.Name), zap.Error(r.err))
			}
		} else {
			e.commit(h, obj)
			out.Children = e.admitChildren(inv.Name, r.children, obj, result, ev, caps, gov)
		}
	}

	obj.RecordModuleRun(inv.Name)
	return out
}

func (e *Executor) commit(h *Handle, obj *model.ScanObject) {
	for _, f := range h.flags {
		obj.AddFlag(f)
	}
	for field, v := range h.metadata {
		if field == "__panic_stack" {
			continue
		}
		if v.Coerced {
			obj.AddFlag(model.FlagMetadataCoerced(h.name))
		}
		_ = obj.AddMetadata(h.name, field, v, h.rescan)
	}
}

func (e *Executor) recordFailure(obj *model.ScanObject, module string, err error, traceback string) {
	entryList := obj.Metadata(model.MetadataFailuresKey)
	var existing []model.Value
	if entryList != nil {
		if v, ok := entryList["entries"]; ok {
			existing = v.AsList()
		}
	}
	entry := model.Map(map[string]model.Value{
		"module":    model.String(module),
		"error":     model.String(err.Error()),
		"traceback": model.String(traceback),
	})
	existing = append(existing, entry)
	_ = obj.AddMetadata(model.MetadataFailuresKey, "entries", model.List(existing...), true)
}

// admitChildren converts surviving ChildSpecs into real ScanObjects,
// enforcing max_depth, max_child_size, per-module child count, and the
// scan-wide object/byte governor (spec.md §4.4 step 4). Scan-wide caps
// (max_depth, the byte governor) flag the tree's root — not whichever
// object happened to trip them — since spec.md's boundary scenarios (e.g.
// S3, "root has flag SCAN:MAX_DEPTH") require these flags to be
// observable on root even under Minimal-verbosity serialization, which
// projects root only. Per-module child caps (too-large, per-module limit)
// stay on parent: they name the offending module and object, not the scan
// as a whole.
func (e *Executor) admitChildren(moduleName string, specs []ChildSpec, parent *model.ScanObject, result *model.ScanResult, ev model.ExternalVars, caps Caps, gov *Governor) []*model.ScanObject {
	root := result.Root()
	if root == nil {
		root = parent
	}
	var out []*model.ScanObject
	limited := false
	for i, spec := range specs {
		if caps.MaxChildrenPerModule > 0 && i >= caps.MaxChildrenPerModule {
			limited = true
			break
		}
		if caps.MaxChildSize > 0 && len(spec.Buffer) > caps.MaxChildSize {
			parent.AddFlag(model.FlagModuleChildTooLarge(moduleName))
			continue
		}
		if caps.MaxDepth > 0 && parent.Depth+1 > caps.MaxDepth {
			root.AddFlag(model.FlagScanMaxDepth)
			continue
		}
		child, err := model.NewChild(spec.Buffer, parent, spec.Filename, moduleName, e.HashMethod)
		if err != nil {
			continue
		}
		if !gov.ReserveObject(child.ObjectSize) {
			root.AddFlag(model.FlagScanMaxBytes)
			continue
		}
		child.AddContentType(spec.ContentType...)
		out = append(out, child)
	}
	if limited {
		parent.AddFlag(model.FlagModuleChildLimit(moduleName))
	}
	return out
}

// Invocation mirrors dispatch.Invocation without importing the dispatch
// package, keeping runtime usable independently of the dispatcher (e.g. in
// module unit tests that invoke a module directly). internal/driver
// converts dispatch.Invocation to runtime.Invocation at the boundary.
type Invocation struct {
	Name    string
	Options map[string]interface{}
	Timeout time.Duration
}
