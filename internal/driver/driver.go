// Package driver implements the scan driver (spec.md §4.6, C6): the
// top-level recursion that seeds the queue with the root object, runs
// dispatch and module execution to completion, invokes the dispositioner,
// and returns the result.
package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Nigelli/laikaboss/internal/disposition"
	"github.com/Nigelli/laikaboss/internal/dispatch"
	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// QueueOrder selects breadth-first or depth-first traversal of the object
// tree (spec.md §4.6, §6.2 queue_order).
type QueueOrder int

const (
	BFS QueueOrder = iota
	DFS
)

// Driver owns the FIFO/LIFO work queue and orchestrates dispatch + module
// execution + disposition for one scan (spec.md §4.6). It holds no state
// across scans — Scan is safe to call repeatedly, each call building its
// own queue and Governor.
type Driver struct {
	Dispatcher    *dispatch.Dispatcher
	Executor      *runtime.Executor
	Dispositioner *disposition.Dispositioner
	Caps          runtime.Caps
	QueueOrder    QueueOrder
	Logger        *zap.Logger
}

// Scan runs spec.md §4.6's algorithm end to end: seed the queue with the
// root object, dispatch and run modules to completion (respecting BFS/DFS
// order and the per-object dispatch-order contract of spec.md §5), and
// invoke the dispositioner exactly once. Scan always returns the complete
// in-memory tree; verbosity-scoped projection happens later, when a caller
// calls ScanResult.Serialize(v) — Scan has no need of the verbosity level
// itself since it never serializes anything.
func (d *Driver) Scan(ctx context.Context, buf []byte, ev model.ExternalVars, hashMethod model.HashMethod, source, level string) (*model.ScanResult, error) {
	start := time.Now()
	root, err := model.NewRoot(buf, ev, hashMethod)
	if err != nil {
		return nil, err
	}

	result := model.NewScanResult(source, level, root.UUID, start)
	result.AddObject(root)

	gov := runtime.NewGovernor(d.Caps, start)
	if !gov.ReserveObject(root.ObjectSize) {
		root.AddFlag(model.FlagScanMaxBytes)
		gov.Abort()
	}

	queue := []*model.ScanObject{root}
	for len(queue) > 0 {
		if gov.Exceeded() {
			root.AddFlag(model.FlagScanAborted)
			break
		}

		var obj *model.ScanObject
		obj, queue = pop(queue, d.QueueOrder)

		decision, err := d.Dispatcher.Dispatch(obj, ev)
		if err != nil {
			if d.Logger != nil {
				d.Logger.Error("dispatch failed", zap.String("object", obj.UUID), zap.Error(err))
			}
			continue
		}

		// Modules run strictly in dispatch order on this object (spec.md
		// §5 ordering guarantee 1); a child's own dispatch happens only
		// after every module on its parent has completed (guarantee 2),
		// which falls out naturally here since children are appended to
		// the queue, not recursed into, until this loop iteration ends.
		for _, inv := range toRuntimeInvocations(decision.Invocations) {
			if gov.Exceeded() {
				root.AddFlag(model.FlagScanAborted)
				break
			}
			outcome := d.Executor.Run(ctx, inv, obj, result, ev, d.Caps, gov, inv.Timeout)
			for _, child := range outcome.Children {
				result.AddObject(child)
				queue = append(queue, child)
			}
		}
	}

	dispositionValue, reason := d.Dispositioner.Run(result)
	if d.Logger != nil {
		d.Logger.Info("scan complete",
			zap.String("root", root.UUID),
			zap.Int("objects", result.Count()),
			zap.String("disposition", dispositionValue),
			zap.String("reason", reason),
		)
	}

	return result, nil
}

func toRuntimeInvocations(in []dispatch.Invocation) []runtime.Invocation {
	out := make([]runtime.Invocation, len(in))
	for i, v := range in {
		out[i] = runtime.Invocation{Name: v.Name, Options: v.Options, Timeout: v.Timeout}
	}
	return out
}

// pop removes and returns the next object to process according to order:
// BFS pops from the front (queue is FIFO), DFS pops from the back (queue
// behaves as a LIFO stack), per spec.md §4.6/§6.2 queue_order.
func pop(queue []*model.ScanObject, order QueueOrder) (*model.ScanObject, []*model.ScanObject) {
	if order == DFS {
		last := len(queue) - 1
		return queue[last], queue[:last]
	}
	return queue[0], queue[1:]
}
