package driver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigelli/laikaboss/internal/disposition"
	"github.com/Nigelli/laikaboss/internal/dispatch"
	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/rules"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// fakeEngine matches everything against the "default" table entry, so
// driver tests only exercise queueing/execution, not rule matching.
type fakeEngine struct{}

func (fakeEngine) RuleNames() []string { return nil }
func (fakeEngine) Match([]byte, rules.RuleInputs) (rules.MatchSet, error) {
	return rules.MatchSet{}, nil
}

// oneShotSplitter is a module that turns any buffer into two fixed children,
// used to exercise BFS/DFS ordering and recursion depth.
type oneShotSplitter struct{}

func (oneShotSplitter) Name() string { return "SPLIT" }
func (oneShotSplitter) Run(_ context.Context, h *runtime.Handle, _ *model.ScanResult, _ map[string]interface{}) ([]runtime.ChildSpec, error) {
	if h.Depth() >= 1 {
		return nil, nil
	}
	return []runtime.ChildSpec{
		{Buffer: []byte("left"), Filename: "left.bin"},
		{Buffer: []byte("right"), Filename: "right.bin"},
	}, nil
}

func newDriver(t *testing.T, order QueueOrder) (*Driver, *runtime.Registry) {
	t.Helper()
	reg := runtime.NewRegistry()
	reg.Register("SPLIT", func() runtime.Module { return oneShotSplitter{} })

	d := &Driver{
		Dispatcher: &dispatch.Dispatcher{
			Engine: fakeEngine{},
			Table: dispatch.Table{
				{RuleExpr: dispatch.DefaultRule, Action: dispatch.Action{
					Modules: []dispatch.ModuleRef{{Name: "SPLIT"}},
				}},
			},
			ModuleTable: dispatch.ModuleTable{"SPLIT": {Enabled: true}},
		},
		Executor:      &runtime.Executor{Registry: reg, HashMethod: model.HashSHA256},
		Dispositioner: &disposition.Dispositioner{Table: disposition.Table{DefaultDisposition: "Accept"}},
		Caps:          runtime.Caps{MaxDepth: 5, MaxObjects: 100, MaxBytes: 1 << 20},
		QueueOrder:    order,
	}
	return d, reg
}

func TestDriverScanBuildsCompleteTree(t *testing.T) {
	d, _ := newDriver(t, BFS)
	result, err := d.Scan(context.Background(), []byte("root"), model.ExternalVars{}, model.HashSHA256, "cli", "")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Count()) // root + 2 children, grandchildren suppressed at depth 1
	assert.Equal(t, "Accept", result.Root().Metadata(model.MetadataDispositionerKey)["Result"].AsString())
}

func TestDriverScanRunsDispositionerExactlyOnce(t *testing.T) {
	d, _ := newDriver(t, BFS)
	result, err := d.Scan(context.Background(), []byte("root"), model.ExternalVars{}, model.HashSHA256, "cli", "")
	require.NoError(t, err)

	root := result.Root()
	assert.Equal(t, 1, len(root.Flags())-countNonDispositionFlags(root.Flags()))
}

func countNonDispositionFlags(flags []string) int {
	n := 0
	for _, f := range flags {
		if f != "DISPOSITION:Accept" {
			n++
		}
	}
	return n
}

func TestDriverScanRespectsMaxObjectsCap(t *testing.T) {
	d, _ := newDriver(t, BFS)
	d.Caps.MaxObjects = 1 // root alone fills the budget; no child may be admitted

	result, err := d.Scan(context.Background(), []byte("root"), model.ExternalVars{}, model.HashSHA256, "cli", "")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Count())
}

func TestDriverScanAbortsOnExpiredScanTime(t *testing.T) {
	d, _ := newDriver(t, BFS)
	d.Caps.ScanTime = time.Nanosecond

	result, err := d.Scan(context.Background(), []byte("root"), model.ExternalVars{}, model.HashSHA256, "cli", "")
	require.NoError(t, err)
	assert.True(t, result.Root().HasFlag(model.FlagScanAborted))
}

func TestDriverScanDFSOrderBuildsCompleteTree(t *testing.T) {
	d, _ := newDriver(t, DFS)
	result, err := d.Scan(context.Background(), []byte("root"), model.ExternalVars{}, model.HashSHA256, "cli", "")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Count())
}
