package disposition

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigelli/laikaboss/internal/model"
)

func TestPredicateEval(t *testing.T) {
	flags := map[string]bool{"SUSPECT": true, "MALICIOUS": true}
	weights := map[string]int{"SUSPECT": 5, "MALICIOUS": 100}

	assert.True(t, FlagPresent{Flag: "SUSPECT"}.Eval(flags, weights))
	assert.False(t, FlagPresent{Flag: "CLEAN"}.Eval(flags, weights))
	assert.True(t, And{FlagPresent{Flag: "SUSPECT"}, FlagPresent{Flag: "MALICIOUS"}}.Eval(flags, weights))
	assert.False(t, And{FlagPresent{Flag: "SUSPECT"}, FlagPresent{Flag: "CLEAN"}}.Eval(flags, weights))
	assert.True(t, Or{FlagPresent{Flag: "CLEAN"}, FlagPresent{Flag: "SUSPECT"}}.Eval(flags, weights))
	assert.True(t, Not{Operand: FlagPresent{Flag: "CLEAN"}}.Eval(flags, weights))
	assert.True(t, PriorityExceeds{Flags: []string{"SUSPECT", "MALICIOUS"}, Threshold: 50}.Eval(flags, weights))
	assert.False(t, PriorityExceeds{Flags: []string{"SUSPECT"}, Threshold: 50}.Eval(flags, weights))
}

func newRootResult(t *testing.T, flags ...string) *model.ScanResult {
	t.Helper()
	root, err := model.NewRoot([]byte("x"), model.ExternalVars{}, model.HashSHA256)
	require.NoError(t, err)
	root.AddFlags(flags...)
	result := model.NewScanResult("cli", "", root.UUID, time.Now())
	result.AddObject(root)
	return result
}

func TestDispositionerRunPicksFirstMatchingRule(t *testing.T) {
	table := Table{
		DefaultDisposition: "Accept",
		Rules: []Rule{
			{Predicate: FlagPresent{Flag: "MALICIOUS"}, Disposition: "Reject", Reason: "malicious"},
			{Predicate: FlagPresent{Flag: "SUSPECT"}, Disposition: "Review", Reason: "suspect"},
		},
	}
	d := &Dispositioner{Table: table}
	result := newRootResult(t, "SUSPECT", "MALICIOUS")

	disp, reason := d.Run(result)
	assert.Equal(t, "Reject", disp)
	assert.Equal(t, "malicious", reason)
	assert.True(t, result.Root().HasFlag("DISPOSITION:Reject"))
	assert.Equal(t, "Reject", result.Root().Metadata(model.MetadataDispositionerKey)["Result"].AsString())
}

func TestDispositionerRunFallsBackToDefault(t *testing.T) {
	table := Table{
		DefaultDisposition: "Accept",
		Rules: []Rule{
			{Predicate: FlagPresent{Flag: "MALICIOUS"}, Disposition: "Reject"},
		},
	}
	d := &Dispositioner{Table: table}
	result := newRootResult(t, "CLEAN")

	disp, reason := d.Run(result)
	assert.Equal(t, "Accept", disp)
	assert.Equal(t, "no rule matched", reason)
}

func TestDispositionerRunRecoversPanickingPredicate(t *testing.T) {
	table := Table{
		DefaultDisposition: "Accept",
		Rules:              []Rule{{Predicate: panickyPredicate{}, Disposition: "Reject"}},
	}
	d := &Dispositioner{Table: table}
	result := newRootResult(t)

	disp, _ := d.Run(result)
	assert.Equal(t, "Accept", disp)
	assert.True(t, result.Root().HasFlag(model.FlagDispositionerError))
}

func TestDispositionerRunIsIdempotent(t *testing.T) {
	table := Table{DefaultDisposition: "Accept"}
	d := &Dispositioner{Table: table}
	result := newRootResult(t)

	disp1, reason1 := d.Run(result)
	disp2, reason2 := d.Run(result)
	assert.Equal(t, disp1, disp2)
	assert.Equal(t, reason1, reason2)
}

type panickyPredicate struct{}

func (panickyPredicate) Eval(map[string]bool, map[string]int) bool { panic("bad predicate") }
func (panickyPredicate) String() string                             { return "PANIC" }
