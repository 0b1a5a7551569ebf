package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Nigelli/laikaboss/internal/rules"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

type scriptedEngine struct {
	matches rules.MatchSet
	err     error
}

func (e scriptedEngine) RuleNames() []string { return nil }
func (e scriptedEngine) Match([]byte, rules.RuleInputs) (rules.MatchSet, error) {
	return e.matches, e.err
}

func TestYaraScanModuleRecordsMatchedRulesAndFlags(t *testing.T) {
	engine := scriptedEngine{matches: rules.MatchSet{Matches: []rules.Match{
		{RuleName: "EICAR_TEST"},
		{RuleName: "SUSPICIOUS_MACRO"},
	}}}
	factory := func() runtime.Module { return NewYaraScan(engine) }

	obj, outcome := runModule(t, factory, "YARA_SCAN", []byte("payload"), nil)

	assert.False(t, outcome.Errored)
	assert.True(t, obj.HasFlag("YARA:EICAR_TEST"))
	assert.True(t, obj.HasFlag("YARA:SUSPICIOUS_MACRO"))

	matched := obj.Metadata("YARA_SCAN")["matched_rules"].AsList()
	assert.Len(t, matched, 2)
	assert.Equal(t, "EICAR_TEST", matched[0].AsString())
}

func TestYaraScanModulePropagatesEngineError(t *testing.T) {
	engine := scriptedEngine{err: assert.AnError}
	factory := func() runtime.Module { return NewYaraScan(engine) }

	_, outcome := runModule(t, factory, "YARA_SCAN", []byte("payload"), nil)
	assert.True(t, outcome.Errored)
}
