package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigelli/laikaboss/internal/disposition"
)

const validSidecar = `
dispatch:
  - rule: EICAR_TEST
    modules: ["YARA_SCAN", "EXTRACT_ZIP(max_files=50)"]
    flags: ["SUSPECT"]
    content_type: ["text/plain"]
    priority: 10
  - rule: default
    modules: ["IDENTIFY"]

modules:
  YARA_SCAN:
    priority: 1
    enabled: true
    options: { timeout_ms: 2000 }
  EXTRACT_ZIP:
    priority: 2
    enabled: true
  IDENTIFY:
    priority: 0
    enabled: true

disposition:
  default: Accept
  flag_weights: { SUSPECT: 5, MALICIOUS: 100 }
  rules:
    - if: { flag: MALICIOUS }
      disposition: Reject
      reason: "malicious flag present"
    - if: { not: { flag: CLEAN } }
      disposition: Review
      reason: "not confirmed clean"
`

func TestParseSidecarYAMLBuildsDispatchTable(t *testing.T) {
	sc, err := ParseSidecarYAML([]byte(validSidecar))
	require.NoError(t, err)
	require.Len(t, sc.DispatchTable, 2)

	first := sc.DispatchTable[0]
	assert.Equal(t, "EICAR_TEST", first.RuleExpr)
	require.Len(t, first.Action.Modules, 2)
	assert.Equal(t, "YARA_SCAN", first.Action.Modules[0].Name)
	assert.Equal(t, "EXTRACT_ZIP", first.Action.Modules[1].Name)
	assert.Equal(t, "50", first.Action.Modules[1].Options["max_files"])
	assert.Equal(t, []string{"SUSPECT"}, first.Action.Flags)
	assert.Equal(t, 10, first.Action.Priority)
}

func TestParseSidecarYAMLBuildsModuleTable(t *testing.T) {
	sc, err := ParseSidecarYAML([]byte(validSidecar))
	require.NoError(t, err)

	entry, ok := sc.ModuleTable["YARA_SCAN"]
	require.True(t, ok)
	assert.True(t, entry.Enabled)
	assert.Equal(t, 1, entry.Priority)
	assert.EqualValues(t, 2000, entry.DefaultOptions["timeout_ms"])
}

func TestParseSidecarYAMLBuildsDispositionTable(t *testing.T) {
	sc, err := ParseSidecarYAML([]byte(validSidecar))
	require.NoError(t, err)

	assert.Equal(t, "Accept", sc.Disposition.DefaultDisposition)
	assert.Equal(t, 100, sc.Disposition.FlagWeights["MALICIOUS"])
	require.Len(t, sc.Disposition.Rules, 2)
	assert.Equal(t, "Reject", sc.Disposition.Rules[0].Disposition)

	_, isNot := sc.Disposition.Rules[1].Predicate.(disposition.Not)
	assert.True(t, isNot)
}

func TestParseSidecarYAMLRejectsEmptyPredicate(t *testing.T) {
	_, err := ParseSidecarYAML([]byte(`
disposition:
  default: Accept
  rules:
    - if: {}
      disposition: Reject
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty or malformed predicate node")
}

func TestParseSidecarYAMLRejectsMalformedModuleOptions(t *testing.T) {
	_, err := ParseSidecarYAML([]byte(`
dispatch:
  - rule: default
    modules: ["BROKEN(no_equals_here)"]
`))
	require.Error(t, err)
}

func TestBuildPredicateNestedAndOr(t *testing.T) {
	sc, err := ParseSidecarYAML([]byte(`
disposition:
  default: Accept
  rules:
    - if:
        and:
          - flag: SUSPECT
          - or:
              - flag: MALICIOUS
              - flag: PACKED
      disposition: Review
`))
	require.NoError(t, err)
	require.Len(t, sc.Disposition.Rules, 1)

	pred := sc.Disposition.Rules[0].Predicate
	and, ok := pred.(disposition.And)
	require.True(t, ok)
	require.Len(t, and, 2)
	_, ok = and[1].(disposition.Or)
	assert.True(t, ok)
}
