package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validActionTOML = `
[[action]]
rule = "EICAR_TEST"
modules = ["YARA_SCAN", "EXTRACT_ZIP(max_files=50)"]
flags = ["SUSPECT"]
content_type = ["text/plain"]
priority = 10

[[action]]
rule = "default"
modules = ["IDENTIFY"]
`

func TestParseDispatchTableTOMLBuildsTable(t *testing.T) {
	table, err := ParseDispatchTableTOML([]byte(validActionTOML))
	require.NoError(t, err)
	require.Len(t, table, 2)

	first := table[0]
	assert.Equal(t, "EICAR_TEST", first.RuleExpr)
	require.Len(t, first.Action.Modules, 2)
	assert.Equal(t, "EXTRACT_ZIP", first.Action.Modules[1].Name)
	assert.Equal(t, "50", first.Action.Modules[1].Options["max_files"])
	assert.Equal(t, 10, first.Action.Priority)

	assert.Equal(t, "default", table[1].RuleExpr)
}

func TestParseDispatchTableTOMLRejectsMalformedModule(t *testing.T) {
	_, err := ParseDispatchTableTOML([]byte(`
[[action]]
rule = "default"
modules = ["BROKEN(no_equals_here)"]
`))
	require.Error(t, err)
}

func TestParseDispatchTableTOMLEmptyDocumentIsEmptyTable(t *testing.T) {
	table, err := ParseDispatchTableTOML([]byte(``))
	require.NoError(t, err)
	assert.Empty(t, table)
}
