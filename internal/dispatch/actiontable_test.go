package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionLineFullForm(t *testing.T) {
	rule, err := ParseActionLine("EICAR_TEST : YARA_SCAN,EXTRACT_ZIP(max_files=50) ; SUSPECT,LOGGED ; text/plain ; 10")
	require.NoError(t, err)

	assert.Equal(t, "EICAR_TEST", rule.RuleExpr)
	require.Len(t, rule.Action.Modules, 2)
	assert.Equal(t, "YARA_SCAN", rule.Action.Modules[0].Name)
	assert.Equal(t, "EXTRACT_ZIP", rule.Action.Modules[1].Name)
	assert.Equal(t, "50", rule.Action.Modules[1].Options["max_files"])
	assert.Equal(t, []string{"SUSPECT", "LOGGED"}, rule.Action.Flags)
	assert.Equal(t, []string{"text/plain"}, rule.Action.ContentType)
	assert.Equal(t, 10, rule.Action.Priority)
}

func TestParseActionLineModulesOnly(t *testing.T) {
	rule, err := ParseActionLine("default : IDENTIFY")
	require.NoError(t, err)
	assert.Equal(t, "default", rule.RuleExpr)
	require.Len(t, rule.Action.Modules, 1)
	assert.Equal(t, "IDENTIFY", rule.Action.Modules[0].Name)
	assert.Empty(t, rule.Action.Flags)
}

func TestParseActionLineMissingColonIsError(t *testing.T) {
	_, err := ParseActionLine("no colon here")
	assert.Error(t, err)
}

func TestParseActionLineEmptyRuleExprIsError(t *testing.T) {
	_, err := ParseActionLine(" : IDENTIFY")
	assert.Error(t, err)
}

func TestParseActionLineBadPriorityIsError(t *testing.T) {
	_, err := ParseActionLine("default : IDENTIFY ; ; ; not-a-number")
	assert.Error(t, err)
}

func TestParseModuleRefWithOptions(t *testing.T) {
	ref, err := ParseModuleRef("EXTRACT_ZIP(max_files=50,keep_empty=true)")
	require.NoError(t, err)
	assert.Equal(t, "EXTRACT_ZIP", ref.Name)
	assert.Equal(t, "50", ref.Options["max_files"])
	assert.Equal(t, "true", ref.Options["keep_empty"])
}

func TestParseModuleRefNoOptions(t *testing.T) {
	ref, err := ParseModuleRef("IDENTIFY")
	require.NoError(t, err)
	assert.Equal(t, "IDENTIFY", ref.Name)
	assert.Empty(t, ref.Options)
}

func TestParseModuleRefMalformedOptionsIsError(t *testing.T) {
	_, err := ParseModuleRef("EXTRACT_ZIP(max_files=50")
	assert.Error(t, err)
}

func TestParseModuleRefMalformedKeyValueIsError(t *testing.T) {
	_, err := ParseModuleRef("EXTRACT_ZIP(max_files)")
	assert.Error(t, err)
}

func TestSplitTopLevelCommaRespectsNestedParens(t *testing.T) {
	mods, err := parseModuleList("IDENTIFY,EXTRACT_ZIP(a=1,b=2),YARA_SCAN")
	require.NoError(t, err)
	require.Len(t, mods, 3)
	assert.Equal(t, "IDENTIFY", mods[0].Name)
	assert.Equal(t, "EXTRACT_ZIP", mods[1].Name)
	assert.Equal(t, "1", mods[1].Options["a"])
	assert.Equal(t, "2", mods[1].Options["b"])
	assert.Equal(t, "YARA_SCAN", mods[2].Name)
}
