//go:build noyara

package rules

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const liteSource = `
rule EICAR_TEST
{
    meta:
        author = "test"
        severity = "high"
    strings:
        $s1 = "EICAR-STANDARD-ANTIVIRUS-TEST-FILE" nocase
    condition:
        $s1
}

rule ALWAYS_MATCHES
{
    condition:
        true
}
`

func TestCompileParsesRulesAndNames(t *testing.T) {
	engine, err := Compile(liteSource, time.Second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EICAR_TEST", "ALWAYS_MATCHES"}, engine.RuleNames())
}

func TestCompileRejectsEmptySource(t *testing.T) {
	_, err := Compile("   ", time.Second)
	assert.ErrorIs(t, err, errEmptySource)
}

func TestLiteEngineMatchFindsStringHitCaseInsensitive(t *testing.T) {
	engine, err := Compile(liteSource, time.Second)
	require.NoError(t, err)

	matches, err := engine.Match([]byte("prefix eicar-standard-antivirus-test-file suffix"), RuleInputs{})
	require.NoError(t, err)

	names := matches.Names()
	assert.Contains(t, names, "EICAR_TEST")
	assert.Contains(t, names, "ALWAYS_MATCHES")

	m, ok := matches.ByName("EICAR_TEST")
	require.True(t, ok)
	require.Len(t, m.Strings, 1)
	assert.Equal(t, "$s1", m.Strings[0].Identifier)
	assert.Equal(t, "test", m.Meta["author"])
}

func TestLiteEngineMatchExcludesRuleWithNoStringHit(t *testing.T) {
	engine, err := Compile(liteSource, time.Second)
	require.NoError(t, err)

	matches, err := engine.Match([]byte("nothing interesting here"), RuleInputs{})
	require.NoError(t, err)

	names := matches.Names()
	assert.NotContains(t, names, "EICAR_TEST")
	assert.Contains(t, names, "ALWAYS_MATCHES")
}

func TestCompileFileReadsRulesFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yar")
	require.NoError(t, os.WriteFile(path, []byte(liteSource), 0o644))

	engine, err := CompileFile(path, time.Second)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"EICAR_TEST", "ALWAYS_MATCHES"}, engine.RuleNames())
}

func TestCompileFileMissingReturnsIOError(t *testing.T) {
	_, err := CompileFile("/nonexistent/path/rules.yar", time.Second)
	require.Error(t, err)
	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)
}
