//go:build !noyara

package rules

import (
	"fmt"
	"os"
	"time"

	yara "github.com/hillu/go-yara/v4"
)

func openRuleFile(path string) (*os.File, error) {
	return os.Open(path)
}

// yaraEngine is the default C2 matcher: real libyara via cgo, grounded on
// the teacher's declared (but, in the teacher, unwired) go-yara/v4
// dependency — this is the component that actually exercises it.
type yaraEngine struct {
	rules   *yara.Rules
	names   []string
	timeout time.Duration
}

// Compile parses rules_source and returns a ready-to-use Engine. Compile
// failures surface as *SyntaxError; missing includes as *IOError (spec.md
// §7, both fatal at startup).
func Compile(source string, timeout time.Duration) (Engine, error) {
	if source == "" {
		return nil, errEmptySource
	}
	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("rules: create compiler: %w", err)
	}
	if err := compiler.AddString(source, ""); err != nil {
		if isYaraIOError(err) {
			return nil, &IOError{Err: err}
		}
		return nil, &SyntaxError{Err: err}
	}
	compiled, err := compiler.GetRules()
	if err != nil {
		return nil, &SyntaxError{Err: err}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &yaraEngine{rules: compiled, timeout: timeout}
	for _, r := range compiled.GetRules() {
		e.names = append(e.names, r.Identifier())
	}
	return e, nil
}

// CompileFile compiles rules from a file on disk, following #include
// directives relative to its directory.
func CompileFile(path string, timeout time.Duration) (Engine, error) {
	compiler, err := yara.NewCompiler()
	if err != nil {
		return nil, fmt.Errorf("rules: create compiler: %w", err)
	}
	f, err := openRuleFile(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()
	if err := compiler.AddFile(f, ""); err != nil {
		if isYaraIOError(err) {
			return nil, &IOError{Path: path, Err: err}
		}
		return nil, &SyntaxError{Path: path, Err: err}
	}
	compiled, err := compiler.GetRules()
	if err != nil {
		return nil, &SyntaxError{Path: path, Err: err}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	e := &yaraEngine{rules: compiled, timeout: timeout}
	for _, r := range compiled.GetRules() {
		e.names = append(e.names, r.Identifier())
	}
	return e, nil
}

func (e *yaraEngine) RuleNames() []string {
	out := make([]string, len(e.names))
	copy(out, e.names)
	return out
}

func (e *yaraEngine) Match(buf []byte, inputs RuleInputs) (MatchSet, error) {
	sc, err := yara.NewScanner(e.rules)
	if err != nil {
		return MatchSet{}, fmt.Errorf("rules: create scanner: %w", err)
	}
	defer sc.Destroy()

	sc.SetTimeout(e.timeout)
	_ = sc.DefineVariable("filename", inputs.Filename)
	_ = sc.DefineVariable("contentType", inputs.ContentType)
	_ = sc.DefineVariable("source", inputs.Source)
	_ = sc.DefineVariable("extSourceTags", inputs.ExtSourceTags)
	_ = sc.DefineVariable("ephID", inputs.EphID)
	_ = sc.DefineVariable("submitID", inputs.SubmitID)

	var matches yara.MatchRules
	sc.SetCallback(&matches)
	if err := sc.ScanMem(buf); err != nil {
		return MatchSet{}, fmt.Errorf("rules: scan: %w", err)
	}

	out := MatchSet{Matches: make([]Match, 0, len(matches))}
	for _, m := range matches {
		meta := make(map[string]interface{}, len(m.Meta))
		for _, md := range m.Meta {
			meta[md.Identifier] = md.Value
		}
		strs := make([]StringMatch, 0, len(m.Strings))
		for _, s := range m.Strings {
			strs = append(strs, StringMatch{
				Identifier: s.Name,
				Offset:     s.Offset,
				Data:       s.Data,
			})
		}
		out.Matches = append(out.Matches, Match{
			RuleName: m.Rule,
			Meta:     meta,
			Strings:  strs,
		})
	}
	return out, nil
}

func isYaraIOError(err error) bool {
	// go-yara surfaces include-file failures as generic compiler errors;
	// there is no distinct exported type, so this is a best-effort
	// classification used only to choose between SyntaxError and IOError
	// for the startup diagnostic.
	msg := err.Error()
	return containsAny(msg, []string{"cannot open", "no such file", "not found", "include"})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
