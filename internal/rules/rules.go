// Package rules wraps a YARA-compatible matcher behind a small interface
// (spec.md §4.2, C2). Two implementations satisfy Engine: a cgo-backed
// engine using github.com/hillu/go-yara/v4 against real libyara (the
// default), and a pure-Go fallback adapted from the teacher's
// internal/pkg/yara_lite parser for builds tagged `noyara` where cgo/libyara
// is unavailable. Both are deterministic for identical inputs and compiled
// rule set, as spec.md §4.2 requires.
package rules

import "errors"

// SyntaxError is returned by Compile when rules_source fails to parse
// (spec.md §7, fatal at startup).
type SyntaxError struct {
	Path string
	Err  error
}

func (e *SyntaxError) Error() string {
	if e.Path != "" {
		return "rules: syntax error in " + e.Path + ": " + e.Err.Error()
	}
	return "rules: syntax error: " + e.Err.Error()
}
func (e *SyntaxError) Unwrap() error { return e.Err }

// IOError is returned by Compile when an included rule file cannot be
// loaded (spec.md §7, fatal at startup).
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return "rules: cannot read " + e.Path + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

var errEmptySource = errors.New("rules: empty rule source")

// StringMatch is one matched string/pattern location within a rule hit.
type StringMatch struct {
	Identifier string
	Offset     uint64
	Data       []byte
}

// Match is one matched rule (spec.md §4.2: "a set of tuples (rule_name,
// meta, strings)").
type Match struct {
	RuleName string
	Meta     map[string]interface{}
	Strings  []StringMatch
}

// MatchSet is the result of matching a buffer against compiled rules.
type MatchSet struct {
	Matches []Match
}

// Names returns the matched rule names in match order.
func (m MatchSet) Names() []string {
	out := make([]string, len(m.Matches))
	for i, mm := range m.Matches {
		out[i] = mm.RuleName
	}
	return out
}

// ByName finds a match by rule name, if present.
func (m MatchSet) ByName(name string) (Match, bool) {
	for _, mm := range m.Matches {
		if mm.RuleName == name {
			return mm, true
		}
	}
	return Match{}, false
}

// RuleInputs collects the rule-time external variables spec.md §4.2
// requires be exposed to the matcher so rules can condition on submission
// context, rather than threading a large context object implicitly (design
// note, §9 "External-variable plumbing").
type RuleInputs struct {
	Filename      string
	ContentType   string
	Source        string
	ExtSourceTags string // ExternalVars.extSourceTags joined, per spec.md §4.2
	EphID         string
	SubmitID      string
}

// Engine compiles and evaluates rule sources against a buffer.
type Engine interface {
	// Match evaluates buf (which may be empty, spec.md §4.2) against the
	// compiled rules, exposing inputs as matcher-visible external
	// variables.
	Match(buf []byte, inputs RuleInputs) (MatchSet, error)
	// RuleNames returns every rule name known to the compiled engine, used
	// by the dispatcher to validate dispatch-table rule_expr references at
	// startup.
	RuleNames() []string
}
