//go:build noyara

// Package rules, lite build: a pure-Go fallback matcher for builds without
// cgo/libyara available, adapted from the teacher's
// internal/pkg/yara_lite/parser.go. It supports a small subset of YARA
// (rule blocks, quoted text string definitions with optional `nocase`,
// `meta:` key-value pairs) extended with meta capture and matched-string
// offsets so it satisfies the same Engine/MatchSet contract as the cgo
// engine (spec.md §4.2). Regex and hex strings are skipped, conditions are
// not evaluated (a rule matches when any of its strings is found, or always
// when it has none), and RuleInputs are ignored.
package rules

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"time"
)

type liteString struct {
	name string
	re   *regexp.Regexp
}

type liteRule struct {
	name    string
	meta    map[string]interface{}
	strings []liteString
}

type liteEngine struct {
	rules []liteRule
}

// Compile parses a lite-YARA source string. timeout is accepted for
// interface parity with the cgo engine but unused: regex matching here has
// no equivalent internal watchdog, so callers rely on the module-runtime
// per-module timeout (spec.md §4.4) to bound total dispatch time regardless
// of which Engine is linked in.
func Compile(source string, timeout time.Duration) (Engine, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errEmptySource
	}
	rules, err := parseLite(strings.NewReader(source))
	if err != nil {
		return nil, &SyntaxError{Err: err}
	}
	return &liteEngine{rules: rules}, nil
}

// CompileFile compiles rules from a file on disk. lite-YARA has no #include
// support, matching parser.go's scope.
func CompileFile(path string, timeout time.Duration) (Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Path: path, Err: err}
	}
	defer f.Close()
	rules, err := parseLite(f)
	if err != nil {
		return nil, &SyntaxError{Path: path, Err: err}
	}
	return &liteEngine{rules: rules}, nil
}

func (e *liteEngine) RuleNames() []string {
	out := make([]string, len(e.rules))
	for i, r := range e.rules {
		out[i] = r.name
	}
	return out
}

func (e *liteEngine) Match(buf []byte, inputs RuleInputs) (MatchSet, error) {
	out := MatchSet{}
	for _, rule := range e.rules {
		var strs []StringMatch
		for _, s := range rule.strings {
			loc := s.re.FindIndex(buf)
			if loc == nil {
				continue
			}
			strs = append(strs, StringMatch{
				Identifier: s.name,
				Offset:     uint64(loc[0]),
				Data:       buf[loc[0]:loc[1]],
			})
		}
		if len(strs) == 0 && len(rule.strings) > 0 {
			continue
		}
		out.Matches = append(out.Matches, Match{
			RuleName: rule.name,
			Meta:     rule.meta,
			Strings:  strs,
		})
	}
	return out, nil
}

// parseLite implements the same line-oriented grammar as the teacher's
// yara_lite/parser.go (rule NAME { meta: ... strings: $s = "..." [nocase]
// condition: ... }), extended to capture meta key/value pairs into
// liteRule.meta.
func parseLite(r io.Reader) ([]liteRule, error) {
	var rules []liteRule
	var current *liteRule
	section := ""

	reRuleStart := regexp.MustCompile(`^rule\s+([\w_]+)`)
	reString := regexp.MustCompile(`^\s*(\$[\w\d_]+)\s*=\s*(.*)`)
	reMeta := regexp.MustCompile(`^\s*([\w_]+)\s*=\s*(.*)`)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}

		if m := reRuleStart.FindStringSubmatch(line); len(m) > 1 {
			if current != nil {
				rules = append(rules, *current)
			}
			current = &liteRule{name: m[1], meta: make(map[string]interface{})}
			section = ""
			continue
		}
		if current == nil {
			continue
		}

		switch line {
		case "meta:":
			section = "meta"
			continue
		case "strings:":
			section = "strings"
			continue
		case "condition:":
			section = "condition"
			continue
		case "}":
			continue
		}

		switch section {
		case "meta":
			if m := reMeta.FindStringSubmatch(line); len(m) > 2 {
				current.meta[m[1]] = unquoteLiteValue(m[2])
			}
		case "strings":
			if m := reString.FindStringSubmatch(line); len(m) > 2 {
				name, raw := m[1], m[2]
				nocase := strings.Contains(strings.ToLower(raw), "nocase")
				start := strings.Index(raw, "\"")
				end := strings.LastIndex(raw, "\"")
				if start == -1 || end <= start {
					continue
				}
				content := raw[start+1 : end]
				pattern := regexp.QuoteMeta(content)
				if nocase {
					pattern = "(?i)" + pattern
				}
				re, err := regexp.Compile(pattern)
				if err == nil {
					current.strings = append(current.strings, liteString{name: name, re: re})
				}
			}
		}
	}
	if current != nil {
		rules = append(rules, *current)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func unquoteLiteValue(raw string) interface{} {
	raw = strings.TrimSpace(raw)
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return raw[1 : len(raw)-1]
	}
	return raw
}
