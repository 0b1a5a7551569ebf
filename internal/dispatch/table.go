// Package dispatch implements the dispatcher (spec.md §4.3, C3): for each
// object it consults the dispatch table and module table to decide the
// ordered set of modules to run and to assign the object's type.
package dispatch

import (
	"fmt"
	"time"
)

// DefaultRule is the literal dispatch rule name spec.md §4.3 reserves for
// the fallback action taken when no YARA rule matches.
const DefaultRule = "default"

// ModuleRef is one module reference inside a dispatch action's module list:
// a name plus inline option overrides (spec.md §4.3 canonical form:
// "module(opt=val)").
type ModuleRef struct {
	Name    string
	Options map[string]interface{}
}

// Action is what a matched dispatch rule contributes (spec.md §4.3). Timeout,
// if set, overrides the module table's default per-module timeout for every
// module this action invokes (spec.md §4.4 step 2's "overridable... per
// rule-action").
type Action struct {
	Modules     []ModuleRef
	Flags       []string
	ContentType []string
	Priority    int
	Timeout     time.Duration
}

// Rule pairs a rule_expr (a YARA rule name, or the literal "default") with
// the action to take when it matches.
type Rule struct {
	RuleExpr string
	Action   Action
}

// Table is the ordered list of dispatch rules, in config-declared order —
// the order dispatch's step 3 walks, independent of match order (spec.md
// §4.3). Config-declared order governs both module concatenation AND
// content_type/flag concatenation, for a single consistent rule.
type Table []Rule

// ModuleTableEntry is a module's static, config-declared defaults (spec.md
// §4.3 "Module Table"). The implementation itself is looked up by name in
// the runtime registry (internal/runtime); the dispatch-time module table
// only needs to know a module exists, whether it is enabled, its priority,
// and its default options.
type ModuleTableEntry struct {
	Priority       int
	Enabled        bool
	DefaultOptions map[string]interface{}
	// Timeout is the module's default per-invocation timeout (spec.md
	// §4.4 step 2). Zero means "fall back to the scan-wide module_time
	// cap" (internal/runtime.Executor.Run's behavior for a zero timeout).
	Timeout time.Duration
}

// ModuleTable maps module name to its static defaults.
type ModuleTable map[string]ModuleTableEntry

// ErrUnknownRule is returned by Table validation when a dispatch rule
// references a YARA rule name the compiled rule set does not define
// (spec.md §7, DispatchConfigError, fatal at startup).
type ErrUnknownRule struct {
	RuleExpr string
}

func (e *ErrUnknownRule) Error() string {
	return fmt.Sprintf("dispatch: rule_expr %q not found in compiled rule set", e.RuleExpr)
}

// Validate checks that every non-"default" RuleExpr in t exists in
// knownRuleNames. It does not require a "default" rule to exist — spec.md
// §4.3(c) makes that a legal, if degenerate, configuration.
func (t Table) Validate(knownRuleNames []string) error {
	known := make(map[string]bool, len(knownRuleNames))
	for _, n := range knownRuleNames {
		known[n] = true
	}
	for _, r := range t {
		if r.RuleExpr == DefaultRule {
			continue
		}
		if !known[r.RuleExpr] {
			return &ErrUnknownRule{RuleExpr: r.RuleExpr}
		}
	}
	return nil
}
