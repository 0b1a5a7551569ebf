// Package disposition implements the dispositioner (spec.md §4.5, C5): it
// runs exactly once after the work queue drains, on the root object only,
// folding flags from the entire tree into a final verdict via an ordered
// rule table.
package disposition

import (
	"fmt"

	"github.com/Nigelli/laikaboss/internal/model"
)

// Predicate is a boolean expression over the set of flags present anywhere
// in the tree (spec.md §4.5: literal-flag-present, AND, OR, NOT, and a
// priority-exceeds comparator using numeric flag weights).
type Predicate interface {
	Eval(flags map[string]bool, weights map[string]int) bool
	String() string
}

// FlagPresent is the literal-flag-present predicate.
type FlagPresent struct{ Flag string }

func (p FlagPresent) Eval(flags map[string]bool, _ map[string]int) bool { return flags[p.Flag] }
func (p FlagPresent) String() string                                    { return p.Flag }

// And is the conjunction of its operands.
type And []Predicate

func (a And) Eval(flags map[string]bool, w map[string]int) bool {
	for _, p := range a {
		if !p.Eval(flags, w) {
			return false
		}
	}
	return true
}
func (a And) String() string { return joinPredicates(a, " AND ") }

// Or is the disjunction of its operands.
type Or []Predicate

func (o Or) Eval(flags map[string]bool, w map[string]int) bool {
	for _, p := range o {
		if p.Eval(flags, w) {
			return true
		}
	}
	return false
}
func (o Or) String() string { return joinPredicates(o, " OR ") }

// Not negates its operand.
type Not struct{ Operand Predicate }

func (n Not) Eval(flags map[string]bool, w map[string]int) bool { return !n.Operand.Eval(flags, w) }
func (n Not) String() string                                    { return "NOT " + n.Operand.String() }

// PriorityExceeds compares the sum of numeric weights of the present flags
// named in Flags against Threshold, using the config-declared weight table
// (spec.md §4.5 "priority-exceeds comparator using numeric flag-weights
// from config").
type PriorityExceeds struct {
	Flags     []string
	Threshold int
}

func (p PriorityExceeds) Eval(flags map[string]bool, weights map[string]int) bool {
	total := 0
	for _, f := range p.Flags {
		if flags[f] {
			total += weights[f]
		}
	}
	return total > p.Threshold
}
func (p PriorityExceeds) String() string {
	return fmt.Sprintf("PRIORITY(%v) > %d", p.Flags, p.Threshold)
}

// Rule is one row of the disposition rule table: the first matching
// predicate wins (spec.md §4.5).
type Rule struct {
	Predicate   Predicate
	Disposition string
	Reason      string
}

// Table is the ordered disposition rule table plus the fallback used when
// no rule matches.
type Table struct {
	Rules              []Rule
	DefaultDisposition string
	FlagWeights        map[string]int
}

// Error is a DispositionerError (spec.md §7): the dispositioner falls back
// to the configured default disposition and flags DISPOSITIONER:ERROR
// rather than failing the scan.
type Error struct{ Err error }

func (e *Error) Error() string { return "disposition: " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Dispositioner runs the disposition rule table against a scan's full
// object tree.
type Dispositioner struct {
	Table Table
}

// Run folds the accumulated flags of result's entire object tree into a
// final disposition and reason, applying the first matching rule in
// config-declared order and falling back to Table.DefaultDisposition
// (spec.md §4.5). It writes the verdict onto the root object's own
// DISPOSITIONER metadata namespace and adds DISPOSITION:<value> to the
// root's flags, and is idempotent: calling Run twice on the same final
// tree yields identical flags/metadata (spec.md P5), since it only ever
// reads flags (which never shrink, I6) and writes the same deterministic
// keys both times.
func (d *Dispositioner) Run(result *model.ScanResult) (disposition, reason string) {
	root := result.Root()
	if root == nil {
		return d.Table.DefaultDisposition, "no root object"
	}

	disposition, reason, err := d.evaluate(result)
	if err != nil {
		root.AddFlag(model.FlagDispositionerError)
		disposition, reason = d.Table.DefaultDisposition, err.Error()
	}

	d.commit(root, disposition, reason)
	return disposition, reason
}

// evaluate walks the rule table under a recover guard: a malformed
// predicate (e.g. one referencing a nil operand) becomes a *Error rather
// than crashing the scan (spec.md §7, DispositionerError).
func (d *Dispositioner) evaluate(result *model.ScanResult) (disposition, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{Err: fmt.Errorf("panic evaluating rule table: %v", r)}
		}
	}()

	flags := result.UnionFlags()
	disposition, reason = d.Table.DefaultDisposition, "no rule matched"
	for _, rule := range d.Table.Rules {
		if rule.Predicate.Eval(flags, d.Table.FlagWeights) {
			return rule.Disposition, rule.Reason, nil
		}
	}
	return disposition, reason, nil
}

func (d *Dispositioner) commit(root *model.ScanObject, disposition, reason string) {
	_ = root.AddMetadata(model.MetadataDispositionerKey, "Result", model.String(disposition), true)
	_ = root.AddMetadata(model.MetadataDispositionerKey, "Reason", model.String(reason), true)
	root.AddFlag(model.FlagDisposition(disposition))
}

func joinPredicates(ps []Predicate, sep string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += sep
		}
		out += p.String()
	}
	return out
}
