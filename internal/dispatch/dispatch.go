package dispatch

import (
	"fmt"
	"time"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/rules"
)

// Invocation is one module the dispatcher decided to run, with its final
// options and timeout already resolved through all three merge layers of
// spec.md §4.4 steps 2-3 (module defaults < dispatch-action override <
// per-scan override) — Dispatch is the one place that sees the module
// table, the matched action, and ExternalVars.ModuleOverrides together, so
// it applies every layer itself rather than deferring any of them.
type Invocation struct {
	Name    string
	Options map[string]interface{}
	Timeout time.Duration
}

// Decision is the dispatcher's output for one object (spec.md §4.3 step 6).
type Decision struct {
	Invocations []Invocation
	ObjectType  []string
}

// moduleRefOccurrence pairs a matched ModuleRef with the timeout override of
// the action it came from, so the dedup step keeps both together.
type moduleRefOccurrence struct {
	Ref           ModuleRef
	ActionTimeout time.Duration
}

// BadOptionsError is a runtime (not startup) DispatchConfigError: a
// dispatch action referenced a module with options the module rejects.
// It is declared here because it names a dispatch-shaped fault. No code in
// this repository constructs it or turns it into the DISPATCH:BAD_OPTIONS
// flag: a module that rejects its options returns an ordinary error, which
// internal/runtime records as MODULE:ERROR.
type BadOptionsError struct {
	Module string
	Err    error
}

func (e *BadOptionsError) Error() string {
	return fmt.Sprintf("dispatch: module %s rejected options: %v", e.Module, e.Err)
}
func (e *BadOptionsError) Unwrap() error { return e.Err }

// Dispatcher runs the dispatch algorithm of spec.md §4.3 against compiled
// rules and a config-declared dispatch table + module table.
type Dispatcher struct {
	Engine      rules.Engine
	Table       Table
	ModuleTable ModuleTable
}

// Dispatch executes spec.md §4.3's numbered algorithm against obj, mutating
// obj's object_type, flags, and content_type as a side effect (steps 5 and
// 6), and returns the ordered module invocation list (step 6's return).
func (d *Dispatcher) Dispatch(obj *model.ScanObject, ev model.ExternalVars) (Decision, error) {
	inputs := rules.RuleInputs{
		Filename:      obj.Filename,
		ContentType:   firstOr(obj.ContentType(), ev.ContentType),
		Source:        ev.Source,
		ExtSourceTags: joinTags(ev.ExtSourceTags),
		EphID:         ev.EphID,
		SubmitID:      ev.SubmitID,
	}

	matched, err := d.Engine.Match(obj.Buffer(), inputs)
	if err != nil {
		return Decision{}, fmt.Errorf("dispatch: match: %w", err)
	}

	matchedNames := make(map[string]bool, len(matched.Matches))
	for _, n := range matched.Names() {
		matchedNames[n] = true
	}

	// Step 2: R is the set of matched rule names, or {"default"} if empty.
	activeRuleNames := matched.Names()
	if len(activeRuleNames) == 0 {
		activeRuleNames = []string{DefaultRule}
		matchedNames[DefaultRule] = true
	}

	// Step 3: walk the table in config-declared order (not match order),
	// concatenating actions for every rule that is in R. This also governs
	// flags/content_type concatenation order. actionTimeout carries along each ref's action-level
	// timeout override so step 4's dedup can keep it with the winning
	// (first-occurrence) reference.
	var orderedRefs []moduleRefOccurrence
	var flags []string
	var contentType []string
	for _, tableRule := range d.Table {
		if !matchedNames[tableRule.RuleExpr] {
			continue
		}
		for _, ref := range tableRule.Action.Modules {
			orderedRefs = append(orderedRefs, moduleRefOccurrence{Ref: ref, ActionTimeout: tableRule.Action.Timeout})
		}
		flags = append(flags, tableRule.Action.Flags...)
		contentType = append(contentType, tableRule.Action.ContentType...)
	}

	// Step 4: dedup preserving first occurrence; flag disagreeing repeats.
	seen := make(map[string]moduleRefOccurrence)
	order := make([]string, 0, len(orderedRefs))
	duplicate := false
	for _, occ := range orderedRefs {
		prior, exists := seen[occ.Ref.Name]
		if !exists {
			seen[occ.Ref.Name] = occ
			order = append(order, occ.Ref.Name)
			continue
		}
		if !optionsEqual(prior.Ref.Options, occ.Ref.Options) {
			duplicate = true
		}
	}
	if duplicate {
		obj.AddFlag(model.FlagDispatchDuplicateModule)
	}

	// Strip modules already run on this object unless rescan permits, and
	// modules missing from the module table. Options and timeout are
	// resolved here through all three merge layers of spec.md §4.4 steps
	// 2-3: module table defaults, then the matching action's override,
	// then ExternalVars.ModuleOverrides (the per-scan layer).
	var invocations []Invocation
	for _, name := range order {
		if obj.HasRun(name) && !ev.CanRescan(name) {
			continue
		}
		entry, known := d.ModuleTable[name]
		if !known {
			obj.AddFlag(model.FlagDispatchMissingModule(name))
			continue
		}
		if !entry.Enabled {
			continue
		}
		occ := seen[name]
		merged := mergeOptions(entry.DefaultOptions, occ.Ref.Options)
		timeout := entry.Timeout
		if occ.ActionTimeout > 0 {
			timeout = occ.ActionTimeout
		}
		if override, ok := ev.ModuleOverrides[name]; ok {
			merged = mergeOptions(merged, override.Options)
			if override.Timeout > 0 {
				timeout = override.Timeout
			}
		}
		invocations = append(invocations, Invocation{Name: name, Options: merged, Timeout: timeout})
	}

	// Step 5: record object_type and append flags/content_type.
	obj.AddObjectType(activeRuleNames...)
	obj.AddFlags(flags...)
	obj.AddContentType(contentType...)

	return Decision{Invocations: invocations, ObjectType: obj.ObjectType()}, nil
}

func mergeOptions(base, override map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{}, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

func optionsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || fmt.Sprint(v) != fmt.Sprint(bv) {
			return false
		}
	}
	return true
}

func joinTags(tags []string) string {
	out := ""
	for i, t := range tags {
		if i > 0 {
			out += ","
		}
		out += t
	}
	return out
}

func firstOr(vals []string, fallback string) string {
	if len(vals) > 0 {
		return vals[0]
	}
	return fallback
}
