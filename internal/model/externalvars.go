package model

import "time"

// ModuleOverride is a per-scan override of a module's options and/or
// timeout: the highest-precedence layer of spec.md §4.4 steps 2-3's merge
// order (module defaults < dispatch-action override < per-scan override).
// A zero Timeout means "no override at this layer", not "zero timeout".
type ModuleOverride struct {
	Options map[string]interface{}
	Timeout time.Duration
}

// ExternalVars is the immutable envelope attached to every submission and
// propagated unchanged to every child object within a scan (spec.md §3.1).
type ExternalVars struct {
	Source        string
	EphID         string
	SubmitID      string
	ExtSourceTags []string
	ExtMetadata   map[string]string
	Filename      string
	ContentType   string
	Timestamp     time.Time

	// Rescan lists module names permitted to run again on descendants of an
	// object that already ran them (spec.md §3.1, I4).
	Rescan []string

	// ModuleOverrides carries the caller's per-scan option/timeout
	// overrides, keyed by module name (spec.md §4.4 step 3's third merge
	// layer). Applied by the dispatcher on top of the module table's
	// defaults and the matching dispatch action's own override.
	ModuleOverrides map[string]ModuleOverride
}

// CanRescan reports whether moduleName may run again on an object that
// already has it recorded in ScanObject.ScanModules.
func (e ExternalVars) CanRescan(moduleName string) bool {
	for _, m := range e.Rescan {
		if m == moduleName {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy so a caller may safely mutate the
// returned value without affecting the original envelope. ExternalVars is
// otherwise treated as immutable once a scan starts.
func (e ExternalVars) Clone() ExternalVars {
	c := e
	c.ExtSourceTags = append([]string(nil), e.ExtSourceTags...)
	c.Rescan = append([]string(nil), e.Rescan...)
	if e.ExtMetadata != nil {
		c.ExtMetadata = make(map[string]string, len(e.ExtMetadata))
		for k, v := range e.ExtMetadata {
			c.ExtMetadata[k] = v
		}
	}
	if e.ModuleOverrides != nil {
		c.ModuleOverrides = make(map[string]ModuleOverride, len(e.ModuleOverrides))
		for k, v := range e.ModuleOverrides {
			c.ModuleOverrides[k] = v
		}
	}
	return c
}
