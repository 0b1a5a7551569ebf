package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/Nigelli/laikaboss/internal/dispatch"
)

// tomlActionDoc is the TOML alternative to the plain-text action table
// (spec.md §6.2's canonical "rule : modules ; flags ; content_type ;
// priority" line form), for operators who prefer a structured file over the
// line grammar ParseActionLine implements. Only the dispatch table is
// offered in TOML — module and disposition tables stay YAML-only since
// nothing in the pack reaches for TOML for deeply nested structures.
type tomlActionDoc struct {
	Action []tomlAction `toml:"action"`
}

type tomlAction struct {
	Rule        string   `toml:"rule"`
	Modules     []string `toml:"modules"`
	Flags       []string `toml:"flags"`
	ContentType []string `toml:"content_type"`
	Priority    int      `toml:"priority"`
	// Timeout, e.g. "5s", overrides the module table's default timeout for
	// every module this action invokes (spec.md §4.4 step 2), mirroring the
	// YAML sidecar's dispatch-rule timeout field.
	Timeout string `toml:"timeout"`
}

// LoadDispatchTableTOML reads a TOML action table into a dispatch.Table.
func LoadDispatchTableTOML(path string) (dispatch.Table, error) {
	var doc tomlActionDoc
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return nil, fmt.Errorf("config: decode toml action table %s: %w", path, err)
	}
	return buildDispatchTableTOML(doc)
}

// ParseDispatchTableTOML parses TOML action-table content already in memory.
func ParseDispatchTableTOML(data []byte) (dispatch.Table, error) {
	var doc tomlActionDoc
	if _, err := toml.Decode(string(data), &doc); err != nil {
		return nil, fmt.Errorf("config: parse toml action table: %w", err)
	}
	return buildDispatchTableTOML(doc)
}

func buildDispatchTableTOML(doc tomlActionDoc) (dispatch.Table, error) {
	table := make(dispatch.Table, 0, len(doc.Action))
	for _, a := range doc.Action {
		var mods []dispatch.ModuleRef
		for _, m := range a.Modules {
			ref, err := dispatch.ParseModuleRef(m)
			if err != nil {
				return nil, fmt.Errorf("config: action rule %q: %w", a.Rule, err)
			}
			mods = append(mods, ref)
		}
		timeout, err := parseSidecarTimeout(a.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: action rule %q: %w", a.Rule, err)
		}
		table = append(table, dispatch.Rule{
			RuleExpr: a.Rule,
			Action: dispatch.Action{
				Modules:     mods,
				Flags:       a.Flags,
				ContentType: a.ContentType,
				Priority:    a.Priority,
				Timeout:     timeout,
			},
		})
	}
	return table, nil
}
