package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Nigelli/laikaboss/internal/dispatch"
	"github.com/Nigelli/laikaboss/internal/disposition"
)

// sidecarDoc is the YAML shape of the dispatch/module/disposition sidecar
// (spec.md §6.2's action table and module table, plus the disposition rule
// table, kept in the same file rather than a fourth format).
//
//	dispatch:
//	  - rule: EICAR_TEST
//	    modules: ["YARA_SCAN", "EXTRACT_ZIP(max_files=50)"]
//	    flags: ["SUSPECT"]
//	    content_type: ["text/plain"]
//	    priority: 10
//	  - rule: default
//	    modules: ["IDENTIFY"]
//
//	modules:
//	  YARA_SCAN:
//	    priority: 1
//	    enabled: true
//	    options: { timeout_ms: 2000 }
//
//	disposition:
//	  default: Accept
//	  flag_weights: { SUSPECT: 5, MALICIOUS: 100 }
//	  rules:
//	    - if: { flag: MALICIOUS }
//	      disposition: Reject
//	      reason: "malicious flag present"
//	    - if: { not: { flag: CLEAN } }
//	      disposition: Review
//	      reason: "not confirmed clean"
type sidecarDoc struct {
	Dispatch    []sidecarDispatchRule           `yaml:"dispatch"`
	Modules     map[string]sidecarModuleEntry   `yaml:"modules"`
	Disposition sidecarDisposition              `yaml:"disposition"`
}

type sidecarDispatchRule struct {
	Rule        string   `yaml:"rule"`
	Modules     []string `yaml:"modules"`
	Flags       []string `yaml:"flags"`
	ContentType []string `yaml:"content_type"`
	Priority    int      `yaml:"priority"`
	// Timeout, e.g. "5s", overrides the module table's default timeout for
	// every module this rule's action invokes (spec.md §4.4 step 2).
	Timeout string `yaml:"timeout"`
}

type sidecarModuleEntry struct {
	Priority int                    `yaml:"priority"`
	Enabled  bool                   `yaml:"enabled"`
	Options  map[string]interface{} `yaml:"options"`
	// Timeout, e.g. "5s", is this module's default per-invocation timeout
	// (spec.md §4.4 step 2). Empty means "fall back to the scan-wide
	// module_time cap".
	Timeout string `yaml:"timeout"`
}

type sidecarDisposition struct {
	Default     string                 `yaml:"default"`
	FlagWeights map[string]int         `yaml:"flag_weights"`
	Rules       []sidecarDispRule      `yaml:"rules"`
}

type sidecarDispRule struct {
	If          sidecarPredicate `yaml:"if"`
	Disposition string           `yaml:"disposition"`
	Reason      string           `yaml:"reason"`
}

// sidecarPredicate is a recursive one-of node: exactly one of Flag, And, Or,
// Not, or Priority should be set.
type sidecarPredicate struct {
	Flag     string             `yaml:"flag"`
	And      []sidecarPredicate `yaml:"and"`
	Or       []sidecarPredicate `yaml:"or"`
	Not      *sidecarPredicate  `yaml:"not"`
	Priority *sidecarPriority   `yaml:"priority"`
}

type sidecarPriority struct {
	Flags     []string `yaml:"flags"`
	Threshold int      `yaml:"threshold"`
}

// Sidecar is the parsed, ready-to-wire form of a YAML sidecar file.
type Sidecar struct {
	DispatchTable dispatch.Table
	ModuleTable   dispatch.ModuleTable
	Disposition   disposition.Table
}

// LoadSidecar reads and parses a YAML dispatch/module/disposition sidecar.
func LoadSidecar(path string) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read sidecar %s: %w", path, err)
	}
	return ParseSidecarYAML(data)
}

// ParseSidecarYAML parses YAML sidecar content already in memory.
func ParseSidecarYAML(data []byte) (*Sidecar, error) {
	var doc sidecarDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse sidecar yaml: %w", err)
	}
	return buildSidecar(doc)
}

func buildSidecar(doc sidecarDoc) (*Sidecar, error) {
	table := make(dispatch.Table, 0, len(doc.Dispatch))
	for _, r := range doc.Dispatch {
		var mods []dispatch.ModuleRef
		for _, m := range r.Modules {
			ref, err := dispatch.ParseModuleRef(m)
			if err != nil {
				return nil, fmt.Errorf("config: dispatch rule %q: %w", r.Rule, err)
			}
			mods = append(mods, ref)
		}
		timeout, err := parseSidecarTimeout(r.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: dispatch rule %q: %w", r.Rule, err)
		}
		table = append(table, dispatch.Rule{
			RuleExpr: r.Rule,
			Action: dispatch.Action{
				Modules:     mods,
				Flags:       r.Flags,
				ContentType: r.ContentType,
				Priority:    r.Priority,
				Timeout:     timeout,
			},
		})
	}

	modTable := make(dispatch.ModuleTable, len(doc.Modules))
	for name, e := range doc.Modules {
		timeout, err := parseSidecarTimeout(e.Timeout)
		if err != nil {
			return nil, fmt.Errorf("config: module %q: %w", name, err)
		}
		modTable[name] = dispatch.ModuleTableEntry{
			Priority:       e.Priority,
			Enabled:        e.Enabled,
			DefaultOptions: e.Options,
			Timeout:        timeout,
		}
	}

	dispTable := disposition.Table{
		DefaultDisposition: doc.Disposition.Default,
		FlagWeights:        doc.Disposition.FlagWeights,
	}
	for _, r := range doc.Disposition.Rules {
		pred, err := buildPredicate(r.If)
		if err != nil {
			return nil, fmt.Errorf("config: disposition rule %q: %w", r.Disposition, err)
		}
		dispTable.Rules = append(dispTable.Rules, disposition.Rule{
			Predicate:   pred,
			Disposition: r.Disposition,
			Reason:      r.Reason,
		})
	}

	return &Sidecar{DispatchTable: table, ModuleTable: modTable, Disposition: dispTable}, nil
}

// parseSidecarTimeout parses an optional "5s"-style duration string; an
// empty string means no override at this layer, not a zero timeout.
func parseSidecarTimeout(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("timeout %q: %w", s, err)
	}
	return d, nil
}

// buildPredicate converts one recursive YAML predicate node into a
// disposition.Predicate. Exactly one field of p must be set; ambiguous or
// empty nodes are a config error, not a silently-true/false default.
func buildPredicate(p sidecarPredicate) (disposition.Predicate, error) {
	switch {
	case p.Flag != "":
		return disposition.FlagPresent{Flag: p.Flag}, nil
	case len(p.And) > 0:
		operands := make(disposition.And, 0, len(p.And))
		for _, child := range p.And {
			cp, err := buildPredicate(child)
			if err != nil {
				return nil, err
			}
			operands = append(operands, cp)
		}
		return operands, nil
	case len(p.Or) > 0:
		operands := make(disposition.Or, 0, len(p.Or))
		for _, child := range p.Or {
			cp, err := buildPredicate(child)
			if err != nil {
				return nil, err
			}
			operands = append(operands, cp)
		}
		return operands, nil
	case p.Not != nil:
		cp, err := buildPredicate(*p.Not)
		if err != nil {
			return nil, err
		}
		return disposition.Not{Operand: cp}, nil
	case p.Priority != nil:
		return disposition.PriorityExceeds{Flags: p.Priority.Flags, Threshold: p.Priority.Threshold}, nil
	default:
		return nil, fmt.Errorf("empty or malformed predicate node")
	}
}
