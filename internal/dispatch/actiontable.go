package dispatch

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseActionLine parses spec.md §6.2's canonical action-entry form:
//
//	rule_name : module,module(opt=val),module ; flag1,flag2 ; content_type1 ; priority
//
// The trailing three sections (flags, content types, priority) are all
// optional. This is used both for the plain-text sidecar format and for
// actions embedded in a YARA rule's meta section under the key "dispatch".
func ParseActionLine(line string) (Rule, error) {
	nameAndRest := strings.SplitN(line, ":", 2)
	if len(nameAndRest) != 2 {
		return Rule{}, fmt.Errorf("dispatch: malformed action line (missing ':'): %q", line)
	}
	ruleExpr := strings.TrimSpace(nameAndRest[0])
	if ruleExpr == "" {
		return Rule{}, fmt.Errorf("dispatch: malformed action line (empty rule_expr): %q", line)
	}

	sections := strings.Split(nameAndRest[1], ";")
	action := Action{}

	if len(sections) > 0 {
		mods, err := parseModuleList(sections[0])
		if err != nil {
			return Rule{}, fmt.Errorf("dispatch: %s: %w", ruleExpr, err)
		}
		action.Modules = mods
	}
	if len(sections) > 1 {
		action.Flags = splitNonEmpty(sections[1])
	}
	if len(sections) > 2 {
		action.ContentType = splitNonEmpty(sections[2])
	}
	if len(sections) > 3 {
		p := strings.TrimSpace(sections[3])
		if p != "" {
			n, err := strconv.Atoi(p)
			if err != nil {
				return Rule{}, fmt.Errorf("dispatch: %s: bad priority %q: %w", ruleExpr, p, err)
			}
			action.Priority = n
		}
	}

	return Rule{RuleExpr: ruleExpr, Action: action}, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseModuleRef parses a single module entry, e.g. "MODULE" or
// "MODULE(opt=val,opt2=val2)". Exported so config sidecar loaders (which
// may receive modules as a pre-split YAML/TOML list rather than one
// comma-joined string) can reuse the same option-parsing grammar.
func ParseModuleRef(entry string) (ModuleRef, error) {
	entry = strings.TrimSpace(entry)
	name := entry
	opts := map[string]interface{}{}
	if i := strings.Index(entry, "("); i >= 0 {
		if !strings.HasSuffix(entry, ")") {
			return ModuleRef{}, fmt.Errorf("malformed module options %q", entry)
		}
		name = strings.TrimSpace(entry[:i])
		inner := entry[i+1 : len(entry)-1]
		for _, kv := range splitTopLevelComma(inner) {
			kv = strings.TrimSpace(kv)
			if kv == "" {
				continue
			}
			parts := strings.SplitN(kv, "=", 2)
			if len(parts) != 2 {
				return ModuleRef{}, fmt.Errorf("malformed option %q in %q", kv, entry)
			}
			opts[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	if name == "" {
		return ModuleRef{}, fmt.Errorf("malformed module entry %q", entry)
	}
	return ModuleRef{Name: name, Options: opts}, nil
}

// parseModuleList parses "module,module(opt=val,opt2=val2),module".
func parseModuleList(s string) ([]ModuleRef, error) {
	var refs []ModuleRef
	for _, entry := range splitTopLevelComma(s) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		ref, err := ParseModuleRef(entry)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// splitTopLevelComma splits on commas that are not nested inside
// parentheses, so "a,b(x=1,y=2),c" splits into ["a", "b(x=1,y=2)", "c"].
func splitTopLevelComma(s string) []string {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
