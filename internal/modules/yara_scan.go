package modules

import (
	"context"
	"strings"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/rules"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// YaraScanModule re-runs the compiled rule set against an object's own
// buffer and records the hit as metadata rather than as a dispatch
// decision — the dispatcher already ran the same engine once to decide
// which modules to invoke (spec.md §4.3); this module exists for the case
// where an operator wants the matched rule names preserved in the scan
// result. It records them as the matched_rules metadata field plus one
// YARA:<name> flag each; matched strings and offsets are not recorded.
//
// YaraScanModule needs the already-compiled rules.Engine, which only exists
// once the framework config has been loaded, so its factory closes over the
// engine when laikaboss.go registers it with
// runtime.Registry.Register("YARA_SCAN", ...).
type YaraScanModule struct {
	Engine rules.Engine
}

func NewYaraScan(engine rules.Engine) runtime.Module {
	return &YaraScanModule{Engine: engine}
}

func (m *YaraScanModule) Name() string { return "YARA_SCAN" }

func (m *YaraScanModule) Run(_ context.Context, h *runtime.Handle, _ *model.ScanResult, _ map[string]interface{}) ([]runtime.ChildSpec, error) {
	inputs := rules.RuleInputs{
		Filename:    h.Filename(),
		ContentType: strings.Join(h.ContentType(), ","),
	}
	matches, err := m.Engine.Match(h.Buffer(), inputs)
	if err != nil {
		return nil, err
	}

	names := matches.Names()
	values := make([]model.Value, len(names))
	for i, n := range names {
		values[i] = model.String(n)
	}
	h.AddMetadata("matched_rules", model.List(values...))
	for _, n := range names {
		h.AddFlag("YARA:" + n)
	}
	return nil, nil
}
