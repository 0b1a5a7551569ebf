// Package modules holds the built-in analysis modules shipped with the
// engine (spec.md §4.4's "module" concept). Each satisfies runtime.Module
// and exposes a factory function; laikaboss.registerBuiltins is the single
// place that registers them into a Registry, since two of them (YARA_SCAN,
// AI_TRIAGE) need arguments only available at wiring time and can't
// self-register via init() the way Argus's internal/plugins/* do.
package modules

import (
	"context"
	"net/http"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// IdentifyModule records an object_type/content_type guess from the raw
// bytes, grounded on Argus's internal/plugins/file_scan.go magic-sniffing
// step, generalized here to also classify a handful of container formats
// (zip/gzip/pdf/pe). The guesses are written only as the IDENTIFY
// metadata fields content_type and object_type; the object's own
// content_type and object_type are left unchanged.
type IdentifyModule struct{}

func NewIdentify() runtime.Module { return &IdentifyModule{} }

func (m *IdentifyModule) Name() string { return "IDENTIFY" }

func (m *IdentifyModule) Run(_ context.Context, h *runtime.Handle, _ *model.ScanResult, _ map[string]interface{}) ([]runtime.ChildSpec, error) {
	buf := h.Buffer()
	ct := http.DetectContentType(buf)
	h.AddMetadata("content_type", ct)

	switch {
	case len(buf) >= 4 && buf[0] == 'P' && buf[1] == 'K' && (buf[2] == 3 || buf[2] == 5 || buf[2] == 7):
		h.AddMetadata("object_type", "ZIP")
	case len(buf) >= 2 && buf[0] == 0x1f && buf[1] == 0x8b:
		h.AddMetadata("object_type", "GZIP")
	case len(buf) >= 4 && string(buf[:4]) == "%PDF":
		h.AddMetadata("object_type", "PDF")
	case len(buf) >= 2 && buf[0] == 'M' && buf[1] == 'Z':
		h.AddMetadata("object_type", "PE")
	default:
		h.AddMetadata("object_type", "UNKNOWN")
	}

	return nil, nil
}
