package modules

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// ExtractZipModule expands a ZIP archive into one ChildSpec per member,
// grounded on Argus's internal/plugins/file_scan.go pattern of a format
// module that reads the buffer with a stdlib format package and emits one
// finding/child per entry. The child limit and max-child-size caps are the
// runtime's responsibility (spec.md §4.4 step 4), not this module's — it
// emits every member (up to the optional max_files option, flagging
// EXTRACT_ZIP:TRUNCATED past it) and lets Executor.admitChildren police the caps, so a
// module never needs its own copy of the resource-budget logic.
type ExtractZipModule struct {
	// MaxMemberBytes bounds how much of each member this module itself will
	// read into memory before the runtime even gets a chance to reject it
	// for being oversized, guarding against a zip bomb inflating a single
	// entry to gigabytes while still inside this module's own timeout.
	MaxMemberBytes int64
}

func NewExtractZip() runtime.Module {
	return &ExtractZipModule{MaxMemberBytes: 64 << 20}
}

func (m *ExtractZipModule) Name() string { return "EXTRACT_ZIP" }

func (m *ExtractZipModule) Run(ctx context.Context, h *runtime.Handle, _ *model.ScanResult, opts map[string]interface{}) ([]runtime.ChildSpec, error) {
	r, err := zip.NewReader(bytes.NewReader(h.Buffer()), int64(len(h.Buffer())))
	if err != nil {
		return nil, fmt.Errorf("extract_zip: %w", err)
	}

	maxFiles := len(r.File)
	if v, ok := opts["max_files"]; ok {
		if n, ok := toInt(v); ok && n < maxFiles {
			maxFiles = n
		}
	}

	var children []runtime.ChildSpec
	for i, f := range r.File {
		if i >= maxFiles {
			h.AddFlag("EXTRACT_ZIP:TRUNCATED")
			break
		}
		if f.FileInfo().IsDir() {
			continue
		}
		select {
		case <-ctx.Done():
			return children, ctx.Err()
		default:
		}

		rc, err := f.Open()
		if err != nil {
			h.AddFlag("EXTRACT_ZIP:MEMBER_ERROR")
			continue
		}
		data, err := io.ReadAll(io.LimitReader(rc, m.MaxMemberBytes))
		rc.Close()
		if err != nil {
			h.AddFlag("EXTRACT_ZIP:MEMBER_ERROR")
			continue
		}

		children = append(children, runtime.ChildSpec{
			Buffer:   data,
			Filename: f.Name,
		})
	}

	h.AddMetadata("member_count", len(r.File))
	return children, nil
}

func toInt(v interface{}) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case float64:
		return int(t), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	default:
		return 0, false
	}
}
