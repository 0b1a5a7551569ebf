package model

import (
	"encoding/base64"
	"encoding/json"
	"time"
)

// wireObject mirrors spec.md §6.3's object entry shape.
type wireObject struct {
	UUID        string                       `json:"uuid"`
	Parent      string                       `json:"parent,omitempty"`
	Depth       int                          `json:"depth"`
	Filename    string                       `json:"filename,omitempty"`
	Hash        string                       `json:"hash"`
	Size        int                          `json:"size"`
	ObjectType  []string                     `json:"objectType,omitempty"`
	ContentType []string                     `json:"contentType,omitempty"`
	Flags       []string                     `json:"flags,omitempty"`
	ScanModules []string                     `json:"scanModules,omitempty"`
	Metadata    map[string]map[string]Value  `json:"metadata,omitempty"`
	Buffer      *string                      `json:"buffer,omitempty"`
}

type wireResult struct {
	RootUID   string                 `json:"rootUID"`
	Source    string                 `json:"source"`
	Level     string                 `json:"level"`
	StartTime time.Time              `json:"startTime"`
	Files     map[string]wireObject  `json:"files"`
}

// Serialize projects the ScanResult to JSON at the requested verbosity
// (spec.md §3.3, §4.6, §6.3).
//
//   - Minimal: root object only, flags + disposition metadata, no other
//     objects, no per-object metadata besides DISPOSITIONER.
//   - Full: every object's flags and metadata, no raw buffers.
//   - NoBuffer: same projection as Full (alias named for clarity at the
//     call site, per spec.md §4.6 "NO_BUFFER which is FULL minus buffers").
//   - Everything: Full plus each object's raw buffer, base64-encoded.
func (r *ScanResult) Serialize(v Verbosity) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := wireResult{
		RootUID:   r.RootUID,
		Source:    r.Source,
		Level:     r.Level,
		StartTime: r.StartTime,
		Files:     make(map[string]wireObject),
	}

	switch v {
	case Minimal:
		root, ok := r.objects[r.RootUID]
		if !ok {
			break
		}
		w := projectObject(root, false)
		w.Metadata = filterMetadata(w.Metadata, MetadataDispositionerKey)
		out.Files[root.UUID] = w
	default: // Full, NoBuffer, Everything
		includeBuffer := v == Everything
		for _, uid := range r.order {
			o := r.objects[uid]
			out.Files[uid] = projectObject(o, includeBuffer)
		}
	}

	return json.Marshal(out)
}

func projectObject(o *ScanObject, includeBuffer bool) wireObject {
	w := wireObject{
		UUID:        o.UUID,
		Parent:      o.ParentUUID,
		Depth:       o.Depth,
		Filename:    o.Filename,
		Hash:        o.ObjectHash,
		Size:        o.ObjectSize,
		ObjectType:  o.ObjectType(),
		ContentType: o.ContentType(),
		Flags:       o.Flags(),
		ScanModules: o.ScanModules(),
		Metadata:    o.AllMetadata(),
	}
	if includeBuffer {
		enc := base64.StdEncoding.EncodeToString(o.buffer)
		w.Buffer = &enc
	}
	return w
}

// filterMetadata keeps only namespace out of a projected object's metadata
// map, used by Serialize's Minimal case (spec.md §3.3/§6.3: root object
// only, "no per-object metadata besides DISPOSITIONER").
func filterMetadata(all map[string]map[string]Value, namespace string) map[string]map[string]Value {
	ns, ok := all[namespace]
	if !ok {
		return nil
	}
	return map[string]map[string]Value{namespace: ns}
}

// Deserialize parses a previously-serialized ScanResult back into model
// types (spec.md P6, serialization round-trip). Objects reconstructed this
// way carry no live mutex-protected internals beyond what was serialized;
// they are meant for read-only comparison/inspection, not for feeding back
// into a running scan.
func Deserialize(data []byte) (*ScanResult, error) {
	var w wireResult
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	r := NewScanResult(w.Source, w.Level, w.RootUID, w.StartTime)
	for uid, wo := range w.Files {
		o := &ScanObject{
			UUID:          wo.UUID,
			ParentUUID:    wo.Parent,
			RootUUID:      w.RootUID,
			Depth:         wo.Depth,
			Filename:      wo.Filename,
			ObjectHash:    wo.Hash,
			ObjectSize:    wo.Size,
			scanModuleSet: make(map[string]bool),
			metadata:      make(map[string]map[string]Value),
		}
		for _, t := range wo.ObjectType {
			o.objectType.add(t)
		}
		for _, t := range wo.ContentType {
			o.contentType.add(t)
		}
		for _, f := range wo.Flags {
			o.flags.add(f)
		}
		for _, m := range wo.ScanModules {
			o.scanModules = append(o.scanModules, m)
			o.scanModuleSet[m] = true
		}
		for mod, ns := range wo.Metadata {
			cp := make(map[string]Value, len(ns))
			for k, v := range ns {
				cp[k] = v
			}
			o.metadata[mod] = cp
		}
		if wo.Buffer != nil {
			b, err := base64.StdEncoding.DecodeString(*wo.Buffer)
			if err != nil {
				return nil, err
			}
			o.buffer = b
		}
		r.objects[uid] = o
		r.order = append(r.order, uid)
	}
	return r, nil
}
