// Package config loads the framework configuration (spec.md §6.2): the
// ini-style framework config, and the YAML or TOML dispatch/disposition
// action-table sidecars, following the teacher's internal/config/loader.go
// pattern of a typed struct plus a file loader with an embedded fallback.
package config

import (
	"fmt"
	"time"

	"github.com/go-ini/ini"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// Framework mirrors spec.md §6.2's key list. There are no silent defaults
// for resource caps (spec.md §4.4): Load returns an error if any of
// MaxObjects/MaxBytes/ScanTime/ModuleTime is left unset and zero, since a
// zero-valued Caps field means "unbounded" to internal/runtime and that
// must be an explicit choice, not an accident of a missing ini key.
type Framework struct {
	YaraDispatchRulesPath    string
	YaraDispositionRulesPath string
	ModulesPath              string
	MaxDepth                 int
	MaxObjects               int
	MaxBytes                 int
	ScanTime                 time.Duration
	ModuleTime               time.Duration
	MaxChildSize             int
	MaxChildrenPerModule     int
	DefaultDisposition       string
	ObjectHashMethod         model.HashMethod
	RescanModules            []string
	QueueOrder               string // "bfs" or "dfs"
}

// ErrCapUnset is returned by Load when a resource cap key is missing from
// the ini file's [limits] section. Writing "0" for a cap explicitly marks it
// unbounded.
type ErrCapUnset struct{ Key string }

func (e *ErrCapUnset) Error() string {
	return fmt.Sprintf("config: [limits] %s must be set explicitly (use 0 to mean unbounded)", e.Key)
}

// Load reads an ini-style framework config file (spec.md §6.2).
//
// Expected shape:
//
//	[rules]
//	yara_dispatch_rules_path = ./rules/dispatch.yar
//	yara_disposition_rules_path = ./rules/disposition.yar
//	modules_path = ./modules
//
//	[limits]
//	max_depth = 8
//	max_objects = 2000
//	max_bytes = 268435456
//	scan_time = 60s
//	module_time = 5s
//	max_child_size = 536870912
//	max_children_per_module = 10000
//
//	[dispatch]
//	default_disposition = Accept
//	object_hash_method = sha256
//	rescan_modules = YARA_SCAN,IDENTIFY
//	queue_order = bfs
func Load(path string) (*Framework, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}
	return parseFramework(f)
}

// LoadBytes parses ini-style content already in memory (used by tests and
// by the embedded-default fallback).
func LoadBytes(data []byte) (*Framework, error) {
	f, err := ini.Load(data)
	if err != nil {
		return nil, fmt.Errorf("config: parse ini: %w", err)
	}
	return parseFramework(f)
}

func parseFramework(f *ini.File) (*Framework, error) {
	limits := f.Section("limits")
	if !limits.HasKey("max_objects") {
		return nil, &ErrCapUnset{Key: "max_objects"}
	}
	if !limits.HasKey("max_bytes") {
		return nil, &ErrCapUnset{Key: "max_bytes"}
	}
	if !limits.HasKey("scan_time") {
		return nil, &ErrCapUnset{Key: "scan_time"}
	}
	if !limits.HasKey("module_time") {
		return nil, &ErrCapUnset{Key: "module_time"}
	}
	if !limits.HasKey("max_depth") {
		return nil, &ErrCapUnset{Key: "max_depth"}
	}
	if !limits.HasKey("max_child_size") {
		return nil, &ErrCapUnset{Key: "max_child_size"}
	}
	if !limits.HasKey("max_children_per_module") {
		return nil, &ErrCapUnset{Key: "max_children_per_module"}
	}

	scanTime, err := limits.Key("scan_time").Duration()
	if err != nil {
		return nil, fmt.Errorf("config: [limits] scan_time: %w", err)
	}
	moduleTime, err := limits.Key("module_time").Duration()
	if err != nil {
		return nil, fmt.Errorf("config: [limits] module_time: %w", err)
	}

	rules := f.Section("rules")
	dispatch := f.Section("dispatch")

	fw := &Framework{
		YaraDispatchRulesPath:    rules.Key("yara_dispatch_rules_path").String(),
		YaraDispositionRulesPath: rules.Key("yara_disposition_rules_path").String(),
		ModulesPath:              rules.Key("modules_path").String(),
		MaxDepth:                 limits.Key("max_depth").MustInt(0),
		MaxObjects:               limits.Key("max_objects").MustInt(0),
		MaxBytes:                 limits.Key("max_bytes").MustInt(0),
		ScanTime:                 scanTime,
		ModuleTime:               moduleTime,
		MaxChildSize:             limits.Key("max_child_size").MustInt(0),
		MaxChildrenPerModule:     limits.Key("max_children_per_module").MustInt(0),
		DefaultDisposition:       dispatch.Key("default_disposition").MustString("Accept"),
		ObjectHashMethod:         model.HashMethod(dispatch.Key("object_hash_method").MustString(string(model.DefaultHashMethod))),
		RescanModules:            dispatch.Key("rescan_modules").Strings(","),
		QueueOrder:               dispatch.Key("queue_order").MustString("bfs"),
	}
	return fw, nil
}

// Caps converts the ini-declared limits into runtime.Caps. MaxChildSize and
// MaxChildrenPerModule live in the same [limits] section as the other
// caps — spec.md §6.2 does not list them among the top-level ini keys, but
// SPEC_FULL.md folds them in since they are resource caps of the same kind
// and subject to the same "no silent defaults" rule (spec.md §4.4).
func (fw *Framework) Caps() runtime.Caps {
	return runtime.Caps{
		MaxDepth:             fw.MaxDepth,
		MaxObjects:           fw.MaxObjects,
		MaxBytes:             fw.MaxBytes,
		ScanTime:             fw.ScanTime,
		ModuleTime:           fw.ModuleTime,
		MaxChildSize:         fw.MaxChildSize,
		MaxChildrenPerModule: fw.MaxChildrenPerModule,
	}
}
