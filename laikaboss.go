// Package laikaboss is the top-level entry point for the object-scanning
// engine (spec.md §6.1): wire configuration, compiled rules, the module
// registry, and the four core components into a Driver, then run scans
// against it. Everything below internal/ stays free of this package's
// wiring concerns — Scan is the seam where config becomes components.
package laikaboss

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Nigelli/laikaboss/internal/config"
	"github.com/Nigelli/laikaboss/internal/disposition"
	"github.com/Nigelli/laikaboss/internal/dispatch"
	"github.com/Nigelli/laikaboss/internal/driver"
	"github.com/Nigelli/laikaboss/internal/embedded"
	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/modules"
	"github.com/Nigelli/laikaboss/internal/rules"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

// Engine is a fully wired, reusable scanning engine: one compiled rule set,
// one dispatch/module/disposition table, and one module registry, shared
// across as many Scan calls as the caller likes. Building an Engine is the
// expensive step (rule compilation); Scan itself is cheap to call
// repeatedly and safe to call concurrently — each call gets its own
// Driver-internal queue and Governor (spec.md §5).
type Engine struct {
	framework  *config.Framework
	driver     *driver.Driver
	hashMethod model.HashMethod
	logger     *zap.Logger
}

// Options overrides pieces of an Engine's wiring that config files cannot
// express (an *openai.Client the caller already authenticated, a *zap.Logger
// the host process already owns, an explicit module registry for tests).
type Options struct {
	Logger        *zap.Logger
	Registry      *runtime.Registry
	OpenAIClient  *openai.Client
	AiTriageModel string
}

// New loads the framework ini config at frameworkPath and the dispatch/
// module/disposition sidecar at sidecarPath, compiles the referenced YARA
// rule sources, and wires the resulting Engine (spec.md §6.1, §6.2). A
// deployment that has not dropped its own config next to the binary yet
// (frameworkPath/sidecarPath missing on disk) falls back to the config
// embedded in internal/embedded rather than failing to start.
func New(frameworkPath, sidecarPath string, opts Options) (*Engine, error) {
	fw, err := loadFrameworkOrDefault(frameworkPath)
	if err != nil {
		return nil, err
	}
	sc, err := loadSidecarOrDefault(sidecarPath)
	if err != nil {
		return nil, err
	}
	return build(fw, sc, opts)
}

func loadFrameworkOrDefault(path string) (*config.Framework, error) {
	if _, err := os.Stat(path); err != nil {
		data, err := embedded.Framework()
		if err != nil {
			return nil, fmt.Errorf("laikaboss: no framework config at %s and no embedded default: %w", path, err)
		}
		return config.LoadBytes(data)
	}
	return config.Load(path)
}

func loadSidecarOrDefault(path string) (*config.Sidecar, error) {
	if _, err := os.Stat(path); err != nil {
		data, err := embedded.Sidecar()
		if err != nil {
			return nil, fmt.Errorf("laikaboss: no sidecar config at %s and no embedded default: %w", path, err)
		}
		return config.ParseSidecarYAML(data)
	}
	return config.LoadSidecar(path)
}

// NewFromBytes is New's in-memory counterpart, used by tests and by
// embedded callers that keep their config outside the filesystem.
func NewFromBytes(frameworkIni, sidecarYAML []byte, opts Options) (*Engine, error) {
	fw, err := config.LoadBytes(frameworkIni)
	if err != nil {
		return nil, err
	}
	sc, err := config.ParseSidecarYAML(sidecarYAML)
	if err != nil {
		return nil, err
	}
	return build(fw, sc, opts)
}

func build(fw *config.Framework, sc *config.Sidecar, opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := compileEngine(fw)
	if err != nil {
		return nil, err
	}

	if err := sc.DispatchTable.Validate(engine.RuleNames()); err != nil {
		return nil, err
	}

	registry := opts.Registry
	if registry == nil {
		registry = runtime.NewRegistry()
		registerBuiltins(registry, engine, opts)
	}

	dispositionTable := sc.Disposition
	if dispositionTable.DefaultDisposition == "" {
		dispositionTable.DefaultDisposition = fw.DefaultDisposition
	}

	qorder := driver.BFS
	if fw.QueueOrder == "dfs" {
		qorder = driver.DFS
	}

	d := &driver.Driver{
		Dispatcher: &dispatch.Dispatcher{
			Engine:      engine,
			Table:       sc.DispatchTable,
			ModuleTable: sc.ModuleTable,
		},
		Executor: &runtime.Executor{
			Registry:   registry,
			Logger:     logger,
			HashMethod: fw.ObjectHashMethod,
		},
		Dispositioner: &disposition.Dispositioner{Table: dispositionTable},
		Caps:          fw.Caps(),
		QueueOrder:    qorder,
		Logger:        logger,
	}

	return &Engine{framework: fw, driver: d, hashMethod: fw.ObjectHashMethod, logger: logger}, nil
}

func compileEngine(fw *config.Framework) (rules.Engine, error) {
	// The engine's internal timeout bounds a single Match call (one
	// object's worth of rule evaluation), so it takes its default from
	// module_time rather than the scan-wide budget.
	timeout := fw.ModuleTime
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if fw.YaraDispatchRulesPath == "" {
		source, err := embedded.DefaultRules()
		if err != nil {
			return nil, fmt.Errorf("laikaboss: [rules] yara_dispatch_rules_path is unset and no embedded default is available: %w", err)
		}
		return rules.Compile(string(source), timeout)
	}
	return rules.CompileFile(fw.YaraDispatchRulesPath, timeout)
}

// registerBuiltins wires every module this package ships. Site-specific
// deployments pass their own pre-populated opts.Registry to skip this.
func registerBuiltins(r *runtime.Registry, engine rules.Engine, opts Options) {
	r.Register("IDENTIFY", modules.NewIdentify)
	r.Register("EXTRACT_ZIP", modules.NewExtractZip)
	r.Register("YARA_SCAN", func() runtime.Module { return modules.NewYaraScan(engine) })
	if opts.OpenAIClient != nil {
		client, model := opts.OpenAIClient, opts.AiTriageModel
		r.Register("AI_TRIAGE", func() runtime.Module { return modules.NewAiTriage(client, model) })
	}
}

// Scan runs one submission through the fully wired engine (spec.md §6.1:
// scan(bytes, external_vars, config, verbosity) -> ScanResult). The
// verbosity argument is not used by Scan: it always builds the complete
// in-memory tree so callers may inspect it directly without paying a
// serialization round trip first, and callers pass the verbosity they want
// to ScanResult.Serialize themselves.
func (e *Engine) Scan(ctx context.Context, buf []byte, ev model.ExternalVars, _ model.Verbosity) (*model.ScanResult, error) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	result, err := e.driver.Scan(ctx, buf, ev, e.hashMethod, ev.Source, "")
	if err != nil {
		return nil, err
	}
	return result, nil
}
