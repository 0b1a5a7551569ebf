// Package embedded carries the default framework config, dispatch sidecar,
// and placeholder rule set built into the binary, so a deployment that
// starts without dropping its own config files next to the executable
// still boots into a well-defined (if inert) configuration rather than
// failing at startup. Adapted from the teacher's config/*.yaml embed of
// host-IDS detection rulesets, retargeted at this engine's own config
// shapes.
package embedded

import "embed"

//go:embed config/framework.ini
//go:embed config/dispatch.yaml
//go:embed config/default_rules.yar
var Content embed.FS

const (
	FrameworkPath   = "config/framework.ini"
	SidecarPath     = "config/dispatch.yaml"
	DefaultRulePath = "config/default_rules.yar"
)

// Framework returns the embedded default framework.ini bytes.
func Framework() ([]byte, error) { return Content.ReadFile(FrameworkPath) }

// Sidecar returns the embedded default dispatch.yaml bytes.
func Sidecar() ([]byte, error) { return Content.ReadFile(SidecarPath) }

// DefaultRules returns the embedded placeholder YARA rule source.
func DefaultRules() ([]byte, error) { return Content.ReadFile(DefaultRulePath) }
