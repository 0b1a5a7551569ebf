package model

// Flag names the core itself ever adds (as opposed to flags added by
// modules, which are free-form). Centralizing these avoids typos scattering
// the exact strings spec.md pins across dispatch/runtime/driver/disposition.
const (
	FlagDispatchDuplicateModule = "DISPATCH:DUPLICATE_MODULE"
	FlagDispatchMissingModulePrefix = "DISPATCH:MISSING_MODULE:"
	FlagDispatchBadOptionsPrefix    = "DISPATCH:BAD_OPTIONS:"

	FlagModuleTimeoutPrefix    = "MODULE:TIMEOUT:"
	FlagModuleErrorPrefix      = "MODULE:ERROR:"
	FlagModuleChildLimitPrefix = "MODULE:CHILD_LIMIT:"
	FlagModuleChildTooLargePrefix = "MODULE:CHILD_TOO_LARGE:"

	FlagScanAborted  = "SCAN:ABORTED"
	FlagScanMaxDepth = "SCAN:MAX_DEPTH"
	FlagScanMaxBytes = "SCAN:MAX_BYTES"

	FlagDispositionerError = "DISPOSITIONER:ERROR"
	FlagDispositionPrefix  = "DISPOSITION:"

	FlagMetadataCoercedPrefix = "METADATA:COERCED:"

	// MetadataFailuresKey is the module-namespace key the runtime appends
	// structured incident records to on module failure (spec.md §4.4
	// "Error trapping").
	MetadataFailuresKey = "SCAN_FAILURES"

	// MetadataDispositionerKey is the disposition module's own metadata
	// namespace on the root object (spec.md §4.5).
	MetadataDispositionerKey = "DISPOSITIONER"
)

func FlagModuleTimeout(name string) string     { return FlagModuleTimeoutPrefix + name }
func FlagModuleError(name string) string       { return FlagModuleErrorPrefix + name }
func FlagModuleChildLimit(name string) string  { return FlagModuleChildLimitPrefix + name }
func FlagModuleChildTooLarge(name string) string { return FlagModuleChildTooLargePrefix + name }
func FlagDispatchMissingModule(name string) string { return FlagDispatchMissingModulePrefix + name }
func FlagDispatchBadOptions(name string) string    { return FlagDispatchBadOptionsPrefix + name }
func FlagMetadataCoerced(module string) string     { return FlagMetadataCoercedPrefix + module }
func FlagDisposition(value string) string          { return FlagDispositionPrefix + value }
