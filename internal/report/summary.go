// Package report renders a human-readable summary of a ScanResult for
// terminal output, adapted from the teacher's colorized findings printer.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/Nigelli/laikaboss/internal/model"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
)

const (
	iconOK   = "[ok]"
	iconWarn = "[!]"
	iconBad  = "[x]"
)

// PrintSummary writes a colorized, human-readable overview of result to w:
// the root object's disposition, then one line per scanned object listing
// its content type and any flags raised against it.
func PrintSummary(w io.Writer, result *model.ScanResult) {
	root := result.Root()
	dispositionMeta := root.Metadata(model.MetadataDispositionerKey)
	disposition := dispositionMeta["Result"].AsString()
	reason, hasReason := dispositionMeta["Reason"]

	icon, color := iconOK, colorGreen
	switch disposition {
	case "Review":
		icon, color = iconWarn, colorYellow
	case "Reject", "Quarantine":
		icon, color = iconBad, colorRed
	}

	fmt.Fprintf(w, "%s%s %sdisposition: %s%s\n", color, icon, colorBold, disposition, colorReset)
	if hasReason {
		fmt.Fprintf(w, "%s  reason: %s%s\n", colorDim, reason.AsString(), colorReset)
	}
	fmt.Fprintf(w, "  source: %s  objects: %d  bytes: %d\n\n", result.Source, result.Count(), result.TotalBytes())

	for _, obj := range result.Objects() {
		indent := strings.Repeat("  ", obj.Depth)
		name := obj.Filename
		if name == "" {
			name = obj.UUID[:8]
		}
		fmt.Fprintf(w, "%s%s%s%s %s\n", indent, colorCyan, name, colorReset, strings.Join(obj.ContentType(), ","))
		if flags := obj.Flags(); len(flags) > 0 {
			fmt.Fprintf(w, "%s  %sflags: %s%s\n", indent, colorYellow, strings.Join(flags, ", "), colorReset)
		}
	}
}
