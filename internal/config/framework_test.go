package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFramework = `
[rules]
yara_dispatch_rules_path = ./rules/dispatch.yar
yara_disposition_rules_path = ./rules/disposition.yar
modules_path = ./modules

[limits]
max_depth = 8
max_objects = 2000
max_bytes = 268435456
scan_time = 60s
module_time = 5s
max_child_size = 1048576
max_children_per_module = 25

[dispatch]
default_disposition = Accept
object_hash_method = sha256
rescan_modules = YARA_SCAN,IDENTIFY
queue_order = bfs
`

func TestLoadBytesParsesFullFramework(t *testing.T) {
	fw, err := LoadBytes([]byte(validFramework))
	require.NoError(t, err)

	assert.Equal(t, "./rules/dispatch.yar", fw.YaraDispatchRulesPath)
	assert.Equal(t, 8, fw.MaxDepth)
	assert.Equal(t, 2000, fw.MaxObjects)
	assert.Equal(t, 268435456, fw.MaxBytes)
	assert.Equal(t, 60*time.Second, fw.ScanTime)
	assert.Equal(t, 5*time.Second, fw.ModuleTime)
	assert.Equal(t, 1048576, fw.MaxChildSize)
	assert.Equal(t, 25, fw.MaxChildrenPerModule)
	assert.Equal(t, "Accept", fw.DefaultDisposition)
	assert.ElementsMatch(t, []string{"YARA_SCAN", "IDENTIFY"}, fw.RescanModules)
	assert.Equal(t, "bfs", fw.QueueOrder)
}

func TestLoadBytesRejectsMissingCaps(t *testing.T) {
	cases := []struct {
		name   string
		source string
		key    string
	}{
		{"max_objects", `[limits]
max_bytes = 1
scan_time = 1s
module_time = 1s`, "max_objects"},
		{"max_bytes", `[limits]
max_objects = 1
scan_time = 1s
module_time = 1s`, "max_bytes"},
		{"scan_time", `[limits]
max_objects = 1
max_bytes = 1
module_time = 1s`, "scan_time"},
		{"module_time", `[limits]
max_objects = 1
max_bytes = 1
scan_time = 1s`, "module_time"},
		{"max_depth", `[limits]
max_objects = 1
max_bytes = 1
scan_time = 1s
module_time = 1s`, "max_depth"},
		{"max_child_size", `[limits]
max_objects = 1
max_bytes = 1
scan_time = 1s
module_time = 1s
max_depth = 1`, "max_child_size"},
		{"max_children_per_module", `[limits]
max_objects = 1
max_bytes = 1
scan_time = 1s
module_time = 1s
max_depth = 1
max_child_size = 1`, "max_children_per_module"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tc.source))
			require.Error(t, err)
			var capErr *ErrCapUnset
			require.ErrorAs(t, err, &capErr)
			assert.Equal(t, tc.key, capErr.Key)
		})
	}
}

func TestLoadBytesDefaultsDispositionAndQueueOrder(t *testing.T) {
	fw, err := LoadBytes([]byte(`[limits]
max_objects = 1
max_bytes = 1
scan_time = 1s
module_time = 1s
max_depth = 1
max_child_size = 1
max_children_per_module = 1`))
	require.NoError(t, err)

	assert.Equal(t, "Accept", fw.DefaultDisposition)
	assert.Equal(t, "bfs", fw.QueueOrder)
}

func TestFrameworkCapsConvertsToRuntimeCaps(t *testing.T) {
	fw, err := LoadBytes([]byte(validFramework))
	require.NoError(t, err)

	caps := fw.Caps()
	assert.Equal(t, fw.MaxDepth, caps.MaxDepth)
	assert.Equal(t, fw.MaxObjects, caps.MaxObjects)
	assert.Equal(t, fw.MaxBytes, caps.MaxBytes)
	assert.Equal(t, fw.ScanTime, caps.ScanTime)
	assert.Equal(t, fw.ModuleTime, caps.ModuleTime)
	assert.Equal(t, fw.MaxChildSize, caps.MaxChildSize)
	assert.Equal(t, fw.MaxChildrenPerModule, caps.MaxChildrenPerModule)
}
