package modules

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nigelli/laikaboss/internal/model"
	"github.com/Nigelli/laikaboss/internal/runtime"
)

func runModule(t *testing.T, factory runtime.Factory, name string, buf []byte, opts map[string]interface{}) (*model.ScanObject, runtime.Outcome) {
	t.Helper()
	reg := runtime.NewRegistry()
	reg.Register(name, factory)
	exec := &runtime.Executor{Registry: reg, HashMethod: model.HashSHA256}

	obj, err := model.NewRoot(buf, model.ExternalVars{}, model.HashSHA256)
	require.NoError(t, err)
	result := model.NewScanResult("cli", "", obj.UUID, time.Now())
	result.AddObject(obj)

	gov := runtime.NewGovernor(runtime.Caps{}, time.Now())
	outcome := exec.Run(context.Background(), runtime.Invocation{Name: name, Options: opts}, obj, result, model.ExternalVars{}, runtime.Caps{}, gov, time.Second)
	return obj, outcome
}

func TestIdentifyModuleDetectsZip(t *testing.T) {
	buf := []byte{'P', 'K', 3, 4, 0, 0}
	obj, outcome := runModule(t, NewIdentify, "IDENTIFY", buf, nil)

	assert.False(t, outcome.Errored)
	assert.Equal(t, "ZIP", obj.Metadata("IDENTIFY")["object_type"].AsString())
}

func TestIdentifyModuleDetectsGzip(t *testing.T) {
	buf := []byte{0x1f, 0x8b, 0, 0}
	obj, _ := runModule(t, NewIdentify, "IDENTIFY", buf, nil)
	assert.Equal(t, "GZIP", obj.Metadata("IDENTIFY")["object_type"].AsString())
}

func TestIdentifyModuleDetectsPE(t *testing.T) {
	buf := []byte{'M', 'Z', 0x90, 0}
	obj, _ := runModule(t, NewIdentify, "IDENTIFY", buf, nil)
	assert.Equal(t, "PE", obj.Metadata("IDENTIFY")["object_type"].AsString())
}

func TestIdentifyModuleFallsBackToUnknown(t *testing.T) {
	buf := []byte{0, 0, 0, 0}
	obj, _ := runModule(t, NewIdentify, "IDENTIFY", buf, nil)
	assert.Equal(t, "UNKNOWN", obj.Metadata("IDENTIFY")["object_type"].AsString())
}
