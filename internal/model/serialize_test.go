package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSerializeFixture(t *testing.T) *ScanResult {
	t.Helper()
	ev := ExternalVars{Filename: "sample.zip"}
	root, err := NewRoot([]byte("PK\x03\x04payload"), ev, HashSHA256)
	require.NoError(t, err)
	root.AddFlag("SUSPECT")
	require.NoError(t, root.AddMetadata("DISPOSITIONER", "Result", String("Review"), true))
	require.NoError(t, root.AddMetadata("IDENTIFY", "object_type", String("ZIP"), true))

	child, err := NewChild([]byte("inner"), root, "inner.txt", "EXTRACT_ZIP", HashSHA256)
	require.NoError(t, err)

	result := NewScanResult("cli", "", root.UUID, time.Now())
	result.AddObject(root)
	result.AddObject(child)
	return result
}

func TestSerializeMinimalOnlyIncludesRoot(t *testing.T) {
	result := newSerializeFixture(t)
	data, err := result.Serialize(Minimal)
	require.NoError(t, err)

	var w wireResult
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Len(t, w.Files, 1)
	root := w.Files[result.RootUID]
	assert.Nil(t, root.Buffer)
	assert.Len(t, root.Metadata, 1)
	assert.Contains(t, root.Metadata, "DISPOSITIONER")
	assert.NotContains(t, root.Metadata, "IDENTIFY")
}

func TestSerializeFullIncludesEveryObjectNoBuffer(t *testing.T) {
	result := newSerializeFixture(t)
	data, err := result.Serialize(Full)
	require.NoError(t, err)

	var w wireResult
	require.NoError(t, json.Unmarshal(data, &w))
	assert.Len(t, w.Files, 2)
	for _, f := range w.Files {
		assert.Nil(t, f.Buffer)
	}
}

func TestSerializeEverythingIncludesBase64Buffer(t *testing.T) {
	result := newSerializeFixture(t)
	data, err := result.Serialize(Everything)
	require.NoError(t, err)

	var w wireResult
	require.NoError(t, json.Unmarshal(data, &w))
	root := w.Files[result.RootUID]
	require.NotNil(t, root.Buffer)
	assert.NotEmpty(t, *root.Buffer)
}

func TestDeserializeRoundTrip(t *testing.T) {
	result := newSerializeFixture(t)
	data, err := result.Serialize(Everything)
	require.NoError(t, err)

	back, err := Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, result.RootUID, back.RootUID)
	assert.Equal(t, result.Count(), back.Count())

	root := back.Root()
	require.NotNil(t, root)
	assert.True(t, root.HasFlag("SUSPECT"))
	assert.Equal(t, "Review", root.Metadata("DISPOSITIONER")["Result"].AsString())
}
