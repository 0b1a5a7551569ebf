package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHashKnownMethods(t *testing.T) {
	cases := []struct {
		method HashMethod
		want   int // hex digest length
	}{
		{HashSHA256, 64},
		{HashSHA1, 40},
		{HashMD5, 32},
		{"", 32}, // default is md5
	}
	for _, tc := range cases {
		got, err := ComputeHash(tc.method, []byte("laikaboss"))
		require.NoError(t, err)
		assert.Len(t, got, tc.want)
	}
}

func TestComputeHashIsDeterministic(t *testing.T) {
	a, err := ComputeHash(HashSHA256, []byte("same bytes"))
	require.NoError(t, err)
	b, err := ComputeHash(HashSHA256, []byte("same bytes"))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestComputeHashUnknownMethod(t *testing.T) {
	_, err := ComputeHash("blake3", []byte("x"))
	assert.ErrorIs(t, err, ErrUnknownHashMethod)
}
