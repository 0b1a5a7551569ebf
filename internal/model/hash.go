package model

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashMethod selects the algorithm used to compute ScanObject.ObjectHash
// (spec.md §3.2, "algorithm configurable; MD5 or SHA-family").
type HashMethod string

const (
	HashSHA256 HashMethod = "sha256"
	HashSHA1   HashMethod = "sha1"
	HashMD5    HashMethod = "md5"
)

// DefaultHashMethod is MD5, matching original_source/'s config defaults
// (tests/unit/test_config.py's test_default_hash_method_is_md5 asserts
// config_module.defaults['objecthashmethod'] == 'md5').
const DefaultHashMethod = HashMD5

// ErrUnknownHashMethod is returned by ComputeHash for an unrecognized
// HashMethod. Construction of a ScanObject is otherwise total and
// infallible (spec.md §4.1); an unknown configured method is a startup
// configuration error, not a per-object failure.
var ErrUnknownHashMethod = fmt.Errorf("model: unknown hash method")

// ComputeHash hashes buf with the requested method, returning a lowercase
// hex digest.
func ComputeHash(method HashMethod, buf []byte) (string, error) {
	switch method {
	case "":
		return ComputeHash(DefaultHashMethod, buf)
	case HashSHA256:
		sum := sha256.Sum256(buf)
		return hex.EncodeToString(sum[:]), nil
	case HashSHA1:
		sum := sha1.Sum(buf)
		return hex.EncodeToString(sum[:]), nil
	case HashMD5:
		sum := md5.Sum(buf)
		return hex.EncodeToString(sum[:]), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownHashMethod, method)
	}
}
