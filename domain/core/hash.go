package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// Short returns the first 12 hex characters, enough for display.
func (h Hash) Short() string {
	if len(h) < 12 {
		return string(h)
	}
	return string(h[:12])
}

// Domain-specific hash types
type (
	// Fingerprint pins a study to its determinism tuple (scenario, seed, n, code).
	Fingerprint Hash
	// DataHash pins a dataset to its exact cell values.
	DataHash Hash
	// CodeVersion identifies the build that produced a result.
	CodeVersion string
)

// String conversions
func (h Fingerprint) String() string { return Hash(h).String() }
func (h DataHash) String() string    { return Hash(h).String() }
func (v CodeVersion) String() string { return string(v) }

// Short display forms
func (h Fingerprint) Short() string { return Hash(h).Short() }
func (h DataHash) Short() string    { return Hash(h).Short() }

// ComputeFingerprint hashes the tuple that makes a study reproducible.
// Two studies with equal fingerprints must produce identical results.
func ComputeFingerprint(scenario string, seed int64, n int, code CodeVersion) Fingerprint {
	var data strings.Builder
	data.WriteString(scenario)
	data.WriteString("|")
	data.WriteString(strconv.FormatInt(seed, 10))
	data.WriteString("|")
	data.WriteString(strconv.Itoa(n))
	data.WriteString("|")
	data.WriteString(string(code))
	return Fingerprint(NewHash([]byte(data.String())))
}

// ComputeDataHash hashes a numeric matrix cell by cell. Values are formatted
// with full float64 precision so equal data always hashes equal.
func ComputeDataHash(rows [][]float64) DataHash {
	var data strings.Builder
	for i, row := range rows {
		data.WriteString(fmt.Sprintf("r%d:", i))
		for _, v := range row {
			data.WriteString(strconv.FormatFloat(v, 'g', 17, 64))
			data.WriteString(",")
		}
	}
	return DataHash(NewHash([]byte(data.String())))
}
