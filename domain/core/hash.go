package core

import (
	"crypto/sha256"
	"encoding/hex"
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

// InstanceSetHash fingerprints a built instance set.
type InstanceSetHash Hash

func (h InstanceSetHash) String() string { return Hash(h).String() }

// ComputeInstanceSetHash hashes records in the order given. Each record is
// the list of fields that identify one instance (id, label, prompt, ...).
// Order matters: two builds are equal only if they accepted the same
// instances in the same sequence.
func ComputeInstanceSetHash(records [][]string) InstanceSetHash {
	var data strings.Builder
	for _, fields := range records {
		for _, f := range fields {
			data.WriteString(f)
			data.WriteByte(0x1f)
		}
		data.WriteByte(0x1e)
	}
	return InstanceSetHash(NewHash([]byte(data.String())))
}
