package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// Seal computes and stores the record's checksum: the SHA-256 of its
// canonical JSON form with the checksum field empty. The recorder seals
// records once, immediately before enqueueing them.
func (r *Record) Seal() {
	r.Checksum = ""
	r.Checksum = r.computeChecksum()
}

// Verify reports whether the stored checksum matches the record's current
// contents. Unsealed records (empty checksum) verify as false.
func (r *Record) Verify() bool {
	if r.Checksum == "" {
		return false
	}

	clone := *r
	clone.Checksum = ""
	return r.Checksum == clone.computeChecksum()
}

func (r *Record) computeChecksum() string {
	// encoding/json emits struct fields in declaration order, which makes
	// the marshalled form canonical for a fixed struct definition.
	data, err := json.Marshal(r)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
