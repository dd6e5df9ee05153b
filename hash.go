package flagcore

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
)

// bucketHash returns the first 8 bytes of SHA-256(key), interpreted
// big-endian as an unsigned 64-bit integer. It is the sole source of
// randomness for bucketing decisions: no floating point, no other hash
// function, ever.
func bucketHash(key string) uint64 {
	sum := sha256.Sum256([]byte(key))
	return binary.BigEndian.Uint64(sum[:8])
}

// passesRule reports whether unitID falls within the first
// passPercentage percent of the bucket space salted by
// specSalt+"."+ruleSalt. passPercentage is multiplied by 100 before
// comparison so the whole computation stays in integer arithmetic.
func passesRule(specSalt, ruleSalt, unitID string, passPercentage float64) bool {
	h := bucketHash(specSalt + "." + ruleSalt + "." + unitID)
	return h%10000 < uint64(passPercentage*100)
}

// userBucket returns the 0-999 bucket a unit ID falls into under salt,
// used by user_bucket conditions.
func userBucket(salt, unitID string) int64 {
	return int64(bucketHash(salt+"."+unitID) % 1000)
}

// idListHash returns the membership key for a raw unit ID: the
// base64 encoding of SHA-256(id), truncated to 8 characters. This
// matches the identity token the differential ID list feed uses, so a
// unit_id/user_field value can be looked up directly against a
// hydrated IDList.
func idListHash(id string) string {
	sum := sha256.Sum256([]byte(id))
	return base64.StdEncoding.EncodeToString(sum[:])[:8]
}
