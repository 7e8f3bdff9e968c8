package saga

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	studentIDPrefix  = "STU-"
	externalIDLength = 15
)

// StudentExternalID derives the payment-collection identifier for a tenant
// from the internal record id. Hashing instead of truncating keeps ids with
// a shared prefix (sequential UUIDs, imported batches) from colliding.
// Deterministic: the same internal id always maps to the same external id.
func StudentExternalID(internalID string) string {
	sum := sha256.Sum256([]byte(internalID))
	digest := hex.EncodeToString(sum[:])
	return studentIDPrefix + digest[:externalIDLength-len(studentIDPrefix)]
}
