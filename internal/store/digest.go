package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Domain prefix for entry digests.
// Version suffix enables future algorithm migration.
const domainEntry = "notes/entry/v1"

// entryDigest computes SHA-256 over the key and value with domain separation.
// Format: SHA256(domain + 0x00 + uint32be(key) + value)
//
// Binding the key means a value copied under a different key is detected as
// corruption, not just a damaged value.
func entryDigest(key uint32, value []byte) string {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], key)

	h := sha256.New()
	h.Write([]byte(domainEntry))
	h.Write([]byte{0x00})
	h.Write(k[:])
	h.Write(value)
	return hex.EncodeToString(h.Sum(nil))
}
