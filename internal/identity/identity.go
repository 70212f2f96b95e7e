// Package identity generates the UUIDv4 identifiers BitShare uses for
// device, transfer, and file ids.
package identity

import (
	"crypto/rand"
	"fmt"
)

// NewUUIDv4 returns a lowercase, hyphenated RFC 4122 version-4 UUID
// built from 16 cryptographically random bytes.
func NewUUIDv4() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// broken; there is no sane fallback, so surface it loudly.
		panic(fmt.Sprintf("identity: failed to read random bytes: %v", err))
	}

	// Version 4: high nibble of byte 6 is 0100.
	b[6] = (b[6] & 0x0f) | 0x40
	// Variant 10xxxxxx: top two bits of byte 8.
	b[8] = (b[8] & 0x3f) | 0x80

	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// NewDeviceID generates the stable per-device identifier persisted by
// the config collaborator on first run.
func NewDeviceID() string {
	return NewUUIDv4()
}
