// Package uuid provides UUID v7 generation. UUID v7 leads with a
// millisecond timestamp, so identifiers sort by creation time, a better
// fit for database primary keys than random v4.
package uuid

import (
	"crypto/rand"
	"fmt"
	"time"
)

// UUID represents a UUID v7 identifier.
type UUID [16]byte

// NewV7 generates a new UUID v7 per RFC 9562: 48 bits of Unix milliseconds,
// the version and variant markers, and 74 random bits.
func NewV7() UUID {
	var u UUID
	_, _ = rand.Read(u[6:]) // crypto/rand never fails on supported platforms

	ms := uint64(time.Now().UnixMilli())
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)

	u[6] = 0x70 | (u[6] & 0x0f) // version 7
	u[7] = 0x80 | (u[7] & 0x3f) // RFC 4122 variant

	return u
}

// String returns the canonical form: xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx.
func (u UUID) String() string {
	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		u[0:4], u[4:6], u[6:8], u[8:10], u[10:16])
}
