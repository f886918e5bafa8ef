// Package gatetoken mints and recognizes the opaque token printed in a
// leave pass QR code. The token is a SHA-256 digest of the student id, the
// leave id, a nanosecond timestamp and a random nonce, so it reveals nothing
// about its inputs and collides only with negligible probability. Store-level
// uniqueness is still enforced by the leave_requests unique index; callers
// re-mint on a duplicate-key error.
package gatetoken

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Segments is the number of dash-separated groups in a token.
const Segments = 4

// segmentLen is the hex length of each group (4 * 16 = full SHA-256 hex).
const segmentLen = 16

// Mint derives a fresh gate token bound to one approved leave request.
// Tokens have a fixed length of 67 characters: four 16-hex-char groups
// joined by dashes.
func Mint(studentID, leaveID uint) string {
	raw := fmt.Sprintf("%d|%d|%d|%s", studentID, leaveID, time.Now().UnixNano(), uuid.New().String())
	sum := sha256.Sum256([]byte(raw))
	digest := hex.EncodeToString(sum[:])

	parts := make([]string, 0, Segments)
	for i := 0; i < Segments; i++ {
		parts = append(parts, digest[i*segmentLen:(i+1)*segmentLen])
	}
	return strings.Join(parts, "-")
}

// IsWellFormed reports whether the token has the expected shape: exactly
// four non-empty dash-separated segments. This is a cheap structural gate
// before any store lookup, not an authenticity check.
func IsWellFormed(token string) bool {
	if token == "" {
		return false
	}
	parts := strings.Split(token, "-")
	if len(parts) != Segments {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}
