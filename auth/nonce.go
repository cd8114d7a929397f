package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// nonceCharset is the alphabet challenge strings are drawn from. Easily
// confused characters are excluded.
const nonceCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVXYZabcdefghijklmnopqrstuvwxyz-._"

// GenerateNonce produces a cryptographically random challenge string of the
// given length together with its hex-encoded SHA-256 digest.
//
// The digest is the value sent with an outgoing sign-in request as the
// anti-replay challenge; the raw string is retained to validate the matching
// callback. Bytes from the secure random source are rejection-sampled
// against the alphabet size, so every character is drawn uniformly.
//
// GenerateNonce panics if length is not positive, or if the secure random
// source fails. Neither condition is recoverable: the first is a programmer
// error, and the generator must never silently downgrade to a weaker source.
func GenerateNonce(length int) (raw, hashed string) {
	if length <= 0 {
		panic("auth: nonce length must be positive")
	}

	var sb strings.Builder
	sb.Grow(length)
	remaining := length
	buf := make([]byte, 16)
	for remaining > 0 {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Sprintf("auth: secure random source failed: %v", err))
		}
		for _, b := range buf {
			if remaining == 0 {
				break
			}
			// Bytes outside the alphabet are discarded and redrawn to avoid
			// modulo bias.
			if int(b) < len(nonceCharset) {
				sb.WriteByte(nonceCharset[b])
				remaining--
			}
		}
	}

	raw = sb.String()
	sum := sha256.Sum256([]byte(raw))
	return raw, hex.EncodeToString(sum[:])
}
