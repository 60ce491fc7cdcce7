// Package credential derives and verifies password credentials and produces
// the digests and random secrets used by the session and OTP services.
package credential

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is used when no iteration count is configured.
	DefaultIterations = 120000

	saltBytes = 16
	keyBytes  = 64
)

// Hasher derives password credentials with a configurable work factor.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher. Non-positive iteration counts fall back to the
// default so a zero-value config cannot silently weaken hashing.
func NewHasher(iterations int) *Hasher {
	if iterations <= 0 {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash derives a credential of the form "iterations.salt.key" (base64 salt
// and key, PBKDF2-SHA512). The embedded parameters make verification
// self-describing, so the work factor can change without re-hashing stored
// credentials.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	saltStr := base64.StdEncoding.EncodeToString(salt)
	key := pbkdf2.Key([]byte(password), []byte(saltStr), h.iterations, keyBytes, sha512.New)
	return strconv.Itoa(h.iterations) + "." + saltStr + "." +
		base64.StdEncoding.EncodeToString(key), nil
}

// Verify re-derives the supplied password with the credential's embedded
// parameters and compares in constant time. A malformed credential fails
// verification rather than returning an error; format problems and wrong
// passwords are indistinguishable to the caller.
func Verify(password, encoded string) bool {
	parts := strings.Split(encoded, ".")
	if len(parts) != 3 {
		return false
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations <= 0 {
		return false
	}
	stored, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return false
	}
	derived := pbkdf2.Key([]byte(password), []byte(parts[1]), iterations, keyBytes, sha512.New)
	return subtle.ConstantTimeCompare(stored, derived) == 1
}

// Digest is the one-way digest stored in place of raw tokens and OTP codes.
func Digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// RandomToken returns a base64url-encoded token from byteLength random bytes.
func RandomToken(byteLength int) (string, error) {
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
