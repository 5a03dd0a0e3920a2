// Package token provides single-use bearer token value types and pure
// derivation/validation functions. Only the PBKDF2 hash and salt are ever
// stored; the plaintext identifier exists only in the string handed to
// the client.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/pbkdf2"
)

// Delimiter separates the user id from the token identifier in the
// client-facing string. User ids containing it are rejected at issuance.
const Delimiter = "."

// MinIterations is the floor for PBKDF2 rounds; lower configured values
// are raised to it.
const MinIterations = 100_000

const (
	idBytes   = 32
	saltBytes = 16
	hashBytes = 32
)

// Record is the stored shape of an issued token (value type).
// At most one unexpired, unused record exists per user; issuing a new
// token overwrites the previous one.
type Record struct {
	UserID    string
	Hash      []byte
	Salt      []byte
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// IsExpired returns true if the record has expired at the given time.
func (r Record) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// IsValid returns true if the record is neither used nor expired.
func (r Record) IsValid(now time.Time) bool {
	return !r.Used && !r.IsExpired(now)
}

// Generate creates a new token identifier and record for the user.
// Returns the client-facing string (userID + "." + identifier) and the
// record to store.
func Generate(userID string, iterations int, ttl time.Duration, now time.Time) (string, Record) {
	raw := make([]byte, idBytes)
	if _, err := rand.Read(raw); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	id := base64.RawURLEncoding.EncodeToString(raw)

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}

	rec := Record{
		UserID:    userID,
		Hash:      Derive(id, salt, iterations),
		Salt:      salt,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}
	return userID + Delimiter + id, rec
}

// Derive computes the stored PBKDF2-HMAC-SHA256 hash of a token
// identifier. This is a PURE function.
func Derive(id string, salt []byte, iterations int) []byte {
	if iterations < MinIterations {
		iterations = MinIterations
	}
	return pbkdf2.Key([]byte(id), salt, iterations, hashBytes, sha256.New)
}

// Verify recomputes the hash for the presented identifier and compares
// it against the record in constant time. This is a PURE function.
func Verify(rec Record, id string, iterations int) bool {
	return hmac.Equal(rec.Hash, Derive(id, rec.Salt, iterations))
}

// Parse splits a client-presented token into user id and identifier.
// The format must be exactly one delimiter with non-empty halves.
func Parse(raw string) (userID, id string, ok bool) {
	parts := strings.Split(raw, Delimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// ValidUserID reports whether a user id may have tokens issued for it.
func ValidUserID(userID string) bool {
	return userID != "" && !strings.Contains(userID, Delimiter)
}
