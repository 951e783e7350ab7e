package actiontoken

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// ActionToken is a single-use, time-boxed credential gating patch submission.
// ID is public; the secret is only returned once, at issuance, and is stored
// as a SHA-256 digest.
type ActionToken struct {
	ID         string    `json:"id"`
	SecretHash string    `json:"-"`
	Enabled    bool      `json:"enabled"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Issued is returned by Service.Issue. It is the only value that carries the
// plaintext secret.
type Issued struct {
	ID        string    `json:"id"`
	Secret    string    `json:"secret"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UsableAt reports whether the token has not expired at now.
func (t ActionToken) UsableAt(now time.Time) bool {
	return !now.After(t.ExpiresAt)
}

// HashSecret returns the digest stored in place of a plaintext secret.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
