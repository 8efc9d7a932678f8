package domain

import (
	"crypto/subtle"
	"encoding/hex"
	"time"

	"golang.org/x/crypto/blake2b"
)

// TokenBytes is the amount of CSPRNG entropy in every issued nonce token.
const TokenBytes = 16

// NonceState is the lifecycle state of an identifier's current token.
type NonceState string

const (
	NonceStateNone     NonceState = "NONE"
	NonceStateIssued   NonceState = "ISSUED"
	NonceStateConsumed NonceState = "CONSUMED"
)

// Nonce is the single-use token record of an identifier. At most one exists
// per identifier; issuing again replaces it. Only the token digest is kept.
type Nonce struct {
	Identifier string     `json:"identifier"`
	TokenHash  string     `json:"-"`
	Consumed   bool       `json:"consumed"`
	IssuedAt   time.Time  `json:"issued_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
}

// State returns the lifecycle state. A nil record is NONE.
func (n *Nonce) State() NonceState {
	switch {
	case n == nil:
		return NonceStateNone
	case n.Consumed:
		return NonceStateConsumed
	default:
		return NonceStateIssued
	}
}

// Accepts reports whether a consume presenting tokenHash would succeed now.
func (n *Nonce) Accepts(tokenHash string) bool {
	if n.State() != NonceStateIssued {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(n.TokenHash), []byte(tokenHash)) == 1
}

// HashToken returns the hex BLAKE2b-256 digest stored in place of a token.
func HashToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
