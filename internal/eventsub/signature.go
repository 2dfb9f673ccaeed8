package eventsub

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"hash"
)

// Verifier holds incremental HMAC-SHA256 state for one delivery.
// It is keyed with the shared secret and fed the message id and timestamp
// header bytes before any body bytes; body chunks follow in arrival order.
// Verify consumes the state so it cannot be finalized twice.
type Verifier struct {
	mac hash.Hash
}

var errVerifierConsumed = errors.New("verifier already finalized")

// NewVerifier keys an HMAC with secret and feeds it id and timestamp.
// Returns ErrHMACInit if the secret cannot key the MAC.
func NewVerifier(secret, id, timestamp []byte) (*Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrHMACInit
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(id)
	mac.Write(timestamp)
	return &Verifier{mac: mac}, nil
}

// Write feeds body bytes to the MAC. Order matters.
func (v *Verifier) Write(p []byte) (int, error) {
	if v.mac == nil {
		return 0, errVerifierConsumed
	}
	return v.mac.Write(p)
}

// Verify finalizes the MAC and compares it against expected in constant
// time. The verifier is consumed: any further use is an error.
func (v *Verifier) Verify(expected []byte) (bool, error) {
	if v.mac == nil {
		return false, errVerifierConsumed
	}
	computed := v.mac.Sum(nil)
	v.mac = nil
	return hmac.Equal(computed, expected), nil
}

// Sign computes the signature header value for the given secret, message id,
// timestamp header value, and body: "sha256=" + hex(HMAC-SHA256(secret, id ∥ timestamp ∥ body)).
func Sign(secret, id, timestamp, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(id)
	mac.Write(timestamp)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
