// Package webhook receives Printful webhook deliveries and manages the store's
// webhook subscription and signing keys.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// Printful webhook signature headers.
const (
	HeaderSignature = "X-Pf-Webhook-Signature"
	HeaderPublicKey = "X-Pf-Webhook-Public-Key"
)

// Verification errors. Key problems are the receiver's configuration (400);
// a bad signature is the sender's (403).
var (
	ErrKeysMismatch = errors.New("webhook: keys not set or mismatch")
	ErrBadSecret    = errors.New("webhook: bad secret hex")
	ErrBadSignature = errors.New("webhook: bad signature")
)

// StatusFor maps a verification error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadSignature):
		return http.StatusForbidden
	default:
		return http.StatusBadRequest
	}
}

// Verify checks a delivery against the stored keys. Deliveries without both
// signature headers are accepted unauthenticated.
func Verify(signature, publicKey string, body []byte, keys Keys) error {
	if signature == "" || publicKey == "" {
		return nil
	}
	if keys.PublicKey == "" || keys.SecretHex == "" || publicKey != keys.PublicKey {
		return ErrKeysMismatch
	}
	secret, err := hex.DecodeString(keys.SecretHex)
	if err != nil {
		return ErrBadSecret
	}
	if !hmac.Equal([]byte(Sign(body, secret)), []byte(strings.ToLower(signature))) {
		return ErrBadSignature
	}
	return nil
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// MaskHex hides the middle of a secret for display.
func MaskHex(s string) string {
	s = strings.Join(strings.Fields(s), "")
	if len(s) <= 8 {
		if len(s) <= 2 {
			return s
		}
		return strings.Repeat("•", len(s)-2) + s[len(s)-2:]
	}
	return s[:6] + strings.Repeat("•", max(0, len(s)-12)) + s[len(s)-6:]
}
