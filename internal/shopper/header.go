// Package shopper identifies the storefront user behind a request.
//
// The storefront forwards its logged-in user and cart session in a signed
// PF-Shopper header, an RFC 8941 dictionary:
//
//	PF-Shopper: user=42, session="9f1c...", sig=:base64hmac:
//
// sig is HMAC-SHA256 over "{user}|{session}" with the shared shopper secret.
// A request without the header is a guest with no session.
package shopper

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dunglas/httpsfv"
)

// Header is the request header carrying the identity.
const Header = "PF-Shopper"

// Identity is who a request acts for. UserID 0 is a guest.
type Identity struct {
	UserID    int64
	SessionID string
}

// IsGuest reports whether no user is logged in.
func (id Identity) IsGuest() bool {
	return id.UserID <= 0
}

// Header parse errors.
var (
	ErrMalformed    = errors.New("shopper: malformed header")
	ErrBadSignature = errors.New("shopper: bad signature")
)

// Parse decodes and, when secret is set, verifies a PF-Shopper value.
func Parse(header, secret string) (Identity, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Identity{}, nil
	}

	dict, err := httpsfv.UnmarshalDictionary([]string{header})
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var id Identity
	if m, ok := dict.Get("user"); ok {
		item, ok := m.(httpsfv.Item)
		if !ok {
			return Identity{}, fmt.Errorf("%w: user must be an item", ErrMalformed)
		}
		user, ok := item.Value.(int64)
		if !ok || user < 0 {
			return Identity{}, fmt.Errorf("%w: user must be a non-negative integer", ErrMalformed)
		}
		id.UserID = user
	}
	if m, ok := dict.Get("session"); ok {
		item, ok := m.(httpsfv.Item)
		if !ok {
			return Identity{}, fmt.Errorf("%w: session must be an item", ErrMalformed)
		}
		session, ok := item.Value.(string)
		if !ok {
			return Identity{}, fmt.Errorf("%w: session must be a string", ErrMalformed)
		}
		id.SessionID = session
	}

	if secret == "" {
		return id, nil
	}

	m, ok := dict.Get("sig")
	if !ok {
		return Identity{}, ErrBadSignature
	}
	item, ok := m.(httpsfv.Item)
	if !ok {
		return Identity{}, ErrBadSignature
	}
	sig, ok := item.Value.([]byte)
	if !ok || !hmac.Equal(sig, mac(id, secret)) {
		return Identity{}, ErrBadSignature
	}
	return id, nil
}

// Format renders a signed header value. An empty secret omits sig.
func Format(id Identity, secret string) (string, error) {
	dict := httpsfv.NewDictionary()
	dict.Add("user", httpsfv.NewItem(id.UserID))
	if id.SessionID != "" {
		dict.Add("session", httpsfv.NewItem(id.SessionID))
	}
	if secret != "" {
		dict.Add("sig", httpsfv.NewItem(mac(id, secret)))
	}
	return httpsfv.Marshal(dict)
}

func mac(id Identity, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(id.UserID, 10) + "|" + id.SessionID))
	return h.Sum(nil)
}
