package transient

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Verification failures are deliberately not exported: the Store collapses
// every failure to "no value" so callers can't build an oracle out of why a
// cookie was rejected.
var (
	errMalformed        = errors.New("malformed cookie value")
	errInvalidSignature = errors.New("invalid cookie signature")
)

// sign produces the value stored in a transient cookie:
//
//	base64url(value) "." base64url(HMAC-SHA256(name "=" value))
//
// The cookie name is bound into the tag, so a value signed for one cookie
// can't be replayed under another name.
func sign(name, value string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(name))
	mac.Write([]byte("="))
	mac.Write([]byte(value))
	payload := base64.RawURLEncoding.EncodeToString([]byte(value))
	tag := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return payload + "." + tag
}

// verify recovers the value from a signed cookie, trying each key in the
// order given until one produces a matching tag. hmac.Equal compares in
// constant time.
func verify(name, raw string, keys [][]byte) (string, error) {
	payload, sig, ok := strings.Cut(raw, ".")
	if !ok {
		return "", errMalformed
	}
	value, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", errMalformed
	}
	tag, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", errMalformed
	}
	for _, key := range keys {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte(name))
		mac.Write([]byte("="))
		mac.Write(value)
		if hmac.Equal(tag, mac.Sum(nil)) {
			return string(value), nil
		}
	}
	return "", errInvalidSignature
}
