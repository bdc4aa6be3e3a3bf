// Package transient persists the short-lived cookies which carry OIDC login
// state (nonce, state, PKCE code verifier) across the redirect round trip to
// the identity provider and back.
//
// Every value is integrity protected with keys derived by a
// keyring.Keyring, and every cookie is single use: reading one clears it
// from the response whether or not verification succeeded. A tampered,
// corrupt or unknown-key cookie is indistinguishable from a missing one.
package transient

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gatekit/gatekit/authflow/keyring"
)

// SigningPurpose is the purpose label bound into every key the store
// derives, keeping transient-cookie keys separate from any other keys
// derived from the same secrets.
const SigningPurpose = "transient signing"

var ErrNilKeyring = errors.New("nil keyring")

// Config holds the cookie attributes shared by every transient cookie the
// store writes.
type Config struct {
	// Domain is an optional cookie domain.
	Domain string

	// Path is the cookie path and defaults to "/".
	Path string

	// Secure marks cookies Secure. It is forced on for SameSite=None
	// cookies regardless of this setting, since browsers reject those
	// without it.
	Secure bool

	// FallbackCookies enables the legacy dual-cookie strategy: every
	// SameSite=None cookie is duplicated under an underscore-prefixed name
	// with no SameSite or Secure attributes at all, so browsers that
	// predate SameSite=None support still round-trip the value.
	FallbackCookies bool
}

// Store writes and reads signed transient cookies.
type Store struct {
	keyring *keyring.Keyring
	config  Config
}

// NewStore creates a Store. The keyring is owned by the caller and is
// typically shared with whatever else derives keys from the same secrets.
func NewStore(k *keyring.Keyring, c Config) (*Store, error) {
	const op = "transient.NewStore"
	if k == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNilKeyring)
	}
	if c.Path == "" {
		c.Path = "/"
	}
	return &Store{
		keyring: k,
		config:  c,
	}, nil
}

// fallbackName centralizes the legacy dual-cookie naming convention.
func fallbackName(name string) string {
	return "_" + name
}

// Save signs value under name and writes the cookie to the response,
// returning the signed cookie value. When sameSite is
// http.SameSiteNoneMode the Secure attribute is always set, and when
// fallback cookies are enabled a legacy duplicate is written as well.
func (s *Store) Save(w http.ResponseWriter, name, value string, sameSite http.SameSite) (string, error) {
	const op = "transient.Store.Save"
	key, err := s.keyring.SigningKey(SigningPurpose, name)
	if err != nil {
		return "", fmt.Errorf("%s: unable to derive signing key: %w", op, err)
	}
	signed := sign(name, value, key)

	secure := s.config.Secure
	if sameSite == http.SameSiteNoneMode {
		secure = true
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    signed,
		Domain:   s.config.Domain,
		Path:     s.config.Path,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})

	if s.config.FallbackCookies && sameSite == http.SameSiteNoneMode {
		http.SetCookie(w, &http.Cookie{
			Name:     fallbackName(name),
			Value:    signed,
			Domain:   s.config.Domain,
			Path:     s.config.Path,
			HttpOnly: true,
		})
	}
	return signed, nil
}

// Read returns the value stored under name, or the empty string when the
// cookie is missing, malformed, tampered with, or signed with an unknown
// key. Every cookie Read inspects is cleared from the response regardless of
// the outcome: transient cookies are single use. When fallback cookies are
// enabled and the primary cookie yields nothing, the legacy duplicate is
// read (and cleared) the same way.
func (s *Store) Read(w http.ResponseWriter, r *http.Request, name string) string {
	keys, err := s.keyring.VerificationKeys(SigningPurpose, name)
	if err != nil {
		// treat exactly like a verification failure below: clear and
		// report no value
		keys = nil
	}

	var value string
	if c, err := r.Cookie(name); err == nil {
		if v, err := verify(name, c.Value, keys); err == nil {
			value = v
		}
		s.clear(w, name)
	}
	if value == "" && s.config.FallbackCookies {
		if c, err := r.Cookie(fallbackName(name)); err == nil {
			// the fallback carries the same signed value, so the tag is
			// still bound to the primary name
			if v, err := verify(name, c.Value, keys); err == nil {
				value = v
			}
			s.clear(w, fallbackName(name))
		}
	}
	return value
}

func (s *Store) clear(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Domain:   s.config.Domain,
		Path:     s.config.Path,
		HttpOnly: true,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}
