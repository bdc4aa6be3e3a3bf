// Package keyring derives the symmetric keys used to sign transient login
// cookies. Keys are derived from one or more long-lived application secrets
// with HKDF-SHA256 and are bound to a purpose label and a cookie name, so a
// key derived for one cookie can never verify another.
//
// The first secret is the current (write) secret; the rest are kept so
// secrets can be rotated without invalidating logins that are still in
// flight. Verification tries keys in the configured order and the first
// match wins.
package keyring

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the size in bytes of a derived key.
const KeySize = 32

var (
	ErrNoSecrets     = errors.New("no secrets provided")
	ErrInvalidSecret = errors.New("invalid secret")
)

// Keyring holds the configured secrets and a cache of derived keys.
// Derivation is deterministic, so the cache is purely an optimization: keys
// are derived lazily on first use and kept for the Keyring's lifetime.
type Keyring struct {
	secrets []string

	mu    sync.RWMutex
	cache map[string][][]byte
}

// New creates a Keyring from one or more secrets. The secret order matters:
// index 0 is the primary secret used for signing, while every secret is
// tried during verification. Empty secrets are a configuration error.
func New(secrets ...string) (*Keyring, error) {
	const op = "keyring.New"
	if len(secrets) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrNoSecrets)
	}
	for i, s := range secrets {
		if s == "" {
			return nil, fmt.Errorf("%s: secret at index %d is empty: %w", op, i, ErrInvalidSecret)
		}
	}
	return &Keyring{
		secrets: secrets,
		cache:   map[string][][]byte{},
	}, nil
}

// SigningKey returns the key derived from the primary secret for the given
// purpose and cookie name.
func (k *Keyring) SigningKey(purpose, name string) ([]byte, error) {
	const op = "keyring.Keyring.SigningKey"
	keys, err := k.VerificationKeys(purpose, name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return keys[0], nil
}

// VerificationKeys returns one derived key per configured secret, preserving
// the configured order, so index 0 is always the signing key. Repeated calls
// with the same purpose and name return identical keys.
func (k *Keyring) VerificationKeys(purpose, name string) ([][]byte, error) {
	const op = "keyring.Keyring.VerificationKeys"
	cacheKey := purpose + "\x00" + name

	k.mu.RLock()
	keys, ok := k.cache[cacheKey]
	k.mu.RUnlock()
	if ok {
		return keys, nil
	}

	keys = make([][]byte, 0, len(k.secrets))
	for i, s := range k.secrets {
		key, err := derive(s, purpose, name)
		if err != nil {
			return nil, fmt.Errorf("%s: unable to derive key for secret at index %d: %w", op, i, err)
		}
		keys = append(keys, key)
	}

	k.mu.Lock()
	k.cache[cacheKey] = keys
	k.mu.Unlock()
	return keys, nil
}

// derive produces a KeySize key via HKDF-SHA256. The purpose label, cookie
// name and each value's length are all part of the info parameter, which
// makes the (secret, purpose, name) -> key mapping unambiguous.
func derive(secret, purpose, name string) ([]byte, error) {
	info := strconv.Itoa(len(purpose)) + ":" + purpose + ":" + strconv.Itoa(len(name)) + ":" + name
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(info))
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}
	return key, nil
}
