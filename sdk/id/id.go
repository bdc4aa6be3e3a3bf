// Package id generates opaque, URL-safe random identifiers which are
// suitable for single-use values like an OIDC state id or nonce.
package id

import (
	"encoding/base64"
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// DefaultLength is the number of random bytes used for a generated id,
// before encoding.
const DefaultLength = 24

// New generates an id with an optional prefix.  The id's random portion is
// DefaultLength bytes of crypto/rand data, base64 URL encoded without
// padding.
func New(optionalPrefix string) (string, error) {
	data, err := uuid.GenerateRandomBytes(DefaultLength)
	if err != nil {
		return "", fmt.Errorf("unable to generate id: %w", err)
	}
	id := base64.RawURLEncoding.EncodeToString(data)
	switch {
	case optionalPrefix != "":
		return fmt.Sprintf("%s_%s", optionalPrefix, id), nil
	default:
		return id, nil
	}
}
