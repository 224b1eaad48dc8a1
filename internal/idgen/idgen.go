// Package idgen generates annotation identifiers.
package idgen

import (
	"encoding/base64"

	"github.com/gofrs/uuid/v5"
)

// Generator produces opaque URL-safe unique identifiers.
type Generator interface {
	NewID() (string, error)
}

// UUID encodes random v4 UUIDs as unpadded base64url (22 characters).
type UUID struct{}

// NewID returns a fresh identifier.
func (UUID) NewID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(id.Bytes()), nil
}
