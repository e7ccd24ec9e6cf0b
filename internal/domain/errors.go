package domain

import "errors"

var (
	// ErrInvalidKeyID is returned when no record is stored under an id.
	ErrInvalidKeyID = errors.New("invalid key id")

	// ErrInvalidKey is returned by a Signer that rejects a key.
	ErrInvalidKey = errors.New("invalid key")
)
