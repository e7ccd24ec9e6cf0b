package domain

import (
	interfaces "signet/internal/domain/interfaces"
	types "signet/internal/domain/types"
)

const (
	// MediumMaxValue bounds pre-key identifiers.
	MediumMaxValue = types.MediumMaxValue
	// DjbType prefixes a serialized Curve25519 public key.
	DjbType = types.DjbType
	// NoActiveSignedPreKey marks an unset active signed pre-key id.
	NoActiveSignedPreKey = types.NoActiveSignedPreKey
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username            = types.Username
	Fingerprint         = types.Fingerprint
	PreKeyID            = types.PreKeyID
	SignedPreKeyID      = types.SignedPreKeyID
	Identity            = types.Identity
	KeyPair             = types.KeyPair
	PreKeyRecord        = types.PreKeyRecord
	PreKeyReservation   = types.PreKeyReservation
	SignedPreKeyRecord  = types.SignedPreKeyRecord
	OneTimePreKeyPublic = types.OneTimePreKeyPublic
	PreKeyBundle        = types.PreKeyBundle
	X25519Public        = types.X25519Public
	X25519Private       = types.X25519Private
	Ed25519Public       = types.Ed25519Public
	Ed25519Private      = types.Ed25519Private
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	IdentityService   = interfaces.IdentityService
	PreKeyService     = interfaces.PreKeyService
	IdentityStore     = interfaces.IdentityStore
	PreKeyStore       = interfaces.PreKeyStore
	SignedPreKeyStore = interfaces.SignedPreKeyStore
	CursorStore       = interfaces.CursorStore
	PreKeyBundleStore = interfaces.PreKeyBundleStore
	KeyPairGenerator  = interfaces.KeyPairGenerator
	Signer            = interfaces.Signer
)
