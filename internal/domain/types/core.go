package types

// MediumMaxValue bounds prekey and signed prekey identifiers. Ids are
// allocated modulo this value and wrap around.
const MediumMaxValue = 0xFFFFFF

// Username represents a relay-registered identity.
type Username string

// String returns the string form of the username.
func (u Username) String() string { return string(u) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// PreKeyID identifies a one-time pre-key. Ids are reused after wraparound.
type PreKeyID uint32

// Next returns the id n positions after id, modulo MediumMaxValue.
func (id PreKeyID) Next(n int) PreKeyID {
	return PreKeyID(advance(uint32(id), n))
}

// SignedPreKeyID identifies a signed pre-key.
type SignedPreKeyID uint32

// NoActiveSignedPreKey is the active id of an account that has never
// activated a signed pre-key. It lies outside the allocatable range.
const NoActiveSignedPreKey SignedPreKeyID = MediumMaxValue

// Next returns the id n positions after id, modulo MediumMaxValue.
func (id SignedPreKeyID) Next(n int) SignedPreKeyID {
	return SignedPreKeyID(advance(uint32(id), n))
}

func advance(id uint32, n int) uint32 {
	return uint32((uint64(id) + uint64(n)) % MediumMaxValue)
}
