package interfaces

import domaintypes "signet/internal/domain/types"

// KeyPairGenerator produces fresh Curve25519 key pairs.
type KeyPairGenerator interface {
	GenerateKeyPair() (domaintypes.KeyPair, error)
}

// Signer signs msg with an identity signing key. It returns ErrInvalidKey
// when the key is unusable.
type Signer interface {
	Sign(priv domaintypes.Ed25519Private, msg []byte) ([]byte, error)
}
