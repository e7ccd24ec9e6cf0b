package crypto

import (
	"fmt"

	"signet/internal/domain"
)

// Curve generates pre-key material and signs it with an identity key.
type Curve struct{}

// GenerateKeyPair returns a fresh clamped X25519 key pair.
func (Curve) GenerateKeyPair() (domain.KeyPair, error) {
	priv, pub, err := GenerateX25519()
	if err != nil {
		return domain.KeyPair{}, fmt.Errorf("crypto: generate key pair: %w", err)
	}
	return domain.KeyPair{Public: pub, Private: priv}, nil
}

// Sign signs msg with priv. A zero key is rejected with domain.ErrInvalidKey.
func (Curve) Sign(priv domain.Ed25519Private, msg []byte) ([]byte, error) {
	if priv == (domain.Ed25519Private{}) {
		return nil, fmt.Errorf("crypto: sign: %w: zero signing key", domain.ErrInvalidKey)
	}
	return SignEd25519(priv, msg), nil
}

// VerifySignedPreKey reports whether rec carries a valid signature by
// signingKey over its serialized public key.
func VerifySignedPreKey(signingKey domain.Ed25519Public, rec domain.SignedPreKeyRecord) bool {
	return VerifyEd25519(signingKey, rec.KeyPair.Public.Serialize(), rec.Signature)
}

var (
	_ domain.KeyPairGenerator = Curve{}
	_ domain.Signer           = Curve{}
)
