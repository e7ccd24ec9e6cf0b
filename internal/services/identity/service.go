package identity

import (
	"fmt"
	"unicode"

	"signet/internal/crypto"
	"signet/internal/domain"
)

// minPassphraseLength is the shortest passphrase the policy accepts.
const minPassphraseLength = 12

// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
var ErrWeakPassphrase = fmt.Errorf(
	"identity: passphrase must be at least %d characters and mix upper, lower, digit and symbol",
	minPassphraseLength,
)

// Service creates and opens the account identity: an X25519 pair peers pin
// and the Ed25519 pair that signs every signed pre-key.
type Service struct {
	store domain.IdentityStore
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// GenerateIdentity creates a new identity, seals it under passphrase and
// returns it with the fingerprint of its X25519 public key. An existing
// identity is replaced; pre-keys signed by it no longer verify.
func (s *Service) GenerateIdentity(
	passphrase string,
) (domain.Identity, domain.Fingerprint, error) {
	if !isSecurePassphrase(passphrase) {
		return domain.Identity{}, "", ErrWeakPassphrase
	}

	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: generate agreement key: %w", err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: generate signing key: %w", err)
	}

	id := domain.Identity{XPub: xPub, XPriv: xPriv, EdPub: edPub, EdPriv: edPriv}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, "", fmt.Errorf("identity: save: %w", err)
	}
	return id, fingerprint(id), nil
}

// LoadIdentity opens the stored identity.
func (s *Service) LoadIdentity(passphrase string) (domain.Identity, error) {
	return s.store.LoadIdentity(passphrase)
}

// FingerprintIdentity returns the fingerprint of the stored identity.
func (s *Service) FingerprintIdentity(passphrase string) (domain.Fingerprint, error) {
	id, err := s.store.LoadIdentity(passphrase)
	if err != nil {
		return "", err
	}
	return fingerprint(id), nil
}

func fingerprint(id domain.Identity) domain.Fingerprint {
	return domain.Fingerprint(crypto.Fingerprint(id.XPub.Serialize()))
}

func isSecurePassphrase(passphrase string) bool {
	if len(passphrase) < minPassphraseLength {
		return false
	}
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
