package interfaces

import (
	"time"

	domaintypes "signet/internal/domain/types"
)

// IdentityService creates, retrieves, and inspects your identity keys.
type IdentityService interface {
	GenerateIdentity(passphrase string) (
		domaintypes.Identity,
		domaintypes.Fingerprint,
		error,
	)
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
	FingerprintIdentity(passphrase string) (domaintypes.Fingerprint, error)
}

// PreKeyService allocates, generates and tracks pre-keys.
type PreKeyService interface {
	GeneratePreKeys(count int) ([]domaintypes.PreKeyRecord, error)
	ReservePreKeys(count int) (domaintypes.PreKeyReservation, error)
	StorePreKeyRecords(records []domaintypes.PreKeyRecord) error
	NextPreKeyID() (domaintypes.PreKeyID, error)
	LoadPreKey(id domaintypes.PreKeyID) (domaintypes.PreKeyRecord, error)
	RemovePreKey(id domaintypes.PreKeyID) error

	GenerateSignedPreKey(
		identity domaintypes.Identity,
		markActive bool,
	) (domaintypes.SignedPreKeyRecord, error)
	LoadSignedPreKey(id domaintypes.SignedPreKeyID) (domaintypes.SignedPreKeyRecord, error)
	ActiveSignedPreKey() (domaintypes.SignedPreKeyRecord, bool, error)
	ActiveSignedPreKeyID() (domaintypes.SignedPreKeyID, error)
	SetActiveSignedPreKeyID(id domaintypes.SignedPreKeyID) error
	CleanSignedPreKeys(archiveAge time.Duration) (int, error)

	Bundle(
		identity domaintypes.Identity,
		username domaintypes.Username,
		oneTime []domaintypes.PreKeyRecord,
	) (domaintypes.PreKeyBundle, error)
}
