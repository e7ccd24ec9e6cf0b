package interfaces

import domaintypes "signet/internal/domain/types"

// IdentityStore persists your long-term identity keys.
type IdentityStore interface {
	SaveIdentity(passphrase string, id domaintypes.Identity) error
	LoadIdentity(passphrase string) (domaintypes.Identity, error)
}

// PreKeyStore persists one-time pre-key records keyed by id. Store
// overwrites any record already held under the id. Load fails with
// ErrInvalidKeyID when nothing is stored under the id.
type PreKeyStore interface {
	StorePreKey(id domaintypes.PreKeyID, record domaintypes.PreKeyRecord) error
	LoadPreKey(id domaintypes.PreKeyID) (domaintypes.PreKeyRecord, error)
	ContainsPreKey(id domaintypes.PreKeyID) (bool, error)
	RemovePreKey(id domaintypes.PreKeyID) error
}

// SignedPreKeyStore persists signed pre-key records keyed by id.
type SignedPreKeyStore interface {
	StoreSignedPreKey(id domaintypes.SignedPreKeyID, record domaintypes.SignedPreKeyRecord) error
	LoadSignedPreKey(id domaintypes.SignedPreKeyID) (domaintypes.SignedPreKeyRecord, error)
	LoadSignedPreKeys() ([]domaintypes.SignedPreKeyRecord, error)
	RemoveSignedPreKey(id domaintypes.SignedPreKeyID) error
}

// CursorStore holds the durable identifier cursors and the active signed
// pre-key id. Unset cursors read as zero; an unset active id reads as
// NoActiveSignedPreKey.
type CursorStore interface {
	NextPreKeyID() (domaintypes.PreKeyID, error)
	SetNextPreKeyID(id domaintypes.PreKeyID) error
	NextSignedPreKeyID() (domaintypes.SignedPreKeyID, error)
	SetNextSignedPreKeyID(id domaintypes.SignedPreKeyID) error
	ActiveSignedPreKeyID() (domaintypes.SignedPreKeyID, error)
	SetActiveSignedPreKeyID(id domaintypes.SignedPreKeyID) error
}

// PreKeyBundleStore caches the last bundle you assembled.
type PreKeyBundleStore interface {
	SavePreKeyBundle(bundle domaintypes.PreKeyBundle) error
	LoadPreKeyBundle(username domaintypes.Username) (domaintypes.PreKeyBundle, bool, error)
}
