package types

// PreKeyRecord is a stored one-time pre-key.
type PreKeyRecord struct {
	ID      PreKeyID `json:"id"`
	KeyPair KeyPair  `json:"key_pair"`
}

// Public returns the part of the record that is published in bundles.
func (r PreKeyRecord) Public() OneTimePreKeyPublic {
	return OneTimePreKeyPublic{ID: r.ID, Pub: r.KeyPair.Public}
}

// SignedPreKeyRecord is a stored signed pre-key. Timestamp is the creation
// time in Unix milliseconds.
type SignedPreKeyRecord struct {
	ID        SignedPreKeyID `json:"id"`
	Timestamp int64          `json:"timestamp"`
	KeyPair   KeyPair        `json:"key_pair"`
	Signature []byte         `json:"signature"`
}

// PreKeyReservation is a batch of one-time pre-keys whose ids have been
// allocated but which have not been stored. Ids in [Start, Next) modulo
// MediumMaxValue are spoken for; Records covers all of them except the
// last, which is skipped.
type PreKeyReservation struct {
	Records []PreKeyRecord `json:"records"`
	Start   PreKeyID       `json:"start"`
	Next    PreKeyID       `json:"next"`
}

// OneTimePreKeyPublic is only the public half (sent in bundles).
type OneTimePreKeyPublic struct {
	ID  PreKeyID     `json:"id"`
	Pub X25519Public `json:"pub"`
}

// PreKeyBundle is the set of public keys published for session setup.
// SignedPreKeySignature is base64-encoded automatically.
type PreKeyBundle struct {
	Username              Username              `json:"username"`
	IdentityKey           X25519Public          `json:"identity_key"`
	SigningKey            Ed25519Public         `json:"signing_key"`
	SignedPreKeyID        SignedPreKeyID        `json:"signed_pre_key_id"`
	SignedPreKey          X25519Public          `json:"signed_pre_key"`
	SignedPreKeySignature []byte                `json:"signed_pre_key_signature"`
	SignedPreKeyTimestamp int64                 `json:"signed_pre_key_timestamp"`
	OneTimePreKeys        []OneTimePreKeyPublic `json:"one_time_pre_keys,omitempty"`
}
