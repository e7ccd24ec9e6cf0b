// Package identity manages creation and loading of the local identity.
//
// It enforces the passphrase policy, generates the X25519 and Ed25519 key
// pairs, and persists them through domain.IdentityStore.
package identity
