// Package prekey manages signed pre-keys and one-time pre-keys for X3DH bootstrap.
//
// It allocates ids from persisted cursors that wrap at
// domain.MediumMaxValue, stores the generated records, tracks which signed
// pre-key is active, prunes archived signed pre-keys and assembles the
// public bundle.
package prekey
