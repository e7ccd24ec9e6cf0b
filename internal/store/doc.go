// Package store provides persistence for signet's key material.
//
// Pre-key records and the id cursors can live in one of three backends,
// each implementing domain.PreKeyStore, domain.SignedPreKeyStore and
// domain.CursorStore:
//   - PrekeyFileStore: JSON files, replaced atomically on every write and
//     guarded by a lock file while open
//   - BoltStore: a single bbolt database with CBOR-encoded records
//   - MemoryStore: process memory only
//
// The package also includes the passphrase-sealed identity store
// (IdentityFileStore) and the bundle cache (BundleFileStore). All methods
// are safe for concurrent use. In the file and bbolt backends a call that
// stores data returns only after the data is on disk.
package store
