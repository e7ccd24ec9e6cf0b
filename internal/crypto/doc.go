// Package crypto exposes the minimal primitives used by signet.
//
// Contents
//
//   - X25519 key generation with clamping (GenerateX25519)
//   - Ed25519 key generation, signing and verification (GenerateEd25519,
//     SignEd25519, VerifyEd25519)
//   - Curve, the key pair generator and signer injected into the pre-key
//     service, and VerifySignedPreKey for checking its output
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// All functions return fixed-size array types defined in internal/domain to
// avoid accidental reallocations. Callers should treat returned secrets as
// sensitive and rely on Wipe when practical to reduce lifetime in memory.
package crypto
