package types

// DjbType is the type prefix of a serialized Curve25519 public key.
const DjbType = 0x05

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

// Slice returns the key as a []byte.
func (p X25519Public) Slice() []byte { return p[:] }

// Serialize returns the key prefixed with DjbType. This is the form that
// signed pre-key signatures cover.
func (p X25519Public) Serialize() []byte {
	out := make([]byte, 0, len(p)+1)
	out = append(out, DjbType)
	return append(out, p[:]...)
}

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

// Slice returns the key as a []byte.
func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is an Ed25519 signing public key.
type Ed25519Public [32]byte

// Slice returns the key as a []byte.
func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is an Ed25519 signing private key.
type Ed25519Private [64]byte

// Slice returns the key as a []byte.
func (k Ed25519Private) Slice() []byte { return k[:] }

// KeyPair is a Curve25519 key pair.
type KeyPair struct {
	Public  X25519Public  `json:"pub"`
	Private X25519Private `json:"priv"`
}
