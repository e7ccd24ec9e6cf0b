package types

// Identity is the long-term identity key pair of an account. EdPriv signs
// every signed pre-key; XPub is what peers pin.
type Identity struct {
	XPub   X25519Public   `json:"xpub"`
	XPriv  X25519Private  `json:"xpriv"`
	EdPub  Ed25519Public  `json:"edpub"`
	EdPriv Ed25519Private `json:"edpriv"`
}
