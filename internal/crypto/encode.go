package crypto

import "encoding/base64"

// B64 returns standard base64 encoding without newlines. Serialized keys
// and signatures are printed this way.
func B64(b []byte) string { return base64.StdEncoding.EncodeToString(b) }
