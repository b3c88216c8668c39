package cryptoutils

import (
	"crypto/ed25519"
	"encoding/base64"
)

// VerifyDetached reports whether sig is a valid Ed25519 signature over
// message under pub. It never panics or returns an error: any malformed
// input (empty message, wrong-length signature or key) reports false.
// Missing-input checks are contract checks, distinct from the cryptographic
// verification that follows them.
func VerifyDetached(message, sig, pub []byte) bool {
	if len(message) == 0 || len(sig) != ed25519.SignatureSize || len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub), message, sig)
}

// VerifyDetachedB64 decodes the base64 message, signature and public key and
// verifies them. Decode failures report false, matching VerifyDetached's
// non-throwing contract.
func VerifyDetachedB64(messageB64, sigB64, pubB64 string) bool {
	message, err := base64.StdEncoding.DecodeString(messageB64)
	if err != nil {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil {
		return false
	}
	pub, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil {
		return false
	}
	return VerifyDetached(message, sig, pub)
}
