// Package cryptoutils provides the cryptographic primitives of the Sona
// client protocol: sealed-box encryption of request envelopes and Ed25519
// verification of attested results.
//
// The encryption scheme is the libsodium sealed box (crypto_box_seal),
// reproduced bit for bit so an enclave running independent software can
// decrypt it:
//
//   - X25519 for the ephemeral-to-recipient key agreement
//   - HSalsa20 with the "expand 32-byte k" constant for key derivation
//   - BLAKE2b-512 truncated to 24 bytes for the deterministic nonce over
//     ephemeralPub || recipientPub
//   - XSalsa20-Poly1305 (secretbox) for the authenticated encryption
//   - A fresh, single-use ephemeral key for every encryption
//
// # Encryption Format
//
// The sealed output follows this binary format:
//
//	[ephemeral public key (32 bytes)][ciphertext][poly1305 tag (16 bytes)]
//
// # Security Considerations
//
//   - The ephemeral key is generated per call and never reused, which is
//     the only reason the deterministic public-key-derived nonce is sound.
//   - Verification helpers never panic and never return an error; callers
//     branch on a boolean, and absent inputs verify as false.
//   - All functions are stateless and safe for concurrent use.
package cryptoutils
