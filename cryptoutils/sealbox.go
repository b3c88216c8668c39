package cryptoutils

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/salsa20/salsa"
)

const (
	// PublicKeySize is the size of an X25519 public key.
	PublicKeySize = 32

	// PrivateKeySize is the size of an X25519 private key.
	PrivateKeySize = 32

	// SealOverhead is the number of bytes SealAnonymous adds on top of the
	// plaintext: the ephemeral public key plus the Poly1305 tag.
	SealOverhead = PublicKeySize + secretbox.Overhead

	nonceSize = 24
)

// ErrSealOpen is returned by OpenAnonymous when the ciphertext does not
// authenticate under the recipient's key.
var ErrSealOpen = errors.New("could not open sealed box: authentication failed")

// EncryptionError indicates that a sealed box could not be constructed,
// typically because the recipient key is malformed.
type EncryptionError struct {
	Reason string
}

func (e *EncryptionError) Error() string {
	return "sealed box encryption failed: " + e.Reason
}

// GenerateSealKeyPair generates an X25519 key pair suitable for receiving
// sealed boxes. Used by the enclave simulator and by tests; the client side
// only ever encrypts to a key fetched from the session endpoint.
func GenerateSealKeyPair() (publicKey, privateKey []byte, err error) {
	privateKey = make([]byte, PrivateKeySize)
	if _, err := rand.Read(privateKey); err != nil {
		return nil, nil, fmt.Errorf("could not generate private key: %w", err)
	}
	publicKey, err = curve25519.X25519(privateKey, curve25519.Basepoint)
	if err != nil {
		return nil, nil, fmt.Errorf("could not derive public key: %w", err)
	}
	return publicKey, privateKey, nil
}

// SealAnonymous encrypts plaintext so that only the holder of the private
// key matching recipientPub can read it. The construction is the
// libsodium-compatible sealed box:
//
//  1. A fresh ephemeral X25519 key pair is generated for this one call.
//  2. The raw shared secret is the X25519 product of the ephemeral private
//     key and the recipient public key.
//  3. The symmetric key is HSalsa20(sharedSecret) with the "expand 32-byte k"
//     constant and an all-zero input block (key derivation, not encryption).
//  4. The nonce is BLAKE2b-512(ephemeralPub || recipientPub) truncated to
//     24 bytes. Deterministic nonces are safe here only because the
//     ephemeral key is never reused.
//  5. The plaintext is sealed with XSalsa20-Poly1305 under that key/nonce.
//
// Output layout: ephemeralPub(32) || ciphertext || tag(16). The enclave,
// running independent software, can decrypt it with crypto_box_seal_open.
//
// SealAnonymous keeps no state between calls and is safe for concurrent use.
func SealAnonymous(plaintext, recipientPub []byte) ([]byte, error) {
	if len(recipientPub) != PublicKeySize {
		return nil, &EncryptionError{Reason: fmt.Sprintf("recipient public key must be %d bytes, got %d", PublicKeySize, len(recipientPub))}
	}

	ephPriv := make([]byte, PrivateKeySize)
	if _, err := rand.Read(ephPriv); err != nil {
		return nil, &EncryptionError{Reason: "could not generate ephemeral key: " + err.Error()}
	}
	ephPub, err := curve25519.X25519(ephPriv, curve25519.Basepoint)
	if err != nil {
		return nil, &EncryptionError{Reason: "could not derive ephemeral public key: " + err.Error()}
	}

	key, err := sharedKey(ephPriv, recipientPub)
	if err != nil {
		return nil, &EncryptionError{Reason: err.Error()}
	}
	nonce := sealNonce(ephPub, recipientPub)

	out := make([]byte, 0, PublicKeySize+len(plaintext)+secretbox.Overhead)
	out = append(out, ephPub...)
	return secretbox.Seal(out, plaintext, &nonce, key), nil
}

// OpenAnonymous decrypts a sealed box produced by SealAnonymous (or any
// crypto_box_seal implementation) for the given recipient key pair.
func OpenAnonymous(sealed, recipientPub, recipientPriv []byte) ([]byte, error) {
	if len(recipientPub) != PublicKeySize || len(recipientPriv) != PrivateKeySize {
		return nil, errors.New("recipient key pair must be 32-byte X25519 keys")
	}
	if len(sealed) < SealOverhead {
		return nil, fmt.Errorf("sealed box too short: %d bytes", len(sealed))
	}

	ephPub := sealed[:PublicKeySize]
	key, err := sharedKey(recipientPriv, ephPub)
	if err != nil {
		return nil, err
	}
	nonce := sealNonce(ephPub, recipientPub)

	plaintext, ok := secretbox.Open(nil, sealed[PublicKeySize:], &nonce, key)
	if !ok {
		return nil, ErrSealOpen
	}
	return plaintext, nil
}

// sharedKey performs the X25519 agreement and the HSalsa20 key-derivation
// step, matching crypto_box_beforenm bit for bit. HSalsa20 interprets the
// shared secret as little-endian 32-bit words with the "expand 32-byte k"
// sigma constant and an all-zero 16-byte input block.
func sharedKey(privateKey, publicKey []byte) (*[32]byte, error) {
	secret, err := curve25519.X25519(privateKey, publicKey)
	if err != nil {
		return nil, fmt.Errorf("key agreement failed: %w", err)
	}

	var rawShared [32]byte
	copy(rawShared[:], secret)

	var key [32]byte
	var zeroBlock [16]byte
	salsa.HSalsa20(&key, &zeroBlock, &rawShared, &salsa.Sigma)
	return &key, nil
}

// sealNonce derives the sealed-box nonce as the first 24 bytes of
// BLAKE2b-512(ephemeralPub || recipientPub). The nonce depends only on the
// two public keys, never on caller data or a counter.
func sealNonce(ephPub, recipientPub []byte) [nonceSize]byte {
	h, _ := blake2b.New512(nil)
	h.Write(ephPub)
	h.Write(recipientPub)
	digest := h.Sum(nil)

	var nonce [nonceSize]byte
	copy(nonce[:], digest[:nonceSize])
	return nonce
}
