package cryptoutils

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyDetached(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	otherPub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("serialized transaction bytes")
	sig := ed25519.Sign(priv, message)

	require.True(t, VerifyDetached(message, sig, pub))

	flipped := append([]byte(nil), sig...)
	flipped[3] ^= 0x01

	testCases := []struct {
		name    string
		message []byte
		sig     []byte
		pub     []byte
	}{
		{name: "flipped signature bit", message: message, sig: flipped, pub: pub},
		{name: "wrong public key", message: message, sig: sig, pub: otherPub},
		{name: "different message", message: []byte("other payload"), sig: sig, pub: pub},
		{name: "empty message", message: nil, sig: sig, pub: pub},
		{name: "empty signature", message: message, sig: nil, pub: pub},
		{name: "truncated signature", message: message, sig: sig[:32], pub: pub},
		{name: "empty public key", message: message, sig: sig, pub: nil},
		{name: "truncated public key", message: message, sig: sig, pub: pub[:16]},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Must report false, never panic.
			require.False(t, VerifyDetached(tc.message, tc.sig, tc.pub))
		})
	}
}

func TestVerifyDetachedB64(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	message := []byte("attested artifact")
	sig := ed25519.Sign(priv, message)

	messageB64 := base64.StdEncoding.EncodeToString(message)
	sigB64 := base64.StdEncoding.EncodeToString(sig)
	pubB64 := base64.StdEncoding.EncodeToString(pub)

	require.True(t, VerifyDetachedB64(messageB64, sigB64, pubB64))

	require.False(t, VerifyDetachedB64("not-base64!!", sigB64, pubB64))
	require.False(t, VerifyDetachedB64(messageB64, "not-base64!!", pubB64))
	require.False(t, VerifyDetachedB64(messageB64, sigB64, "not-base64!!"))
	require.False(t, VerifyDetachedB64("", "", ""))
}
