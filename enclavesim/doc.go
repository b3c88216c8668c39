// Package enclavesim provides an in-process simulator of a Sona enclave
// deployment for tests and local development.
//
// The simulator implements the whole client-facing protocol surface:
// session keys, route metadata, plain operations, and attested operations
// with real sealed-envelope decryption and Ed25519 response signing. It can
// rotate its encryption key mid-test to reproduce an enclave restart, which
// is the only way to exercise the client's stale-ciphertext retry against a
// live peer.
//
// It is a test double in the same spirit as shipped mocks elsewhere in the
// module's dependencies: useful for protocol-complete testing, with no
// trusted-execution guarantees whatsoever.
package enclavesim
