package api

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Header constants used in HTTP requests and responses.
const (
	// APIKeyHeader carries the caller's credential, when one is configured.
	APIKeyHeader = "x-api-key"

	// RequestIDHeader carries a fresh correlation id per outbound request.
	RequestIDHeader = "x-request-id"

	// Server-reported processing times on attested responses, in
	// floating-point milliseconds. Diagnostic only.
	ServerContextMsHeader = "X-Sona-Server-Context-Ms"
	ServerEnclaveMsHeader = "X-Sona-Server-Enclave-Ms"
	ServerTotalMsHeader   = "X-Sona-Server-Total-Ms"
)

// Endpoint paths relative to the deployment base URL.
const (
	SessionPath = "/session"
	MetaPath    = "/meta"
)

// StaleCiphertextMessage is the error string the enclave reports when a
// sealed request was encrypted to a key it no longer holds.
const StaleCiphertextMessage = "stale ciphertext"

// Session holds the enclave's current public keys as returned by
// GET {baseUrl}/session. Keys are long-lived: a cached Session stays valid
// until the enclave restarts and the server reports stale ciphertext.
type Session struct {
	// EncryptionPubKeyB64 is the enclave's X25519 public key, base64.
	// Sealed request envelopes are encrypted to this key.
	EncryptionPubKeyB64 string `json:"encryptionPubKeyB64"`

	// IntegrityPubkeyB64 is the enclave's Ed25519 public key, base64.
	// Attested results are signed with the corresponding private key.
	IntegrityPubkeyB64 string `json:"integrityPubkeyB64"`

	// Mode describes the enclave deployment mode (e.g. "production").
	Mode string `json:"mode"`
}

// EncryptionKey decodes the enclave's encryption public key.
func (s *Session) EncryptionKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(s.EncryptionPubKeyB64)
	if err != nil {
		return nil, fmt.Errorf("could not decode session encryption key: %w", err)
	}
	return key, nil
}

// IntegrityKey decodes the enclave's integrity public key.
func (s *Session) IntegrityKey() (ed25519.PublicKey, error) {
	key, err := base64.StdEncoding.DecodeString(s.IntegrityPubkeyB64)
	if err != nil {
		return nil, fmt.Errorf("could not decode session integrity key: %w", err)
	}
	return ed25519.PublicKey(key), nil
}

// RouteInfo describes a single operation exposed by a deployment.
type RouteInfo struct {
	// Attested marks operations whose results are produced inside the
	// enclave and must travel through the sealed-envelope protocol.
	Attested bool `json:"attested"`
}

// Meta is the response of GET {baseUrl}/meta. Routes are keyed by the
// operation path with a leading slash, e.g. "/transfer/execute".
type Meta struct {
	Routes map[string]RouteInfo `json:"routes"`
}

// Envelope is the per-call identity block encrypted alongside the request
// parameters. A fresh RequestID is generated for every call.
type Envelope struct {
	IssuedAt  int64  `json:"issuedAt"` // unix milliseconds
	RequestID string `json:"requestId"`
	Origin    string `json:"origin"`
}

// CallContext identifies the caller on whose behalf an operation runs.
type CallContext struct {
	Wallet string `json:"wallet,omitempty"`
	Origin string `json:"origin,omitempty"`
}

// SealedEnvelope is the plaintext structure sealed to the enclave's
// encryption key for attested operations. It is never sent in the clear.
type SealedEnvelope struct {
	Envelope Envelope       `json:"envelope"`
	Context  CallContext    `json:"context"`
	Params   map[string]any `json:"params"`
}

// AttestedRequest is the wire body of an attested operation call.
type AttestedRequest struct {
	// Encrypted is the sealed envelope, base64.
	Encrypted string `json:"encrypted"`

	// Hint carries the non-secret request parameters in the clear for
	// server-side logging and validation. Never contains the envelope.
	Hint map[string]any `json:"hint,omitempty"`

	// IncludeAttestation asks the enclave to attach full proof material
	// to the response instead of just the integrity signature.
	IncludeAttestation bool `json:"includeAttestation,omitempty"`
}

// Attestation is the proof material attached to an attested response.
type Attestation struct {
	// SignatureB64 is the Ed25519 signature over the transaction bytes.
	SignatureB64 string `json:"signature"`

	// Proof is implementation-defined enclave evidence, passed through
	// opaquely. Present only when the request asked for it.
	Proof json.RawMessage `json:"proof,omitempty"`
}

// AttestedResponse is the wire body of an attested operation result.
type AttestedResponse struct {
	// Error is a server-reported protocol error. The distinguished value
	// StaleCiphertextMessage signals that the enclave's encryption key
	// rotated after the client cached its session.
	Error string `json:"error,omitempty"`

	// TransactionB64 is the signable artifact produced by the enclave
	// (a serialized transaction or equivalent opaque payload), base64.
	TransactionB64 string `json:"transaction,omitempty"`

	Attestation *Attestation   `json:"attestation,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	// Data carries any auxiliary result alongside the transaction.
	Data json.RawMessage `json:"data,omitempty"`
}

// PlainResponse is the response envelope of a non-attested operation.
// Deployments either wrap the result in a "data" field or return it raw;
// callers should prefer Data when present.
type PlainResponse struct {
	Data json.RawMessage `json:"data,omitempty"`
}
