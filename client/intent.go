package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/sonalabs/sona-go/api"
	"github.com/sonalabs/sona-go/cryptoutils"
)

// SendFunc hands verified intents to a signer or broadcaster. It is only
// ever invoked through Intent.Confirm, after a passing signature check.
type SendFunc func(ctx context.Context, intents []*Intent) (json.RawMessage, error)

// Intent is an attested result before trust is established: the enclave's
// signable artifact together with its attestation, still unverified. It is
// constructed directly from the operation response and pins the integrity
// public key of the session that was active when the request was sent, so
// verification cannot be redirected by a later key fetch.
type Intent struct {
	// TransactionB64 is the signable payload, base64 — a serialized
	// transaction or equivalent opaque artifact.
	TransactionB64 string

	// Attestation carries the integrity signature and optional proof
	// material.
	Attestation *api.Attestation

	// Metadata is enclave-provided detail about the result.
	Metadata map[string]any

	// Data carries any auxiliary result returned alongside the artifact.
	Data json.RawMessage

	integrityPubKeyB64 string
	requestID          string
}

// Verify reports whether the intent's signature checks out against the
// pinned integrity key. It never returns an error: absent fields and decode
// failures report false. A contract check (all three inputs present) runs
// before any cryptographic work.
func (it *Intent) Verify() bool {
	if it == nil || it.Attestation == nil {
		return false
	}
	if it.TransactionB64 == "" || it.Attestation.SignatureB64 == "" || it.integrityPubKeyB64 == "" {
		return false
	}
	return cryptoutils.VerifyDetachedB64(it.TransactionB64, it.Attestation.SignatureB64, it.integrityPubKeyB64)
}

// Confirm enforces verify-before-use: it runs Verify and only on success
// hands the intent to send, returning send's result unchanged. On a failed
// verification it returns *api.IntegrityVerificationError and send is never
// invoked. This ordering is the core safety invariant of the engine.
func (it *Intent) Confirm(ctx context.Context, send SendFunc) (json.RawMessage, error) {
	if !it.Verify() {
		var requestID string
		if it != nil {
			requestID = it.requestID
		}
		return nil, &api.IntegrityVerificationError{RequestID: requestID}
	}
	return send(ctx, []*Intent{it})
}

// Transaction decodes the raw signable bytes. Going around Confirm with
// these bytes skips the integrity check; that risk is the caller's.
func (it *Intent) Transaction() ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(it.TransactionB64)
	if err != nil {
		return nil, fmt.Errorf("could not decode transaction payload: %w", err)
	}
	return raw, nil
}

// RequestID returns the envelope request id this intent answers.
func (it *Intent) RequestID() string {
	return it.requestID
}
