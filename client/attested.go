package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonalabs/sona-go/api"
	"github.com/sonalabs/sona-go/cryptoutils"
)

// runAttested executes an attested operation: fetch (or reuse) the session,
// seal the request envelope to the enclave's encryption key, POST it, and
// wrap the signed result in an unverified Intent. Each stage is timed for
// diagnostics; timings never affect control flow.
func (c *Client) runAttested(ctx context.Context, routeKey string, params map[string]any) (*Result, error) {
	var tm Timing

	stage := time.Now()
	sess, err := c.sessions.Get(ctx)
	if err != nil {
		return nil, err
	}
	tm.SessionMs = msSince(stage)

	stage = time.Now()
	requestID := uuid.NewString()
	envelope := api.SealedEnvelope{
		Envelope: api.Envelope{
			IssuedAt:  time.Now().UnixMilli(),
			RequestID: requestID,
			Origin:    c.cfg.Origin,
		},
		Context: api.CallContext{
			Wallet: c.cfg.Wallet,
			Origin: c.cfg.Origin,
		},
		Params: params,
	}
	plaintext, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("could not encode envelope: %w", err)
	}
	encKey, err := sess.EncryptionKey()
	if err != nil {
		return nil, err
	}
	ciphertext, err := cryptoutils.SealAnonymous(plaintext, encKey)
	if err != nil {
		return nil, err
	}
	tm.SealMs = msSince(stage)

	reqBody := api.AttestedRequest{
		Encrypted:          base64.StdEncoding.EncodeToString(ciphertext),
		Hint:               params,
		IncludeAttestation: c.cfg.IncludeAttestation,
	}

	stage = time.Now()
	status, respBody, header, err := c.post(ctx, routeKey, reqBody, requestID)
	if err != nil {
		return nil, err
	}
	tm.PostMs = msSince(stage)

	if status == http.StatusNotFound {
		c.log.Warn("operation not supported", "route", routeKey, "request_id", requestID)
		return nil, nil
	}
	if status < 200 || status > 299 {
		return nil, &api.AttestedAPIError{Status: status, Body: string(respBody)}
	}

	stage = time.Now()
	var resp api.AttestedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("could not parse attested response: %w", err)
	}
	tm.ParseMs = msSince(stage)
	tm.readServerHeaders(header)

	if resp.Error != "" {
		if strings.Contains(resp.Error, api.StaleCiphertextMessage) {
			return nil, api.ErrStaleCiphertext
		}
		return nil, fmt.Errorf("enclave reported error: %s", resp.Error)
	}

	intent := &Intent{
		TransactionB64: resp.TransactionB64,
		Attestation:    resp.Attestation,
		Metadata:       resp.Metadata,
		Data:           resp.Data,

		// The verification key is the integrity key of the session this
		// request was sealed under, not whatever a later fetch returns.
		integrityPubKeyB64: sess.IntegrityPubkeyB64,
		requestID:          requestID,
	}

	c.log.Debug("attested call complete",
		"route", routeKey,
		"request_id", requestID,
		"session_ms", tm.SessionMs,
		"seal_ms", tm.SealMs,
		"post_ms", tm.PostMs,
		"server_enclave_ms", tm.ServerEnclaveMs,
		"server_total_ms", tm.ServerTotalMs,
	)
	return &Result{Intent: intent, Timing: tm}, nil
}
