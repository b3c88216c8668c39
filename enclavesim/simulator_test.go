package enclavesim

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sonalabs/sona-go/api"
	"github.com/sonalabs/sona-go/cryptoutils"
)

func newTestSim(t *testing.T, cfg Config) (*Simulator, *httptest.Server) {
	t.Helper()
	if cfg.Log == nil {
		cfg.Log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sim, err := New(cfg)
	require.NoError(t, err)
	srv := httptest.NewServer(sim.Router())
	t.Cleanup(srv.Close)
	return sim, srv
}

func TestSessionEndpoint(t *testing.T) {
	sim, srv := newTestSim(t, Config{Mode: "unit"})

	resp, err := http.Get(srv.URL + api.SessionPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sess api.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	require.Equal(t, "unit", sess.Mode)

	encKey, err := sess.EncryptionKey()
	require.NoError(t, err)
	require.Len(t, encKey, cryptoutils.PublicKeySize)

	intKey, err := sess.IntegrityKey()
	require.NoError(t, err)
	require.Len(t, []byte(intKey), ed25519.PublicKeySize)
	require.Equal(t, sim.IntegrityPublicKey(), intKey)
}

func TestMetaEndpoint(t *testing.T) {
	sim, srv := newTestSim(t, Config{})
	sim.HandlePlain("a/b", func(body map[string]any) (any, error) { return nil, nil })
	sim.HandleAttested("c/d", func(envelope api.SealedEnvelope) ([]byte, map[string]any, error) {
		return nil, nil, nil
	})

	resp, err := http.Get(srv.URL + api.MetaPath)
	require.NoError(t, err)
	defer resp.Body.Close()

	var meta api.Meta
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&meta))
	require.Equal(t, api.RouteInfo{Attested: false}, meta.Routes["/a/b"])
	require.Equal(t, api.RouteInfo{Attested: true}, meta.Routes["/c/d"])
}

func TestAPIKeyEnforcement(t *testing.T) {
	_, srv := newTestSim(t, Config{APIKey: "sekrit"})

	resp, err := http.Get(srv.URL + api.SessionPath)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, srv.URL+api.SessionPath, nil)
	require.NoError(t, err)
	req.Header.Set(api.APIKeyHeader, "sekrit")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAttestedOperationSignsArtifact(t *testing.T) {
	sim, srv := newTestSim(t, Config{})
	sim.HandleAttested("sign/me", func(envelope api.SealedEnvelope) ([]byte, map[string]any, error) {
		return []byte("artifact bytes"), nil, nil
	})

	var sess api.Session
	resp, err := http.Get(srv.URL + api.SessionPath)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	resp.Body.Close()

	encKey, err := sess.EncryptionKey()
	require.NoError(t, err)
	plaintext, err := json.Marshal(api.SealedEnvelope{
		Envelope: api.Envelope{IssuedAt: 1, RequestID: "r1", Origin: "test"},
	})
	require.NoError(t, err)
	sealed, err := cryptoutils.SealAnonymous(plaintext, encKey)
	require.NoError(t, err)

	body, err := json.Marshal(api.AttestedRequest{
		Encrypted: base64.StdEncoding.EncodeToString(sealed),
	})
	require.NoError(t, err)
	resp, err = http.Post(srv.URL+"/sign/me", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(api.ServerTotalMsHeader))

	var result api.AttestedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Empty(t, result.Error)
	require.True(t, cryptoutils.VerifyDetachedB64(result.TransactionB64, result.Attestation.SignatureB64, sess.IntegrityPubkeyB64))
}

func TestRotatedKeyAnswersStale(t *testing.T) {
	sim, srv := newTestSim(t, Config{})
	sim.HandleAttested("sign/me", func(envelope api.SealedEnvelope) ([]byte, map[string]any, error) {
		return []byte("artifact"), nil, nil
	})

	var sess api.Session
	resp, err := http.Get(srv.URL + api.SessionPath)
	require.NoError(t, err)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sess))
	resp.Body.Close()
	encKey, err := sess.EncryptionKey()
	require.NoError(t, err)

	require.NoError(t, sim.RotateSealKeys())

	sealed, err := cryptoutils.SealAnonymous([]byte(`{}`), encKey)
	require.NoError(t, err)
	body, err := json.Marshal(api.AttestedRequest{Encrypted: base64.StdEncoding.EncodeToString(sealed)})
	require.NoError(t, err)

	resp, err = http.Post(srv.URL+"/sign/me", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var result api.AttestedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.Equal(t, api.StaleCiphertextMessage, result.Error)
}
