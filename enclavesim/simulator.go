package enclavesim

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/flashbots/go-utils/httplogger"
	"github.com/go-chi/chi/v5"
	"go.uber.org/atomic"

	"github.com/sonalabs/sona-go/api"
	"github.com/sonalabs/sona-go/cryptoutils"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// PlainHandler implements the business logic of a non-attested operation.
type PlainHandler func(body map[string]any) (any, error)

// AttestedHandler implements the business logic of an attested operation.
// It receives the decrypted envelope and returns the signable artifact plus
// optional result metadata.
type AttestedHandler func(envelope api.SealedEnvelope) (artifact []byte, metadata map[string]any, err error)

// Config holds the simulator settings.
type Config struct {
	// Mode is reported in the session response, e.g. "simulated".
	Mode string

	// APIKey, when non-empty, is required as x-api-key on every request.
	APIKey string

	// Log receives request diagnostics. Nil means slog.Default().
	Log *slog.Logger
}

type sealKeyPair struct {
	pub  []byte
	priv []byte
}

// Simulator is an in-process stand-in for a Sona enclave deployment. It
// speaks the full client-facing protocol — session keys, route metadata,
// plain and attested operations, sealed-envelope decryption, Ed25519
// response signing — so tests and local development have a peer without a
// real trusted execution environment. It is a test double, not an enclave:
// keys live in ordinary process memory.
//
// RotateSealKeys reproduces an enclave restart: envelopes sealed to the old
// key stop decrypting and are answered with the stale-ciphertext signal.
//
// Route registration is not synchronized; register all operations before
// serving the router.
type Simulator struct {
	log    *slog.Logger
	mode   string
	apiKey string

	signPub  ed25519.PublicKey
	signPriv ed25519.PrivateKey
	sealKeys atomic.Pointer[sealKeyPair]

	// forceStale answers every attested call with the stale-ciphertext
	// signal, for exercising the client's terminal retry path.
	forceStale atomic.Bool

	routes      map[string]api.RouteInfo
	plainOps    map[string]PlainHandler
	attestedOps map[string]AttestedHandler
}

// New creates a simulator with fresh seal and integrity key pairs and no
// registered operations.
func New(cfg Config) (*Simulator, error) {
	if cfg.Mode == "" {
		cfg.Mode = "simulated"
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	signPub, signPriv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("could not generate integrity key: %w", err)
	}

	s := &Simulator{
		log:         cfg.Log,
		mode:        cfg.Mode,
		apiKey:      cfg.APIKey,
		signPub:     signPub,
		signPriv:    signPriv,
		routes:      make(map[string]api.RouteInfo),
		plainOps:    make(map[string]PlainHandler),
		attestedOps: make(map[string]AttestedHandler),
	}
	if err := s.RotateSealKeys(); err != nil {
		return nil, err
	}
	return s, nil
}

// HandlePlain registers a non-attested operation under a route key like
// "transfer/quote".
func (s *Simulator) HandlePlain(routeKey string, h PlainHandler) {
	s.routes["/"+routeKey] = api.RouteInfo{Attested: false}
	s.plainOps["/"+routeKey] = h
}

// HandleAttested registers an attested operation.
func (s *Simulator) HandleAttested(routeKey string, h AttestedHandler) {
	s.routes["/"+routeKey] = api.RouteInfo{Attested: true}
	s.attestedOps["/"+routeKey] = h
}

// Advertise registers a route in the metadata without an implementation.
// Calls to it answer 404, which is how a deployment exposes an operation
// the credential's tier cannot actually reach.
func (s *Simulator) Advertise(routeKey string, attested bool) {
	s.routes["/"+routeKey] = api.RouteInfo{Attested: attested}
}

// RotateSealKeys replaces the encryption key pair, as an enclave restart
// would. The integrity key is kept: deployments pin it across restarts.
func (s *Simulator) RotateSealKeys() error {
	pub, priv, err := cryptoutils.GenerateSealKeyPair()
	if err != nil {
		return fmt.Errorf("could not generate seal keys: %w", err)
	}
	s.sealKeys.Store(&sealKeyPair{pub: pub, priv: priv})
	return nil
}

// SetForceStale makes every attested call answer stale ciphertext while
// enabled, regardless of the actual key state.
func (s *Simulator) SetForceStale(v bool) {
	s.forceStale.Store(v)
}

// IntegrityPublicKey returns the Ed25519 key responses are signed with.
func (s *Simulator) IntegrityPublicKey() ed25519.PublicKey {
	return s.signPub
}

// Router returns the HTTP surface of the simulator.
func (s *Simulator) Router() http.Handler {
	mux := chi.NewRouter()
	mux.Use(s.httpLogger)
	mux.Get(api.SessionPath, s.handleSession)
	mux.Get(api.MetaPath, s.handleMeta)
	mux.Post("/{proto}/{action}", s.handleOperation)
	return mux
}

func (s *Simulator) httpLogger(next http.Handler) http.Handler {
	return httplogger.LoggingMiddlewareSlog(s.log, next)
}

func (s *Simulator) authorized(r *http.Request) bool {
	return s.apiKey == "" || r.Header.Get(api.APIKeyHeader) == s.apiKey
}

func (s *Simulator) handleSession(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}
	keys := s.sealKeys.Load()
	writeJSON(w, http.StatusOK, api.Session{
		EncryptionPubKeyB64: base64.StdEncoding.EncodeToString(keys.pub),
		IntegrityPubkeyB64:  base64.StdEncoding.EncodeToString(s.signPub),
		Mode:                s.mode,
	})
}

func (s *Simulator) handleMeta(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}
	writeJSON(w, http.StatusOK, api.Meta{Routes: s.routes})
}

func (s *Simulator) handleOperation(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	route := "/" + chi.URLParam(r, "proto") + "/" + chi.URLParam(r, "action")
	body, err := readBody(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if h, ok := s.attestedOps[route]; ok {
		s.runAttested(w, route, body, h)
		return
	}
	if h, ok := s.plainOps[route]; ok {
		s.runPlain(w, route, body, h)
		return
	}
	http.Error(w, "unknown operation", http.StatusNotFound)
}

func (s *Simulator) runPlain(w http.ResponseWriter, route string, body []byte, h PlainHandler) {
	params := map[string]any{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &params); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}
	}

	result, err := h(params)
	if err != nil {
		s.log.Error("plain operation failed", "route", route, "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": result})
}

func (s *Simulator) runAttested(w http.ResponseWriter, route string, body []byte, h AttestedHandler) {
	start := time.Now()

	var req api.AttestedRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	if s.forceStale.Load() {
		writeJSON(w, http.StatusOK, api.AttestedResponse{Error: api.StaleCiphertextMessage})
		return
	}

	ciphertext, err := base64.StdEncoding.DecodeString(req.Encrypted)
	if err != nil {
		http.Error(w, "malformed ciphertext encoding", http.StatusBadRequest)
		return
	}

	keys := s.sealKeys.Load()
	plaintext, err := cryptoutils.OpenAnonymous(ciphertext, keys.pub, keys.priv)
	if err != nil {
		// A request sealed to a previous key is indistinguishable from a
		// corrupted one; an enclave reports both as stale ciphertext and
		// lets the client refresh its session.
		s.log.Info("could not open sealed envelope", "route", route, "err", err)
		writeJSON(w, http.StatusOK, api.AttestedResponse{Error: api.StaleCiphertextMessage})
		return
	}

	var envelope api.SealedEnvelope
	if err := json.Unmarshal(plaintext, &envelope); err != nil {
		http.Error(w, "malformed envelope", http.StatusBadRequest)
		return
	}
	contextMs := msSince(start)

	enclaveStart := time.Now()
	artifact, metadata, err := h(envelope)
	if err != nil {
		s.log.Error("attested operation failed", "route", route, "err", err)
		writeJSON(w, http.StatusInternalServerError, api.AttestedResponse{Error: err.Error()})
		return
	}

	resp := api.AttestedResponse{
		TransactionB64: base64.StdEncoding.EncodeToString(artifact),
		Attestation: &api.Attestation{
			SignatureB64: base64.StdEncoding.EncodeToString(ed25519.Sign(s.signPriv, artifact)),
		},
		Metadata: metadata,
	}
	if req.IncludeAttestation {
		resp.Attestation.Proof = json.RawMessage(fmt.Sprintf(`{"mode":%q,"simulated":true}`, s.mode))
	}
	enclaveMs := msSince(enclaveStart)

	w.Header().Set(api.ServerContextMsHeader, formatMs(contextMs))
	w.Header().Set(api.ServerEnclaveMsHeader, formatMs(enclaveMs))
	w.Header().Set(api.ServerTotalMsHeader, formatMs(msSince(start)))
	writeJSON(w, http.StatusOK, resp)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("could not read request body: %w", err)
	}
	return body, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}

func formatMs(ms float64) string {
	return strconv.FormatFloat(ms, 'f', 3, 64)
}
