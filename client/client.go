package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sonalabs/sona-go/api"
	"github.com/sonalabs/sona-go/session"
)

// Config holds the per-deployment settings of a Client.
type Config struct {
	// BaseURL is the deployment base URL, without a trailing slash.
	BaseURL string

	// APIKey is sent as the x-api-key header when non-empty.
	APIKey string

	// Wallet identifies the caller. For plain operations it is merged into
	// the request body as a context block unless the payload already has
	// one; for attested operations it travels inside the sealed envelope.
	Wallet string

	// Origin names the calling application inside sealed envelopes.
	Origin string

	// Timeout bounds every network operation. Zero means
	// session.DefaultTimeout (30s).
	Timeout time.Duration

	// ExtraHeaders are added to every outbound request.
	ExtraHeaders map[string]string

	// IncludeAttestation asks the enclave for full proof material on
	// attested responses instead of just the integrity signature.
	IncludeAttestation bool

	// HTTPClient overrides http.DefaultClient, mainly for tests.
	HTTPClient *http.Client

	// Log receives warnings and timing diagnostics. Nil means slog.Default().
	Log *slog.Logger
}

// Client is the attested-call protocol engine. It resolves operations
// through the route registry, runs plain operations as straight JSON POSTs,
// runs attested operations through the sealed-envelope protocol, and
// recovers once per call from an enclave key rotation.
type Client struct {
	cfg      Config
	sessions *session.Store
	routes   *session.RouteRegistry
	httpc    *http.Client
	log      *slog.Logger
}

// New creates a Client. The session and route caches start cold; nothing is
// fetched until the first call needs it.
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = session.DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}

	storeCfg := session.Config{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Timeout:    cfg.Timeout,
		HTTPClient: cfg.HTTPClient,
		Log:        cfg.Log,
	}
	return &Client{
		cfg:      cfg,
		sessions: session.NewStore(storeCfg),
		routes:   session.NewRouteRegistry(storeCfg),
		httpc:    cfg.HTTPClient,
		log:      cfg.Log,
	}
}

// Result is the outcome of one operation call. Exactly one of Data and
// Intent is set: Data for plain operations, Intent for attested ones. The
// Intent is unverified; callers must go through Intent.Confirm before acting
// on it.
type Result struct {
	Data   json.RawMessage
	Intent *Intent
	Timing Timing
}

// Call invokes the named operation, e.g. "transfer/execute". Unknown routes
// and HTTP 404 responses are not errors: both return (nil, nil) with a
// logged warning, so callers can probe for optional operations.
//
// If the enclave reports stale ciphertext on an attested call — its
// encryption key rotated after the session was cached — Call invalidates
// the session cache and retries exactly once. A second stale-ciphertext
// signal propagates as a terminal error.
func (c *Client) Call(ctx context.Context, routeKey string, params map[string]any) (*Result, error) {
	info, err := c.routes.Resolve(ctx, routeKey)
	if err != nil {
		return nil, err
	}
	if info == nil {
		c.log.Warn("operation not supported by this credential", "route", routeKey)
		return nil, nil
	}

	if !info.Attested {
		return c.runPlain(ctx, routeKey, params)
	}

	res, err := c.runAttested(ctx, routeKey, params)
	if errors.Is(err, api.ErrStaleCiphertext) {
		c.log.Info("enclave encryption key rotated, refreshing session and retrying", "route", routeKey)
		c.sessions.Invalidate()
		res, err = c.runAttested(ctx, routeKey, params)
	}
	return res, err
}

// CallPath invokes the operation named by ordered path segments,
// e.g. ["transfer", "execute"].
func (c *Client) CallPath(ctx context.Context, segments []string, params map[string]any) (*Result, error) {
	return c.Call(ctx, strings.Join(segments, "/"), params)
}

// Session returns the enclave's current public keys, fetching them on a
// cold cache.
func (c *Client) Session(ctx context.Context) (*api.Session, error) {
	return c.sessions.Get(ctx)
}

// Routes returns the full operation table known to this credential.
func (c *Client) Routes(ctx context.Context) (map[string]api.RouteInfo, error) {
	return c.routes.Known(ctx)
}

// InvalidateSession clears the cached session keys. The next attested call
// fetches fresh ones.
func (c *Client) InvalidateSession() {
	c.sessions.Invalidate()
}

// InvalidateRoutes clears the cached route metadata.
func (c *Client) InvalidateRoutes() {
	c.routes.Invalidate()
}

// post issues a deadline-bounded JSON POST to an operation route and reads
// the full response. requestID becomes the x-request-id header; attested
// calls reuse their envelope request id so server logs correlate.
func (c *Client) post(ctx context.Context, routeKey string, body any, requestID string) (int, []byte, http.Header, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("could not encode request body: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	url := c.cfg.BaseURL + "/" + routeKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, nil, fmt.Errorf("could not build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.RequestIDHeader, requestID)
	if c.cfg.APIKey != "" {
		req.Header.Set(api.APIKeyHeader, c.cfg.APIKey)
	}
	for name, value := range c.cfg.ExtraHeaders {
		req.Header.Set(name, value)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, nil, &api.RequestTimeoutError{Timeout: c.cfg.Timeout}
		}
		return 0, nil, nil, fmt.Errorf("could not request %s: %w", url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, nil, &api.RequestTimeoutError{Timeout: c.cfg.Timeout}
		}
		return 0, nil, nil, fmt.Errorf("could not read response from %s: %w", url, err)
	}
	return resp.StatusCode, respBody, resp.Header, nil
}

func freshRequestID() string {
	return uuid.NewString()
}
