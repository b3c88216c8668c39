package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.uber.org/atomic"

	"github.com/sonalabs/sona-go/api"
)

// DefaultTimeout bounds every network operation when the caller does not
// supply its own.
const DefaultTimeout = 30 * time.Second

// Config carries the connection parameters shared by the session store and
// the route registry.
type Config struct {
	// BaseURL is the deployment base URL, without a trailing slash.
	BaseURL string

	// APIKey is sent as the x-api-key header when non-empty.
	APIKey string

	// Timeout bounds each fetch. Zero means DefaultTimeout.
	Timeout time.Duration

	// HTTPClient overrides http.DefaultClient, mainly for tests.
	HTTPClient *http.Client

	// Log receives fetch diagnostics. Nil means slog.Default().
	Log *slog.Logger
}

func (cfg *Config) normalize() {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
}

// Store caches the enclave's current public keys. The first Get performs one
// network fetch; every later Get returns the cached session without I/O until
// Invalidate clears it. There is no TTL: enclave keys live until the enclave
// restarts, and that condition is detected through the stale-ciphertext
// protocol signal rather than through expiry.
//
// Concurrent Gets racing a cold cache may each fetch; the last write wins.
// Both fetches return the same keys, so this is wasteful but harmless.
type Store struct {
	cfg Config
	cur atomic.Pointer[api.Session]
}

// NewStore creates a session store for one deployment.
func NewStore(cfg Config) *Store {
	cfg.normalize()
	return &Store{cfg: cfg}
}

// Get returns the cached session, fetching it from GET {baseUrl}/session on
// a cold cache. A non-2xx response fails with *api.SessionFetchError.
func (s *Store) Get(ctx context.Context) (*api.Session, error) {
	if cur := s.cur.Load(); cur != nil {
		return cur, nil
	}

	sess, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cur.Store(sess)
	s.cfg.Log.Debug("session cached", "mode", sess.Mode)
	return sess, nil
}

// Invalidate clears the cached session unconditionally. The next Get fetches
// a fresh one.
func (s *Store) Invalidate() {
	s.cur.Store(nil)
}

func (s *Store) fetch(ctx context.Context) (*api.Session, error) {
	status, body, err := doGet(ctx, &s.cfg, s.cfg.BaseURL+api.SessionPath)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &api.SessionFetchError{Status: status}
	}

	var parsed api.Session
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse session response: %w", err)
	}
	return &parsed, nil
}

// doGet issues a deadline-bounded GET with the credential header and reads
// the full response body. Deadline expiry is mapped to
// *api.RequestTimeoutError so callers can tell timeouts apart from
// HTTP-level failures.
func doGet(ctx context.Context, cfg *Config, url string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("could not build request: %w", err)
	}
	if cfg.APIKey != "" {
		req.Header.Set(api.APIKeyHeader, cfg.APIKey)
	}

	resp, err := cfg.HTTPClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, &api.RequestTimeoutError{Timeout: cfg.Timeout}
		}
		return 0, nil, fmt.Errorf("could not request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, nil, &api.RequestTimeoutError{Timeout: cfg.Timeout}
		}
		return 0, nil, fmt.Errorf("could not read response from %s: %w", url, err)
	}
	return resp.StatusCode, body, nil
}
