package session

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/sonalabs/sona-go/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStoreFetchesOnceAndCaches(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, api.SessionPath, r.URL.Path)
		require.Equal(t, "secret-key", r.Header.Get(api.APIKeyHeader))
		fetches.Inc()
		_ = json.NewEncoder(w).Encode(api.Session{
			EncryptionPubKeyB64: "ZW5j",
			IntegrityPubkeyB64:  "aW50",
			Mode:                "test",
		})
	}))
	defer srv.Close()

	store := NewStore(Config{BaseURL: srv.URL, APIKey: "secret-key", Log: testLogger()})

	ctx := context.Background()
	first, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "test", first.Mode)

	second, err := store.Get(ctx)
	require.NoError(t, err)
	require.Same(t, first, second)
	require.Equal(t, int64(1), fetches.Load())

	store.Invalidate()
	third, err := store.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), fetches.Load())
	require.Equal(t, first.Mode, third.Mode)
}

func TestStoreFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	store := NewStore(Config{BaseURL: srv.URL, Log: testLogger()})

	_, err := store.Get(context.Background())
	var fetchErr *api.SessionFetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusForbidden, fetchErr.Status)
}

func TestStoreTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	store := NewStore(Config{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, Log: testLogger()})

	_, err := store.Get(context.Background())
	var timeoutErr *api.RequestTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	require.Equal(t, 50*time.Millisecond, timeoutErr.Timeout)
}

func TestRouteRegistryResolve(t *testing.T) {
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, api.MetaPath, r.URL.Path)
		fetches.Inc()
		_ = json.NewEncoder(w).Encode(api.Meta{Routes: map[string]api.RouteInfo{
			"/a/b": {Attested: true},
			"/a/c": {Attested: false},
		}})
	}))
	defer srv.Close()

	registry := NewRouteRegistry(Config{BaseURL: srv.URL, Log: testLogger()})
	ctx := context.Background()

	info, err := registry.Resolve(ctx, "a/b")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.True(t, info.Attested)

	info, err = registry.Resolve(ctx, "a/c")
	require.NoError(t, err)
	require.NotNil(t, info)
	require.False(t, info.Attested)

	// A miss is not an error.
	info, err = registry.Resolve(ctx, "x/y")
	require.NoError(t, err)
	require.Nil(t, info)

	require.Equal(t, int64(1), fetches.Load())

	registry.Invalidate()
	_, err = registry.Resolve(ctx, "a/b")
	require.NoError(t, err)
	require.Equal(t, int64(2), fetches.Load())
}

func TestRouteRegistryEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.Meta{Routes: map[string]api.RouteInfo{}})
	}))
	defer srv.Close()

	registry := NewRouteRegistry(Config{BaseURL: srv.URL, Log: testLogger()})

	info, err := registry.Resolve(context.Background(), "a/b")
	require.NoError(t, err)
	require.Nil(t, info)
}

func TestRouteRegistryFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	registry := NewRouteRegistry(Config{BaseURL: srv.URL, Log: testLogger()})

	_, err := registry.Resolve(context.Background(), "a/b")
	var fetchErr *api.MetaFetchError
	require.ErrorAs(t, err, &fetchErr)
	require.Equal(t, http.StatusInternalServerError, fetchErr.Status)

	// Error responses must not be cached as metadata.
	_, err = registry.Resolve(context.Background(), "a/b")
	require.Error(t, err)
	require.False(t, errors.Is(err, context.DeadlineExceeded))
}
