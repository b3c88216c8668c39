package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/atomic"

	"github.com/sonalabs/sona-go/api"
)

// RouteRegistry caches the operation metadata of a deployment: which routes
// exist for this credential and whether each one is attested. Caching policy
// is identical to Store: one lazy fetch, unbounded TTL, wholesale replacement
// on Invalidate, never a partial update.
type RouteRegistry struct {
	cfg Config
	cur atomic.Pointer[api.Meta]
}

// NewRouteRegistry creates a route registry for one deployment.
func NewRouteRegistry(cfg Config) *RouteRegistry {
	cfg.normalize()
	return &RouteRegistry{cfg: cfg}
}

// Resolve looks up a route by its key, e.g. "transfer/execute". A missing
// route is not an error: it returns (nil, nil), and the caller decides how
// to surface "operation unknown to this credential". The metadata is fetched
// from GET {baseUrl}/meta on a cold cache; a non-2xx response fails with
// *api.MetaFetchError.
func (r *RouteRegistry) Resolve(ctx context.Context, routeKey string) (*api.RouteInfo, error) {
	meta := r.cur.Load()
	if meta == nil {
		fetched, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.cur.Store(fetched)
		r.cfg.Log.Debug("route metadata cached", "routes", len(fetched.Routes))
		meta = fetched
	}

	info, ok := meta.Routes["/"+routeKey]
	if !ok {
		return nil, nil
	}
	return &info, nil
}

// Known returns the full route table, fetching it on a cold cache. Keys
// carry their leading slash exactly as the meta endpoint reports them.
func (r *RouteRegistry) Known(ctx context.Context) (map[string]api.RouteInfo, error) {
	meta := r.cur.Load()
	if meta == nil {
		fetched, err := r.fetch(ctx)
		if err != nil {
			return nil, err
		}
		r.cur.Store(fetched)
		meta = fetched
	}
	return meta.Routes, nil
}

// Invalidate clears the cached metadata unconditionally.
func (r *RouteRegistry) Invalidate() {
	r.cur.Store(nil)
}

func (r *RouteRegistry) fetch(ctx context.Context) (*api.Meta, error) {
	status, body, err := doGet(ctx, &r.cfg, r.cfg.BaseURL+api.MetaPath)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &api.MetaFetchError{Status: status}
	}

	var parsed api.Meta
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse meta response: %w", err)
	}
	return &parsed, nil
}
