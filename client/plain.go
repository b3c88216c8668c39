package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/sonalabs/sona-go/api"
)

// runPlain executes a non-attested operation: a straight JSON POST of the
// parameters, with the configured wallet merged in as a context block when
// the payload does not already carry one.
func (c *Client) runPlain(ctx context.Context, routeKey string, params map[string]any) (*Result, error) {
	body := make(map[string]any, len(params)+1)
	for k, v := range params {
		body[k] = v
	}
	if c.cfg.Wallet != "" {
		if _, ok := body["context"]; !ok {
			body["context"] = api.CallContext{Wallet: c.cfg.Wallet}
		}
	}

	status, respBody, _, err := c.post(ctx, routeKey, body, freshRequestID())
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		c.log.Warn("operation not supported", "route", routeKey)
		return nil, nil
	}
	if status < 200 || status > 299 {
		return nil, &api.APIError{Status: status}
	}

	// Deployments differ on whether results arrive wrapped in a data field
	// or raw. Unwrap when the wrapper is present.
	var envelope api.PlainResponse
	if err := json.Unmarshal(respBody, &envelope); err == nil && len(envelope.Data) > 0 {
		return &Result{Data: envelope.Data}, nil
	}
	return &Result{Data: respBody}, nil
}
