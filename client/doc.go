/*
Package client implements the Sona attested-call protocol engine.

A Client turns a named operation and a parameter map into either a plain
JSON result or an unverified Intent, depending on how the deployment's
route metadata classifies the operation:

	c := client.New(client.Config{
		BaseURL: "https://enclave.example.com",
		APIKey:  apiKey,
		Wallet:  "W1",
		Origin:  "my-app",
	})

	res, err := c.Call(ctx, "transfer/execute", map[string]any{"amount": 100})
	if err != nil {
		return err
	}
	if res == nil {
		// operation unknown to this credential, or HTTP 404
		return nil
	}
	if res.Intent != nil {
		out, err := res.Intent.Confirm(ctx, sendToSigner)
		...
	}

Attested operations run the sealed-envelope protocol: the parameters are
wrapped with a fresh request id, timestamp and caller context, encrypted to
the enclave's current X25519 key, and posted alongside a plaintext hint.
The signed result comes back as an Intent, which refuses to reach a signer
without a passing Ed25519 verification (Intent.Confirm).

The one recoverable failure is a stale ciphertext: the enclave restarted
and rotated its encryption key after the client cached its session. Call
handles it by invalidating the session cache and retrying exactly once.

All steps within one call are strictly sequential; concurrency safety
comes from the engine holding no mutable state outside the two
replace-or-clear caches in package session.
*/
package client
