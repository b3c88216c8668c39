/*
Package api defines the wire contract between the Sona client and a Sona
enclave deployment.

All communication is JSON over HTTP against three kinds of endpoints:

1. GET {baseUrl}/session - the enclave's current public keys
2. GET {baseUrl}/meta - the operations exposed to this credential
3. POST {baseUrl}/{proto}/{action} - an operation call, plain or attested

# Attested operations

Operations marked attested in the route metadata run inside a trusted
execution environment. Their request parameters travel inside a sealed
envelope encrypted to the enclave's X25519 key, and their results carry an
Ed25519 signature made with the enclave's integrity key. The request body
additionally carries the parameters in the clear as a logging hint; the
hint never includes the envelope identity block.

# Error taxonomy

Protocol failures are typed so callers can branch on them with errors.As:

  - SessionFetchError / MetaFetchError: the cache-feeding endpoints failed
  - RequestTimeoutError: a per-call deadline expired
  - APIError / AttestedAPIError: an operation answered non-2xx
  - IntegrityVerificationError: an attested result failed its signature check

ErrStaleCiphertext is the one recoverable condition: the enclave restarted
and rotated its encryption key, so the client's cached session no longer
matches. The dispatcher handles it internally with a single retry.

Operation-not-found (a route missing from the metadata, or an HTTP 404) is
deliberately not an error: callers may probe for optional operations, so
both surface as an absent result plus a logged warning.
*/
package api
