package api

import (
	"errors"
	"fmt"
	"time"
)

// ErrStaleCiphertext signals that the enclave rotated its encryption key
// after the client cached its session. The dispatcher recovers from it by
// invalidating the session cache and retrying the call exactly once; it is
// surfaced to the caller only when the retry fails the same way.
var ErrStaleCiphertext = errors.New("stale ciphertext: enclave encryption key rotated")

// SessionFetchError is returned when GET /session answers non-2xx.
type SessionFetchError struct {
	Status int
}

func (e *SessionFetchError) Error() string {
	return fmt.Sprintf("session endpoint returned status %d", e.Status)
}

// MetaFetchError is returned when GET /meta answers non-2xx.
type MetaFetchError struct {
	Status int
}

func (e *MetaFetchError) Error() string {
	return fmt.Sprintf("meta endpoint returned status %d", e.Status)
}

// RequestTimeoutError is returned when a network operation exceeds the
// configured deadline. The core never retries timeouts; a caller may.
type RequestTimeoutError struct {
	Timeout time.Duration
}

func (e *RequestTimeoutError) Error() string {
	return fmt.Sprintf("request timed out after %dms", e.Timeout.Milliseconds())
}

// APIError is returned when a plain operation answers non-2xx (404 excepted,
// which is treated as operation-not-supported rather than an error).
type APIError struct {
	Status int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("operation returned status %d", e.Status)
}

// AttestedAPIError is returned when an attested operation answers non-2xx.
// It carries the response body text for diagnosis, since attested failures
// often include enclave-side detail.
type AttestedAPIError struct {
	Status int
	Body   string
}

func (e *AttestedAPIError) Error() string {
	return fmt.Sprintf("attested operation returned status %d: %s", e.Status, e.Body)
}

// IntegrityVerificationError is returned by Intent.Confirm when the result's
// signature does not verify against the session integrity key. Verify itself
// never returns an error; it reports false.
type IntegrityVerificationError struct {
	RequestID string
}

func (e *IntegrityVerificationError) Error() string {
	return fmt.Sprintf("intent integrity verification failed (request %s)", e.RequestID)
}
