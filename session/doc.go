// Package session implements the two client-side caches of the Sona
// protocol: the session store (the enclave's current public keys) and the
// route registry (which operations exist and whether each is attested).
//
// Both caches follow the same policy: one lazy network fetch, no TTL, and
// explicit invalidation as the only refresh path. Enclave keys and route
// metadata are long-lived; key rotation is detected through the protocol's
// stale-ciphertext signal, which causes the dispatcher to invalidate the
// session store and retry.
//
// Neither cache takes a lock. Each is a single atomic pointer with
// replace-or-clear semantics: concurrent cold-cache reads may fetch
// redundantly and the last write wins, which is an accepted inefficiency
// since every fetch returns the same data. Stores are plain values rather
// than package globals so tests and multi-deployment processes can hold
// independent instances.
package session
