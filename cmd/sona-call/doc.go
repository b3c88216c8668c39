// Command sona-call is a command-line client for Sona enclave deployments.
//
// It exposes three subcommands: "session" prints the enclave's current
// public keys, "routes" lists the operations available to the configured
// credential, and "call" invokes an operation with JSON parameters, running
// the full sealed-envelope protocol for attested routes and printing the
// resulting intent together with its verification status.
//
// Credentials can come from flags, environment variables (SONA_BASE_URL,
// SONA_API_KEY, SONA_WALLET, SONA_ORIGIN) or a .env file in the working
// directory.
package main
