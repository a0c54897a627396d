// Package client contains the transport side of the market list client.
//
// # Overview
//
// The package provides:
//  1. Transport-agnostic contracts: AuthClient (Ping, Register, CreateUser,
//     Login) and ListClient (List, Create, Update, Remove).
//  2. HTTPClient, a REST implementation over net/http that sends the bearer
//     token on every list call and maps non-2xx answers to *APIError.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring a
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Transport failures (no response) wrap ErrUnavailable. Non-2xx responses are
// *APIError values that unwrap to ErrUnauthorized, ErrNotFound or
// ErrUnavailable by status code. Malformed 2xx bodies wrap ErrBadResponse.
// No call is retried.
//
// # Concurrency & Contexts
//
// HTTPClient is safe for concurrent use. All operations accept a
// context.Context and stop when it is cancelled.
package client
