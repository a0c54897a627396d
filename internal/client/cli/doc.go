// Package cli provides the interactive market list command-line client.
//
// It wires configuration, the local credential database, the REST client and
// an interactive REPL. Every list command passes through the session guard
// first, so an expired or missing token always sends the user back to login,
// even when a list was shown before.
//
// Key features:
//   - register / signup / login / logout
//   - list, add, done, edit + save, delete
//   - export of the current list to JSON or CSV
//   - a background connectivity watcher shown in the prompt
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
