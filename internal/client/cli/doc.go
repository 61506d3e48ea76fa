// Package cli provides the interactive voucher-auth operator client.
//
// It wires configuration and the REST client into a small REPL for working
// with user accounts: registering, logging in, redeeming verification tokens,
// resetting passwords, listing users and editing preference tags.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See runREPL for the command set.
package cli
