// Package main hosts the clipforge CLI.
//
// The Cobra command tree runs the daemon in the foreground (serve), talks to a
// running daemon over its HTTP API for job operations, and handles the local
// chores that need no daemon: configuration scaffolding, dependency checks and
// plan administration against the state database.
package main
