// Package daemon coordinates the long-running clipforge process.
//
// It ties configuration, the job store, the workflow manager, the event hub
// and the HTTP API into a single lifecycle with flock-based locking so only
// one daemon serves a state directory. The API server lives here too: it maps
// HTTP requests onto workflow operations, streams job events over SSE and
// serves signed output downloads.
//
// Keep orchestration logic here: pipeline stages live in their own packages
// while the daemon focuses on startup, shutdown and the outer surface.
package daemon
