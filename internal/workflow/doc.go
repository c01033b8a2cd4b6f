// Package workflow drives clip jobs through the pipeline stages.
//
// The Manager accepts intake requests, runs the analysis phase in its own
// goroutine, and waits for a render trigger before running the render phase
// (audio enhancement, draft render, final render). Every stage runs under its
// own timeout inside a per-job context, so canceling one job kills only that
// job's tool subprocesses. The manager is the single place that commits stage
// results and failures to the job store, sends ntfy notifications, and records
// completed renders against the entitlement ledger.
//
// The render trigger is gated by the entitlement checker; a denial is returned
// to the caller as ErrRenderDenied and never touches the job.
package workflow
