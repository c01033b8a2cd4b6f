// Package jobs owns the clip job record, its status graph, and the store that
// every other component reads and writes through.
//
// The store keeps one immutable snapshot per job. Writers never edit a
// snapshot in place: Update hands the mutator a private deep copy, validates
// the result against the previous snapshot (legal status move, append-only
// logs and candidates, write-once transcript and URLs), mirrors it to SQLite
// and only then swaps it in. Readers therefore always see a whole committed
// record and never wait on stage work or disk I/O.
//
// Commits are serialized, and commit observers run in commit order, so the
// event hub and notifiers see transitions exactly as they were applied.
package jobs
