// Package events fans committed job snapshots out to streaming clients.
//
// The hub keeps a bounded, per-job buffer of events with increasing sequence
// numbers and wakes waiters on every publish. It is fed from the job store's
// commit observer, so events arrive in commit order.
package events
