// Package entitlement decides whether a user may start a render and counts
// renders against the user's plan.
//
// Usage lives in the subscriptions table of the shared SQLite database. Each
// row carries the current period window; a period that has ended is reset
// lazily the next time the user is read. Users without a row are on the
// configured default plan.
package entitlement
