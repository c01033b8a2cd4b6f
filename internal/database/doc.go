// Package database opens the SQLite file shared by the job store and the
// entitlement ledger and provides the busy-retry and schema-version helpers
// both rely on.
//
// Each component owns its tables and registers a schema under its own name in
// the schema_version table. Bump the component's version whenever its DDL
// changes; a mismatch refuses to open rather than migrating in place.
package database
