// Package preflight provides readiness checks for the filesystem paths and
// services clipforge depends on.
//
// The daemon runs RunAll at startup and logs every failed check as a warning;
// the CLI "clipforge deps" command prints the same results next to the tool
// checks. Checks for optional features are skipped when the feature is off.
package preflight
