// Package services defines shared utilities consumed by the pipeline stages
// and external tool wrappers.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and KindOf which maps a
//     failure onto the error kind recorded on a failed job.
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
