// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe through a toolexec.Runner and returns the parsed
// Result; Summarize reduces it to the duration, geometry and audio presence
// the analysis stage needs.
package ffprobe
