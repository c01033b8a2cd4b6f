// Package ffmpeg builds ffmpeg invocations for the clip pipeline: audio
// extraction for transcription, silence detection, audio enhancement, and the
// draft and final vertical renders.
//
// Outputs are written to a ".partial" sibling and renamed into place only
// after ffmpeg exits cleanly and the file is non-empty, so a failed or
// canceled render never leaves a half-written clip behind.
package ffmpeg
