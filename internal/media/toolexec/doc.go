// Package toolexec runs external media tools (ffmpeg, ffprobe, whisper-cli).
//
// Every command starts in its own process group so canceling a job kills the
// tool and anything it spawned without touching other jobs' processes.
// Callers depend on the Runner interface; tests substitute a fake.
package toolexec
