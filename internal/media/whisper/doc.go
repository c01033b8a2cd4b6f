// Package whisper transcribes audio with the whisper.cpp command line tool.
//
// whisper-cli is asked for full JSON output (-ojf). The file is validated
// against an embedded JSON schema before decoding so a tool upgrade that
// changes the layout fails loudly instead of producing an empty transcript.
package whisper
