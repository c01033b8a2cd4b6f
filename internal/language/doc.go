// Package language normalizes the language names and codes that show up in
// configuration and container metadata into the ISO 639-1 codes whisper-cli
// accepts for its -l flag.
package language
