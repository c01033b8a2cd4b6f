// Package storage resolves uploaded source keys to local files and hands out
// signed, expiring download URLs for job outputs.
package storage
