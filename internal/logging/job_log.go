package logging

import (
	"io"
	"log/slog"
)

// JobLogger tees base into a JSON log file dedicated to one job. The returned
// closer releases the file; it is safe to call on a nop result.
func JobLogger(base *slog.Logger, path string) (*slog.Logger, io.Closer, error) {
	if base == nil {
		base = NewNop()
	}
	file, err := openLogFile(path)
	if err != nil {
		return base, nopCloser{}, err
	}
	handler := newJSONHandler(file, slog.LevelDebug, false)
	return TeeLogger(base, handler), file, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
