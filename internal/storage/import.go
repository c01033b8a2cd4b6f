package storage

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"clipforge/internal/services"
)

var fileNameReplacer = strings.NewReplacer(
	"/", "-",
	"\\", "-",
	":", "-",
	"*", "-",
	"?", "",
	"\"", "",
	"<", "",
	">", "",
	"|", "",
)

// Import copies a local file into the upload directory under the user's
// prefix and returns the source key to submit. Existing keys are not
// overwritten.
func (l *Local) Import(src, userID string) (string, error) {
	info, err := os.Stat(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "intake", "import", fmt.Sprintf("%q not found", src), nil)
		}
		return "", fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "intake", "import", fmt.Sprintf("%q is a directory", src), nil)
	}
	name := sanitizeFileName(filepath.Base(src))
	if name == "" || name == "." || name == ".." {
		return "", services.Wrap(services.ErrValidation, "intake", "import", fmt.Sprintf("unusable file name %q", src), nil)
	}
	key := filepath.ToSlash(filepath.Join(sanitizeToken(userID), name))
	dst := filepath.Join(l.uploadDir, filepath.FromSlash(key))
	if _, err := os.Stat(dst); err == nil {
		return "", services.Wrap(services.ErrValidation, "intake", "import", fmt.Sprintf("key %q already exists", key), nil)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := copyVerified(src, dst, info.Size()); err != nil {
		return "", err
	}
	return key, nil
}

// copyVerified streams src to dst, hashing both sides, and removes dst on a
// size or digest mismatch.
func copyVerified(src, dst string, size int64) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHash := sha256.New()
	dstHash := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHash), io.TeeReader(in, srcHash))
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("copy source: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}
	if written != size {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", size, written)
	}
	if !bytes.Equal(srcHash.Sum(nil), dstHash.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

func sanitizeFileName(name string) string {
	return strings.TrimSpace(fileNameReplacer.Replace(strings.TrimSpace(name)))
}

// sanitizeToken lowercases value and keeps [a-z0-9_-]; anything else becomes
// an underscore.
func sanitizeToken(value string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(value) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_-")
	if out == "" {
		return "anonymous"
	}
	return out
}
