package storage

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"clipforge/internal/services"
)

// Storage is what the pipeline needs from object storage.
type Storage interface {
	Resolve(key string) (string, error)
	JobDir(jobID string) (string, error)
	SignedURL(jobID, name string) (string, error)
}

var (
	// ErrBadSignature is returned when a download URL fails verification.
	ErrBadSignature = errors.New("invalid signature")
	// ErrExpired is returned for a download URL past its expiry.
	ErrExpired = errors.New("link expired")
)

// Options configure Local storage.
type Options struct {
	UploadDir     string
	OutputDir     string
	PublicBaseURL string
	SigningKey    string
	TTL           time.Duration
	Now           func() time.Time
}

// Local keeps uploads and outputs on the local filesystem.
type Local struct {
	uploadDir string
	outputDir string
	baseURL   string
	key       []byte
	ttl       time.Duration
	now       func() time.Time
}

// NewLocal returns local storage. Without a signing key a random one is
// generated, so URLs stop verifying after a restart.
func NewLocal(opts Options) (*Local, error) {
	if strings.TrimSpace(opts.UploadDir) == "" || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "", "storage", "upload and output directories are required", nil)
	}
	key := []byte(opts.SigningKey)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
	}
	if opts.TTL <= 0 {
		opts.TTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Local{
		uploadDir: filepath.Clean(opts.UploadDir),
		outputDir: filepath.Clean(opts.OutputDir),
		baseURL:   strings.TrimRight(opts.PublicBaseURL, "/"),
		key:       key,
		ttl:       opts.TTL,
		now:       opts.Now,
	}, nil
}

// Resolve maps a source key to an existing file under the upload directory.
func (l *Local) Resolve(key string) (string, error) {
	cleaned, err := cleanRelative(key)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "intake", "source key", err.Error(), nil)
	}
	path := filepath.Join(l.uploadDir, cleaned)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", services.Wrap(services.ErrNotFound, "intake", "source key", fmt.Sprintf("%q not found", key), nil)
		}
		return "", fmt.Errorf("stat source: %w", err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "intake", "source key", fmt.Sprintf("%q is a directory", key), nil)
	}
	return path, nil
}

// JobDir returns (and creates) the job-scoped output directory.
func (l *Local) JobDir(jobID string) (string, error) {
	if _, err := cleanName(jobID); err != nil {
		return "", err
	}
	dir := filepath.Join(l.outputDir, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create job dir: %w", err)
	}
	return dir, nil
}

// OutputPath returns the file path for a job output, for serving downloads.
func (l *Local) OutputPath(jobID, name string) (string, error) {
	if _, err := cleanName(jobID); err != nil {
		return "", err
	}
	if _, err := cleanName(name); err != nil {
		return "", err
	}
	return filepath.Join(l.outputDir, jobID, name), nil
}

// SignedURL builds an expiring download URL for a job output file.
func (l *Local) SignedURL(jobID, name string) (string, error) {
	if _, err := cleanName(jobID); err != nil {
		return "", err
	}
	if _, err := cleanName(name); err != nil {
		return "", err
	}
	expires := l.now().Add(l.ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("sig", l.sign(jobID, name, expires))
	return fmt.Sprintf("%s/files/%s/%s?%s", l.baseURL, url.PathEscape(jobID), url.PathEscape(name), q.Encode()), nil
}

// Verify checks a download request's expiry and signature.
func (l *Local) Verify(jobID, name, expires, sig string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil {
		return ErrBadSignature
	}
	want := l.sign(jobID, name, exp)
	if !hmac.Equal([]byte(want), []byte(sig)) {
		return ErrBadSignature
	}
	if l.now().Unix() > exp {
		return ErrExpired
	}
	return nil
}

func (l *Local) sign(jobID, name string, expires int64) string {
	mac := hmac.New(sha256.New, l.key)
	fmt.Fprintf(mac, "%s/%s/%d", jobID, name, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// cleanRelative rejects absolute keys and any key escaping its root.
func cleanRelative(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("empty key")
	}
	if filepath.IsAbs(key) || strings.HasPrefix(key, "/") {
		return "", errors.New("absolute keys are not allowed")
	}
	cleaned := filepath.Clean(key)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errors.New("key escapes the upload directory")
	}
	return cleaned, nil
}

func cleanName(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", services.Wrap(services.ErrValidation, "", "storage", fmt.Sprintf("invalid name %q", name), nil)
	}
	return name, nil
}
