package filestorage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrInvalidSignature is returned for tampered or expired local URLs.
var ErrInvalidSignature = errors.New("invalid or expired signature")

// LocalStorage keeps blobs on the local filesystem, one directory per
// bucket. Signed URLs point at baseURL and carry an HMAC over
// bucket, path and expiry.
type LocalStorage struct {
	basePath string
	baseURL  string
	secret   []byte
	now      func() time.Time
	logger   zerolog.Logger
}

// NewLocalStorage creates the base directory if needed.
func NewLocalStorage(basePath, baseURL, secret string, logger zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}

	return &LocalStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
		secret:   []byte(secret),
		now:      time.Now,
		logger:   logger.With().Str("component", "localstorage").Logger(),
	}, nil
}

func (ls *LocalStorage) objectPath(bucket, path string) (string, error) {
	for _, part := range []string{bucket, path} {
		if part == "" || part == "." || part == ".." || strings.ContainsAny(part, `/\`) {
			return "", fmt.Errorf("invalid object key %q/%q", bucket, path)
		}
	}
	return filepath.Join(ls.basePath, bucket, path), nil
}

// Put writes through a temp file and renames it over the target, so a
// reader never sees a half-written object.
func (ls *LocalStorage) Put(_ context.Context, obj Object) error {
	dst, err := ls.objectPath(obj.Bucket, obj.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create bucket directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, obj.Body); err != nil {
		tmp.Close()
		ls.logger.Error().Err(err).Str("path", dst).Msg("Failed to copy uploaded file content")
		return fmt.Errorf("failed to save file content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to flush file: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}

	ls.logger.Debug().Str("bucket", obj.Bucket).Str("path", obj.Path).Msg("File saved")
	return nil
}

// Get opens the stored object.
func (ls *LocalStorage) Get(_ context.Context, bucket, path string) (io.ReadCloser, error) {
	src, err := ls.objectPath(bucket, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	return f, nil
}

// Delete removes the object; a missing file counts as deleted.
func (ls *LocalStorage) Delete(_ context.Context, bucket, path string) error {
	target, err := ls.objectPath(bucket, path)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		ls.logger.Error().Err(err).Str("path", target).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SignedURL returns baseURL/bucket/path?expires=..&signature=..
func (ls *LocalStorage) SignedURL(_ context.Context, bucket, path string, ttl time.Duration) (string, error) {
	if _, err := ls.objectPath(bucket, path); err != nil {
		return "", err
	}
	expires := ls.now().Add(ttl).Unix()
	q := url.Values{}
	q.Set("expires", strconv.FormatInt(expires, 10))
	q.Set("signature", ls.sign(bucket, path, expires))
	return fmt.Sprintf("%s/%s/%s?%s", ls.baseURL, url.PathEscape(bucket), url.PathEscape(path), q.Encode()), nil
}

// Verify checks a signature produced by SignedURL.
func (ls *LocalStorage) Verify(bucket, path, expires, signature string) error {
	exp, err := strconv.ParseInt(expires, 10, 64)
	if err != nil || ls.now().Unix() > exp {
		return ErrInvalidSignature
	}
	want := ls.sign(bucket, path, exp)
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (ls *LocalStorage) sign(bucket, path string, expires int64) string {
	mac := hmac.New(sha256.New, ls.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d", bucket, path, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// EnsureBucket creates the bucket directory.
func (ls *LocalStorage) EnsureBucket(_ context.Context, bucket string) error {
	dir, err := ls.objectPath(bucket, "probe")
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Dir(dir), 0o755)
}
