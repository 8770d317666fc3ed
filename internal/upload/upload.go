// Package upload stores complaint photos on local disk and serves them back.
package upload

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/frahmantamala/civic-complaints/internal"
	"github.com/google/uuid"
)

const (
	ErrCodeUnsupportedImage internal.ErrorCode = "UNSUPPORTED_IMAGE"
	ErrCodeImageTooLarge    internal.ErrorCode = "IMAGE_TOO_LARGE"
)

var allowedTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

type Store struct {
	dir        string
	publicPath string
	maxBytes   int64
	logger     *slog.Logger
}

func NewStore(cfg internal.UploadConfig, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", cfg.Dir, err)
	}
	maxMB := cfg.MaxSizeMB
	if maxMB <= 0 {
		maxMB = 10
	}
	publicPath := "/" + strings.Trim(cfg.PublicPath, "/")
	return &Store{
		dir:        cfg.Dir,
		publicPath: publicPath,
		maxBytes:   maxMB << 20,
		logger:     logger,
	}, nil
}

func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

func (s *Store) PublicPath() string {
	return s.publicPath
}

// Save validates and writes the image, returning the public path stored on the complaint.
func (s *Store) Save(file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > s.maxBytes {
		return "", internal.NewValidationFieldError("image", fmt.Sprintf("image must not exceed %d MB", s.maxBytes>>20), ErrCodeImageTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	wantType, ok := allowedTypes[ext]
	if !ok {
		return "", internal.NewValidationFieldError("image", "only jpeg, jpg, png, gif and webp images are allowed", ErrCodeUnsupportedImage)
	}

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if got := http.DetectContentType(sniff[:n]); got != wantType {
		return "", internal.NewValidationFieldError("image", "file content does not match its extension", ErrCodeUnsupportedImage)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	name := uuid.NewString() + ext
	dst, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, io.LimitReader(file, s.maxBytes+1))
	if err != nil {
		_ = os.Remove(dst.Name())
		return "", fmt.Errorf("write upload: %w", err)
	}
	if written > s.maxBytes {
		_ = os.Remove(dst.Name())
		return "", internal.NewValidationFieldError("image", fmt.Sprintf("image must not exceed %d MB", s.maxBytes>>20), ErrCodeImageTooLarge)
	}

	s.logger.Info("image stored", "file", name, "bytes", written)
	return path.Join(s.publicPath, name), nil
}

// Remove deletes a file previously returned by Save. Paths outside the public path are
// refused and a file that is already gone is not an error.
func (s *Store) Remove(publicPath string) error {
	prefix := s.publicPath + "/"
	name := strings.TrimPrefix(publicPath, prefix)
	if name == publicPath || name == "" || strings.Contains(name, "/") || name == ".." {
		return fmt.Errorf("not a stored upload: %q", publicPath)
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove upload: %w", err)
	}
	s.logger.Info("image removed", "file", name)
	return nil
}

// Handler serves stored files under the public path.
func (s *Store) Handler() http.Handler {
	return http.StripPrefix(s.publicPath, http.FileServer(http.Dir(s.dir)))
}
