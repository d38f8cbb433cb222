package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStorage persists uploaded files on disk under a base directory and
// maps stored names to the public URLs they are served from.
type LocalStorage struct {
	baseDir   string
	urlPrefix string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir, urlPrefix string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

// SaveStream copies from reader into the target file path and returns the bytes written.
func (s *LocalStorage) SaveStream(filename string, r io.Reader) (int64, error) {
	target := s.Path(filename)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	n, err := io.Copy(file, r)
	if err != nil {
		return n, fmt.Errorf("write upload stream: %w", err)
	}
	return n, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	if err := os.Remove(s.Path(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// DeleteDir removes a directory of stored files and everything under it.
func (s *LocalStorage) DeleteDir(dir string) error {
	if err := os.RemoveAll(s.Path(dir)); err != nil {
		return fmt.Errorf("delete upload directory: %w", err)
	}
	return nil
}

// Path exposes the on-disk location of a stored name.
func (s *LocalStorage) Path(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(filename))
}

// URL returns the public URL for a stored name, e.g. "/uploads/doc_3/page_1.pdf".
func (s *LocalStorage) URL(filename string) string {
	return path.Join(s.urlPrefix, filepath.ToSlash(filename))
}

// NameFromURL reverses URL. It returns false when url is not under the storage prefix.
func (s *LocalStorage) NameFromURL(url string) (string, bool) {
	prefix := s.urlPrefix + "/"
	if !strings.HasPrefix(url, prefix) {
		return "", false
	}
	name := path.Clean(strings.TrimPrefix(url, prefix))
	if name == "." || strings.HasPrefix(name, "..") {
		return "", false
	}
	return name, true
}
