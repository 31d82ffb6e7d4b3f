// Package upload stores roof design images submitted with the quote form.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cclenergy/solarquote/internal/config"
)

// ErrNotAllowed is returned for empty uploads and disallowed file types.
var ErrNotAllowed = errors.New("file type not allowed")

// Store saves uploads into a single directory under unique names.
type Store struct {
	dir     string
	allowed map[string]bool
	newID   func() string
}

// NewStore creates a Store from the upload configuration. The directory is
// created on first save.
func NewStore(cfg config.UploadConfig) *Store {
	allowed := make(map[string]bool, len(cfg.AllowedExtensions))
	for _, e := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	return &Store{
		dir:     cfg.Dir,
		allowed: allowed,
		newID:   func() string { return uuid.NewString() },
	}
}

// Dir returns the directory uploads are written to.
func (s *Store) Dir() string { return s.dir }

// Allowed reports whether filename has an allowed extension (case-insensitive).
func (s *Store) Allowed(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	return ext != "" && s.allowed[ext]
}

// Save writes the uploaded file and returns its path. The stored name is
// "<uuid>_<sanitised name>", so concurrent uploads never collide.
func (s *Store) Save(fh *multipart.FileHeader) (string, error) {
	if fh == nil || fh.Filename == "" || !s.Allowed(fh.Filename) {
		return "", ErrNotAllowed
	}
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	return s.SaveReader(fh.Filename, src)
}

// SaveReader stores r under a unique name derived from filename.
func (s *Store) SaveReader(filename string, r io.Reader) (string, error) {
	if !s.Allowed(filename) {
		return "", ErrNotAllowed
	}
	name := SecureFilename(filename)
	if name == "" || !s.Allowed(name) {
		return "", ErrNotAllowed
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(s.dir, s.newID()+"_"+name)
	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create upload: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path, nil
}

// SecureFilename reduces a client-supplied name to a safe base name: path
// components are dropped, whitespace becomes "_", characters outside
// [A-Za-z0-9_.-] are removed and leading dots and underscores are trimmed.
// The result may be empty.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range strings.Join(strings.Fields(name), "_") {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	return strings.TrimLeft(b.String(), "._")
}
