// Package filestore persists the payroll document as a single UTF-8 JSON
// file, replaced atomically on every save.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	e "github.com/gartstein/payroll/internal/payroll/errors"
	"github.com/gartstein/payroll/internal/payroll/models"
	"go.uber.org/zap"
)

// Store reads and writes the document at Path.
type Store struct {
	path   string
	logger *zap.Logger
}

// New returns a Store for the document at path. The file does not need to exist.
func New(path string, logger *zap.Logger) *Store {
	return &Store{
		path:   path,
		logger: logger.Named("filestore"),
	}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Load reads the document. A missing file is the empty registry.
func (s *Store) Load(_ context.Context) (*models.Document, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Debug("document not found, starting empty", zap.String("path", s.path))
		return &models.Document{Employees: []models.Employee{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", e.ErrPersistence, s.path, err)
	}

	var doc models.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", e.ErrPersistence, s.path, err)
	}
	doc.Normalize()
	return &doc, nil
}

// Save writes doc to a temporary file next to the document and renames it
// over the previous version.
func (s *Store) Save(_ context.Context, doc *models.Document) error {
	doc.Normalize()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("%w: encode document: %w", e.ErrPersistence, err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file: %w", e.ErrPersistence, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %w", e.ErrPersistence, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %w", e.ErrPersistence, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", e.ErrPersistence, tmpName, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %w", e.ErrPersistence, s.path, err)
	}

	s.logger.Debug("document saved",
		zap.String("path", s.path),
		zap.Int("employees", len(doc.Employees)),
	)
	return nil
}
