// Package pdfinfo validates uploaded PDFs and reports page count and
// per-page box dimensions. Page dimensions seed the coordinate
// mapper's page registry so percentage positions refer to the
// original, unscaled page box.
//
// Two backends sit behind one interface: pdfcpu is preferred,
// ledongthuc/pdf is the fallback for files pdfcpu refuses.
package pdfinfo

import (
	"fmt"
	"os"
	"strings"
)

// Backend identifies the underlying PDF library.
type Backend string

const (
	BackendPDFCPU     Backend = "pdfcpu"
	BackendLedongthuc Backend = "ledongthuc"
)

// PageDim is one page's media box size in PDF points.
type PageDim struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Info describes an inspected PDF.
type Info struct {
	PageCount int       `json:"page_count"`
	Pages     []PageDim `json:"pages"`
	Backend   Backend   `json:"backend"`
}

// Inspector reads structural information from a PDF file.
type Inspector interface {
	Inspect(path string) (Info, error)
	Backend() Backend
}

// Service validates and inspects PDF files with a size limit and a
// backend fallback chain.
type Service struct {
	maxFileSize int64
	primary     Inspector
	fallback    Inspector
}

// NewService creates a service with the default backend chain.
func NewService(maxFileSize int64) *Service {
	return &Service{
		maxFileSize: maxFileSize,
		primary:     &pdfcpuInspector{},
		fallback:    &ledongthucInspector{},
	}
}

// Validate performs the upload gate: the file must exist, carry a
// .pdf extension, be non-empty, fit the size limit, and open as a
// PDF under at least one backend. On success it returns the
// inspection result so callers can seed page geometry without a
// second pass.
func (s *Service) Validate(path string) (Info, error) {
	if path == "" {
		return Info{}, fmt.Errorf("path cannot be empty")
	}

	fileInfo, err := os.Stat(path)
	if os.IsNotExist(err) {
		return Info{}, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return Info{}, fmt.Errorf("cannot access file: %w", err)
	}
	if fileInfo.IsDir() {
		return Info{}, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return Info{}, fmt.Errorf("file is not a PDF: %s", path)
	}
	if fileInfo.Size() == 0 {
		return Info{}, fmt.Errorf("file is empty: %s", path)
	}
	if fileInfo.Size() > s.maxFileSize {
		return Info{}, fmt.Errorf("file too large: %d bytes (max: %d bytes)", fileInfo.Size(), s.maxFileSize)
	}

	info, err := s.Inspect(path)
	if err != nil {
		return Info{}, fmt.Errorf("invalid PDF file: %w", err)
	}
	return info, nil
}

// IsValidPDF performs a quick validity check without surfacing the
// reason.
func (s *Service) IsValidPDF(path string) bool {
	_, err := s.Validate(path)
	return err == nil
}

// Inspect reads page count and page dimensions, preferring the
// primary backend and falling back when it fails.
func (s *Service) Inspect(path string) (Info, error) {
	info, primaryErr := s.primary.Inspect(path)
	if primaryErr == nil {
		return info, nil
	}
	info, fallbackErr := s.fallback.Inspect(path)
	if fallbackErr == nil {
		return info, nil
	}
	return Info{}, fmt.Errorf("%s: %w (fallback %s: %v)", s.primary.Backend(), primaryErr, s.fallback.Backend(), fallbackErr)
}
