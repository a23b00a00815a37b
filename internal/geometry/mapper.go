// Package geometry converts between absolute pointer positions and
// page-relative percentage coordinates. Percentages are relative to
// the page box captured at page load; zoom is applied multiplicatively
// at render time and never stored.
package geometry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mesingh9719/docforge-sign/internal/document"
)

// ErrUntrackedPage is returned when a drop or lookup targets a page
// the mapper has no rect for, e.g. a drop into the margin. Callers
// treat it as a rejected operation, not a user-facing error.
var ErrUntrackedPage = errors.New("page is not tracked")

// PageRect is the bounding rectangle of a rendered page element in
// layout pixels, captured once per page load at scale 1.0.
type PageRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Mapper tracks rendered page rects and converts pointer geometry to
// stored percentage coordinates and back.
type Mapper struct {
	pages map[int]PageRect
}

// NewMapper creates an empty mapper with no tracked pages.
func NewMapper() *Mapper {
	return &Mapper{pages: make(map[int]PageRect)}
}

// TrackPage registers the rendered rect for a 1-based page number.
// Re-tracking a page replaces its rect, which happens on reflow.
func (m *Mapper) TrackPage(pageNumber int, rect PageRect) error {
	if pageNumber < 1 {
		return fmt.Errorf("page number must be >= 1, got %d", pageNumber)
	}
	if rect.Width <= 0 || rect.Height <= 0 {
		return fmt.Errorf("page %d rect has non-positive dimensions %gx%g", pageNumber, rect.Width, rect.Height)
	}
	m.pages[pageNumber] = rect
	return nil
}

// TrackDocumentPages registers every page's media box as its rect at
// the origin and scale 1.0. This seeds the registry from the
// inspected PDF before any layout pass; re-tracking with rendered
// rects replaces the seeds page by page.
func (m *Mapper) TrackDocumentPages(pages []document.Page) error {
	for _, p := range pages {
		if err := m.TrackPage(p.Number, PageRect{Width: p.Width, Height: p.Height}); err != nil {
			return err
		}
	}
	return nil
}

// TrackedPages returns the tracked page numbers in ascending order.
func (m *Mapper) TrackedPages() []int {
	out := make([]int, 0, len(m.pages))
	for n := range m.pages {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// PageRect returns the tracked rect for a page.
func (m *Mapper) PageRect(pageNumber int) (PageRect, error) {
	rect, ok := m.pages[pageNumber]
	if !ok {
		return PageRect{}, ErrUntrackedPage
	}
	return rect, nil
}

// ToPercent converts an absolute pointer position into percentage
// coordinates relative to the page's tracked rect. The result is not
// clamped: a drop at the very edge of a page may legitimately compute
// slightly negative or over-100 values, and clamping here would make
// the round trip lossy.
func (m *Mapper) ToPercent(pageNumber int, pointerX, pointerY float64) (document.Position, error) {
	rect, ok := m.pages[pageNumber]
	if !ok {
		return document.Position{}, ErrUntrackedPage
	}
	return document.Position{
		X: (pointerX - rect.Left) / rect.Width * 100,
		Y: (pointerY - rect.Top) / rect.Height * 100,
	}, nil
}

// ToAbsolute reconstructs an absolute position from stored
// percentages at the given zoom scale. The tracked rect is the base
// geometry; zoom scales it multiplicatively.
func (m *Mapper) ToAbsolute(pageNumber int, pos document.Position, zoom float64) (x, y float64, err error) {
	rect, ok := m.pages[pageNumber]
	if !ok {
		return 0, 0, ErrUntrackedPage
	}
	if zoom <= 0 {
		zoom = 1
	}
	x = rect.Left + pos.X/100*rect.Width*zoom
	y = rect.Top + pos.Y/100*rect.Height*zoom
	return x, y, nil
}

// ClampForDisplay limits a position to [0,100] for rendering. Stored
// positions are never clamped; this is display-only.
func ClampForDisplay(pos document.Position) document.Position {
	return document.Position{
		X: clamp(pos.X, 0, 100),
		Y: clamp(pos.Y, 0, 100),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
