package placement

import (
	"fmt"

	"github.com/mesingh9719/docforge-sign/internal/document"
	"github.com/mesingh9719/docforge-sign/internal/geometry"
)

// Draggable is a toolbar item being dragged: an id, the field type it
// will create, and the pointer's current offset.
type Draggable struct {
	ID      string
	Type    document.FieldType
	OffsetX float64
	OffsetY float64
}

// Droppable is a drop target: anything that can accept a draggable
// payload at an absolute pointer position. Pages are the only
// droppables in the authoring canvas, but the interface keeps the
// engine independent of any particular pointer-event toolkit.
type Droppable interface {
	// TargetID identifies the drop target.
	TargetID() string
	// Accepts reports whether this target takes the payload.
	Accepts(t document.FieldType) bool
}

// pageTarget is the droppable for a single rendered page.
type pageTarget struct {
	pageNumber int
}

func (p pageTarget) TargetID() string                  { return fmt.Sprintf("page-%d", p.pageNumber) }
func (p pageTarget) Accepts(t document.FieldType) bool { return t.Valid() }

// Canvas wires the drag/drop surface to the placement engine and the
// coordinate mapper. It tracks one droppable per rendered page.
type Canvas struct {
	engine *Engine
	mapper *geometry.Mapper
	active *Draggable
}

// NewCanvas creates a canvas over an engine and mapper.
func NewCanvas(engine *Engine, mapper *geometry.Mapper) *Canvas {
	return &Canvas{engine: engine, mapper: mapper}
}

// OnDragStart records the active draggable for the gesture.
func (c *Canvas) OnDragStart(d Draggable) {
	c.active = &d
}

// OnDrop completes a drag gesture at an absolute pointer position
// over a page. A drop on an untracked page (the margin, the toolbar)
// is silently rejected: no field is created and no error surfaces,
// since the user simply missed the page. The created field, if any,
// still needs signer assignment before it is sendable.
func (c *Canvas) OnDrop(pageNumber int, pointerX, pointerY float64) (document.Field, bool) {
	d := c.active
	c.active = nil
	if d == nil {
		return document.Field{}, false
	}
	target := pageTarget{pageNumber: pageNumber}
	if !target.Accepts(d.Type) {
		return document.Field{}, false
	}
	pos, err := c.mapper.ToPercent(pageNumber, pointerX-d.OffsetX, pointerY-d.OffsetY)
	if err != nil {
		return document.Field{}, false
	}
	f, err := c.engine.CreateField(d.Type, pageNumber, pos)
	if err != nil {
		return document.Field{}, false
	}
	return f, true
}

// Dragging reports whether a drag gesture is in progress.
func (c *Canvas) Dragging() bool {
	return c.active != nil
}
