// Package placement implements the authoring-side field placement
// engine: creating, moving, editing, and removing fields on the
// document canvas, and keeping the signer roster in step with field
// assignments.
package placement

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/mesingh9719/docforge-sign/internal/document"
	"github.com/mesingh9719/docforge-sign/internal/roster"
)

// Engine owns the in-memory field list for a single authoring
// session. There is exactly one editor per document, so no locking.
type Engine struct {
	fields  []document.Field
	signers []document.Signer
	roster  *roster.Synchronizer
}

// NewEngine creates an empty placement engine.
func NewEngine() *Engine {
	return &Engine{roster: roster.NewSynchronizer()}
}

// CreateField places a new field of the given type at a percentage
// position on a page. The field starts unassigned; AssignField
// finalizes it. Order is the field count at creation time plus one
// and is never renumbered, even when earlier fields are removed.
func (e *Engine) CreateField(t document.FieldType, pageNumber int, pos document.Position) (document.Field, error) {
	if !t.Valid() {
		return document.Field{}, fmt.Errorf("unknown field type %q", t)
	}
	if pageNumber < 1 {
		return document.Field{}, fmt.Errorf("page number must be >= 1, got %d", pageNumber)
	}
	f := document.Field{
		ID:         uuid.NewString(),
		Type:       t,
		PageNumber: pageNumber,
		Position:   pos,
		Size:       document.DefaultSize(t),
		Metadata: document.FieldMetadata{
			Required: true,
			Order:    len(e.fields) + 1,
		},
	}
	e.fields = append(e.fields, f)
	return f, nil
}

// AssignField binds a field to a signer identified by name and email,
// creating the signer if the email is not yet on the roster. This is
// the only way signers enter the roster during authoring.
func (e *Engine) AssignField(fieldID, name, email string) (document.Signer, error) {
	if document.NormalizeEmail(email) == "" {
		return document.Signer{}, fmt.Errorf("signer email is required")
	}
	f := e.fieldByID(fieldID)
	if f == nil {
		return document.Signer{}, fmt.Errorf("field %s not found", fieldID)
	}
	signers, signer, _ := e.roster.Upsert(e.signers, name, email)
	e.signers = signers
	f.SignerID = signer.ID
	f.Metadata.SigneeName = name
	f.Metadata.SigneeEmail = email
	return signer, nil
}

// MoveField updates a field's page and position. Unknown ids are a
// silent no-op: a drag of a stale field handle must not surface an
// error mid-gesture.
func (e *Engine) MoveField(fieldID string, newPageNumber int, newPos document.Position) {
	f := e.fieldByID(fieldID)
	if f == nil {
		return
	}
	if newPageNumber >= 1 {
		f.PageNumber = newPageNumber
	}
	f.Position = newPos
}

// UpdateFieldMetadata merges metadata onto a field. A changed signee
// assignment re-resolves the signer against the roster.
func (e *Engine) UpdateFieldMetadata(fieldID string, meta document.FieldMetadata) error {
	f := e.fieldByID(fieldID)
	if f == nil {
		return fmt.Errorf("field %s not found", fieldID)
	}
	if changed := f.Metadata.Merge(meta); changed && document.NormalizeEmail(f.Metadata.SigneeEmail) != "" {
		signers, signer, _ := e.roster.Upsert(e.signers, f.Metadata.SigneeName, f.Metadata.SigneeEmail)
		e.signers = signers
		f.SignerID = signer.ID
	}
	return nil
}

// RemoveField deletes a field. Other fields keep their metadata
// order; numbering gaps are expected and harmless.
func (e *Engine) RemoveField(fieldID string) {
	for i := range e.fields {
		if e.fields[i].ID == fieldID {
			e.fields = append(e.fields[:i], e.fields[i+1:]...)
			return
		}
	}
}

// Fields returns a copy of the current field list.
func (e *Engine) Fields() []document.Field {
	out := make([]document.Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Signers returns a copy of the current roster.
func (e *Engine) Signers() []document.Signer {
	out := make([]document.Signer, len(e.signers))
	copy(out, e.signers)
	return out
}

// SendableFields returns the fields eligible for the authoring
// payload: those bound to a signer. Orphaned fields must be resolved
// or deleted before review.
func (e *Engine) SendableFields() []document.Field {
	var out []document.Field
	for _, f := range e.fields {
		if f.Assigned() {
			out = append(out, f)
		}
	}
	return out
}

// OrphanedFields returns the fields with no signer assignment.
func (e *Engine) OrphanedFields() []document.Field {
	var out []document.Field
	for _, f := range e.fields {
		if !f.Assigned() {
			out = append(out, f)
		}
	}
	return out
}

// SyncRoster runs roster synchronization at the authoring-to-review
// transition: prunes signers no field references and renumbers the
// survivors contiguously. Returns the reconciled roster.
func (e *Engine) SyncRoster() []document.Signer {
	e.signers = e.roster.Sync(e.fields, e.signers)
	return e.Signers()
}

func (e *Engine) fieldByID(id string) *document.Field {
	for i := range e.fields {
		if e.fields[i].ID == id {
			return &e.fields[i]
		}
	}
	return nil
}
