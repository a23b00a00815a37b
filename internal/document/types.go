// Package document defines the core data model linking documents,
// signers, and placed fields. Fields are the source of truth for who
// needs to sign; the signer roster is derived from field assignments.
package document

import "strings"

// Status represents the lifecycle state of a document
type Status string

const (
	StatusDraft           Status = "draft"
	StatusSent            Status = "sent"
	StatusPartiallySigned Status = "partially_signed"
	StatusCompleted       Status = "completed"
)

// SignerStatus represents a signer's progress on a document
type SignerStatus string

const (
	SignerPending SignerStatus = "pending"
	SignerSigned  SignerStatus = "signed"
)

// FieldType identifies the kind of input a placed field collects
type FieldType string

const (
	FieldSignature FieldType = "signature"
	FieldInitials  FieldType = "initials"
	FieldDate      FieldType = "date"
	FieldText      FieldType = "text"
	FieldCheckbox  FieldType = "checkbox"
)

// FieldTypes lists every supported field type. Interaction dispatch
// must handle each of these; there is no open-ended variant.
var FieldTypes = []FieldType{
	FieldSignature,
	FieldInitials,
	FieldDate,
	FieldText,
	FieldCheckbox,
}

// Valid reports whether t is one of the supported field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldSignature, FieldInitials, FieldDate, FieldText, FieldCheckbox:
		return true
	}
	return false
}

// Position is a page-relative location expressed as percentages of
// the rendered page box. Values are stored exactly as computed;
// clamping happens only at display time.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a field's on-page footprint in layout pixels. Unlike
// Position it is not percentage-based: a field keeps a fixed pixel
// footprint regardless of page dimensions.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Field represents a positioned, typed placeholder on a document page
// requiring a value from one signer.
type Field struct {
	ID         string        `json:"id"`
	Type       FieldType     `json:"type"`
	PageNumber int           `json:"pageNumber"`
	Position   Position      `json:"position"`
	Size       Size          `json:"size"`
	SignerID   string        `json:"signerId,omitempty"`
	Metadata   FieldMetadata `json:"metadata"`
}

// Filled reports whether the field holds a submitted value. For
// checkbox fields only a truthy value counts; an unchecked box that
// was toggled back to "" is not filled.
func (f *Field) Filled() bool {
	if f.Metadata.Value == nil {
		return false
	}
	if f.Type == FieldCheckbox {
		return *f.Metadata.Value == CheckboxChecked
	}
	return *f.Metadata.Value != ""
}

// Assigned reports whether the field has been bound to a signer.
// Unassigned fields are excluded from the sendable payload.
func (f *Field) Assigned() bool {
	return f.SignerID != ""
}

// Signer represents a party identified by name+email who must fill
// their assigned fields. Email is unique within a document,
// case-insensitive.
type Signer struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Email  string       `json:"email"`
	Order  int          `json:"order"`
	Status SignerStatus `json:"status"`
}

// Page is one page of the source PDF: its 1-based number and media
// box size in PDF points, captured at upload time.
type Page struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Document owns an ordered signer roster and a field list. It is
// created when the owner uploads a PDF and advances through sent and
// partially_signed to completed as signers finish.
type Document struct {
	ID           string   `json:"id"`
	PDFReference string   `json:"pdfReference"`
	Status       Status   `json:"status"`
	Pages        []Page   `json:"pages"`
	Signers      []Signer `json:"signers"`
	Fields       []Field  `json:"fields"`
}

// FieldsFor returns the fields assigned to the given signer.
func (d *Document) FieldsFor(signerID string) []Field {
	var out []Field
	for _, f := range d.Fields {
		if f.SignerID == signerID {
			out = append(out, f)
		}
	}
	return out
}

// SignerByEmail finds a signer by normalized email match. Returns nil
// if no signer carries that email.
func (d *Document) SignerByEmail(email string) *Signer {
	norm := NormalizeEmail(email)
	for i := range d.Signers {
		if NormalizeEmail(d.Signers[i].Email) == norm {
			return &d.Signers[i]
		}
	}
	return nil
}

// SignerByID finds a signer by id. Returns nil if absent.
func (d *Document) SignerByID(id string) *Signer {
	for i := range d.Signers {
		if d.Signers[i].ID == id {
			return &d.Signers[i]
		}
	}
	return nil
}

// FieldByID finds a field by id. Returns nil if absent.
func (d *Document) FieldByID(id string) *Field {
	for i := range d.Fields {
		if d.Fields[i].ID == id {
			return &d.Fields[i]
		}
	}
	return nil
}

// Complete reports whether every required assigned field on the
// document holds a value, which is the completion condition. Optional
// fields a signer skipped do not hold a document open.
func (d *Document) Complete() bool {
	for i := range d.Fields {
		f := &d.Fields[i]
		if !f.Assigned() || !f.Metadata.Required {
			continue
		}
		if !f.Filled() {
			return false
		}
	}
	return true
}

// NormalizeEmail lower-cases and trims an email for roster matching.
// Two fields assigned to case-different spellings of the same address
// resolve to one signer.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
