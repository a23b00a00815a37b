// Package signing runs the per-signer remote signing session: it
// resolves which fields belong to the current signer, applies the
// per-field-type interaction rules, tracks completion, and drives
// guided navigation to the next outstanding field.
package signing

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mesingh9719/docforge-sign/internal/document"
)

// FieldState is a field's state from the perspective of one signing
// session.
type FieldState string

const (
	// StateUnreachable marks a field belonging to another signer.
	StateUnreachable FieldState = "unreachable"
	// StatePending marks the signer's own field with no value yet.
	StatePending FieldState = "pending"
	// StateFilled marks a field holding a value. Checkbox fields
	// oscillate between pending and filled on each click.
	StateFilled FieldState = "filled"
)

// Action tells the caller what a click on a field did or should open.
type Action string

const (
	ActionNone             Action = "none"
	ActionToggled          Action = "toggled"
	ActionDateFilled       Action = "date_filled"
	ActionOpenTextInput    Action = "open_text_input"
	ActionOpenSignaturePad Action = "open_signature_pad"
)

var (
	// ErrNotYourField rejects interaction with another signer's field.
	ErrNotYourField = errors.New("field belongs to another signer")
	// ErrFieldImmutable rejects writes to a field that already holds a
	// value. Checkbox fields are exempt.
	ErrFieldImmutable = errors.New("field value is already set")
	// ErrEmptyValue rejects submitting an empty string.
	ErrEmptyValue = errors.New("value must not be empty")
	// ErrMethodNotAllowed rejects a signature method the field's
	// policy does not offer.
	ErrMethodNotAllowed = errors.New("signature method not offered for this field")
	// ErrFieldNotFound rejects interaction with an unknown field id.
	ErrFieldNotFound = errors.New("field not found")
	// ErrWrongFieldType rejects a submission that does not match the
	// field's type, e.g. a signature posted to a text field.
	ErrWrongFieldType = errors.New("submission does not match field type")
)

// Session is one signer's pass over a document. It owns its field
// value map exclusively and never coordinates with other signers'
// sessions. The session value is passed in explicitly on token
// resolution and discarded on navigation away.
type Session struct {
	doc      document.Document
	signerID string
	now      func() time.Time
}

// NewSession creates a signing session for the given signer over a
// local copy of the document.
func NewSession(doc document.Document, signerID string) *Session {
	return &Session{doc: doc, signerID: signerID, now: time.Now}
}

// SetClock overrides the session clock. Date fields auto-fill from
// it; tests pin it.
func (s *Session) SetClock(now func() time.Time) {
	s.now = now
}

// SignerID returns the signer this session belongs to.
func (s *Session) SignerID() string {
	return s.signerID
}

// Document returns the session's current view of the document,
// including locally applied values.
func (s *Session) Document() document.Document {
	return s.doc
}

// SignerStatus returns the session signer's local status.
func (s *Session) SignerStatus() document.SignerStatus {
	if signer := s.doc.SignerByID(s.signerID); signer != nil {
		return signer.Status
	}
	return ""
}

// SetSignerStatus sets the local status of the session's signer. The
// submission controller uses it for the optimistic completion mark;
// the authoritative status comes from the server on refetch.
func (s *Session) SetSignerStatus(status document.SignerStatus) {
	if signer := s.doc.SignerByID(s.signerID); signer != nil {
		signer.Status = status
	}
}

// FieldState classifies a field for this session.
func (s *Session) FieldState(fieldID string) FieldState {
	f := s.doc.FieldByID(fieldID)
	if f == nil || f.SignerID != s.signerID {
		return StateUnreachable
	}
	if f.Filled() {
		return StateFilled
	}
	return StatePending
}

// Click applies the per-type interaction contract for a single click:
//
//	checkbox:      toggles between "" and checked, always permitted
//	date:          first click auto-fills the current local date,
//	               later clicks are no-ops
//	text/initials: opens an inline text capture surface
//	signature:     opens the signature capture surface
//
// The dispatch is a total match over the five field types; an unknown
// type is a model violation and errors out.
func (s *Session) Click(fieldID string) (Action, error) {
	f, err := s.mine(fieldID)
	if err != nil {
		return ActionNone, err
	}
	switch f.Type {
	case document.FieldCheckbox:
		s.toggleCheckbox(f)
		return ActionToggled, nil
	case document.FieldDate:
		if f.Metadata.Value != nil {
			return ActionNone, nil
		}
		v := s.now().Format("2006-01-02")
		f.Metadata.Value = &v
		return ActionDateFilled, nil
	case document.FieldText, document.FieldInitials:
		if f.Metadata.Value != nil {
			return ActionNone, nil
		}
		return ActionOpenTextInput, nil
	case document.FieldSignature:
		if f.Metadata.Value != nil {
			return ActionNone, nil
		}
		return ActionOpenSignaturePad, nil
	}
	return ActionNone, fmt.Errorf("unhandled field type %q", f.Type)
}

// SubmitText sets the value of a text or initials field. The value
// must be non-empty and the field becomes immutable afterwards.
func (s *Session) SubmitText(fieldID, text string) error {
	f, err := s.mine(fieldID)
	if err != nil {
		return err
	}
	if f.Type != document.FieldText && f.Type != document.FieldInitials {
		return ErrWrongFieldType
	}
	if f.Metadata.Value != nil {
		return ErrFieldImmutable
	}
	if text == "" {
		return ErrEmptyValue
	}
	f.Metadata.Value = &text
	return nil
}

// SubmitSignature sets a signature field's value from one of the
// capture methods and records which method was used. The field's
// method policy gates which methods are offered.
func (s *Session) SubmitSignature(fieldID string, capture Capture) error {
	f, err := s.mine(fieldID)
	if err != nil {
		return err
	}
	if f.Type != document.FieldSignature {
		return ErrWrongFieldType
	}
	if f.Metadata.Value != nil {
		return ErrFieldImmutable
	}
	if !f.Metadata.MethodPolicy.Allows(capture.Method()) {
		return ErrMethodNotAllowed
	}
	value, err := capture.Value()
	if err != nil {
		return err
	}
	if value == "" {
		return ErrEmptyValue
	}
	f.Metadata.Value = &value
	f.Metadata.SignatureMethod = capture.Method()
	return nil
}

// OfferedMethods lists the capture methods a signature field offers
// under its policy. Typed capture is always available.
func (s *Session) OfferedMethods(fieldID string) []document.SignatureMethod {
	f := s.doc.FieldByID(fieldID)
	if f == nil || f.Type != document.FieldSignature {
		return nil
	}
	methods := []document.SignatureMethod{document.MethodTyped}
	if f.Metadata.MethodPolicy.Allows(document.MethodDrawn) {
		methods = append(methods, document.MethodDrawn)
	}
	if f.Metadata.MethodPolicy.Allows(document.MethodUploaded) {
		methods = append(methods, document.MethodUploaded)
	}
	return methods
}

// PendingFields returns the session's outstanding required fields.
func (s *Session) PendingFields() []document.Field {
	var out []document.Field
	for _, f := range s.doc.Fields {
		if f.SignerID == s.signerID && f.Metadata.Required && !f.Filled() {
			out = append(out, f)
		}
	}
	return out
}

// NextRequiredField returns the pending field with the lowest
// (pageNumber, position.y): the top-most field on the earliest page
// with outstanding work. Ties break by metadata order. Returns nil
// when the signer has nothing left, which drives the Start/Next
// affordance and the scroll-to-page request.
func (s *Session) NextRequiredField() *document.Field {
	pending := s.PendingFields()
	if len(pending) == 0 {
		return nil
	}
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.PageNumber != b.PageNumber {
			return a.PageNumber < b.PageNumber
		}
		if a.Position.Y != b.Position.Y {
			return a.Position.Y < b.Position.Y
		}
		return a.Metadata.Order < b.Metadata.Order
	})
	return &pending[0]
}

// Done reports whether every one of this signer's required fields
// holds a value. Checkbox fields count once a truthy value has been
// set; the check runs at submission time, not continuously.
func (s *Session) Done() bool {
	return len(s.PendingFields()) == 0
}

// RemainingCount returns how many required fields are still pending,
// used for the local rejection message at submission time.
func (s *Session) RemainingCount() int {
	return len(s.PendingFields())
}

// Values returns the signer's field values for the per-signer
// submission payload: only this signer's fields, only those with a
// value set.
func (s *Session) Values() []FieldValue {
	var out []FieldValue
	for _, f := range s.doc.Fields {
		if f.SignerID != s.signerID || f.Metadata.Value == nil {
			continue
		}
		out = append(out, FieldValue{ID: f.ID, Value: *f.Metadata.Value})
	}
	return out
}

// FieldValue is one entry of the per-signer submission payload.
type FieldValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// toggleCheckbox flips a checkbox between unchecked and checked.
// Toggling is always permitted, even after a value has been set.
func (s *Session) toggleCheckbox(f *document.Field) {
	if f.Metadata.Value != nil && *f.Metadata.Value == document.CheckboxChecked {
		v := ""
		f.Metadata.Value = &v
		return
	}
	v := document.CheckboxChecked
	f.Metadata.Value = &v
}

// mine resolves a field id and verifies it belongs to this session's
// signer. Values are writable only by the owning signer's session.
func (s *Session) mine(fieldID string) (*document.Field, error) {
	f := s.doc.FieldByID(fieldID)
	if f == nil {
		return nil, ErrFieldNotFound
	}
	if f.SignerID != s.signerID {
		return nil, ErrNotYourField
	}
	return f, nil
}
