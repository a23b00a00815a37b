package document

// CheckboxChecked is the stored value of a checked checkbox field.
// Checkbox values toggle between "" and this; every other field type
// stores its submitted value once and is then immutable.
const CheckboxChecked = "true"

// SignatureMethod identifies how a signature value was captured.
type SignatureMethod string

const (
	MethodTyped    SignatureMethod = "typed"
	MethodDrawn    SignatureMethod = "drawn"
	MethodUploaded SignatureMethod = "uploaded"
)

// MethodPolicy restricts which capture methods a signature field
// offers. The zero value behaves like MethodsAll.
type MethodPolicy string

const (
	MethodsAll    MethodPolicy = "all"
	MethodsDraw   MethodPolicy = "draw"
	MethodsUpload MethodPolicy = "upload"
)

// Allows reports whether the policy permits the given capture method.
// Typed capture is implicitly available under every policy.
func (p MethodPolicy) Allows(m SignatureMethod) bool {
	if m == MethodTyped {
		return true
	}
	switch p {
	case "", MethodsAll:
		return true
	case MethodsDraw:
		return m == MethodDrawn
	case MethodsUpload:
		return m == MethodUploaded
	}
	return false
}

// FieldMetadata carries the per-field bookkeeping that travels with a
// placed field. Value is nil until the owning signer submits one;
// afterwards it is immutable except for checkbox fields.
//
// SigneeName and SigneeEmail hold the assignment entered during
// authoring; resolving them is what creates signers in the roster.
type FieldMetadata struct {
	Required        bool            `json:"required"`
	Order           int             `json:"order"`
	Value           *string         `json:"value"`
	SignatureMethod SignatureMethod `json:"signatureMethod,omitempty"`
	MethodPolicy    MethodPolicy    `json:"type,omitempty"`
	SigneeName      string          `json:"signeeName,omitempty"`
	SigneeEmail     string          `json:"signeeEmail,omitempty"`
}

// Merge overlays non-zero fields of other onto m and reports whether
// the signee assignment changed, which is the trigger for roster
// synchronization. Required is always taken from other since false is
// a meaningful setting, not an absence.
func (m *FieldMetadata) Merge(other FieldMetadata) (assignmentChanged bool) {
	m.Required = other.Required
	if other.Order != 0 {
		m.Order = other.Order
	}
	if other.MethodPolicy != "" {
		m.MethodPolicy = other.MethodPolicy
	}
	if other.SigneeName != "" && other.SigneeName != m.SigneeName {
		m.SigneeName = other.SigneeName
		assignmentChanged = true
	}
	if other.SigneeEmail != "" && NormalizeEmail(other.SigneeEmail) != NormalizeEmail(m.SigneeEmail) {
		m.SigneeEmail = other.SigneeEmail
		assignmentChanged = true
	}
	return assignmentChanged
}

// DefaultSize returns the on-page pixel footprint a newly dropped
// field of the given type starts with.
func DefaultSize(t FieldType) Size {
	switch t {
	case FieldSignature:
		return Size{Width: 200, Height: 60}
	case FieldInitials:
		return Size{Width: 100, Height: 60}
	case FieldDate:
		return Size{Width: 150, Height: 40}
	case FieldText:
		return Size{Width: 200, Height: 40}
	case FieldCheckbox:
		return Size{Width: 24, Height: 24}
	}
	return Size{Width: 200, Height: 60}
}

// StrPtr returns a pointer to s. Convenience for setting field values
// in tests and handlers.
func StrPtr(s string) *string {
	return &s
}
