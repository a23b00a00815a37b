package signing

import (
	"github.com/mesingh9719/docforge-sign/internal/document"
)

// Apply writes a submitted raw value onto a document field on behalf
// of a signer. It is the server-side half of the interaction
// contract: the capture surface ran remotely, so only the invariants
// are enforced here: ownership, write-once immutability (checkbox
// exempt), and per-type value shape.
func Apply(doc *document.Document, signerID, fieldID, value string) error {
	f := doc.FieldByID(fieldID)
	if f == nil {
		return ErrFieldNotFound
	}
	if f.SignerID != signerID {
		return ErrNotYourField
	}

	if f.Type == document.FieldCheckbox {
		// Checkbox values oscillate; only the two toggle states are
		// valid.
		if value != "" && value != document.CheckboxChecked {
			return ErrWrongFieldType
		}
		f.Metadata.Value = &value
		return nil
	}

	if f.Metadata.Value != nil {
		// Resubmitting the identical value is a no-op so a retried
		// payload is accepted; only a differing rewrite is rejected.
		if *f.Metadata.Value == value {
			return nil
		}
		return ErrFieldImmutable
	}
	if value == "" {
		return ErrEmptyValue
	}
	f.Metadata.Value = &value
	return nil
}
