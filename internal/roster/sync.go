// Package roster derives and maintains the signer list from
// field-to-signer assignments. Fields are the source of truth for who
// needs to sign; the roster is a reconciled view of them.
package roster

import (
	"github.com/google/uuid"

	"github.com/mesingh9719/docforge-sign/internal/document"
)

// Synchronizer manages the signer roster derived from field
// assignments.
type Synchronizer struct{}

// NewSynchronizer creates a roster synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Upsert resolves a (name, email) assignment against the roster. An
// existing signer, matched by case-insensitive email, is returned
// unchanged (first-writer-wins on name); otherwise a new signer is
// appended with the next contiguous order. The returned slice shares
// backing storage with signers when no signer was created.
func (s *Synchronizer) Upsert(signers []document.Signer, name, email string) ([]document.Signer, document.Signer, bool) {
	norm := document.NormalizeEmail(email)
	for _, existing := range signers {
		if document.NormalizeEmail(existing.Email) == norm {
			return signers, existing, false
		}
	}
	created := document.Signer{
		ID:     uuid.NewString(),
		Name:   name,
		Email:  email,
		Order:  len(signers) + 1,
		Status: document.SignerPending,
	}
	return append(signers, created), created, true
}

// Sync reconciles the roster against the current field list: signers
// whose email no longer appears on any field are pruned, and the
// survivors are renumbered to a contiguous 1..N preserving relative
// order. Runs once at the authoring-to-review transition, not on
// every edit, so a signer whose fields were removed mid-edit survives
// until the next transition.
func (s *Synchronizer) Sync(fields []document.Field, signers []document.Signer) []document.Signer {
	referenced := referencedEmails(fields)

	kept := make([]document.Signer, 0, len(signers))
	for _, signer := range signers {
		if _, ok := referenced[document.NormalizeEmail(signer.Email)]; ok {
			kept = append(kept, signer)
		}
	}
	for i := range kept {
		kept[i].Order = i + 1
	}
	return kept
}

// referencedEmails collects the distinct, non-empty, normalized
// emails assigned to fields.
func referencedEmails(fields []document.Field) map[string]struct{} {
	out := make(map[string]struct{})
	for _, f := range fields {
		email := document.NormalizeEmail(f.Metadata.SigneeEmail)
		if email == "" {
			continue
		}
		out[email] = struct{}{}
	}
	return out
}
