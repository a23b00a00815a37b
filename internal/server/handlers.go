package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mesingh9719/docforge-sign/internal/config"
	"github.com/mesingh9719/docforge-sign/internal/document"
	"github.com/mesingh9719/docforge-sign/internal/signing"
	"github.com/mesingh9719/docforge-sign/internal/store"
	"github.com/mesingh9719/docforge-sign/internal/wire"
)

// handleUpload accepts a raw PDF as multipart form data, validates
// it, stores it, and returns the document id. Upload always precedes
// the authoring send.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadSize)

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_UPLOAD", "expected a multipart form with a 'file' part")
		return
	}
	defer file.Close()

	if err := os.MkdirAll(s.config.UploadDir(), config.DefaultDirPerm); err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not prepare upload storage")
		return
	}

	id := uuid.NewString()
	path := filepath.Join(s.config.UploadDir(), id+".pdf")
	dst, err := os.Create(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "STORAGE_ERROR", "could not store upload")
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		dst.Close()
		os.Remove(path)
		writeError(w, http.StatusBadRequest, "BAD_UPLOAD", "could not read upload body")
		return
	}
	dst.Close()

	info, err := s.pdf.Validate(path)
	if err != nil {
		os.Remove(path)
		writeError(w, http.StatusBadRequest, "INVALID_PDF", err.Error())
		return
	}

	pages := make([]document.Page, 0, len(info.Pages))
	for i, dim := range info.Pages {
		pages = append(pages, document.Page{Number: i + 1, Width: dim.Width, Height: dim.Height})
	}

	if err := s.store.CreateDocument(r.Context(), id, path, pages); err != nil {
		os.Remove(path)
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not record document")
		return
	}

	resp := wire.UploadResponse{ID: id, PageCount: info.PageCount}
	for _, p := range pages {
		resp.Pages = append(resp.Pages, wire.ToPageBox(p))
	}
	writeJSON(w, http.StatusCreated, resp)
}

// handleSend accepts the authoring payload {document_id, signers,
// fields}, validates the roster invariants, persists everything, and
// mints one signing token per signer.
func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req wire.SendRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}

	if req.DocumentID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "document_id is required")
		return
	}
	if len(req.Fields) == 0 {
		writeError(w, http.StatusBadRequest, "NO_FIELDS", "place at least one field before sending")
		return
	}

	doc, err := s.store.GetDocument(r.Context(), req.DocumentID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "DOCUMENT_NOT_FOUND", "unknown document_id; upload the PDF first")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not load document")
		return
	}
	if doc.Status != document.StatusDraft {
		writeError(w, http.StatusConflict, "ALREADY_SENT", "document has already been dispatched")
		return
	}

	signers, fields, err := validateSendPayload(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := s.store.SaveRosterAndFields(r.Context(), req.DocumentID, signers, fields); err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not persist document")
		return
	}

	resp := wire.SendResponse{DocumentID: req.DocumentID, Status: string(document.StatusSent)}
	for _, signer := range signers {
		token := uuid.NewString()
		if err := s.store.CreateToken(r.Context(), token, req.DocumentID, signer.ID); err != nil {
			writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not mint signing tokens")
			return
		}
		resp.SigningLinks = append(resp.SigningLinks, wire.SigningLink{
			SignerID: signer.ID,
			Email:    signer.Email,
			URL:      s.config.BaseURL + "/signatures/" + token,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetSession resolves a signing token into the per-signer
// session: the document with fields and signers, the current signer,
// and the PDF location. A token that does not resolve is terminal
// for the caller.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	documentID, signerID, err := s.store.ResolveToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "this signing link is invalid or has expired")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not resolve signing link")
		return
	}

	doc, err := s.store.GetDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not load document")
		return
	}
	current := doc.SignerByID(signerID)
	if current == nil {
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "this signing link no longer matches a signer")
		return
	}

	resp := wire.SessionResponse{
		Document:      toSessionDocument(doc),
		CurrentSigner: wire.ToSessionSigner(*current),
		PDFURL:        s.config.BaseURL + "/signatures/" + token + "/pdf",
	}
	if blocking := earlierPendingSigner(doc, current); blocking != nil {
		waiting := wire.ToSessionSigner(*blocking)
		resp.WaitingOn = &waiting
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleGetPDF streams the stored PDF for a signing session.
func (s *Server) handleGetPDF(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	documentID, _, err := s.store.ResolveToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "this signing link is invalid or has expired")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not resolve signing link")
		return
	}

	path, err := s.store.PDFPath(r.Context(), documentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not locate document file")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	http.ServeFile(w, r, path)
}

// handleSign accepts the per-signer submission {fields: [{id, value}]}
// and finalizes the signer when all their required fields are filled.
// Sequential signing is enforced here: an earlier-order signer still
// pending blocks submission.
func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	documentID, signerID, err := s.store.ResolveToken(r.Context(), token)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "this signing link is invalid or has expired")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not resolve signing link")
		return
	}

	doc, err := s.store.GetDocument(r.Context(), documentID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not load document")
		return
	}
	current := doc.SignerByID(signerID)
	if current == nil {
		writeError(w, http.StatusNotFound, "TOKEN_NOT_FOUND", "this signing link no longer matches a signer")
		return
	}
	if current.Status == document.SignerSigned {
		writeError(w, http.StatusConflict, "ALREADY_SIGNED", "this document has already been signed with this link")
		return
	}
	if blocking := earlierPendingSigner(doc, current); blocking != nil {
		writeError(w, http.StatusConflict, "WAITING_ON_SIGNER",
			fmt.Sprintf("waiting for %s to sign first", blocking.Name))
		return
	}

	var req wire.SignRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}

	for _, fv := range req.Fields {
		if err := signing.Apply(doc, signerID, fv.ID, fv.Value); err != nil {
			status, code := applyErrorStatus(err)
			writeError(w, status, code, fmt.Sprintf("field %s: %v", fv.ID, err))
			return
		}
	}

	session := signing.NewSession(*doc, signerID)
	if !session.Done() {
		writeError(w, http.StatusBadRequest, "INCOMPLETE",
			fmt.Sprintf("%d required field(s) still need a value", session.RemainingCount()))
		return
	}

	status := document.StatusPartiallySigned
	if allOthersSigned(doc, signerID) {
		status = document.StatusCompleted
	}

	writes := make([]store.FieldWrite, 0, len(req.Fields))
	for _, fv := range req.Fields {
		f := doc.FieldByID(fv.ID)
		writes = append(writes, store.FieldWrite{
			FieldID: fv.ID,
			Value:   fv.Value,
			Method:  f.Metadata.SignatureMethod,
		})
	}
	if err := s.store.ApplySigning(r.Context(), documentID, signerID, writes, status); err != nil {
		writeError(w, http.StatusInternalServerError, "DB_ERROR", "could not persist submission")
		return
	}

	writeJSON(w, http.StatusOK, wire.SignResponse{
		SignerStatus:   string(document.SignerSigned),
		DocumentStatus: string(status),
	})
}

// validateSendPayload checks the roster invariants and maps the wire
// payload to the internal model: every field references a signer from
// the payload roster, and signer orders are exactly 1..N. Positions
// are stored exactly as sent; a slightly out-of-range percentage at a
// page edge is legitimate and never clamped.
func validateSendPayload(req wire.SendRequest) ([]document.Signer, []document.Field, error) {
	byID := make(map[string]wire.Signer, len(req.Signers))
	orders := make(map[int]bool, len(req.Signers))
	emails := make(map[string]bool, len(req.Signers))
	for _, s := range req.Signers {
		if s.ID == "" {
			return nil, nil, errors.New("signer id is required")
		}
		if document.NormalizeEmail(s.Email) == "" {
			return nil, nil, fmt.Errorf("signer %s has no email", s.ID)
		}
		if emails[document.NormalizeEmail(s.Email)] {
			return nil, nil, fmt.Errorf("duplicate signer email %s", s.Email)
		}
		emails[document.NormalizeEmail(s.Email)] = true
		if s.Order < 1 || s.Order > len(req.Signers) || orders[s.Order] {
			return nil, nil, fmt.Errorf("signer orders must be contiguous 1..%d", len(req.Signers))
		}
		orders[s.Order] = true
		byID[s.ID] = s
	}

	var signers []document.Signer
	for _, s := range req.Signers {
		signers = append(signers, document.Signer{
			ID:     s.ID,
			Name:   s.Name,
			Email:  s.Email,
			Order:  s.Order,
			Status: document.SignerPending,
		})
	}

	var fields []document.Field
	for i, wf := range req.Fields {
		if !document.FieldType(wf.Type).Valid() {
			return nil, nil, fmt.Errorf("field %d has unknown type %q", i, wf.Type)
		}
		if wf.PageNumber < 1 {
			return nil, nil, fmt.Errorf("field %d has invalid page number %d", i, wf.PageNumber)
		}
		if wf.SignerID == "" {
			return nil, nil, fmt.Errorf("field %d has no signer; unassigned fields are not sendable", i)
		}
		if _, ok := byID[wf.SignerID]; !ok {
			return nil, nil, fmt.Errorf("field %d references unknown signer %s", i, wf.SignerID)
		}
		f := wire.FromAuthoringField(wf)
		f.ID = uuid.NewString()
		fields = append(fields, f)
	}
	return signers, fields, nil
}

// earlierPendingSigner returns the lowest-order signer before current
// that has not signed yet, or nil when current is free to sign.
func earlierPendingSigner(doc *document.Document, current *document.Signer) *document.Signer {
	var blocking *document.Signer
	for i := range doc.Signers {
		s := &doc.Signers[i]
		if s.Order >= current.Order || s.Status == document.SignerSigned {
			continue
		}
		if blocking == nil || s.Order < blocking.Order {
			blocking = s
		}
	}
	return blocking
}

// allOthersSigned reports whether every signer except justSigned has
// already signed, which completes the document.
func allOthersSigned(doc *document.Document, justSigned string) bool {
	for _, s := range doc.Signers {
		if s.ID == justSigned {
			continue
		}
		if s.Status != document.SignerSigned {
			return false
		}
	}
	return true
}

// toSessionDocument maps a loaded document to the session wire shape.
func toSessionDocument(doc *document.Document) wire.SessionDocument {
	out := wire.SessionDocument{ID: doc.ID, Status: string(doc.Status)}
	for _, p := range doc.Pages {
		out.Pages = append(out.Pages, wire.ToSessionPage(p))
	}
	for _, f := range doc.Fields {
		out.Fields = append(out.Fields, wire.ToSessionField(f))
	}
	for _, s := range doc.Signers {
		out.Signers = append(out.Signers, wire.ToSessionSigner(s))
	}
	return out
}

// applyErrorStatus maps a value-application error to an HTTP status
// and code.
func applyErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, signing.ErrFieldNotFound):
		return http.StatusNotFound, "FIELD_NOT_FOUND"
	case errors.Is(err, signing.ErrNotYourField):
		return http.StatusForbidden, "NOT_YOUR_FIELD"
	case errors.Is(err, signing.ErrFieldImmutable):
		return http.StatusConflict, "FIELD_IMMUTABLE"
	default:
		return http.StatusBadRequest, "BAD_VALUE"
	}
}
