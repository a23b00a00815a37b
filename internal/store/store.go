// Package store persists documents, signers, fields, and signing
// tokens in SQLite. It bridges the authoring session and the later
// per-signer signing sessions.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mesingh9719/docforge-sign/internal/document"
)

// ErrNotFound is returned when a document, signer, or token does not
// exist.
var ErrNotFound = errors.New("not found")

// Store is a SQLite-backed persistence layer.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id         TEXT PRIMARY KEY,
	pdf_path   TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'draft',
	created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS document_pages (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	page_number INTEGER NOT NULL,
	width       REAL NOT NULL,
	height      REAL NOT NULL,
	PRIMARY KEY (document_id, page_number)
);

CREATE TABLE IF NOT EXISTS signers (
	id          TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL,
	sign_order  INTEGER NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS fields (
	id               TEXT PRIMARY KEY,
	document_id      TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	signer_id        TEXT NOT NULL,
	type             TEXT NOT NULL,
	page_number      INTEGER NOT NULL,
	x_position       REAL NOT NULL,
	y_position       REAL NOT NULL,
	width            REAL NOT NULL,
	height           REAL NOT NULL,
	required         INTEGER NOT NULL DEFAULT 1,
	field_order      INTEGER NOT NULL,
	value            TEXT,
	signature_method TEXT NOT NULL DEFAULT '',
	method_policy    TEXT NOT NULL DEFAULT '',
	signee_name      TEXT NOT NULL DEFAULT '',
	signee_email     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS signing_tokens (
	token       TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	signer_id   TEXT NOT NULL,
	created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_signers_document ON signers(document_id);
CREATE INDEX IF NOT EXISTS idx_fields_document ON fields(document_id);
`

// NewStore opens (or creates) the database under dataDir.
func NewStore(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "signatures.db")

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CreateDocument records a freshly uploaded PDF as a draft document
// together with its inspected page boxes.
func (s *Store) CreateDocument(ctx context.Context, id, pdfPath string, pages []document.Page) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (id, pdf_path, status) VALUES (?, ?, ?)
	`, id, pdfPath, string(document.StatusDraft)); err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	for _, p := range pages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_pages (document_id, page_number, width, height)
			VALUES (?, ?, ?, ?)
		`, id, p.Number, p.Width, p.Height); err != nil {
			return fmt.Errorf("inserting page: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// PDFPath returns the stored PDF file path for a document.
func (s *Store) PDFPath(ctx context.Context, id string) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx, `SELECT pdf_path FROM documents WHERE id = ?`, id).Scan(&path)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("querying document: %w", err)
	}
	return path, nil
}

// GetDocument loads a document with its roster and fields. Field
// percentages round-trip verbatim; the store never clamps.
func (s *Store) GetDocument(ctx context.Context, id string) (*document.Document, error) {
	doc := &document.Document{ID: id}

	var status string
	err := s.db.QueryRowContext(ctx, `
		SELECT pdf_path, status FROM documents WHERE id = ?
	`, id).Scan(&doc.PDFReference, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	doc.Status = document.Status(status)

	doc.Pages, err = s.documentPages(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Signers, err = s.documentSigners(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Fields, err = s.documentFields(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// SaveRosterAndFields persists the authoring payload for a draft
// document and marks it sent, all in one transaction. Existing
// signers and fields are replaced; send is a one-shot dispatch, not
// an incremental edit.
func (s *Store) SaveRosterAndFields(ctx context.Context, documentID string, signers []document.Signer, fields []document.Field) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM signers WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clearing signers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fields WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clearing fields: %w", err)
	}

	for _, signer := range signers {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO signers (id, document_id, name, email, sign_order, status)
			VALUES (?, ?, ?, ?, ?, ?)
		`, signer.ID, documentID, signer.Name, signer.Email, signer.Order, string(signer.Status))
		if err != nil {
			return fmt.Errorf("inserting signer: %w", err)
		}
	}

	for _, f := range fields {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO fields (
				id, document_id, signer_id, type, page_number,
				x_position, y_position, width, height,
				required, field_order, value, signature_method,
				method_policy, signee_name, signee_email
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, f.ID, documentID, f.SignerID, string(f.Type), f.PageNumber,
			f.Position.X, f.Position.Y, f.Size.Width, f.Size.Height,
			boolToInt(f.Metadata.Required), f.Metadata.Order, nullableStr(f.Metadata.Value),
			string(f.Metadata.SignatureMethod), string(f.Metadata.MethodPolicy),
			f.Metadata.SigneeName, f.Metadata.SigneeEmail)
		if err != nil {
			return fmt.Errorf("inserting field: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET status = ? WHERE id = ?
	`, string(document.StatusSent), documentID); err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// FieldWrite is one field value persisted as part of a signing
// submission.
type FieldWrite struct {
	FieldID string
	Value   string
	Method  document.SignatureMethod
}

// ApplySigning persists a completed per-signer submission in one
// transaction: the field values, the signer's signed status, and the
// document's new lifecycle status. A failure on any write leaves
// nothing persisted, so the identical payload can be retried.
func (s *Store) ApplySigning(ctx context.Context, documentID, signerID string, writes []FieldWrite, status document.Status) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		res, err := tx.ExecContext(ctx, `
			UPDATE fields SET value = ?, signature_method = ? WHERE id = ?
		`, w.Value, string(w.Method), w.FieldID)
		if err != nil {
			return fmt.Errorf("updating field value: %w", err)
		}
		if err := requireRow(res); err != nil {
			return err
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE signers SET status = ? WHERE id = ?
	`, string(document.SignerSigned), signerID)
	if err != nil {
		return fmt.Errorf("updating signer status: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	res, err = tx.ExecContext(ctx, `
		UPDATE documents SET status = ? WHERE id = ?
	`, string(status), documentID)
	if err != nil {
		return fmt.Errorf("updating document status: %w", err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// CreateToken mints a signing token for one signer on one document.
func (s *Store) CreateToken(ctx context.Context, token, documentID, signerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO signing_tokens (token, document_id, signer_id) VALUES (?, ?, ?)
	`, token, documentID, signerID)
	if err != nil {
		return fmt.Errorf("inserting token: %w", err)
	}
	return nil
}

// ResolveToken maps a signing token to its document and signer.
func (s *Store) ResolveToken(ctx context.Context, token string) (documentID, signerID string, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT document_id, signer_id FROM signing_tokens WHERE token = ?
	`, token).Scan(&documentID, &signerID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("querying token: %w", err)
	}
	return documentID, signerID, nil
}

func (s *Store) documentPages(ctx context.Context, documentID string) ([]document.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT page_number, width, height
		FROM document_pages WHERE document_id = ? ORDER BY page_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying pages: %w", err)
	}
	defer rows.Close()

	var pages []document.Page
	for rows.Next() {
		var p document.Page
		if err := rows.Scan(&p.Number, &p.Width, &p.Height); err != nil {
			return nil, fmt.Errorf("scanning page: %w", err)
		}
		pages = append(pages, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating pages: %w", err)
	}
	return pages, nil
}

func (s *Store) documentSigners(ctx context.Context, documentID string) ([]document.Signer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, sign_order, status
		FROM signers WHERE document_id = ? ORDER BY sign_order
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying signers: %w", err)
	}
	defer rows.Close()

	var signers []document.Signer
	for rows.Next() {
		var signer document.Signer
		var status string
		if err := rows.Scan(&signer.ID, &signer.Name, &signer.Email, &signer.Order, &status); err != nil {
			return nil, fmt.Errorf("scanning signer: %w", err)
		}
		signer.Status = document.SignerStatus(status)
		signers = append(signers, signer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating signers: %w", err)
	}
	return signers, nil
}

func (s *Store) documentFields(ctx context.Context, documentID string) ([]document.Field, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, signer_id, type, page_number, x_position, y_position,
		       width, height, required, field_order, value,
		       signature_method, method_policy, signee_name, signee_email
		FROM fields WHERE document_id = ? ORDER BY field_order
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying fields: %w", err)
	}
	defer rows.Close()

	var fields []document.Field
	for rows.Next() {
		var f document.Field
		var ftype, method, policy string
		var required int
		var value sql.NullString
		err := rows.Scan(&f.ID, &f.SignerID, &ftype, &f.PageNumber,
			&f.Position.X, &f.Position.Y, &f.Size.Width, &f.Size.Height,
			&required, &f.Metadata.Order, &value,
			&method, &policy, &f.Metadata.SigneeName, &f.Metadata.SigneeEmail)
		if err != nil {
			return nil, fmt.Errorf("scanning field: %w", err)
		}
		f.Type = document.FieldType(ftype)
		f.Metadata.Required = required != 0
		f.Metadata.SignatureMethod = document.SignatureMethod(method)
		f.Metadata.MethodPolicy = document.MethodPolicy(policy)
		if value.Valid {
			f.Metadata.Value = &value.String
		}
		fields = append(fields, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fields: %w", err)
	}
	return fields, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableStr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
