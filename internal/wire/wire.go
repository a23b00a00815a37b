// Package wire defines the JSON shapes of the signatures HTTP API.
// The authoring payload uses camelCase field names; the per-signer
// session uses the server's snake_case names (page_number,
// x_position, y_position, signer_id). Mapping between wire and
// internal names happens here so neither side leaks its convention.
package wire

import "github.com/mesingh9719/docforge-sign/internal/document"

// PageBox is one page's media box size, returned by upload so the
// authoring client can seed its coordinate registry from the
// original, unscaled page geometry.
type PageBox struct {
	Number int     `json:"number"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// UploadResponse is returned by POST /signatures/upload.
type UploadResponse struct {
	ID        string    `json:"id"`
	PageCount int       `json:"pageCount"`
	Pages     []PageBox `json:"pages"`
}

// Signer is the roster entry shape of the authoring send payload.
type Signer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Order int    `json:"order"`
}

// FieldMetadata is the metadata bag carried by an authoring field.
type FieldMetadata struct {
	Required     bool   `json:"required"`
	Order        int    `json:"order"`
	MethodPolicy string `json:"type,omitempty"`
	SigneeName   string `json:"signeeName,omitempty"`
	SigneeEmail  string `json:"signeeEmail,omitempty"`
}

// AuthoringField is the field shape of the authoring send payload.
// Coordinates are percentages of the original, unscaled page box;
// width and height are layout pixels.
type AuthoringField struct {
	SignerID   string        `json:"signerId"`
	Type       string        `json:"type"`
	PageNumber int           `json:"pageNumber"`
	X          float64       `json:"x"`
	Y          float64       `json:"y"`
	Width      float64       `json:"width"`
	Height     float64       `json:"height"`
	Metadata   FieldMetadata `json:"metadata"`
}

// SendRequest is the body of POST /signatures/send.
type SendRequest struct {
	DocumentID string           `json:"document_id"`
	Signers    []Signer         `json:"signers"`
	Fields     []AuthoringField `json:"fields"`
}

// SigningLink is one signer's minted signing URL.
type SigningLink struct {
	SignerID string `json:"signer_id"`
	Email    string `json:"email"`
	URL      string `json:"url"`
}

// SendResponse is returned by POST /signatures/send.
type SendResponse struct {
	DocumentID   string        `json:"document_id"`
	Status       string        `json:"status"`
	SigningLinks []SigningLink `json:"signing_links"`
}

// SessionField is the field shape returned by GET /signatures/{token}.
type SessionField struct {
	ID              string  `json:"id"`
	Type            string  `json:"type"`
	PageNumber      int     `json:"page_number"`
	XPosition       float64 `json:"x_position"`
	YPosition       float64 `json:"y_position"`
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	Value           *string `json:"value"`
	SignerID        string  `json:"signer_id"`
	Required        bool    `json:"required"`
	Order           int     `json:"order"`
	SignatureMethod string  `json:"signature_method,omitempty"`
	MethodPolicy    string  `json:"method_policy,omitempty"`
}

// SessionSigner is the signer shape returned by the session fetch.
type SessionSigner struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Order  int    `json:"order"`
	Status string `json:"status"`
}

// SessionPage is one page's media box in the session response,
// seeding the signing client's coordinate registry.
type SessionPage struct {
	PageNumber int     `json:"page_number"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// SessionDocument is the document subtree of the session response.
type SessionDocument struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Pages   []SessionPage   `json:"pages"`
	Fields  []SessionField  `json:"fields"`
	Signers []SessionSigner `json:"signers"`
}

// SessionResponse is the body of GET /signatures/{token}. WaitingOn
// names the earlier-order signer still pending when sequential
// signing gates this token.
type SessionResponse struct {
	Document      SessionDocument `json:"document"`
	CurrentSigner SessionSigner   `json:"current_signer"`
	PDFURL        string          `json:"pdf_url"`
	WaitingOn     *SessionSigner  `json:"waiting_on,omitempty"`
}

// FieldValue is one submitted value of the per-signer payload.
type FieldValue struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// SignRequest is the body of POST /signatures/{token}/sign. It
// carries only the current signer's fields.
type SignRequest struct {
	Fields []FieldValue `json:"fields"`
}

// SignResponse reports the post-submission state.
type SignResponse struct {
	SignerStatus   string `json:"signer_status"`
	DocumentStatus string `json:"document_status"`
}

// ErrorResponse is the error envelope every endpoint uses.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromAuthoringField maps a wire authoring field to the internal
// model. The wire shape carries no id; the server assigns one.
func FromAuthoringField(f AuthoringField) document.Field {
	return document.Field{
		Type:       document.FieldType(f.Type),
		PageNumber: f.PageNumber,
		Position:   document.Position{X: f.X, Y: f.Y},
		Size:       document.Size{Width: f.Width, Height: f.Height},
		SignerID:   f.SignerID,
		Metadata: document.FieldMetadata{
			Required:     f.Metadata.Required,
			Order:        f.Metadata.Order,
			MethodPolicy: document.MethodPolicy(f.Metadata.MethodPolicy),
			SigneeName:   f.Metadata.SigneeName,
			SigneeEmail:  f.Metadata.SigneeEmail,
		},
	}
}

// ToAuthoringField maps an internal field to the authoring wire
// shape.
func ToAuthoringField(f document.Field) AuthoringField {
	return AuthoringField{
		SignerID:   f.SignerID,
		Type:       string(f.Type),
		PageNumber: f.PageNumber,
		X:          f.Position.X,
		Y:          f.Position.Y,
		Width:      f.Size.Width,
		Height:     f.Size.Height,
		Metadata: FieldMetadata{
			Required:     f.Metadata.Required,
			Order:        f.Metadata.Order,
			MethodPolicy: string(f.Metadata.MethodPolicy),
			SigneeName:   f.Metadata.SigneeName,
			SigneeEmail:  f.Metadata.SigneeEmail,
		},
	}
}

// ToSigner maps an internal signer to the authoring wire shape.
func ToSigner(s document.Signer) Signer {
	return Signer{ID: s.ID, Name: s.Name, Email: s.Email, Order: s.Order}
}

// ToSessionField maps an internal field to the session wire shape.
func ToSessionField(f document.Field) SessionField {
	return SessionField{
		ID:              f.ID,
		Type:            string(f.Type),
		PageNumber:      f.PageNumber,
		XPosition:       f.Position.X,
		YPosition:       f.Position.Y,
		Width:           f.Size.Width,
		Height:          f.Size.Height,
		Value:           f.Metadata.Value,
		SignerID:        f.SignerID,
		Required:        f.Metadata.Required,
		Order:           f.Metadata.Order,
		SignatureMethod: string(f.Metadata.SignatureMethod),
		MethodPolicy:    string(f.Metadata.MethodPolicy),
	}
}

// FromSessionField maps a session wire field back to the internal
// model, translating page_number/x_position/y_position/signer_id to
// the internal names.
func FromSessionField(f SessionField) document.Field {
	return document.Field{
		ID:         f.ID,
		Type:       document.FieldType(f.Type),
		PageNumber: f.PageNumber,
		Position:   document.Position{X: f.XPosition, Y: f.YPosition},
		Size:       document.Size{Width: f.Width, Height: f.Height},
		SignerID:   f.SignerID,
		Metadata: document.FieldMetadata{
			Required:        f.Required,
			Order:           f.Order,
			Value:           f.Value,
			SignatureMethod: document.SignatureMethod(f.SignatureMethod),
			MethodPolicy:    document.MethodPolicy(f.MethodPolicy),
		},
	}
}

// ToSessionSigner maps an internal signer to the session wire shape.
func ToSessionSigner(s document.Signer) SessionSigner {
	return SessionSigner{
		ID:     s.ID,
		Name:   s.Name,
		Email:  s.Email,
		Order:  s.Order,
		Status: string(s.Status),
	}
}

// FromSessionSigner maps a session wire signer to the internal model.
func FromSessionSigner(s SessionSigner) document.Signer {
	return document.Signer{
		ID:     s.ID,
		Name:   s.Name,
		Email:  s.Email,
		Order:  s.Order,
		Status: document.SignerStatus(s.Status),
	}
}

// ToPageBox maps an internal page to the upload wire shape.
func ToPageBox(p document.Page) PageBox {
	return PageBox{Number: p.Number, Width: p.Width, Height: p.Height}
}

// ToSessionPage maps an internal page to the session wire shape.
func ToSessionPage(p document.Page) SessionPage {
	return SessionPage{PageNumber: p.Number, Width: p.Width, Height: p.Height}
}

// FromSessionPage maps a session wire page to the internal model.
func FromSessionPage(p SessionPage) document.Page {
	return document.Page{Number: p.PageNumber, Width: p.Width, Height: p.Height}
}

// FromSessionDocument maps a full session document to the internal
// model.
func FromSessionDocument(d SessionDocument) document.Document {
	doc := document.Document{
		ID:     d.ID,
		Status: document.Status(d.Status),
	}
	for _, p := range d.Pages {
		doc.Pages = append(doc.Pages, FromSessionPage(p))
	}
	for _, f := range d.Fields {
		doc.Fields = append(doc.Fields, FromSessionField(f))
	}
	for _, s := range d.Signers {
		doc.Signers = append(doc.Signers, FromSessionSigner(s))
	}
	return doc
}
