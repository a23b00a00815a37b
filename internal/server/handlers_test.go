package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesingh9719/docforge-sign/internal/config"
	"github.com/mesingh9719/docforge-sign/internal/document"
	"github.com/mesingh9719/docforge-sign/internal/pdfinfo"
	"github.com/mesingh9719/docforge-sign/internal/store"
	"github.com/mesingh9719/docforge-sign/internal/wire"
)

type testEnv struct {
	srv   *httptest.Server
	store *store.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.BaseURL = "http://sign.test"

	st, err := store.NewStore(cfg.DataDir)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	s, err := NewServer(cfg, st, pdfinfo.NewService(cfg.MaxUploadSize))
	require.NoError(t, err)

	srv := httptest.NewServer(s.Router())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st}
}

func (e *testEnv) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	require.NoError(t, err)
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func requireError(t *testing.T, resp *http.Response, status int, code string) wire.ErrorResponse {
	t.Helper()
	assert.Equal(t, status, resp.StatusCode)
	envelope := decodeBody[wire.ErrorResponse](t, resp)
	assert.Equal(t, code, envelope.Code)
	return envelope
}

// seedDraft inserts a draft document directly, sidestepping upload
// validation which needs a real PDF file.
func seedDraft(t *testing.T, e *testEnv, id string) {
	t.Helper()
	pages := []document.Page{
		{Number: 1, Width: 612, Height: 792},
		{Number: 2, Width: 612, Height: 792},
	}
	require.NoError(t, e.store.CreateDocument(context.Background(), id, "/nonexistent/"+id+".pdf", pages))
}

func sendPayload(documentID string) wire.SendRequest {
	return wire.SendRequest{
		DocumentID: documentID,
		Signers: []wire.Signer{
			{ID: "s-jane", Name: "Jane", Email: "jane@x.com", Order: 1},
			{ID: "s-bob", Name: "Bob", Email: "bob@x.com", Order: 2},
		},
		Fields: []wire.AuthoringField{
			{
				SignerID: "s-jane", Type: "signature", PageNumber: 1,
				X: 25, Y: 40, Width: 200, Height: 60,
				Metadata: wire.FieldMetadata{Required: true, Order: 1},
			},
			{
				SignerID: "s-bob", Type: "text", PageNumber: 2,
				X: 10, Y: 10, Width: 200, Height: 40,
				Metadata: wire.FieldMetadata{Required: true, Order: 2},
			},
		},
	}
}

func tokenFromLink(t *testing.T, link wire.SigningLink) string {
	t.Helper()
	i := strings.LastIndex(link.URL, "/")
	require.Positive(t, i)
	return link.URL[i+1:]
}

func TestUploadRejectsNonPDF(t *testing.T) {
	e := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "notes.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("this is not a pdf"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.srv.URL+"/signatures/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	requireError(t, resp, http.StatusBadRequest, "INVALID_PDF")
}

func TestUploadRejectsMissingFilePart(t *testing.T) {
	e := newTestEnv(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("other", "value"))
	require.NoError(t, mw.Close())

	resp, err := http.Post(e.srv.URL+"/signatures/upload", mw.FormDataContentType(), &body)
	require.NoError(t, err)
	requireError(t, resp, http.StatusBadRequest, "BAD_UPLOAD")
}

func TestSendValidation(t *testing.T) {
	e := newTestEnv(t)
	seedDraft(t, e, "doc-1")

	t.Run("unknown document", func(t *testing.T) {
		resp := e.postJSON(t, "/signatures/send", sendPayload("doc-missing"))
		requireError(t, resp, http.StatusNotFound, "DOCUMENT_NOT_FOUND")
	})

	t.Run("no fields", func(t *testing.T) {
		req := sendPayload("doc-1")
		req.Fields = nil
		resp := e.postJSON(t, "/signatures/send", req)
		requireError(t, resp, http.StatusBadRequest, "NO_FIELDS")
	})

	t.Run("non-contiguous orders", func(t *testing.T) {
		req := sendPayload("doc-1")
		req.Signers[1].Order = 3
		resp := e.postJSON(t, "/signatures/send", req)
		requireError(t, resp, http.StatusBadRequest, "VALIDATION")
	})

	t.Run("duplicate email", func(t *testing.T) {
		req := sendPayload("doc-1")
		req.Signers[1].Email = "JANE@x.com"
		resp := e.postJSON(t, "/signatures/send", req)
		requireError(t, resp, http.StatusBadRequest, "VALIDATION")
	})

	t.Run("field references unknown signer", func(t *testing.T) {
		req := sendPayload("doc-1")
		req.Fields[0].SignerID = "s-ghost"
		resp := e.postJSON(t, "/signatures/send", req)
		requireError(t, resp, http.StatusBadRequest, "VALIDATION")
	})

	t.Run("unassigned field", func(t *testing.T) {
		req := sendPayload("doc-1")
		req.Fields[0].SignerID = ""
		resp := e.postJSON(t, "/signatures/send", req)
		requireError(t, resp, http.StatusBadRequest, "VALIDATION")
	})

	t.Run("unknown field type", func(t *testing.T) {
		req := sendPayload("doc-1")
		req.Fields[0].Type = "dropdown"
		resp := e.postJSON(t, "/signatures/send", req)
		requireError(t, resp, http.StatusBadRequest, "VALIDATION")
	})
}

func TestSendMintsLinksPerSigner(t *testing.T) {
	e := newTestEnv(t)
	seedDraft(t, e, "doc-1")

	resp := e.postJSON(t, "/signatures/send", sendPayload("doc-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decodeBody[wire.SendResponse](t, resp)

	assert.Equal(t, "sent", sent.Status)
	require.Len(t, sent.SigningLinks, 2)
	for _, link := range sent.SigningLinks {
		assert.True(t, strings.HasPrefix(link.URL, "http://sign.test/signatures/"))
	}
	assert.NotEqual(t, sent.SigningLinks[0].URL, sent.SigningLinks[1].URL)

	// A second send is rejected; dispatch is one-shot.
	resp = e.postJSON(t, "/signatures/send", sendPayload("doc-1"))
	requireError(t, resp, http.StatusConflict, "ALREADY_SENT")
}

func TestGetSessionUnknownToken(t *testing.T) {
	e := newTestEnv(t)
	resp := e.get(t, "/signatures/no-such-token")
	requireError(t, resp, http.StatusNotFound, "TOKEN_NOT_FOUND")
}

func TestSessionShapeAndWaitingOn(t *testing.T) {
	e := newTestEnv(t)
	seedDraft(t, e, "doc-1")
	resp := e.postJSON(t, "/signatures/send", sendPayload("doc-1"))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sent := decodeBody[wire.SendResponse](t, resp)

	janeTok := tokenFromLink(t, sent.SigningLinks[0])
	bobTok := tokenFromLink(t, sent.SigningLinks[1])

	janeSession := decodeBody[wire.SessionResponse](t, e.get(t, "/signatures/"+janeTok))
	assert.Equal(t, "doc-1", janeSession.Document.ID)
	assert.Equal(t, "s-jane", janeSession.CurrentSigner.ID)
	assert.Equal(t, "http://sign.test/signatures/"+janeTok+"/pdf", janeSession.PDFURL)
	assert.Nil(t, janeSession.WaitingOn, "first signer waits on nobody")
	require.Len(t, janeSession.Document.Pages, 2)
	assert.Equal(t, 1, janeSession.Document.Pages[0].PageNumber)
	assert.Equal(t, 612.0, janeSession.Document.Pages[0].Width)
	assert.Equal(t, 792.0, janeSession.Document.Pages[0].Height)
	require.Len(t, janeSession.Document.Fields, 2)
	assert.Equal(t, 25.0, janeSession.Document.Fields[0].XPosition)
	assert.Equal(t, 40.0, janeSession.Document.Fields[0].YPosition)

	bobSession := decodeBody[wire.SessionResponse](t, e.get(t, "/signatures/"+bobTok))
	require.NotNil(t, bobSession.WaitingOn)
	assert.Equal(t, "s-jane", bobSession.WaitingOn.ID)
}

func TestSequentialSigningFlow(t *testing.T) {
	e := newTestEnv(t)
	seedDraft(t, e, "doc-1")
	sent := decodeBody[wire.SendResponse](t, e.postJSON(t, "/signatures/send", sendPayload("doc-1")))
	janeTok := tokenFromLink(t, sent.SigningLinks[0])
	bobTok := tokenFromLink(t, sent.SigningLinks[1])

	janeSession := decodeBody[wire.SessionResponse](t, e.get(t, "/signatures/"+janeTok))
	var janeField, bobField string
	for _, f := range janeSession.Document.Fields {
		switch f.SignerID {
		case "s-jane":
			janeField = f.ID
		case "s-bob":
			bobField = f.ID
		}
	}
	require.NotEmpty(t, janeField)
	require.NotEmpty(t, bobField)

	// Bob is second in order and cannot sign yet.
	resp := e.postJSON(t, "/signatures/"+bobTok+"/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: bobField, Value: "hello"}},
	})
	envelope := requireError(t, resp, http.StatusConflict, "WAITING_ON_SIGNER")
	assert.Contains(t, envelope.Message, "Jane")

	// Jane cannot submit with her required field empty.
	resp = e.postJSON(t, "/signatures/"+janeTok+"/sign", wire.SignRequest{})
	requireError(t, resp, http.StatusBadRequest, "INCOMPLETE")

	// Jane cannot write Bob's field.
	resp = e.postJSON(t, "/signatures/"+janeTok+"/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: bobField, Value: "sneaky"}},
	})
	requireError(t, resp, http.StatusForbidden, "NOT_YOUR_FIELD")

	// Jane signs.
	resp = e.postJSON(t, "/signatures/"+janeTok+"/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: janeField, Value: "Jane Doe"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signed := decodeBody[wire.SignResponse](t, resp)
	assert.Equal(t, "signed", signed.SignerStatus)
	assert.Equal(t, "partially_signed", signed.DocumentStatus)

	// Jane cannot sign twice.
	resp = e.postJSON(t, "/signatures/"+janeTok+"/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: janeField, Value: "Jane Doe"}},
	})
	requireError(t, resp, http.StatusConflict, "ALREADY_SIGNED")

	// Bob's session now shows Jane's value and no gate.
	bobSession := decodeBody[wire.SessionResponse](t, e.get(t, "/signatures/"+bobTok))
	assert.Nil(t, bobSession.WaitingOn)
	for _, f := range bobSession.Document.Fields {
		if f.ID == janeField {
			require.NotNil(t, f.Value)
			assert.Equal(t, "Jane Doe", *f.Value)
		}
	}

	// Bob completes the document.
	resp = e.postJSON(t, "/signatures/"+bobTok+"/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: bobField, Value: "agreed"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signed = decodeBody[wire.SignResponse](t, resp)
	assert.Equal(t, "completed", signed.DocumentStatus)
}

func TestSignRejectsImmutableRewrite(t *testing.T) {
	e := newTestEnv(t)
	seedDraft(t, e, "doc-1")

	req := sendPayload("doc-1")
	req.Signers = req.Signers[:1]
	req.Fields = req.Fields[:1]
	sent := decodeBody[wire.SendResponse](t, e.postJSON(t, "/signatures/send", req))
	tok := tokenFromLink(t, sent.SigningLinks[0])

	session := decodeBody[wire.SessionResponse](t, e.get(t, "/signatures/"+tok))
	fieldID := session.Document.Fields[0].ID

	// A duplicate value for the same field in one payload trips the
	// write-once rule.
	resp := e.postJSON(t, "/signatures/"+tok+"/sign", wire.SignRequest{
		Fields: []wire.FieldValue{
			{ID: fieldID, Value: "first"},
			{ID: fieldID, Value: "second"},
		},
	})
	requireError(t, resp, http.StatusConflict, "FIELD_IMMUTABLE")
}

// A field value that already matches the resubmitted one is accepted,
// so a signer whose earlier attempt persisted values without reaching
// the signed status can replay the same payload and finish.
func TestSignAcceptsResubmittedIdenticalValue(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, e.store.CreateDocument(ctx, "doc-1", "/nonexistent/doc-1.pdf", nil))

	signers := []document.Signer{
		{ID: "s-jane", Name: "Jane", Email: "jane@x.com", Order: 1, Status: document.SignerPending},
	}
	fields := []document.Field{{
		ID: "f-1", Type: document.FieldSignature, PageNumber: 1,
		SignerID: "s-jane",
		Metadata: document.FieldMetadata{
			Required: true,
			Order:    1,
			Value:    document.StrPtr("Jane Doe"),
		},
	}}
	require.NoError(t, e.store.SaveRosterAndFields(ctx, "doc-1", signers, fields))
	require.NoError(t, e.store.CreateToken(ctx, "tok-jane", "doc-1", "s-jane"))

	resp := e.postJSON(t, "/signatures/tok-jane/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: "f-1", Value: "Jane Doe"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	signed := decodeBody[wire.SignResponse](t, resp)
	assert.Equal(t, "signed", signed.SignerStatus)
	assert.Equal(t, "completed", signed.DocumentStatus)

	// A differing value for the filled field is still a rewrite.
	require.NoError(t, e.store.SaveRosterAndFields(ctx, "doc-1", signers, fields))
	resp = e.postJSON(t, "/signatures/tok-jane/sign", wire.SignRequest{
		Fields: []wire.FieldValue{{ID: "f-1", Value: "Someone Else"}},
	})
	requireError(t, resp, http.StatusConflict, "FIELD_IMMUTABLE")
}

func TestSignUnknownFieldID(t *testing.T) {
	e := newTestEnv(t)
	seedDraft(t, e, "doc-1")

	req := sendPayload("doc-1")
	req.Signers = req.Signers[:1]
	req.Fields = req.Fields[:1]
	sent := decodeBody[wire.SendResponse](t, e.postJSON(t, "/signatures/send", req))
	tok := tokenFromLink(t, sent.SigningLinks[0])

	resp := e.postJSON(t, fmt.Sprintf("/signatures/%s/sign", tok), wire.SignRequest{
		Fields: []wire.FieldValue{{ID: "not-a-field", Value: "x"}},
	})
	requireError(t, resp, http.StatusNotFound, "FIELD_NOT_FOUND")
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp := e.get(t, "/health")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
