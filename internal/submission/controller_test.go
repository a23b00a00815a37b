package submission

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesingh9719/docforge-sign/internal/document"
	"github.com/mesingh9719/docforge-sign/internal/placement"
	"github.com/mesingh9719/docforge-sign/internal/signing"
	"github.com/mesingh9719/docforge-sign/internal/wire"
)

// fakeTransport records calls and returns scripted results.
type fakeTransport struct {
	uploadID   string
	uploadErr  error
	sendErr    error
	signResp   wire.SignResponse
	signErr    error
	session    wire.SessionResponse
	sessionErr error

	uploads  int
	sendReqs []wire.SendRequest
	signReqs []wire.SignRequest

	onSign func()
}

func (f *fakeTransport) Upload(_ context.Context, _ string, pdf io.Reader) (string, error) {
	f.uploads++
	_, _ = io.Copy(io.Discard, pdf)
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	return f.uploadID, nil
}

func (f *fakeTransport) Send(_ context.Context, req wire.SendRequest) error {
	f.sendReqs = append(f.sendReqs, req)
	return f.sendErr
}

func (f *fakeTransport) FetchSession(_ context.Context, _ string) (wire.SessionResponse, error) {
	return f.session, f.sessionErr
}

func (f *fakeTransport) Sign(_ context.Context, _ string, req wire.SignRequest) (wire.SignResponse, error) {
	f.signReqs = append(f.signReqs, req)
	if f.onSign != nil {
		f.onSign()
	}
	return f.signResp, f.signErr
}

func authoringEngine(t *testing.T) *placement.Engine {
	t.Helper()
	e := placement.NewEngine()
	f, err := e.CreateField(document.FieldSignature, 1, document.Position{X: 25, Y: 40})
	require.NoError(t, err)
	_, err = e.AssignField(f.ID, "Jane Doe", "jane@x.com")
	require.NoError(t, err)
	return e
}

func TestSendRejectsEmptyCanvas(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport)

	_, err := c.SendAuthoring(context.Background(), placement.NewEngine(), "a.pdf", strings.NewReader("%PDF"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, transport.uploads, "validation failures never reach the network")
}

func TestSendRejectsOrphanedFields(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport)
	e := authoringEngine(t)
	_, err := e.CreateField(document.FieldText, 1, document.Position{})
	require.NoError(t, err)

	_, err = c.SendAuthoring(context.Background(), e, "a.pdf", strings.NewReader("%PDF"))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "no signer assigned")
	assert.Zero(t, transport.uploads)
}

func TestSendUploadsThenSends(t *testing.T) {
	transport := &fakeTransport{uploadID: "doc-42"}
	c := NewController(transport)

	id, err := c.SendAuthoring(context.Background(), authoringEngine(t), "a.pdf", strings.NewReader("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, "doc-42", id)

	assert.Equal(t, 1, transport.uploads)
	require.Len(t, transport.sendReqs, 1)
	req := transport.sendReqs[0]
	assert.Equal(t, "doc-42", req.DocumentID, "send carries the id the upload returned")
	require.Len(t, req.Signers, 1)
	assert.Equal(t, "jane@x.com", req.Signers[0].Email)
	assert.Equal(t, 1, req.Signers[0].Order)
	require.Len(t, req.Fields, 1)
	assert.Equal(t, 25.0, req.Fields[0].X)
	assert.Equal(t, 40.0, req.Fields[0].Y)
	assert.False(t, c.IsSending())
}

func TestSendUploadFailureSkipsSend(t *testing.T) {
	transport := &fakeTransport{uploadErr: errors.New("boom")}
	c := NewController(transport)

	_, err := c.SendAuthoring(context.Background(), authoringEngine(t), "a.pdf", strings.NewReader("%PDF"))
	require.Error(t, err)
	assert.Empty(t, transport.sendReqs)
	assert.False(t, c.IsSending(), "flag clears so the user can retry")
}

func signerSession() *signing.Session {
	doc := document.Document{
		ID:     "doc-1",
		Status: document.StatusSent,
		Signers: []document.Signer{
			{ID: "jane", Name: "Jane", Email: "jane@x.com", Order: 1, Status: document.SignerPending},
		},
		Fields: []document.Field{
			{
				ID: "sig-1", Type: document.FieldSignature, PageNumber: 1,
				SignerID: "jane",
				Metadata: document.FieldMetadata{Required: true, Order: 1},
			},
			{
				ID: "text-1", Type: document.FieldText, PageNumber: 1,
				SignerID: "jane",
				Metadata: document.FieldMetadata{Required: true, Order: 2},
			},
		},
	}
	return signing.NewSession(doc, "jane")
}

func TestSubmitRejectsIncompleteLocally(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport)
	session := signerSession()
	require.NoError(t, session.SubmitSignature("sig-1", signing.TypedCapture{Text: "Jane"}))

	_, err := c.SubmitSigner(context.Background(), session, "tok")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 1, verr.Remaining)
	assert.Contains(t, verr.Message, "1 required field")
	assert.Empty(t, transport.signReqs, "local rejection makes no network call")
	assert.Equal(t, document.SignerPending, session.SignerStatus())
}

func completeSession(t *testing.T) *signing.Session {
	t.Helper()
	session := signerSession()
	require.NoError(t, session.SubmitSignature("sig-1", signing.TypedCapture{Text: "Jane"}))
	require.NoError(t, session.SubmitText("text-1", "hello"))
	return session
}

func TestSubmitOptimisticSuccess(t *testing.T) {
	transport := &fakeTransport{signResp: wire.SignResponse{
		SignerStatus:   "signed",
		DocumentStatus: "partially_signed",
	}}
	c := NewController(transport)
	session := completeSession(t)

	// The optimistic mark is visible while the call is in flight.
	transport.onSign = func() {
		assert.Equal(t, document.SignerSigned, session.SignerStatus())
		assert.True(t, c.IsSubmitting())
	}

	resp, err := c.SubmitSigner(context.Background(), session, "tok")
	require.NoError(t, err)
	assert.Equal(t, "partially_signed", resp.DocumentStatus)
	assert.Equal(t, document.SignerSigned, session.SignerStatus())
	assert.False(t, c.IsSubmitting())

	require.Len(t, transport.signReqs, 1)
	assert.Len(t, transport.signReqs[0].Fields, 2)
}

func TestSubmitRollsBackOnRejection(t *testing.T) {
	transport := &fakeTransport{signErr: &RejectedError{StatusCode: 409, Code: "WAITING_ON_SIGNER", Message: "not your turn"}}
	c := NewController(transport)
	session := completeSession(t)

	_, err := c.SubmitSigner(context.Background(), session, "tok")
	require.Error(t, err)

	var rejected *RejectedError
	assert.ErrorAs(t, err, &rejected)
	assert.Equal(t, document.SignerPending, session.SignerStatus(), "explicit rejection rolls the mark back")
}

func TestSubmitKeepsMarkOnTransportFailure(t *testing.T) {
	transport := &fakeTransport{signErr: errors.New("connection reset")}
	c := NewController(transport)
	session := completeSession(t)

	_, err := c.SubmitSigner(context.Background(), session, "tok")
	require.Error(t, err)

	// A plain transport failure is not a rejection; the optimistic
	// mark stays until a refetch reconciles it.
	assert.Equal(t, document.SignerSigned, session.SignerStatus())
}

func TestSubmitInFlightGuard(t *testing.T) {
	transport := &fakeTransport{}
	c := NewController(transport)
	session := completeSession(t)

	var second error
	transport.onSign = func() {
		_, second = c.SubmitSigner(context.Background(), session, "tok")
	}

	_, err := c.SubmitSigner(context.Background(), session, "tok")
	require.NoError(t, err)
	assert.ErrorIs(t, second, ErrInFlight)
	assert.Len(t, transport.signReqs, 1)
}

func TestOpenSessionSeedsMapperFromPages(t *testing.T) {
	transport := &fakeTransport{session: wire.SessionResponse{
		Document: wire.SessionDocument{
			ID:     "doc-1",
			Status: "sent",
			Pages: []wire.SessionPage{
				{PageNumber: 1, Width: 612, Height: 792},
				{PageNumber: 2, Width: 612, Height: 792},
			},
			Fields: []wire.SessionField{{
				ID: "f-1", Type: "signature", PageNumber: 1,
				XPosition: 25, YPosition: 40,
				SignerID: "s-jane", Required: true, Order: 1,
			}},
			Signers: []wire.SessionSigner{{ID: "s-jane", Name: "Jane", Email: "jane@x.com", Order: 1, Status: "pending"}},
		},
		CurrentSigner: wire.SessionSigner{ID: "s-jane", Order: 1, Status: "pending"},
	}}
	c := NewController(transport)

	session, mapper, err := c.OpenSession(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "s-jane", session.SignerID())
	require.NotNil(t, session.NextRequiredField())
	assert.Equal(t, "f-1", session.NextRequiredField().ID)

	assert.Equal(t, []int{1, 2}, mapper.TrackedPages())
	x, y, err := mapper.ToAbsolute(1, document.Position{X: 25, Y: 40}, 1)
	require.NoError(t, err)
	assert.InDelta(t, 153.0, x, 1e-9)
	assert.InDelta(t, 316.8, y, 1e-9)
}

func TestOpenSessionPropagatesFetchError(t *testing.T) {
	transport := &fakeTransport{sessionErr: &SessionError{StatusCode: 404, Message: "unknown token"}}
	c := NewController(transport)

	_, _, err := c.OpenSession(context.Background(), "tok")
	var sessionErr *SessionError
	assert.ErrorAs(t, err, &sessionErr)
}

func TestRejectedErrorMessage(t *testing.T) {
	err := &RejectedError{StatusCode: 400, Message: "bad payload"}
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "bad payload")

	bare := &RejectedError{StatusCode: 500}
	assert.Contains(t, bare.Error(), "500")
}
