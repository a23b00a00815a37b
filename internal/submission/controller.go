// Package submission validates readiness, packages the authoring and
// per-signer payloads, hands them to the transport, and reconciles
// local state after the remote call. Validation errors never reach
// the network; transport errors preserve state for retry.
package submission

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mesingh9719/docforge-sign/internal/document"
	"github.com/mesingh9719/docforge-sign/internal/geometry"
	"github.com/mesingh9719/docforge-sign/internal/placement"
	"github.com/mesingh9719/docforge-sign/internal/signing"
	"github.com/mesingh9719/docforge-sign/internal/wire"
)

// Transport is the remote side the controller talks to. The HTTP
// client implements it; tests substitute fakes.
type Transport interface {
	// Upload stores the raw PDF and returns the document id used by
	// Send. Upload always precedes Send; the two are sequenced, never
	// parallel.
	Upload(ctx context.Context, filename string, pdf io.Reader) (string, error)
	// Send dispatches the authoring payload.
	Send(ctx context.Context, req wire.SendRequest) error
	// FetchSession resolves a signing token into a session.
	FetchSession(ctx context.Context, token string) (wire.SessionResponse, error)
	// Sign submits the per-signer field values.
	Sign(ctx context.Context, token string, req wire.SignRequest) (wire.SignResponse, error)
}

// ValidationError is a local, user-facing rejection raised before any
// network call.
type ValidationError struct {
	Message string
	// Remaining counts the unfilled required fields for per-signer
	// submission rejections; zero otherwise.
	Remaining int
}

func (e *ValidationError) Error() string { return e.Message }

// ErrInFlight guards against duplicate submission while a call is
// outstanding. The triggering control stays disabled until the
// in-flight call resolves.
var ErrInFlight = errors.New("a submission is already in flight")

// Controller packages and dispatches both payload shapes.
type Controller struct {
	transport Transport

	isSending    bool
	isSubmitting bool
}

// NewController creates a controller over the given transport.
func NewController(transport Transport) *Controller {
	return &Controller{transport: transport}
}

// IsSending reports whether an authoring send is in flight.
func (c *Controller) IsSending() bool { return c.isSending }

// IsSubmitting reports whether a per-signer submission is in flight.
func (c *Controller) IsSubmitting() bool { return c.isSubmitting }

// SendAuthoring dispatches the authoring payload: validates that at
// least one field is placed, runs roster synchronization, uploads the
// PDF to obtain the document id, then posts {document_id, signers,
// fields}. Orphaned fields are excluded from the payload. On any
// failure the engine state is untouched, so the user can retry
// without data loss.
func (c *Controller) SendAuthoring(ctx context.Context, engine *placement.Engine, filename string, pdf io.Reader) (string, error) {
	if c.isSending {
		return "", ErrInFlight
	}
	if len(engine.Fields()) == 0 {
		return "", &ValidationError{Message: "place at least one field before sending"}
	}
	if orphaned := engine.OrphanedFields(); len(orphaned) > 0 {
		return "", &ValidationError{
			Message: fmt.Sprintf("%d field(s) have no signer assigned; assign or delete them before sending", len(orphaned)),
		}
	}

	signers := engine.SyncRoster()
	fields := engine.SendableFields()

	c.isSending = true
	defer func() { c.isSending = false }()

	documentID, err := c.transport.Upload(ctx, filename, pdf)
	if err != nil {
		return "", fmt.Errorf("uploading document: %w", err)
	}

	req := wire.SendRequest{DocumentID: documentID}
	for _, s := range signers {
		req.Signers = append(req.Signers, wire.ToSigner(s))
	}
	for _, f := range fields {
		req.Fields = append(req.Fields, wire.ToAuthoringField(f))
	}

	if err := c.transport.Send(ctx, req); err != nil {
		return "", fmt.Errorf("sending document: %w", err)
	}
	return documentID, nil
}

// SubmitSigner dispatches the per-signer payload for the session's
// signer. Rejected locally, naming the remaining count, while any
// required field is unfilled. On success the local signer status is
// set optimistically; the document status is whatever the server
// reports, since only it knows other signers' progress. An explicit
// transport rejection rolls the optimistic mark back; a mere
// transport failure leaves it for the retry to reconcile.
func (c *Controller) SubmitSigner(ctx context.Context, session *signing.Session, token string) (wire.SignResponse, error) {
	if c.isSubmitting {
		return wire.SignResponse{}, ErrInFlight
	}
	if remaining := session.RemainingCount(); remaining > 0 {
		return wire.SignResponse{}, &ValidationError{
			Message:   fmt.Sprintf("%d required field(s) still need a value", remaining),
			Remaining: remaining,
		}
	}

	req := wire.SignRequest{}
	for _, v := range session.Values() {
		req.Fields = append(req.Fields, wire.FieldValue{ID: v.ID, Value: v.Value})
	}

	c.isSubmitting = true
	defer func() { c.isSubmitting = false }()

	cmd := markSigned(session)
	cmd.apply()

	resp, err := c.transport.Sign(ctx, token, req)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			cmd.rollback()
		}
		return wire.SignResponse{}, fmt.Errorf("submitting signature: %w", err)
	}
	return resp, nil
}

// Refresh refetches the session to obtain the authoritative
// server-side document status after an optimistic local update.
func (c *Controller) Refresh(ctx context.Context, token string) (wire.SessionResponse, error) {
	return c.transport.FetchSession(ctx, token)
}

// OpenSession resolves a signing token into the local signing session
// and a coordinate mapper seeded with the document's page boxes.
func (c *Controller) OpenSession(ctx context.Context, token string) (*signing.Session, *geometry.Mapper, error) {
	resp, err := c.transport.FetchSession(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	doc := wire.FromSessionDocument(resp.Document)
	mapper := geometry.NewMapper()
	if err := mapper.TrackDocumentPages(doc.Pages); err != nil {
		return nil, nil, fmt.Errorf("seeding page geometry: %w", err)
	}
	return signing.NewSession(doc, resp.CurrentSigner.ID), mapper, nil
}

// command is an optimistic local mutation paired with its undo. It is
// applied immediately and rolled back only when the transport
// explicitly reports rejection, not on latency or discard.
type command struct {
	apply    func()
	rollback func()
}

// markSigned builds the optimistic command that flips the session's
// signer to signed in the local document view.
func markSigned(session *signing.Session) command {
	previous := session.SignerStatus()
	return command{
		apply:    func() { session.SetSignerStatus(document.SignerSigned) },
		rollback: func() { session.SetSignerStatus(previous) },
	}
}
