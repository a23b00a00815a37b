package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/mesingh9719/docforge-sign/internal/wire"
)

// RejectedError is an explicit non-success response from the server.
// The server's message, when present, is surfaced to the user and a
// retry is offered; local state is preserved.
type RejectedError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server rejected request (%d)", e.StatusCode)
}

// SessionError is a terminal token failure: the signing link is
// invalid or expired and nothing client-side can recover it. The
// caller renders an access-denied view with no retry.
type SessionError struct {
	StatusCode int
	Message    string
}

func (e *SessionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("signing session unavailable: %s", e.Message)
	}
	return "signing session unavailable"
}

// Client is the HTTP implementation of Transport against the
// signatures API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL, e.g.
// "https://sign.example.com".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

var _ Transport = (*Client)(nil)

// Upload posts the raw PDF as multipart form data and returns the
// stored document's id.
func (c *Client) Upload(ctx context.Context, filename string, pdf io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, pdf); err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/signatures/upload", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out wire.UploadResponse
	if err := c.do(req, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// Send posts the authoring payload.
func (c *Client) Send(ctx context.Context, payload wire.SendRequest) error {
	req, err := c.jsonRequest(ctx, http.MethodPost, "/signatures/send", payload)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// FetchSession resolves a signing token. Token failures (404, 410)
// come back as *SessionError; they are terminal for the screen.
func (c *Client) FetchSession(ctx context.Context, token string) (wire.SessionResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/signatures/"+token, nil)
	if err != nil {
		return wire.SessionResponse{}, err
	}
	var out wire.SessionResponse
	if err := c.do(req, &out); err != nil {
		return wire.SessionResponse{}, sessionErrorFrom(err)
	}
	return out, nil
}

// Sign posts the per-signer field values for a token.
func (c *Client) Sign(ctx context.Context, token string, payload wire.SignRequest) (wire.SignResponse, error) {
	req, err := c.jsonRequest(ctx, http.MethodPost, "/signatures/"+token+"/sign", payload)
	if err != nil {
		return wire.SignResponse{}, err
	}
	var out wire.SignResponse
	if err := c.do(req, &out); err != nil {
		return wire.SignResponse{}, err
	}
	return out, nil
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes a request and decodes a success body into out. A
// non-2xx response decodes the error envelope into a *RejectedError.
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calling %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		rejected := &RejectedError{StatusCode: resp.StatusCode}
		var envelope wire.ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err == nil {
			rejected.Code = envelope.Code
			rejected.Message = envelope.Message
		}
		return rejected
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// sessionErrorFrom converts token rejections into the terminal
// SessionError; other failures pass through as retryable transport
// errors.
func sessionErrorFrom(err error) error {
	if rejected, ok := err.(*RejectedError); ok {
		switch rejected.StatusCode {
		case http.StatusNotFound, http.StatusGone, http.StatusUnauthorized, http.StatusForbidden:
			return &SessionError{StatusCode: rejected.StatusCode, Message: rejected.Message}
		}
	}
	return err
}
