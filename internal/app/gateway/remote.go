package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"identity_hub/internal/domain/model"
	"identity_hub/internal/platform/logging"
)

const maxResponseBytes = 64 << 10

type validateRequest struct {
	Token string `json:"token"`
}

// Remote asks the identity service's validation endpoint about a token.
type Remote struct {
	url     string
	timeout time.Duration
	client  *http.Client
	log     logging.Logger
}

// NewRemote builds a Remote that POSTs to baseURL+path. A nil client means
// http.DefaultClient.
func NewRemote(baseURL, path string, timeout time.Duration, client *http.Client, log logging.Logger) (*Remote, error) {
	endpoint, err := url.JoinPath(baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("build validate url: %w", err)
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{
		url:     endpoint,
		timeout: timeout,
		client:  client,
		log:     log.With("module", "auth_gateway", "endpoint", endpoint),
	}, nil
}

func (r *Remote) CheckBearer(ctx context.Context, header string) model.ValidationOutcome {
	token, ok := ExtractBearer(header)
	if !ok {
		return model.InvalidOutcome(model.ReasonMalformedHeader)
	}

	out, err := r.validate(ctx, token)
	if err != nil {
		r.log.Warn(ctx, "token validation call failed", "error", err)
		return model.UpstreamOutcome(describe(err))
	}
	switch {
	case !out.Valid && out.Message == "":
		r.log.Warn(ctx, "identity service rejected a token without a reason")
		return model.UpstreamOutcome("incomplete response")
	case !out.Valid:
		return model.InvalidOutcome(out.Message)
	case out.Username == "":
		r.log.Warn(ctx, "identity service confirmed a token without a username")
		return model.UpstreamOutcome("incomplete response")
	}
	return model.ValidOutcome(out.Username)
}

func (r *Remote) validate(ctx context.Context, token string) (model.ValidationOutcome, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	body, err := json.Marshal(validateRequest{Token: token})
	if err != nil {
		return model.ValidationOutcome{}, fmt.Errorf("encode validate request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return model.ValidationOutcome{}, fmt.Errorf("build validate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return model.ValidationOutcome{}, fmt.Errorf("validate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return model.ValidationOutcome{}, &statusError{code: resp.StatusCode}
	}

	var out model.ValidationOutcome
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&out); err != nil {
		return model.ValidationOutcome{}, &decodeError{err: err}
	}
	return out, nil
}

type statusError struct{ code int }

func (e *statusError) Error() string { return fmt.Sprintf("validate returned status %d", e.code) }

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "decode validate response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// describe turns a transport failure into the short detail shown to callers.
func describe(err error) string {
	var se *statusError
	var de *decodeError
	var ne net.Error
	switch {
	case errors.As(err, &se):
		return fmt.Sprintf("status %d", se.code)
	case errors.As(err, &de):
		return "invalid response"
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "request canceled"
	default:
		return "unreachable"
	}
}
