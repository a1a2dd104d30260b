package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/ports"
	"github.com/bnema/short5-cli/internal/version"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	maxResponseBytes   = 1 << 20
	refreshPath        = "/auth/refresh"
	jsonContentType    = "application/json"
	conflictErrorCode  = "already_voted"
	defaultHTTPTimeout = 15 * time.Second
)

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Timeout applies to calls whose context has no deadline. Zero uses the default, negative disables it.
	Timeout time.Duration
	Logger  *zap.Logger
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	// JSON is encoded as the request body. Ignored when Raw is set.
	JSON any
	// Raw is sent as is with RawContentType, e.g. a multipart upload.
	Raw            []byte
	RawContentType string
	// RequireAuth marks calls that are expected to carry a token.
	RequireAuth bool
	// SkipRefresh reports a 401 as a rejection instead of recovering the
	// session. Set on calls that establish credentials, e.g. login.
	SkipRefresh bool
}

// Pipeline executes API calls with the session's credentials and recovers
// from an expired access token with one refresh and one retry.
type Pipeline struct {
	baseURL    string
	httpClient *http.Client
	session    ports.CredentialKeeper
	timeout    time.Duration
	logger     *zap.Logger
	refreshes  singleflight.Group
}

func NewPipeline(session ports.CredentialKeeper, opts Options) *Pipeline {
	client := opts.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: client,
		session:    session,
		timeout:    timeout,
		logger:     logger,
	}
}

type response struct {
	status int
	body   []byte
}

func (r response) ok() bool {
	return r.status >= 200 && r.status <= 299
}

// Execute sends req and decodes a successful JSON body into out (which may be
// nil). A 401 triggers at most one token refresh and one retry; when that is
// not possible the session is cleared and the error matches
// domain.ErrAuthExpired.
func (p *Pipeline) Execute(ctx context.Context, req Request, out any) error {
	if _, ok := ctx.Deadline(); !ok && p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}

	pair, err := p.session.ResolveCredential(ctx)
	if err != nil {
		return fmt.Errorf("resolve credentials: %w", err)
	}
	if !pair.HasAccess() && req.RequireAuth {
		p.logger.Warn("no access token for authenticated request", zap.String("method", req.Method), zap.String("path", req.Path))
	}

	resp, err := p.send(ctx, req, body, contentType, pair.AccessToken)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized && !req.SkipRefresh {
		refreshed, err := p.recoverCredentials(ctx, pair)
		if err != nil {
			return err
		}

		resp, err = p.send(ctx, req, body, contentType, refreshed.AccessToken)
		if err != nil {
			return err
		}
		if resp.status == http.StatusUnauthorized {
			p.expire(ctx, "retry still unauthorized")
			return &HTTPError{Kind: KindAuthExpired, StatusCode: resp.status, Message: "still unauthorized after refresh"}
		}
	}

	return decodeResponse(resp, out)
}

// recoverCredentials produces a fresh credential pair after a 401, or clears
// the session when that is impossible.
func (p *Pipeline) recoverCredentials(ctx context.Context, sent domain.CredentialPair) (domain.CredentialPair, error) {
	if !sent.HasRefresh() {
		p.expire(ctx, "no refresh token")
		return domain.CredentialPair{}, &HTTPError{Kind: KindAuthExpired, StatusCode: http.StatusUnauthorized, Message: "no refresh token"}
	}

	refreshed, err := p.refresh(ctx, sent)
	if err != nil {
		p.expire(ctx, "refresh failed")
		return domain.CredentialPair{}, &HTTPError{Kind: KindAuthExpired, StatusCode: http.StatusUnauthorized, Message: "token refresh failed", Err: err}
	}

	return refreshed, nil
}

// refresh exchanges the refresh token and installs the new pair. Concurrent
// refreshes of the same token share one request, and a caller arriving after
// another call already replaced the rejected token reuses the replacement.
func (p *Pipeline) refresh(ctx context.Context, sent domain.CredentialPair) (domain.CredentialPair, error) {
	result, err, _ := p.refreshes.Do(sent.RefreshToken, func() (any, error) {
		current, err := p.session.ResolveCredential(ctx)
		if err == nil && current.HasAccess() && current.AccessToken != sent.AccessToken {
			return current, nil
		}

		pair, err := p.requestRefresh(ctx, sent.RefreshToken)
		if err != nil {
			return domain.CredentialPair{}, err
		}
		if err := p.session.UpdateCredentials(ctx, pair); err != nil {
			return domain.CredentialPair{}, fmt.Errorf("store refreshed credentials: %w", err)
		}

		p.logger.Debug("access token refreshed")
		return pair, nil
	})
	if err != nil {
		return domain.CredentialPair{}, err
	}

	return result.(domain.CredentialPair), nil
}

// requestRefresh calls the refresh endpoint directly, without credentials and
// without the 401 handling of Execute.
func (p *Pipeline) requestRefresh(ctx context.Context, refreshToken string) (domain.CredentialPair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return domain.CredentialPair{}, fmt.Errorf("encode refresh request: %w", err)
	}

	resp, err := p.send(ctx, Request{Method: http.MethodPost, Path: refreshPath}, body, jsonContentType, "")
	if err != nil {
		return domain.CredentialPair{}, err
	}
	if !resp.ok() {
		return domain.CredentialPair{}, errorFromResponse(resp)
	}

	var tokens tokenPairResponse
	if err := json.Unmarshal(resp.body, &tokens); err != nil {
		return domain.CredentialPair{}, fmt.Errorf("decode refresh response: %w", err)
	}
	if strings.TrimSpace(tokens.AccessToken) == "" {
		return domain.CredentialPair{}, errors.New("refresh response missing access_token")
	}

	pair := domain.CredentialPair{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken}
	if !pair.HasRefresh() {
		pair.RefreshToken = refreshToken
	}

	return pair, nil
}

func (p *Pipeline) expire(ctx context.Context, reason string) {
	p.logger.Warn("session expired, clearing credentials", zap.String("reason", reason))
	if err := p.session.ClearSession(context.WithoutCancel(ctx)); err != nil {
		p.logger.Warn("failed to clear session", zap.Error(err))
	}
}

func (p *Pipeline) send(ctx context.Context, req Request, body []byte, contentType, accessToken string) (response, error) {
	endpoint := p.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", jsonContentType)
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return response{}, &HTTPError{Kind: KindNetwork, Err: err}
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return response{}, &HTTPError{Kind: KindNetwork, StatusCode: httpResp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	p.logger.Debug("api call", zap.String("method", method), zap.String("path", req.Path), zap.Int("status", httpResp.StatusCode))

	return response{status: httpResp.StatusCode, body: data}, nil
}

func encodeBody(req Request) ([]byte, string, error) {
	if req.Raw != nil {
		return req.Raw, req.RawContentType, nil
	}
	if req.JSON == nil {
		return nil, "", nil
	}

	data, err := json.Marshal(req.JSON)
	if err != nil {
		return nil, "", fmt.Errorf("encode request body: %w", err)
	}

	return data, jsonContentType, nil
}

func decodeResponse(resp response, out any) error {
	if !resp.ok() {
		return errorFromResponse(resp)
	}
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// errorFromResponse reads the message from detail, error.message or message,
// in that order. A 409 or an already_voted code is a conflict.
func errorFromResponse(resp response) *HTTPError {
	httpErr := &HTTPError{Kind: KindRejected, StatusCode: resp.status}

	var payload errorPayload
	if err := json.Unmarshal(resp.body, &payload); err == nil {
		httpErr.Message = payload.message()
		httpErr.Code = payload.code()
	}
	if httpErr.Message == "" {
		httpErr.Message = fmt.Sprintf("request failed (status %d)", resp.status)
	}

	if resp.status == http.StatusConflict || strings.EqualFold(httpErr.Code, conflictErrorCode) {
		httpErr.Kind = KindConflict
	}

	return httpErr
}

type errorPayload struct {
	Detail  json.RawMessage `json:"detail"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
}

type nestedError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (p errorPayload) message() string {
	var detail string
	if json.Unmarshal(p.Detail, &detail) == nil && strings.TrimSpace(detail) != "" {
		return detail
	}

	var nested nestedError
	if json.Unmarshal(p.Error, &nested) == nil && strings.TrimSpace(nested.Message) != "" {
		return nested.Message
	}

	return strings.TrimSpace(p.Message)
}

func (p errorPayload) code() string {
	var nested nestedError
	if json.Unmarshal(p.Error, &nested) == nil && nested.Code != "" {
		return nested.Code
	}

	return p.Code
}
