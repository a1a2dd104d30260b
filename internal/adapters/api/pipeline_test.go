package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bnema/short5-cli/internal/domain"
	"github.com/bnema/short5-cli/internal/version"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeSession struct {
	mu      sync.Mutex
	pair    domain.CredentialPair
	updates []domain.CredentialPair
	clears  int
}

func (s *fakeSession) ResolveCredential(context.Context) (domain.CredentialPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pair, nil
}

func (s *fakeSession) UpdateCredentials(_ context.Context, pair domain.CredentialPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = pair
	s.updates = append(s.updates, pair)
	return nil
}

func (s *fakeSession) ClearSession(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pair = domain.CredentialPair{}
	s.clears++
	return nil
}

func (s *fakeSession) snapshot() (domain.CredentialPair, int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pair, len(s.updates), s.clears
}

func newTestPipeline(t *testing.T, server *httptest.Server, session *fakeSession) *Pipeline {
	t.Helper()

	return NewPipeline(session, Options{BaseURL: server.URL, HTTPClient: server.Client(), Timeout: 5 * time.Second})
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// tokenServer answers /data with 200 only for the "fresh" token and counts
// calls per endpoint.
type tokenServer struct {
	dataCalls    atomic.Int32
	refreshCalls atomic.Int32
	refreshBody  atomic.Value
	refreshDelay time.Duration
	refreshFails bool
	alwaysDeny   bool
}

func (s *tokenServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		s.refreshCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		s.refreshBody.Store(string(body))
		if r.Header.Get("Authorization") != "" {
			writeJSON(w, http.StatusBadRequest, `{"detail":"refresh must not carry credentials"}`)
			return
		}
		if s.refreshDelay > 0 {
			time.Sleep(s.refreshDelay)
		}
		if s.refreshFails {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"refresh token revoked"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"access_token":"fresh","refresh_token":"refresh-2"}`)
	})
	mux.HandleFunc("/data", func(w http.ResponseWriter, r *http.Request) {
		s.dataCalls.Add(1)
		if s.alwaysDeny || r.Header.Get("Authorization") != "Bearer fresh" {
			writeJSON(w, http.StatusUnauthorized, `{"detail":"token expired"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"value":"retried"}`)
	})

	return mux
}

type dataPayload struct {
	Value string `json:"value"`
}

func TestExecuteSetsHeadersAndDecodes(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/things", r.URL.Path)
		assert.Equal(t, "b", r.URL.Query().Get("a"))
		assert.Equal(t, "Bearer token-1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, version.UserAgent(), r.Header.Get("User-Agent"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]string{"name": "x"}, body)

		writeJSON(w, http.StatusOK, `{"value":"ok"}`)
	}))
	defer server.Close()

	session := &fakeSession{pair: domain.CredentialPair{AccessToken: "token-1"}}
	var out dataPayload
	err := newTestPipeline(t, server, session).Execute(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "things",
		Query:  map[string][]string{"a": {"b"}},
		JSON:   map[string]string{"name": "x"},
	}, &out)

	require.NoError(t, err)
	assert.Equal(t, "ok", out.Value)
}

func TestExecuteRawBodyKeepsCallerContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "multipart/form-data; boundary=xyz", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "--xyz--", string(body))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := newTestPipeline(t, server, &fakeSession{}).Execute(context.Background(), Request{
		Method:         http.MethodPost,
		Path:           "/upload",
		Raw:            []byte("--xyz--"),
		RawContentType: "multipart/form-data; boundary=xyz",
		JSON:           map[string]string{"ignored": "yes"},
	}, &dataPayload{})

	require.NoError(t, err)
}

func TestExecuteAnonymousRequestWarnsWhenAuthExpected(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.Empty(t, r.Header.Get("Content-Type"))
		writeJSON(w, http.StatusOK, `{}`)
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	pipeline := NewPipeline(&fakeSession{}, Options{BaseURL: server.URL, Logger: zap.New(core)})

	require.NoError(t, pipeline.Execute(context.Background(), Request{Path: "/public"}, nil))
	assert.Zero(t, logs.Len())

	require.NoError(t, pipeline.Execute(context.Background(), Request{Path: "/me", RequireAuth: true}, nil))
	assert.Equal(t, 1, logs.FilterMessage("no access token for authenticated request").Len())
}

func TestExecuteRefreshesOnceAndRetries(t *testing.T) {
	t.Parallel()

	backend := &tokenServer{}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session := &fakeSession{pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	var out dataPayload
	err := newTestPipeline(t, server, session).Execute(context.Background(), Request{Path: "/data", RequireAuth: true}, &out)

	require.NoError(t, err)
	assert.Equal(t, "retried", out.Value)
	assert.EqualValues(t, 1, backend.refreshCalls.Load())
	assert.EqualValues(t, 2, backend.dataCalls.Load())
	assert.JSONEq(t, `{"refresh_token":"refresh-1"}`, backend.refreshBody.Load().(string))

	pair, updates, clears := session.snapshot()
	assert.Equal(t, domain.CredentialPair{AccessToken: "fresh", RefreshToken: "refresh-2"}, pair)
	assert.Equal(t, 1, updates)
	assert.Zero(t, clears)
}

func TestExecuteWithoutRefreshTokenExpiresSession(t *testing.T) {
	t.Parallel()

	backend := &tokenServer{}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session := &fakeSession{pair: domain.CredentialPair{AccessToken: "stale"}}
	err := newTestPipeline(t, server, session).Execute(context.Background(), Request{Path: "/data", RequireAuth: true}, nil)

	require.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.Zero(t, backend.refreshCalls.Load())
	assert.EqualValues(t, 1, backend.dataCalls.Load())

	pair, _, clears := session.snapshot()
	assert.False(t, pair.HasAccess())
	assert.Equal(t, 1, clears)
}

func TestExecuteRetryStillUnauthorizedExpiresSession(t *testing.T) {
	t.Parallel()

	backend := &tokenServer{alwaysDeny: true}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session := &fakeSession{pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	err := newTestPipeline(t, server, session).Execute(context.Background(), Request{Path: "/data"}, nil)

	require.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.EqualValues(t, 1, backend.refreshCalls.Load())
	assert.EqualValues(t, 2, backend.dataCalls.Load())
	_, _, clears := session.snapshot()
	assert.Equal(t, 1, clears)
}

func TestExecuteRefreshFailureExpiresSession(t *testing.T) {
	t.Parallel()

	backend := &tokenServer{refreshFails: true}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session := &fakeSession{pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	err := newTestPipeline(t, server, session).Execute(context.Background(), Request{Path: "/data"}, nil)

	require.ErrorIs(t, err, domain.ErrAuthExpired)
	assert.EqualValues(t, 1, backend.refreshCalls.Load())
	assert.EqualValues(t, 1, backend.dataCalls.Load())

	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, KindAuthExpired, httpErr.Kind)

	_, updates, clears := session.snapshot()
	assert.Zero(t, updates)
	assert.Equal(t, 1, clears)
}

func TestExecuteSkipRefreshReportsUnauthorizedAsRejection(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		pair domain.CredentialPair
	}{
		{name: "anonymous", pair: domain.CredentialPair{}},
		{name: "logged in", pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			backend := &tokenServer{alwaysDeny: true}
			server := httptest.NewServer(backend.handler())
			defer server.Close()

			session := &fakeSession{pair: tc.pair}
			err := newTestPipeline(t, server, session).Execute(context.Background(), Request{Path: "/data", SkipRefresh: true}, nil)

			require.ErrorIs(t, err, domain.ErrRejected)
			assert.NotErrorIs(t, err, domain.ErrAuthExpired)
			assert.ErrorContains(t, err, "token expired")
			assert.Zero(t, backend.refreshCalls.Load())
			assert.EqualValues(t, 1, backend.dataCalls.Load())

			pair, updates, clears := session.snapshot()
			assert.Equal(t, tc.pair, pair)
			assert.Zero(t, updates)
			assert.Zero(t, clears)
		})
	}
}

func TestExecuteConcurrentUnauthorizedCallsShareOneRefresh(t *testing.T) {
	t.Parallel()

	backend := &tokenServer{refreshDelay: 50 * time.Millisecond}
	server := httptest.NewServer(backend.handler())
	defer server.Close()

	session := &fakeSession{pair: domain.CredentialPair{AccessToken: "stale", RefreshToken: "refresh-1"}}
	pipeline := newTestPipeline(t, server, session)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = pipeline.Execute(context.Background(), Request{Path: "/data"}, nil)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, backend.refreshCalls.Load())
	_, _, clears := session.snapshot()
	assert.Zero(t, clears)
}

func TestExecuteMapsErrorBodies(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
		wantErr     error
		wantKind    ErrorKind
	}{
		{name: "detail", status: 400, body: `{"detail":"title too long","message":"ignored"}`, wantMessage: "title too long", wantErr: domain.ErrRejected, wantKind: KindRejected},
		{name: "nested error", status: 404, body: `{"error":{"code":"RESOURCE_NOT_FOUND","message":"Video not found"}}`, wantMessage: "Video not found", wantCode: "RESOURCE_NOT_FOUND", wantErr: domain.ErrRejected, wantKind: KindRejected},
		{name: "message", status: 422, body: `{"message":"bad input"}`, wantMessage: "bad input", wantErr: domain.ErrRejected, wantKind: KindRejected},
		{name: "detail list falls through", status: 422, body: `{"detail":[{"loc":["body"]}],"message":"validation failed"}`, wantMessage: "validation failed", wantErr: domain.ErrRejected, wantKind: KindRejected},
		{name: "unstructured", status: 502, body: `<html>bad gateway</html>`, wantMessage: "request failed (status 502)", wantErr: domain.ErrRejected, wantKind: KindRejected},
		{name: "conflict status", status: 409, body: `{"detail":"Already voted on this video"}`, wantMessage: "Already voted on this video", wantErr: domain.ErrVoteConflict, wantKind: KindConflict},
		{name: "conflict code", status: 400, body: `{"error":{"code":"already_voted","message":"duplicate"}}`, wantMessage: "duplicate", wantCode: "already_voted", wantErr: domain.ErrVoteConflict, wantKind: KindConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tc.status, tc.body)
			}))
			defer server.Close()

			err := newTestPipeline(t, server, &fakeSession{}).Execute(context.Background(), Request{Path: "/x"}, nil)
			require.ErrorIs(t, err, tc.wantErr)

			var httpErr *HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, tc.wantKind, httpErr.Kind)
			assert.Equal(t, tc.status, httpErr.StatusCode)
			assert.Equal(t, tc.wantMessage, httpErr.Message)
			assert.Equal(t, tc.wantCode, httpErr.Code)
			assert.Equal(t, tc.wantMessage, err.Error())
		})
	}
}

func TestExecuteConflictIsNotAuthExpiry(t *testing.T) {
	t.Parallel()

	err := &HTTPError{Kind: KindConflict, StatusCode: 409}
	assert.ErrorIs(t, err, domain.ErrVoteConflict)
	assert.ErrorIs(t, err, domain.ErrRejected)
	assert.NotErrorIs(t, err, domain.ErrAuthExpired)
	assert.NotErrorIs(t, err, domain.ErrNetwork)
}

func TestExecuteNetworkFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	pipeline := NewPipeline(&fakeSession{}, Options{BaseURL: baseURL, Timeout: time.Second})
	err := pipeline.Execute(context.Background(), Request{Path: "/feed"}, nil)

	require.ErrorIs(t, err, domain.ErrNetwork)
	assert.Contains(t, err.Error(), "network failure")
}

func TestExecuteToleratesEmptySuccessBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	var out dataPayload
	require.NoError(t, newTestPipeline(t, server, &fakeSession{}).Execute(context.Background(), Request{Path: "/x"}, &out))
	assert.Empty(t, out.Value)
}
