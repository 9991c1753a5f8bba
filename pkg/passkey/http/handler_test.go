// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authnd/authnd/pkg/passkey"
)

const (
	testRPID   = "example.com"
	testOrigin = "https://example.com"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()

	svc, err := passkey.NewService(passkey.Params{
		Config: &passkey.Config{
			RPID:          testRPID,
			RPDisplayName: "Example Corp",
			RPOrigins:     []string{testOrigin},
		},
		UserStore:       passkey.NewMemoryUserStore(),
		CredentialStore: passkey.NewMemoryCredentialStore(),
		ChallengeStore:  passkey.NewMemoryChallengeStore(0),
	})
	require.NoError(t, err)
	return NewHandler(svc)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

// registerThroughAPI drives a registration ceremony through the HTTP
// handlers with a simulated authenticator and returns the auth response.
func registerThroughAPI(t *testing.T, h *Handler, mock *passkey.MockAuthenticator, handle string) AuthResponse {
	t.Helper()

	rec := postJSON(t, h.BeginRegistration, "/registration/begin", BeginRegistrationRequest{Handle: handle}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, session)

	var options protocol.CredentialCreation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))

	response, err := mock.Register(options.Response.Challenge, testOrigin)
	require.NoError(t, err)

	rec = postJSON(t, h.FinishRegistration, "/registration/finish", response.Raw, map[string]string{HeaderSessionID: session})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var auth AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	return auth
}

func TestHandler_RegistrationFlow(t *testing.T) {
	h := newTestHandler(t)

	mock, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)

	auth := registerThroughAPI(t, h, mock, "alice")
	assert.NotEmpty(t, auth.Token)
	assert.NotEmpty(t, auth.UserID)
}

func TestHandler_LoginFlow(t *testing.T) {
	h := newTestHandler(t)

	mock, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registered := registerThroughAPI(t, h, mock, "alice")

	rec := postJSON(t, h.BeginLogin, "/login/begin", BeginLoginRequest{Handle: "alice"}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session := rec.Header().Get(HeaderSessionID)
	require.NotEmpty(t, session)

	var options protocol.CredentialAssertion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))
	require.NotEmpty(t, options.Response.AllowedCredentials)

	response, err := mock.Assert(options.Response.Challenge, nil, testOrigin)
	require.NoError(t, err)

	rec = postJSON(t, h.FinishLogin, "/login/finish", response.Raw, map[string]string{HeaderSessionID: session})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var auth AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	assert.Equal(t, registered.UserID, auth.UserID)
}

func TestHandler_BeginRegistration_Validation(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.BeginRegistration, "/registration/begin", BeginRegistrationRequest{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorCodeInvalidRequest)

	req := httptest.NewRequest(http.MethodPost, "/registration/begin", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	h.BeginRegistration(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/registration/begin", nil)
	rec = httptest.NewRecorder()
	h.BeginRegistration(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_BeginRegistration_KeepsClientSessionKey(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.BeginRegistration, "/registration/begin",
		BeginRegistrationRequest{Handle: "alice"},
		map[string]string{HeaderSessionID: "client-chosen-key"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "client-chosen-key", rec.Header().Get(HeaderSessionID))
}

func TestHandler_BeginRegistration_Conflict(t *testing.T) {
	h := newTestHandler(t)

	mock, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerThroughAPI(t, h, mock, "alice")

	rec := postJSON(t, h.BeginRegistration, "/registration/begin", BeginRegistrationRequest{Handle: "alice"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorCodeConflict)
}

func TestHandler_FinishRegistration_Errors(t *testing.T) {
	h := newTestHandler(t)

	// Missing session header.
	rec := postJSON(t, h.FinishRegistration, "/registration/finish", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unparseable attestation body.
	rec = postJSON(t, h.FinishRegistration, "/registration/finish",
		map[string]string{"id": "x"},
		map[string]string{HeaderSessionID: "sess"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorCodeInvalidRequest)

	// Valid-looking response with no pending ceremony.
	mock, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	response, err := mock.Register([]byte("challenge-bytes-0123456789abcdef"), testOrigin)
	require.NoError(t, err)

	rec = postJSON(t, h.FinishRegistration, "/registration/finish", response.Raw,
		map[string]string{HeaderSessionID: "never-started"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorCodeCeremonyNotFound)
}

func TestHandler_BeginLogin_NoCredentials(t *testing.T) {
	h := newTestHandler(t)

	rec := postJSON(t, h.BeginLogin, "/login/begin", BeginLoginRequest{Handle: "nobody"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorCodeNoCredentials)
}

func TestHandler_FinishLogin_VerificationFailure(t *testing.T) {
	h := newTestHandler(t)

	mock, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerThroughAPI(t, h, mock, "alice")

	rec := postJSON(t, h.BeginLogin, "/login/begin", BeginLoginRequest{Handle: "alice"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(HeaderSessionID)

	var options protocol.CredentialAssertion
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &options))

	// Assertion bound to a different origin fails verification and the
	// response does not say which check tripped.
	response, err := mock.Assert(options.Response.Challenge, nil, "https://evil.example")
	require.NoError(t, err)

	rec = postJSON(t, h.FinishLogin, "/login/finish", response.Raw, map[string]string{HeaderSessionID: session})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), ErrorCodeVerificationFailed)
	assert.NotContains(t, rec.Body.String(), "origin")
}

func TestHandler_RegistrationStatus(t *testing.T) {
	h := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/registration/status?handle=alice", nil)
	rec := httptest.NewRecorder()
	h.RegistrationStatus(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registered":false`)

	mock, err := passkey.NewMockAuthenticator(testRPID)
	require.NoError(t, err)
	registerThroughAPI(t, h, mock, "alice")

	rec = httptest.NewRecorder()
	h.RegistrationStatus(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"registered":true`)

	// Handle is required.
	req = httptest.NewRequest(http.MethodGet, "/registration/status", nil)
	rec = httptest.NewRecorder()
	h.RegistrationStatus(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMountChi(t *testing.T) {
	h := newTestHandler(t)

	r := chi.NewRouter()
	r.Route("/api/v1/passkey", func(r chi.Router) {
		MountChi(r, h)
	})

	body, _ := json.Marshal(BeginRegistrationRequest{Handle: "alice"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/passkey/registration/begin", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(HeaderSessionID))

	req = httptest.NewRequest(http.MethodGet, "/api/v1/passkey/registration/status?handle=alice", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRoutes(t *testing.T) {
	h := newTestHandler(t)

	routes := h.Routes()
	require.Len(t, routes, 5)

	paths := make(map[string]string, len(routes))
	for _, route := range routes {
		paths[route.Path] = route.Method
		assert.NotNil(t, route.Handler)
	}
	assert.Equal(t, "POST", paths["/registration/begin"])
	assert.Equal(t, "GET", paths["/registration/status"])
	assert.Equal(t, "POST", paths["/login/finish"])
}
