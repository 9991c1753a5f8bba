// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package http

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/google/uuid"

	"github.com/authnd/authnd/pkg/passkey"
)

// Handler provides HTTP handlers for the passkey ceremonies. The
// handlers can be mounted on any router.
type Handler struct {
	service *passkey.Service
	logger  *slog.Logger
}

// NewHandler creates a new passkey HTTP handler.
func NewHandler(service *passkey.Service) *Handler {
	return &Handler{
		service: service,
		logger:  slog.Default(),
	}
}

// WithLogger sets a custom logger for the handler.
func (h *Handler) WithLogger(logger *slog.Logger) *Handler {
	h.logger = logger
	return h
}

// sessionKey returns the client's session key, minting a fresh one when
// the begin request does not carry the header.
func sessionKey(r *http.Request) string {
	if key := r.Header.Get(HeaderSessionID); key != "" {
		return key
	}
	return uuid.NewString()
}

// BeginRegistration handles POST /registration/begin
//
// Request body:
//
//	{
//	    "handle": "alice",
//	    "display_name": "Alice" // optional
//	}
//
// Response: WebAuthn PublicKeyCredentialCreationOptions
// Header: X-Session-Id (session key for FinishRegistration)
func (h *Handler) BeginRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req BeginRegistrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Handle == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "handle is required")
		return
	}

	key := sessionKey(r)
	options, err := h.service.StartRegistration(r.Context(), key, req.Handle, req.DisplayName)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set(HeaderSessionID, key)
	h.writeJSON(w, http.StatusOK, options)
}

// FinishRegistration handles POST /registration/finish
//
// Header: X-Session-Id (from BeginRegistration)
// Request body: attestation response from the authenticator
// Response: AuthResponse with token and user ID
func (h *Handler) FinishRegistration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	key := r.Header.Get(HeaderSessionID)
	if key == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "session ID header is required")
		return
	}

	response, err := protocol.ParseCredentialCreationResponseBody(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid attestation response")
		return
	}

	result, err := h.service.FinishRegistration(r.Context(), key, response)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("registration completed",
		"handle", result.Identity.Handle)

	h.writeJSON(w, http.StatusOK, AuthResponse{
		Token:  result.Token,
		UserID: base64.RawURLEncoding.EncodeToString(result.Identity.ID),
	})
}

// BeginLogin handles POST /login/begin
//
// Request body:
//
//	{
//	    "handle": "alice"
//	}
//
// Response: WebAuthn PublicKeyCredentialRequestOptions
// Header: X-Session-Id (session key for FinishLogin)
func (h *Handler) BeginLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	var req BeginLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request body")
		return
	}
	if req.Handle == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "handle is required")
		return
	}

	key := sessionKey(r)
	options, err := h.service.StartLogin(r.Context(), key, req.Handle)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	w.Header().Set(HeaderSessionID, key)
	h.writeJSON(w, http.StatusOK, options)
}

// FinishLogin handles POST /login/finish
//
// Header: X-Session-Id (from BeginLogin)
// Request body: assertion response from the authenticator
// Response: AuthResponse with token and user ID
func (h *Handler) FinishLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	key := r.Header.Get(HeaderSessionID)
	if key == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "session ID header is required")
		return
	}

	response, err := protocol.ParseCredentialRequestResponseBody(r.Body)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid assertion response")
		return
	}

	result, err := h.service.FinishLogin(r.Context(), key, response)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.logger.Info("login completed",
		"handle", result.Identity.Handle)

	h.writeJSON(w, http.StatusOK, AuthResponse{
		Token:  result.Token,
		UserID: base64.RawURLEncoding.EncodeToString(result.Identity.ID),
	})
}

// RegistrationStatus handles GET /registration/status?handle=alice
//
// Response: {"registered": true/false}
func (h *Handler) RegistrationStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeError(w, http.StatusMethodNotAllowed, ErrorCodeInvalidRequest, "method not allowed")
		return
	}

	handle := r.URL.Query().Get("handle")
	if handle == "" {
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "handle is required")
		return
	}

	registered, err := h.service.IsRegistered(r.Context(), handle)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, StatusResponse{Registered: registered})
}

// handleServiceError maps service errors to HTTP responses. Verification
// failures collapse to a single 401 body; the precise reason is logged
// server-side only.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, passkey.ErrInputInvalid):
		h.writeError(w, http.StatusBadRequest, ErrorCodeInvalidRequest, "invalid request")
	case errors.Is(err, passkey.ErrCeremonyNotFound):
		h.writeError(w, http.StatusBadRequest, ErrorCodeCeremonyNotFound, "no pending ceremony for session")
	case errors.Is(err, passkey.ErrNoCredentials):
		h.writeError(w, http.StatusBadRequest, ErrorCodeNoCredentials, "no registered credentials")
	case errors.Is(err, passkey.ErrConflict):
		h.writeError(w, http.StatusConflict, ErrorCodeConflict, "already registered")
	case passkey.IsVerificationFailed(err):
		reason, _ := passkey.ReasonOf(err)
		h.logger.Warn("ceremony verification failed",
			"reason", string(reason),
			"path", r.URL.Path)
		h.writeError(w, http.StatusUnauthorized, ErrorCodeVerificationFailed, "verification failed")
	default:
		h.logger.Error("ceremony request failed",
			"error", err,
			"path", r.URL.Path)
		h.writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal server error")
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Headers already written, can only log.
		h.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status)
	}
}

// writeError writes an error response.
func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: message,
	})
}
