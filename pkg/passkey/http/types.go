// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package http

// HeaderSessionID carries the opaque session key that links the begin
// and finish halves of a ceremony.
const HeaderSessionID = "X-Session-Id"

// BeginRegistrationRequest is the request body for starting registration.
type BeginRegistrationRequest struct {
	// Handle is the unique login name (required).
	Handle string `json:"handle"`

	// DisplayName is shown by authenticator UIs (optional, defaults to
	// the handle).
	DisplayName string `json:"display_name,omitempty"`
}

// BeginLoginRequest is the request body for starting authentication.
type BeginLoginRequest struct {
	// Handle is the unique login name (required).
	Handle string `json:"handle"`
}

// StatusResponse reports whether a handle has registered credentials.
type StatusResponse struct {
	Registered bool `json:"registered"`
}

// AuthResponse is the response after a successful ceremony.
type AuthResponse struct {
	// Token is the post-ceremony token (JWT or base64 user ID).
	Token string `json:"token"`

	// UserID is the base64-encoded WebAuthn user handle.
	UserID string `json:"user_id"`
}

// ErrorResponse is the response format for errors.
type ErrorResponse struct {
	// Error is the machine-readable error code.
	Error string `json:"error"`

	// Message is a human-readable error message.
	Message string `json:"message"`
}

// Error codes returned in ErrorResponse.
const (
	ErrorCodeInvalidRequest     = "invalid_request"
	ErrorCodeConflict           = "conflict"
	ErrorCodeCeremonyNotFound   = "ceremony_not_found"
	ErrorCodeNoCredentials      = "no_credentials"
	ErrorCodeVerificationFailed = "verification_failed"
	ErrorCodeRateLimited        = "rate_limited"
	ErrorCodeInternalError      = "internal_error"
)
