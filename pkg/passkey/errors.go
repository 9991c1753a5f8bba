// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the relying-party core.
var (
	// ErrInputInvalid is returned for missing or malformed request fields.
	ErrInputInvalid = errors.New("invalid input")

	// ErrConflict is returned for a duplicate user handle or a credential
	// identifier that is already registered, to any user.
	ErrConflict = errors.New("already exists")

	// ErrCeremonyNotFound is returned when no pending, unexpired ceremony
	// exists for a session key. An expired or already-consumed ceremony is
	// indistinguishable from one that was never issued.
	ErrCeremonyNotFound = errors.New("no pending ceremony")

	// ErrNoCredentials is returned when authentication is requested for a
	// handle that has no registered credentials.
	ErrNoCredentials = errors.New("no registered credentials")

	// ErrUserNotFound is returned when a user identity cannot be found.
	ErrUserNotFound = errors.New("user not found")

	// ErrCredentialNotFound is returned when a credential cannot be found.
	ErrCredentialNotFound = errors.New("credential not found")

	// ErrStorageUnavailable is returned when a storage collaborator fails.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrVerificationFailed is the base error every *VerificationError
	// matches via errors.Is.
	ErrVerificationFailed = errors.New("verification failed")
)

// FailureReason identifies why a ceremony response failed verification.
// Every verification failure is terminal for that attempt; a new ceremony
// must be started to retry.
type FailureReason string

const (
	FailureChallengeMismatch FailureReason = "challenge_mismatch"
	FailureOriginMismatch    FailureReason = "origin_mismatch"
	FailureRPIDMismatch      FailureReason = "rpid_mismatch"
	FailureMalformedResponse FailureReason = "malformed_response"
	FailureUnknownCredential FailureReason = "unknown_credential"
	FailureSignatureInvalid  FailureReason = "signature_invalid"
	FailureCounterRegression FailureReason = "counter_regression"
	FailureTypeMismatch      FailureReason = "ceremony_type_mismatch"
)

// VerificationError reports a failed attestation or assertion verification
// together with the reason class.
type VerificationError struct {
	Reason FailureReason
	Err    error // underlying cause, may be nil
}

// Error returns the error message.
func (e *VerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("verification failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("verification failed: %s", e.Reason)
}

// Unwrap returns the underlying cause.
func (e *VerificationError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches this error. All verification
// errors match ErrVerificationFailed.
func (e *VerificationError) Is(target error) bool {
	return target == ErrVerificationFailed
}

func verificationFailure(reason FailureReason, cause error) error {
	return &VerificationError{Reason: reason, Err: cause}
}

// ReasonOf extracts the failure reason from an error chain. The second
// return value is false if the error is not a verification failure.
func ReasonOf(err error) (FailureReason, bool) {
	var verr *VerificationError
	if errors.As(err, &verr) {
		return verr.Reason, true
	}
	return "", false
}

// OpError wraps an error with the name of the operation that failed.
type OpError struct {
	Op  string
	Err error
}

// Error returns the error message.
func (e *OpError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// wrapErr wraps err with an operation name, passing nil through.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// wrapStorage marks a collaborator failure as a storage fault so callers
// can distinguish transient infrastructure errors from protocol failures.
func wrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: fmt.Errorf("%w: %w", ErrStorageUnavailable, err)}
}

// IsVerificationFailed reports whether err is a verification failure.
func IsVerificationFailed(err error) bool {
	return errors.Is(err, ErrVerificationFailed)
}

// IsConflict reports whether err indicates a uniqueness violation.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsCeremonyNotFound reports whether err indicates a missing or expired
// pending ceremony.
func IsCeremonyNotFound(err error) bool {
	return errors.Is(err, ErrCeremonyNotFound)
}
