// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import "context"

// UserStore persists user identities. Implementations must enforce handle
// uniqueness atomically with the insert; two concurrent Create calls for
// the same handle must not both succeed.
type UserStore interface {
	// GetByHandle retrieves an identity by its login name.
	// Returns ErrUserNotFound if the identity does not exist.
	GetByHandle(ctx context.Context, handle string) (*Identity, error)

	// Create inserts a new identity. Returns ErrConflict if the handle is
	// already taken.
	Create(ctx context.Context, identity *Identity) error

	// Save persists changes to an existing identity.
	Save(ctx context.Context, identity *Identity) error
}

// CredentialStore persists credential records. The credential identifier
// is unique across all users; implementations must enforce this atomically
// with the insert.
type CredentialStore interface {
	// Save inserts a new credential. Returns ErrConflict if the
	// credential identifier is already registered, to any user.
	Save(ctx context.Context, cred *Credential) error

	// GetByUserHandle retrieves all credentials owned by a handle.
	// Returns an empty slice if the handle owns none.
	GetByUserHandle(ctx context.Context, handle string) ([]*Credential, error)

	// Find retrieves a credential by identifier, across all users.
	// Returns ErrCredentialNotFound if it is not registered.
	Find(ctx context.Context, credentialID []byte) (*Credential, error)

	// Update persists changes (sign counter, last-used time) to an
	// existing credential. Returns ErrCredentialNotFound if absent.
	Update(ctx context.Context, cred *Credential) error

	// Delete removes a credential by identifier. Returns
	// ErrCredentialNotFound if it is not registered.
	Delete(ctx context.Context, credentialID []byte) error
}

// ChallengeStore tracks the single pending ceremony per session key. The
// session key is an opaque value supplied by the transport layer.
type ChallengeStore interface {
	// Put records a pending ceremony, replacing any prior ceremony for
	// the same session key. Only one ceremony may be in flight per key.
	Put(ctx context.Context, sessionKey string, ceremony *Ceremony) error

	// TakeAndClear atomically returns and removes the pending ceremony
	// for a session key. Expired ceremonies are reported as absent.
	// Returns ErrCeremonyNotFound when nothing valid is pending, so a
	// second call for the same key always fails: this is the single-use
	// guarantee and the replay defense at the session layer.
	TakeAndClear(ctx context.Context, sessionKey string) (*Ceremony, error)
}
