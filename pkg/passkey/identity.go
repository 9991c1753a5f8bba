// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

// Identity is a relying-party user account. The Handle is the unique,
// human-chosen login name; ID is the opaque WebAuthn user handle sent to
// authenticators. An identity is created on first registration and never
// mutated afterwards.
type Identity struct {
	// ID is the stable 16-byte WebAuthn user handle.
	ID []byte `json:"id"`

	// Handle is the unique human-readable login name.
	Handle string `json:"handle"`

	// DisplayName is shown by authenticator UIs. Defaults to Handle.
	DisplayName string `json:"display_name"`

	// CreatedAt is when the identity was first registered.
	CreatedAt time.Time `json:"created_at"`

	// Credentials is the identity's registered credential set, hydrated
	// from the credential store before each ceremony. It is not part of
	// the identity's persistent state.
	Credentials []*Credential `json:"-"`
}

// NewIdentity creates an identity with a fresh random user handle.
func NewIdentity(handle, displayName string) *Identity {
	if displayName == "" {
		displayName = handle
	}
	id := uuid.New()
	return &Identity{
		ID:          id[:],
		Handle:      handle,
		DisplayName: displayName,
		CreatedAt:   time.Now().UTC(),
	}
}

// WebAuthnID returns the opaque user handle.
func (u *Identity) WebAuthnID() []byte { return u.ID }

// WebAuthnName returns the login name.
func (u *Identity) WebAuthnName() string { return u.Handle }

// WebAuthnDisplayName returns the display name.
func (u *Identity) WebAuthnDisplayName() string {
	if u.DisplayName == "" {
		return u.Handle
	}
	return u.DisplayName
}

// WebAuthnCredentials returns the hydrated credential set in the ceremony
// engine's representation.
func (u *Identity) WebAuthnCredentials() []webauthn.Credential {
	creds := make([]webauthn.Credential, len(u.Credentials))
	for i, c := range u.Credentials {
		creds[i] = c.toEngine()
	}
	return creds
}

// Credential is a public-key credential registered with the relying party.
// The credential identifier is globally unique across all users.
type Credential struct {
	// ID is the credential identifier assigned by the authenticator.
	ID []byte `json:"id"`

	// UserHandle is the login name of the owning identity.
	UserHandle string `json:"user_handle"`

	// PublicKey is the algorithm-tagged public key in COSE form.
	PublicKey []byte `json:"public_key"`

	// AttestationType records the attestation format seen at registration.
	AttestationType string `json:"attestation_type"`

	// Transports are the authenticator's transport hints. Informational.
	Transports []protocol.AuthenticatorTransport `json:"transports,omitempty"`

	// AAGUID identifies the authenticator model.
	AAGUID []byte `json:"aaguid,omitempty"`

	// SignCount is the authenticator-reported signature counter, used for
	// clone detection. Authenticators that never report a counter leave
	// this at zero.
	SignCount uint32 `json:"sign_count"`

	// UserPresent and UserVerified record the flags observed at
	// registration.
	UserPresent  bool `json:"user_present"`
	UserVerified bool `json:"user_verified"`

	// BackupEligible and BackupState record the credential's backup flags.
	BackupEligible bool `json:"backup_eligible"`
	BackupState    bool `json:"backup_state"`

	// CreatedAt is when the credential was registered; LastUsedAt is the
	// time of the most recent successful authentication.
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at,omitempty"`
}

// toEngine converts the credential into the ceremony engine's type.
func (c *Credential) toEngine() webauthn.Credential {
	return webauthn.Credential{
		ID:              c.ID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Transport:       c.Transports,
		Flags: webauthn.CredentialFlags{
			UserPresent:    c.UserPresent,
			UserVerified:   c.UserVerified,
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
		Authenticator: webauthn.Authenticator{
			AAGUID:    c.AAGUID,
			SignCount: c.SignCount,
		},
	}
}

// descriptor returns the credential descriptor used in exclusion and
// allow lists.
func (c *Credential) descriptor() protocol.CredentialDescriptor {
	return protocol.CredentialDescriptor{
		Type:         protocol.PublicKeyCredentialType,
		CredentialID: c.ID,
		Transport:    c.Transports,
	}
}

// newCredential builds a Credential record from a verified registration.
func newCredential(userHandle string, from *webauthn.Credential) *Credential {
	return &Credential{
		ID:              from.ID,
		UserHandle:      userHandle,
		PublicKey:       from.PublicKey,
		AttestationType: from.AttestationType,
		Transports:      from.Transport,
		AAGUID:          from.Authenticator.AAGUID,
		SignCount:       from.Authenticator.SignCount,
		UserPresent:     from.Flags.UserPresent,
		UserVerified:    from.Flags.UserVerified,
		BackupEligible:  from.Flags.BackupEligible,
		BackupState:     from.Flags.BackupState,
		CreatedAt:       time.Now().UTC(),
	}
}
