// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Verifier validates client-returned attestation and assertion responses
// against a pending ceremony. Every check fails closed: the first
// violation terminates the attempt with a classified reason.
type Verifier struct {
	engine *webauthn.WebAuthn
	cfg    *Config
	creds  CredentialStore
	clock  func() time.Time
}

func newVerifier(engine *webauthn.WebAuthn, cfg *Config, creds CredentialStore) *Verifier {
	return &Verifier{engine: engine, cfg: cfg, creds: creds, clock: time.Now}
}

// checkClientData validates the ceremony type, challenge and origin
// carried in the collected client data against the pending ceremony.
func (v *Verifier) checkClientData(cd protocol.CollectedClientData, wantType protocol.CeremonyType, ceremony *Ceremony) error {
	if cd.Type != wantType {
		return verificationFailure(FailureTypeMismatch, nil)
	}
	if cd.Challenge != ceremony.Data.Challenge {
		return verificationFailure(FailureChallengeMismatch, nil)
	}
	if !v.originAllowed(cd.Origin) {
		return verificationFailure(FailureOriginMismatch, nil)
	}
	return nil
}

// originAllowed requires an exact scheme+host+port match against the
// configured origins.
func (v *Verifier) originAllowed(origin string) bool {
	for _, allowed := range v.cfg.RPOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

func (v *Verifier) rpIDHash() []byte {
	sum := sha256.Sum256([]byte(v.cfg.RPID))
	return sum[:]
}

// VerifyRegistration validates an attestation response against the
// pending registration ceremony. On success it returns the decoded
// credential record: public key, identifier and the initial signature
// counter (zero for authenticators that report none).
func (v *Verifier) VerifyRegistration(ctx context.Context, response *protocol.ParsedCredentialCreationData, ceremony *Ceremony, identity *Identity) (*Credential, error) {
	if err := v.checkClientData(response.Response.CollectedClientData, protocol.CreateCeremony, ceremony); err != nil {
		return nil, err
	}
	if !bytes.Equal(response.Response.AttestationObject.AuthData.RPIDHash, v.rpIDHash()) {
		return nil, verificationFailure(FailureRPIDMismatch, nil)
	}

	// Format-specific attestation decoding and signature validation.
	// Unsupported or malformed attestation formats are rejected here,
	// never silently accepted.
	engineCred, err := v.engine.CreateCredential(identity, *ceremony.Data, response)
	if err != nil {
		return nil, verificationFailure(FailureMalformedResponse, err)
	}

	// The credential identifier must be new across all users. The store
	// re-checks this atomically at insert; this early check produces the
	// precise failure before anything is persisted.
	_, err = v.creds.Find(ctx, engineCred.ID)
	switch {
	case err == nil:
		return nil, wrapErr("verify registration", ErrConflict)
	case errors.Is(err, ErrCredentialNotFound):
	default:
		return nil, err
	}

	return newCredential(identity.Handle, engineCred), nil
}

// VerifyAuthentication validates an assertion response against the
// pending authentication ceremony and the stored credential material.
// On success it returns the stored credential updated with the new
// signature counter, ready to be persisted by the caller.
//
// Counter policy: the reported counter must be strictly greater than the
// stored one. When both are zero the check does not apply; some
// authenticators never report a counter, and the all-zero case is the
// accepted convention for them. This weakens clone detection for those
// authenticators and is intentional.
func (v *Verifier) VerifyAuthentication(ctx context.Context, response *protocol.ParsedCredentialAssertionData, ceremony *Ceremony, identity *Identity) (*Credential, error) {
	if err := v.checkClientData(response.Response.CollectedClientData, protocol.AssertCeremony, ceremony); err != nil {
		return nil, err
	}
	if !bytes.Equal(response.Response.AuthenticatorData.RPIDHash, v.rpIDHash()) {
		return nil, verificationFailure(FailureRPIDMismatch, nil)
	}

	// The credential must be registered to the user this ceremony was
	// started for. An unregistered identifier and one owned by another
	// user report the same reason so the response does not reveal which.
	stored, err := v.creds.Find(ctx, response.RawID)
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return nil, verificationFailure(FailureUnknownCredential, nil)
		}
		return nil, err
	}
	if stored.UserHandle != identity.Handle {
		return nil, verificationFailure(FailureUnknownCredential, nil)
	}

	// Assertion signature over authenticator data and the client-data
	// hash, validated against the stored public key.
	engineCred, err := v.engine.ValidateLogin(identity, *ceremony.Data, response)
	if err != nil {
		return nil, verificationFailure(FailureSignatureInvalid, err)
	}

	// The engine flags a counter that did not advance (outside the
	// all-zero case) instead of failing; a non-advancing counter
	// indicates possible cloning and fails the ceremony here.
	if engineCred.Authenticator.CloneWarning {
		return nil, verificationFailure(FailureCounterRegression, nil)
	}

	stored.SignCount = engineCred.Authenticator.SignCount
	stored.LastUsedAt = v.clock().UTC()
	return stored, nil
}
