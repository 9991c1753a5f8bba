// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Service orchestrates the registration and authentication ceremonies:
// options construction, challenge tracking, response verification and
// credential persistence. All collaborators are injected; the service
// keeps no ambient state of its own.
type Service struct {
	engine     *webauthn.WebAuthn
	cfg        *Config
	users      UserStore
	creds      CredentialStore
	challenges ChallengeStore
	tokens     TokenIssuer
	builder    *optionsBuilder
	verifier   *Verifier
}

// Params contains the dependencies for creating a Service.
type Params struct {
	// Config is the relying-party configuration (required).
	Config *Config

	// UserStore persists identities (required).
	UserStore UserStore

	// CredentialStore persists credentials (required).
	CredentialStore CredentialStore

	// ChallengeStore tracks pending ceremonies per session (required).
	ChallengeStore ChallengeStore

	// TokenIssuer mints a token after a successful ceremony. Optional;
	// when nil the base64-encoded user handle ID is returned instead.
	TokenIssuer TokenIssuer
}

// NewService creates a ceremony orchestrator with the given dependencies.
func NewService(params Params) (*Service, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.UserStore == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if params.CredentialStore == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if params.ChallengeStore == nil {
		return nil, fmt.Errorf("challenge store is required")
	}

	params.Config.setDefaults()
	if err := params.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	engine, err := webauthn.New(params.Config.toEngineConfig())
	if err != nil {
		return nil, fmt.Errorf("create ceremony engine: %w", err)
	}

	return &Service{
		engine:     engine,
		cfg:        params.Config,
		users:      params.UserStore,
		creds:      params.CredentialStore,
		challenges: params.ChallengeStore,
		tokens:     params.TokenIssuer,
		builder:    newOptionsBuilder(engine, params.Config),
		verifier:   newVerifier(engine, params.Config, params.CredentialStore),
	}, nil
}

// Result is the outcome of a successfully finished ceremony.
type Result struct {
	// Identity is the account the ceremony completed for.
	Identity *Identity

	// Credential is the credential that was registered or asserted, with
	// its persisted signature counter.
	Credential *Credential

	// Token is the post-ceremony token (issuer-minted, or the
	// base64-encoded user handle ID when no issuer is configured).
	Token string
}

// StartRegistration begins a registration ceremony for a new account.
// A handle that already owns at least one credential is rejected:
// attaching further authenticators to an existing account is a separate
// add-credential ceremony this core does not provide.
func (s *Service) StartRegistration(ctx context.Context, sessionKey, handle, displayName string) (*protocol.CredentialCreation, error) {
	const op = "start registration"

	handle = strings.TrimSpace(handle)
	if handle == "" || sessionKey == "" {
		return nil, wrapErr(op, ErrInputInvalid)
	}

	existing, err := s.creds.GetByUserHandle(ctx, handle)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if len(existing) > 0 {
		return nil, wrapErr(op, ErrConflict)
	}

	identity, err := s.users.GetByHandle(ctx, handle)
	switch {
	case errors.Is(err, ErrUserNotFound):
		identity = NewIdentity(handle, displayName)
		if err := s.users.Create(ctx, identity); err != nil {
			return nil, wrapErr(op, err)
		}
	case err != nil:
		return nil, wrapErr(op, err)
	}

	creation, ceremony, err := s.builder.buildRegistration(identity)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Put(ctx, sessionKey, ceremony); err != nil {
		return nil, wrapStorage(op, err)
	}

	ceremoniesStarted.WithLabelValues(string(CeremonyRegistration)).Inc()
	return creation, nil
}

// FinishRegistration completes a registration ceremony. The pending
// ceremony is consumed before verification runs, so the attempt is final
// whatever its outcome. On success the new credential is persisted.
func (s *Service) FinishRegistration(ctx context.Context, sessionKey string, response *protocol.ParsedCredentialCreationData) (*Result, error) {
	const op = "finish registration"

	if sessionKey == "" || response == nil {
		return nil, wrapErr(op, ErrInputInvalid)
	}

	ceremony, err := s.challenges.TakeAndClear(ctx, sessionKey)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if ceremony.Kind != CeremonyRegistration {
		return nil, s.failCeremony(CeremonyRegistration, verificationFailure(FailureTypeMismatch, nil))
	}

	identity, err := s.users.GetByHandle(ctx, ceremony.UserHandle)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if err := s.hydrate(ctx, identity); err != nil {
		return nil, wrapErr(op, err)
	}

	cred, err := s.verifier.VerifyRegistration(ctx, response, ceremony, identity)
	if err != nil {
		return nil, s.failCeremony(CeremonyRegistration, err)
	}

	if err := s.creds.Save(ctx, cred); err != nil {
		return nil, wrapErr(op, err)
	}
	identity.Credentials = append(identity.Credentials, cred)

	token, err := s.issueToken(ctx, identity)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	ceremoniesFinished.WithLabelValues(string(CeremonyRegistration), metricStatusOK).Inc()
	return &Result{Identity: identity, Credential: cred, Token: token}, nil
}

// StartLogin begins an authentication ceremony. A handle with no
// registered credentials cannot authenticate; an unknown handle reports
// the same error so the start boundary does not confirm account
// existence.
func (s *Service) StartLogin(ctx context.Context, sessionKey, handle string) (*protocol.CredentialAssertion, error) {
	const op = "start login"

	handle = strings.TrimSpace(handle)
	if handle == "" || sessionKey == "" {
		return nil, wrapErr(op, ErrInputInvalid)
	}

	identity, err := s.users.GetByHandle(ctx, handle)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, wrapErr(op, ErrNoCredentials)
		}
		return nil, wrapErr(op, err)
	}
	if err := s.hydrate(ctx, identity); err != nil {
		return nil, wrapErr(op, err)
	}
	if len(identity.Credentials) == 0 {
		return nil, wrapErr(op, ErrNoCredentials)
	}

	assertion, ceremony, err := s.builder.buildAuthentication(identity)
	if err != nil {
		return nil, err
	}
	if err := s.challenges.Put(ctx, sessionKey, ceremony); err != nil {
		return nil, wrapStorage(op, err)
	}

	ceremoniesStarted.WithLabelValues(string(CeremonyAuthentication)).Inc()
	return assertion, nil
}

// FinishLogin completes an authentication ceremony. On success the
// credential's signature counter is advanced in the store; on failure
// nothing is mutated.
func (s *Service) FinishLogin(ctx context.Context, sessionKey string, response *protocol.ParsedCredentialAssertionData) (*Result, error) {
	const op = "finish login"

	if sessionKey == "" || response == nil {
		return nil, wrapErr(op, ErrInputInvalid)
	}

	ceremony, err := s.challenges.TakeAndClear(ctx, sessionKey)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if ceremony.Kind != CeremonyAuthentication {
		return nil, s.failCeremony(CeremonyAuthentication, verificationFailure(FailureTypeMismatch, nil))
	}

	identity, err := s.users.GetByHandle(ctx, ceremony.UserHandle)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	if err := s.hydrate(ctx, identity); err != nil {
		return nil, wrapErr(op, err)
	}

	cred, err := s.verifier.VerifyAuthentication(ctx, response, ceremony, identity)
	if err != nil {
		return nil, s.failCeremony(CeremonyAuthentication, err)
	}

	if err := s.creds.Update(ctx, cred); err != nil {
		return nil, wrapErr(op, err)
	}

	token, err := s.issueToken(ctx, identity)
	if err != nil {
		return nil, wrapErr(op, err)
	}

	ceremoniesFinished.WithLabelValues(string(CeremonyAuthentication), metricStatusOK).Inc()
	return &Result{Identity: identity, Credential: cred, Token: token}, nil
}

// Credentials lists the credentials registered to a handle.
func (s *Service) Credentials(ctx context.Context, handle string) ([]*Credential, error) {
	return s.creds.GetByUserHandle(ctx, handle)
}

// IsRegistered reports whether a handle owns at least one credential.
func (s *Service) IsRegistered(ctx context.Context, handle string) (bool, error) {
	creds, err := s.creds.GetByUserHandle(ctx, handle)
	if err != nil {
		return false, err
	}
	return len(creds) > 0, nil
}

// DeleteCredential removes one of a handle's credentials. The credential
// must belong to the handle; a credential registered to someone else is
// reported as not found.
func (s *Service) DeleteCredential(ctx context.Context, handle string, credentialID []byte) error {
	const op = "delete credential"

	if handle == "" || len(credentialID) == 0 {
		return wrapErr(op, ErrInputInvalid)
	}

	cred, err := s.creds.Find(ctx, credentialID)
	if err != nil {
		return wrapErr(op, err)
	}
	if cred.UserHandle != handle {
		return wrapErr(op, ErrCredentialNotFound)
	}
	if err := s.creds.Delete(ctx, credentialID); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

// Config returns the service configuration.
func (s *Service) Config() *Config {
	return s.cfg
}

// hydrate loads the identity's credential set from the credential store,
// which is authoritative for credential state.
func (s *Service) hydrate(ctx context.Context, identity *Identity) error {
	creds, err := s.creds.GetByUserHandle(ctx, identity.Handle)
	if err != nil {
		return err
	}
	identity.Credentials = creds
	return nil
}

func (s *Service) issueToken(ctx context.Context, identity *Identity) (string, error) {
	if s.tokens != nil {
		return s.tokens.IssueToken(ctx, identity)
	}
	return base64.RawURLEncoding.EncodeToString(identity.ID), nil
}

// failCeremony records a failed finish in the metrics and passes the
// error through. The pending challenge has already been cleared.
func (s *Service) failCeremony(kind CeremonyKind, err error) error {
	ceremoniesFinished.WithLabelValues(string(kind), metricStatusFailed).Inc()
	if reason, ok := ReasonOf(err); ok {
		verificationFailures.WithLabelValues(string(reason)).Inc()
	}
	return err
}
