// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
)

// optionsBuilder constructs ceremony parameters. It is purely
// constructive: recording the pending ceremony is the orchestrator's job.
type optionsBuilder struct {
	engine *webauthn.WebAuthn
	cfg    *Config
	clock  func() time.Time
}

func newOptionsBuilder(engine *webauthn.WebAuthn, cfg *Config) *optionsBuilder {
	return &optionsBuilder{engine: engine, cfg: cfg, clock: time.Now}
}

// buildRegistration generates creation options for the identity. The
// challenge comes from the engine's cryptographic source (32 random
// bytes). Already-registered credential identifiers are listed for
// exclusion so the same authenticator cannot be re-registered.
func (b *optionsBuilder) buildRegistration(identity *Identity) (*protocol.CredentialCreation, *Ceremony, error) {
	exclusions := make([]protocol.CredentialDescriptor, len(identity.Credentials))
	for i, cred := range identity.Credentials {
		exclusions[i] = cred.descriptor()
	}

	creation, session, err := b.engine.BeginRegistration(identity,
		webauthn.WithCredentialParameters(b.cfg.credentialParameters()),
		webauthn.WithExclusions(exclusions),
	)
	if err != nil {
		return nil, nil, wrapErr("build registration options", err)
	}

	ceremony := &Ceremony{
		Kind:       CeremonyRegistration,
		UserHandle: identity.Handle,
		Data:       session,
		IssuedAt:   b.clock().UTC(),
	}
	return creation, ceremony, nil
}

// buildAuthentication generates assertion options with an allow-list of
// the identity's registered credentials. The caller must have rejected
// identities with no credentials before invoking the builder.
func (b *optionsBuilder) buildAuthentication(identity *Identity) (*protocol.CredentialAssertion, *Ceremony, error) {
	assertion, session, err := b.engine.BeginLogin(identity)
	if err != nil {
		return nil, nil, wrapErr("build authentication options", err)
	}

	ceremony := &Ceremony{
		Kind:       CeremonyAuthentication,
		UserHandle: identity.Handle,
		Data:       session,
		IssuedAt:   b.clock().UTC(),
	}
	return assertion, ceremony, nil
}
