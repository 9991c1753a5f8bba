// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"fmt"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
	"github.com/go-webauthn/webauthn/webauthn"
)

// Config configures the relying party.
type Config struct {
	// RPID is the relying-party identifier, typically the registrable
	// domain. Example: "example.com"
	RPID string `yaml:"id" json:"id"`

	// RPDisplayName is the human-readable relying-party name.
	RPDisplayName string `yaml:"display_name" json:"display_name"`

	// RPOrigins are the origins (scheme + host + port) accepted in client
	// data. A response from any other origin fails verification.
	RPOrigins []string `yaml:"origins" json:"origins"`

	// Timeout bounds the validity window of a ceremony challenge.
	// Default: 5 minutes.
	Timeout time.Duration `yaml:"timeout" json:"timeout"`

	// Algorithms are the accepted COSE public-key algorithms, in order of
	// preference. Nil selects ES256, EdDSA and RS256; an explicitly empty
	// set is rejected.
	Algorithms []webauthncose.COSEAlgorithmIdentifier `yaml:"algorithms" json:"algorithms"`

	// UserVerification is the user-verification policy sent to the
	// authenticator: "required", "preferred" or "discouraged".
	// Default: "preferred".
	UserVerification string `yaml:"user_verification" json:"user_verification"`

	// Attestation is the attestation conveyance preference: "none",
	// "indirect", "direct" or "enterprise". Default: "none".
	Attestation string `yaml:"attestation" json:"attestation"`

	// ResidentKey is the resident-key (passkey) requirement: "required",
	// "preferred" or "discouraged". Default: "preferred".
	ResidentKey string `yaml:"resident_key" json:"resident_key"`

	// AuthenticatorAttachment limits accepted authenticators:
	// "platform", "cross-platform" or "" for any.
	AuthenticatorAttachment string `yaml:"authenticator_attachment" json:"authenticator_attachment"`

	// Debug enables verbose logging inside the ceremony engine.
	Debug bool `yaml:"debug" json:"debug"`
}

// Validate reports whether the configuration is usable.
func (c *Config) Validate() error {
	if c.RPID == "" {
		return fmt.Errorf("RPID is required")
	}
	if c.RPDisplayName == "" {
		return fmt.Errorf("RPDisplayName is required")
	}
	if len(c.RPOrigins) == 0 {
		return fmt.Errorf("at least one RPOrigin is required")
	}
	if c.Algorithms != nil && len(c.Algorithms) == 0 {
		return fmt.Errorf("algorithm set must not be empty")
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}

	switch c.UserVerification {
	case "", "required", "preferred", "discouraged":
	default:
		return fmt.Errorf("invalid user verification: %s", c.UserVerification)
	}

	switch c.Attestation {
	case "", "none", "indirect", "direct", "enterprise":
	default:
		return fmt.Errorf("invalid attestation preference: %s", c.Attestation)
	}

	switch c.ResidentKey {
	case "", "required", "preferred", "discouraged":
	default:
		return fmt.Errorf("invalid resident key requirement: %s", c.ResidentKey)
	}

	switch c.AuthenticatorAttachment {
	case "", "platform", "cross-platform":
	default:
		return fmt.Errorf("invalid authenticator attachment: %s", c.AuthenticatorAttachment)
	}

	return nil
}

// setDefaults fills unset fields with their defaults.
func (c *Config) setDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
	if c.Algorithms == nil {
		c.Algorithms = []webauthncose.COSEAlgorithmIdentifier{
			webauthncose.AlgES256,
			webauthncose.AlgEdDSA,
			webauthncose.AlgRS256,
		}
	}
	if c.UserVerification == "" {
		c.UserVerification = "preferred"
	}
	if c.Attestation == "" {
		c.Attestation = "none"
	}
	if c.ResidentKey == "" {
		c.ResidentKey = "preferred"
	}
}

// credentialParameters maps the accepted algorithms into the credential
// parameter list sent with registration options.
func (c *Config) credentialParameters() []protocol.CredentialParameter {
	params := make([]protocol.CredentialParameter, len(c.Algorithms))
	for i, alg := range c.Algorithms {
		params[i] = protocol.CredentialParameter{
			Type:      protocol.PublicKeyCredentialType,
			Algorithm: alg,
		}
	}
	return params
}

// toEngineConfig converts the Config into the go-webauthn configuration.
func (c *Config) toEngineConfig() *webauthn.Config {
	cfg := &webauthn.Config{
		RPID:          c.RPID,
		RPDisplayName: c.RPDisplayName,
		RPOrigins:     c.RPOrigins,
		Debug:         c.Debug,
	}

	if c.Timeout > 0 {
		timeout := webauthn.TimeoutConfig{
			Enforce:    true,
			Timeout:    c.Timeout,
			TimeoutUVD: c.Timeout,
		}
		cfg.Timeouts = webauthn.TimeoutsConfig{
			Login:        timeout,
			Registration: timeout,
		}
	}

	switch c.Attestation {
	case "none":
		cfg.AttestationPreference = protocol.PreferNoAttestation
	case "indirect":
		cfg.AttestationPreference = protocol.PreferIndirectAttestation
	case "direct":
		cfg.AttestationPreference = protocol.PreferDirectAttestation
	case "enterprise":
		cfg.AttestationPreference = protocol.PreferEnterpriseAttestation
	}

	cfg.AuthenticatorSelection = protocol.AuthenticatorSelection{}

	switch c.UserVerification {
	case "required":
		cfg.AuthenticatorSelection.UserVerification = protocol.VerificationRequired
	case "preferred":
		cfg.AuthenticatorSelection.UserVerification = protocol.VerificationPreferred
	case "discouraged":
		cfg.AuthenticatorSelection.UserVerification = protocol.VerificationDiscouraged
	}

	switch c.ResidentKey {
	case "required":
		cfg.AuthenticatorSelection.ResidentKey = protocol.ResidentKeyRequirementRequired
	case "preferred":
		cfg.AuthenticatorSelection.ResidentKey = protocol.ResidentKeyRequirementPreferred
	case "discouraged":
		cfg.AuthenticatorSelection.ResidentKey = protocol.ResidentKeyRequirementDiscouraged
	}

	switch c.AuthenticatorAttachment {
	case "platform":
		cfg.AuthenticatorSelection.AuthenticatorAttachment = protocol.Platform
	case "cross-platform":
		cfg.AuthenticatorSelection.AuthenticatorAttachment = protocol.CrossPlatform
	}

	return cfg
}
