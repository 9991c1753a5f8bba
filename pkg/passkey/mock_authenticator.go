// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/asn1"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"math/big"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/protocol/webauthncbor"
	"github.com/go-webauthn/webauthn/protocol/webauthncose"
)

// MockAuthenticator simulates a platform authenticator for tests. It
// produces attestation and assertion responses with real ECDSA P-256
// signatures that pass full verification.
type MockAuthenticator struct {
	// AAGUID is the authenticator model identifier (16 bytes).
	AAGUID []byte

	// CredentialID identifies the credential this authenticator holds.
	CredentialID []byte

	// SignCount is the counter reported in the next response. Each
	// assertion increments it first unless FrozenCounter is set.
	SignCount uint32

	// FrozenCounter disables the per-assertion counter increment, for
	// exercising authenticators that never advance their counter.
	FrozenCounter bool

	// UserPresent and UserVerified control the UP and UV flags.
	UserPresent  bool
	UserVerified bool

	key      *ecdsa.PrivateKey
	rpIDHash []byte
}

// MockOption configures a MockAuthenticator.
type MockOption func(*MockAuthenticator)

// WithCredentialID sets a fixed credential ID.
func WithCredentialID(id []byte) MockOption {
	return func(m *MockAuthenticator) { m.CredentialID = id }
}

// WithAAGUID sets a fixed AAGUID.
func WithAAGUID(aaguid []byte) MockOption {
	return func(m *MockAuthenticator) { m.AAGUID = aaguid }
}

// WithSignCount sets the starting signature counter.
func WithSignCount(n uint32) MockOption {
	return func(m *MockAuthenticator) { m.SignCount = n }
}

// WithFrozenCounter keeps the counter at its current value across
// assertions.
func WithFrozenCounter() MockOption {
	return func(m *MockAuthenticator) { m.FrozenCounter = true }
}

// WithUserVerified controls the UV flag.
func WithUserVerified(uv bool) MockOption {
	return func(m *MockAuthenticator) { m.UserVerified = uv }
}

// WithSigningKey replaces the generated key pair, allowing two mocks to
// share or differ in keys independently of their credential IDs.
func WithSigningKey(key *ecdsa.PrivateKey) MockOption {
	return func(m *MockAuthenticator) { m.key = key }
}

// NewMockAuthenticator creates a simulated authenticator scoped to the
// given relying party ID.
func NewMockAuthenticator(rpID string, opts ...MockOption) (*MockAuthenticator, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}

	aaguid := make([]byte, 16)
	if _, err := rand.Read(aaguid); err != nil {
		return nil, err
	}
	credID := make([]byte, 32)
	if _, err := rand.Read(credID); err != nil {
		return nil, err
	}

	hash := sha256.Sum256([]byte(rpID))
	m := &MockAuthenticator{
		AAGUID:       aaguid,
		CredentialID: credID,
		UserPresent:  true,
		UserVerified: true,
		key:          key,
		rpIDHash:     hash[:],
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// coseKey returns the public key in COSE EC2/ES256 form.
func (m *MockAuthenticator) coseKey() ([]byte, error) {
	pub := m.key.Public().(*ecdsa.PublicKey)
	return webauthncbor.Marshal(map[int]interface{}{
		1:  2,
		3:  int(webauthncose.AlgES256),
		-1: 1,
		-2: pub.X.Bytes(),
		-3: pub.Y.Bytes(),
	})
}

func (m *MockAuthenticator) flags(attested bool) protocol.AuthenticatorFlags {
	var f protocol.AuthenticatorFlags
	if m.UserPresent {
		f |= protocol.FlagUserPresent
	}
	if m.UserVerified {
		f |= protocol.FlagUserVerified
	}
	if attested {
		f |= protocol.FlagAttestedCredentialData
	}
	return f
}

// authenticatorData serializes the raw authenticator data, with the
// attested credential block included for registration.
func (m *MockAuthenticator) authenticatorData(attested bool) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(m.rpIDHash)
	buf.WriteByte(byte(m.flags(attested)))

	var counter [4]byte
	binary.BigEndian.PutUint32(counter[:], m.SignCount)
	buf.Write(counter[:])

	if attested {
		buf.Write(m.AAGUID)
		var idLen [2]byte
		binary.BigEndian.PutUint16(idLen[:], uint16(len(m.CredentialID)))
		buf.Write(idLen[:])
		buf.Write(m.CredentialID)
		cose, err := m.coseKey()
		if err != nil {
			return nil, err
		}
		buf.Write(cose)
	}
	return buf.Bytes(), nil
}

func (m *MockAuthenticator) clientDataJSON(challenge []byte, origin, ceremonyType string) []byte {
	data, _ := json.Marshal(struct {
		Type      string `json:"type"`
		Challenge string `json:"challenge"`
		Origin    string `json:"origin"`
	}{
		Type:      ceremonyType,
		Challenge: base64.RawURLEncoding.EncodeToString(challenge),
		Origin:    origin,
	})
	return data
}

func (m *MockAuthenticator) sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	r, s, err := ecdsa.Sign(rand.Reader, m.key, digest[:])
	if err != nil {
		return nil, err
	}
	return asn1.Marshal(struct{ R, S *big.Int }{r, s})
}

// Register produces a parsed registration response for the given
// challenge, as the browser would after decoding it.
func (m *MockAuthenticator) Register(challenge []byte, origin string) (*protocol.ParsedCredentialCreationData, error) {
	rawAuthData, err := m.authenticatorData(true)
	if err != nil {
		return nil, err
	}
	clientData := m.clientDataJSON(challenge, origin, "webauthn.create")

	attObj, err := webauthncbor.Marshal(map[string]interface{}{
		"authData": rawAuthData,
		"fmt":      "none",
		"attStmt":  map[string]interface{}{},
	})
	if err != nil {
		return nil, err
	}

	cose, err := m.coseKey()
	if err != nil {
		return nil, err
	}

	id := base64.RawURLEncoding.EncodeToString(m.CredentialID)
	return &protocol.ParsedCredentialCreationData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{ID: id, Type: "public-key"},
			RawID:            m.CredentialID,
		},
		Response: protocol.ParsedAttestationResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.create",
				Challenge: base64.RawURLEncoding.EncodeToString(challenge),
				Origin:    origin,
			},
			AttestationObject: protocol.AttestationObject{
				Format:       "none",
				AttStatement: map[string]interface{}{},
				RawAuthData:  rawAuthData,
				AuthData: protocol.AuthenticatorData{
					RPIDHash: m.rpIDHash,
					Flags:    m.flags(true),
					Counter:  m.SignCount,
					AttData: protocol.AttestedCredentialData{
						AAGUID:              m.AAGUID,
						CredentialID:        m.CredentialID,
						CredentialPublicKey: cose,
					},
				},
			},
			Transports: []protocol.AuthenticatorTransport{protocol.Internal},
		},
		Raw: protocol.CredentialCreationResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{ID: id, Type: "public-key"},
				RawID:      m.CredentialID,
			},
			AttestationResponse: protocol.AuthenticatorAttestationResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{ClientDataJSON: clientData},
				AttestationObject:     attObj,
				Transports:            []string{"internal"},
			},
		},
	}, nil
}

// Assert produces a parsed authentication response for the given
// challenge, signed with the authenticator's key.
func (m *MockAuthenticator) Assert(challenge, userHandle []byte, origin string) (*protocol.ParsedCredentialAssertionData, error) {
	if !m.FrozenCounter {
		m.SignCount++
	}

	rawAuthData, err := m.authenticatorData(false)
	if err != nil {
		return nil, err
	}
	clientData := m.clientDataJSON(challenge, origin, "webauthn.get")
	clientDataHash := sha256.Sum256(clientData)

	sig, err := m.sign(append(rawAuthData, clientDataHash[:]...))
	if err != nil {
		return nil, err
	}

	id := base64.RawURLEncoding.EncodeToString(m.CredentialID)
	return &protocol.ParsedCredentialAssertionData{
		ParsedPublicKeyCredential: protocol.ParsedPublicKeyCredential{
			ParsedCredential: protocol.ParsedCredential{ID: id, Type: "public-key"},
			RawID:            m.CredentialID,
		},
		Response: protocol.ParsedAssertionResponse{
			CollectedClientData: protocol.CollectedClientData{
				Type:      "webauthn.get",
				Challenge: base64.RawURLEncoding.EncodeToString(challenge),
				Origin:    origin,
			},
			AuthenticatorData: protocol.AuthenticatorData{
				RPIDHash: m.rpIDHash,
				Flags:    m.flags(false),
				Counter:  m.SignCount,
			},
			Signature:  sig,
			UserHandle: userHandle,
		},
		Raw: protocol.CredentialAssertionResponse{
			PublicKeyCredential: protocol.PublicKeyCredential{
				Credential: protocol.Credential{ID: id, Type: "public-key"},
				RawID:      m.CredentialID,
			},
			AssertionResponse: protocol.AuthenticatorAssertionResponse{
				AuthenticatorResponse: protocol.AuthenticatorResponse{ClientDataJSON: clientData},
				AuthenticatorData:     rawAuthData,
				Signature:             sig,
				UserHandle:            userHandle,
			},
		},
	}, nil
}
