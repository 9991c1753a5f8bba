// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer mints the token returned by a successfully finished
// ceremony.
type TokenIssuer interface {
	IssueToken(ctx context.Context, identity *Identity) (string, error)
}

// JWTIssuer issues signed JWTs carrying the authenticated identity.
type JWTIssuer struct {
	key      crypto.PrivateKey
	method   jwt.SigningMethod
	issuer   string
	lifetime time.Duration
	clock    func() time.Time
}

// NewJWTIssuer creates a token issuer signing with the given private
// key. The signing method is selected from the key type; unsupported
// key types are rejected.
func NewJWTIssuer(key crypto.PrivateKey, issuer string, lifetime time.Duration) (*JWTIssuer, error) {
	method, err := signingMethod(key)
	if err != nil {
		return nil, err
	}
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	return &JWTIssuer{
		key:      key,
		method:   method,
		issuer:   issuer,
		lifetime: lifetime,
		clock:    time.Now,
	}, nil
}

// IssueToken implements TokenIssuer.
func (j *JWTIssuer) IssueToken(_ context.Context, identity *Identity) (string, error) {
	now := j.clock()
	claims := jwt.RegisteredClaims{
		Issuer:    j.issuer,
		Subject:   base64.RawURLEncoding.EncodeToString(identity.ID),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.lifetime)),
	}
	token, err := jwt.NewWithClaims(j.method, claims).SignedString(j.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func signingMethod(key crypto.PrivateKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *ecdsa.PrivateKey:
		switch k.Curve {
		case elliptic.P256():
			return jwt.SigningMethodES256, nil
		case elliptic.P384():
			return jwt.SigningMethodES384, nil
		case elliptic.P521():
			return jwt.SigningMethodES512, nil
		}
		return nil, fmt.Errorf("unsupported ECDSA curve %s", k.Curve.Params().Name)
	case ed25519.PrivateKey:
		return jwt.SigningMethodEdDSA, nil
	case *rsa.PrivateKey:
		return jwt.SigningMethodRS256, nil
	default:
		return nil, fmt.Errorf("unsupported signing key type %T", key)
	}
}
