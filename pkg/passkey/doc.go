// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

// Package passkey implements the server side of WebAuthn (FIDO2)
// passkey ceremonies as an embeddable library.
//
// This package wraps the go-webauthn/webauthn library and provides:
//   - A ceremony orchestrator (Service) for registration and login
//   - Pluggable storage interfaces for users, credentials and pending
//     challenges, with in-memory and key-value backed implementations
//   - A response verifier with precise failure classification
//   - Optional JWT issuance after a successful ceremony
//
// # Architecture
//
//  1. Service layer (Service) - ceremony orchestration
//  2. Verification layer (Verifier) - response checking
//  3. Storage layer (UserStore, CredentialStore, ChallengeStore)
//  4. HTTP layer (pkg/passkey/http) - composable handlers
//
// # Usage
//
// Basic usage with in-memory stores:
//
//	svc, err := passkey.NewService(passkey.Params{
//	    Config: &passkey.Config{
//	        RPID:          "localhost",
//	        RPDisplayName: "My App",
//	        RPOrigins:     []string{"https://localhost:3000"},
//	    },
//	    UserStore:       passkey.NewMemoryUserStore(),
//	    CredentialStore: passkey.NewMemoryCredentialStore(),
//	    ChallengeStore:  passkey.NewMemoryChallengeStore(0),
//	})
//
// A ceremony is a two-step exchange keyed by an opaque session key the
// caller supplies (typically a cookie or header value):
//
//	creation, err := svc.StartRegistration(ctx, sessionKey, "alice", "Alice")
//	// ... send options to the browser, receive the response ...
//	result, err := svc.FinishRegistration(ctx, sessionKey, parsedResponse)
//
// Pending challenges are single-use: FinishRegistration and FinishLogin
// consume the challenge before verification, so a failed attempt cannot
// be retried against the same options.
package passkey
