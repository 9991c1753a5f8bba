// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"sync"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
)

// CeremonyKind distinguishes the two challenge ceremonies.
type CeremonyKind string

const (
	// CeremonyRegistration is the credential-creation ceremony.
	CeremonyRegistration CeremonyKind = "registration"

	// CeremonyAuthentication is the assertion ceremony.
	CeremonyAuthentication CeremonyKind = "authentication"
)

// Ceremony is the ephemeral state of one pending challenge ceremony. It is
// single-use: consumed on the first verification attempt regardless of
// outcome.
type Ceremony struct {
	// Kind is the ceremony this challenge was issued for.
	Kind CeremonyKind `json:"kind"`

	// UserHandle is the login name the ceremony was started for.
	UserHandle string `json:"user_handle"`

	// Data is the ceremony engine's session state, including the
	// base64url-encoded challenge.
	Data *webauthn.SessionData `json:"data"`

	// IssuedAt is when the challenge was generated.
	IssuedAt time.Time `json:"issued_at"`
}

// MemoryChallengeStore is an in-memory ChallengeStore holding at most one
// pending ceremony per session key. Expiry is evaluated lazily at
// TakeAndClear; Sweep may additionally be run for hygiene.
type MemoryChallengeStore struct {
	mu      sync.Mutex
	pending map[string]*Ceremony
	ttl     time.Duration

	// clock is overridable in tests.
	clock func() time.Time
}

// DefaultChallengeTTL bounds the validity window of a pending ceremony
// when no explicit TTL is configured.
const DefaultChallengeTTL = 5 * time.Minute

// NewMemoryChallengeStore creates a challenge store with the given TTL.
// A zero ttl selects DefaultChallengeTTL.
func NewMemoryChallengeStore(ttl time.Duration) *MemoryChallengeStore {
	if ttl <= 0 {
		ttl = DefaultChallengeTTL
	}
	return &MemoryChallengeStore{
		pending: make(map[string]*Ceremony),
		ttl:     ttl,
		clock:   time.Now,
	}
}

// Put records a pending ceremony, replacing any prior one for the key.
func (s *MemoryChallengeStore) Put(ctx context.Context, sessionKey string, ceremony *Ceremony) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sessionKey] = ceremony
	return nil
}

// TakeAndClear atomically returns and removes the pending ceremony. The
// entry is removed even when expired, so every call consumes the slot.
func (s *MemoryChallengeStore) TakeAndClear(ctx context.Context, sessionKey string) (*Ceremony, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ceremony, ok := s.pending[sessionKey]
	if !ok {
		return nil, ErrCeremonyNotFound
	}
	delete(s.pending, sessionKey)

	if s.clock().Sub(ceremony.IssuedAt) > s.ttl {
		return nil, ErrCeremonyNotFound
	}
	return ceremony, nil
}

// Sweep removes expired ceremonies and returns the number removed. Lazy
// expiry at TakeAndClear is authoritative; sweeping only bounds memory.
func (s *MemoryChallengeStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for key, ceremony := range s.pending {
		if now.Sub(ceremony.IssuedAt) > s.ttl {
			delete(s.pending, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of pending ceremonies.
func (s *MemoryChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// StartSweep runs Sweep at the given interval until the returned cancel
// function is called or ctx is done.
func (s *MemoryChallengeStore) StartSweep(ctx context.Context, interval time.Duration) context.CancelFunc {
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep()
			}
		}
	}()

	return cancel
}
