// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"encoding/hex"
	"sync"
)

// MemoryUserStore is an in-memory UserStore for development and testing.
type MemoryUserStore struct {
	mu       sync.RWMutex
	byHandle map[string]*Identity
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byHandle: make(map[string]*Identity)}
}

// GetByHandle retrieves an identity by login name.
func (s *MemoryUserStore) GetByHandle(ctx context.Context, handle string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	identity, ok := s.byHandle[handle]
	if !ok {
		return nil, ErrUserNotFound
	}
	return identity, nil
}

// Create inserts a new identity. The uniqueness check and insert run
// under one lock so concurrent registrations cannot both claim a handle.
func (s *MemoryUserStore) Create(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHandle[identity.Handle]; ok {
		return ErrConflict
	}
	s.byHandle[identity.Handle] = identity
	return nil
}

// Save persists changes to an existing identity.
func (s *MemoryUserStore) Save(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byHandle[identity.Handle]; !ok {
		return ErrUserNotFound
	}
	s.byHandle[identity.Handle] = identity
	return nil
}

// Len returns the number of stored identities.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byHandle)
}

// MemoryCredentialStore is an in-memory CredentialStore for development
// and testing.
type MemoryCredentialStore struct {
	mu       sync.RWMutex
	byID     map[string]*Credential
	byHandle map[string][]*Credential
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		byID:     make(map[string]*Credential),
		byHandle: make(map[string][]*Credential),
	}
}

// Save inserts a new credential. The global uniqueness check and the
// insert run under one lock.
func (s *MemoryCredentialStore) Save(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(cred.ID)
	if _, ok := s.byID[key]; ok {
		return ErrConflict
	}
	s.byID[key] = cred
	s.byHandle[cred.UserHandle] = append(s.byHandle[cred.UserHandle], cred)
	return nil
}

// GetByUserHandle retrieves all credentials owned by a handle.
func (s *MemoryCredentialStore) GetByUserHandle(ctx context.Context, handle string) ([]*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	creds := s.byHandle[handle]
	out := make([]*Credential, len(creds))
	copy(out, creds)
	return out, nil
}

// Find retrieves a credential by identifier across all users.
func (s *MemoryCredentialStore) Find(ctx context.Context, credentialID []byte) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byID[hex.EncodeToString(credentialID)]
	if !ok {
		return nil, ErrCredentialNotFound
	}
	return cred, nil
}

// Update persists changes to an existing credential.
func (s *MemoryCredentialStore) Update(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(cred.ID)
	if _, ok := s.byID[key]; !ok {
		return ErrCredentialNotFound
	}
	s.byID[key] = cred

	creds := s.byHandle[cred.UserHandle]
	for i, c := range creds {
		if hex.EncodeToString(c.ID) == key {
			creds[i] = cred
			break
		}
	}
	return nil
}

// Delete removes a credential by identifier.
func (s *MemoryCredentialStore) Delete(ctx context.Context, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := hex.EncodeToString(credentialID)
	cred, ok := s.byID[key]
	if !ok {
		return ErrCredentialNotFound
	}
	delete(s.byID, key)

	creds := s.byHandle[cred.UserHandle]
	for i, c := range creds {
		if hex.EncodeToString(c.ID) == key {
			s.byHandle[cred.UserHandle] = append(creds[:i], creds[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the total number of stored credentials.
func (s *MemoryCredentialStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
