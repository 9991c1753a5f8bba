// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"

	"github.com/authnd/authnd/pkg/storage"
)

// Key prefixes in the backing key-value store.
const (
	userKeyPrefix       = "user:"
	credentialKeyPrefix = "credential:"
)

// KVUserStore is a UserStore backed by a key-value storage backend.
// Identities are stored JSON-encoded under "user:<handle>"; the key layout
// itself enforces one record per handle, and the check-then-insert in
// Create runs under the store's lock.
type KVUserStore struct {
	mu      sync.Mutex
	backend storage.Backend
}

// NewKVUserStore creates a user store over the given backend.
func NewKVUserStore(backend storage.Backend) *KVUserStore {
	return &KVUserStore{backend: backend}
}

func userKey(handle string) string { return userKeyPrefix + handle }

// GetByHandle retrieves an identity by login name.
func (s *KVUserStore) GetByHandle(ctx context.Context, handle string) (*Identity, error) {
	data, err := s.backend.Get(userKey(handle))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, wrapStorage("get user", err)
	}
	var identity Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, wrapStorage("decode user", err)
	}
	return &identity, nil
}

// Create inserts a new identity, enforcing handle uniqueness under the
// store lock.
func (s *KVUserStore) Create(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.backend.Exists(userKey(identity.Handle))
	if err != nil {
		return wrapStorage("check user", err)
	}
	if exists {
		return ErrConflict
	}
	return s.put(identity)
}

// Save persists changes to an existing identity.
func (s *KVUserStore) Save(ctx context.Context, identity *Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.backend.Exists(userKey(identity.Handle))
	if err != nil {
		return wrapStorage("check user", err)
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.put(identity)
}

func (s *KVUserStore) put(identity *Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return wrapStorage("encode user", err)
	}
	if err := s.backend.Put(userKey(identity.Handle), data); err != nil {
		return wrapStorage("put user", err)
	}
	return nil
}

// KVCredentialStore is a CredentialStore backed by a key-value storage
// backend. Credentials are stored under "credential:<base64url id>", which
// makes the global credential-identifier uniqueness a single-key property.
type KVCredentialStore struct {
	mu      sync.Mutex
	backend storage.Backend
}

// NewKVCredentialStore creates a credential store over the given backend.
func NewKVCredentialStore(backend storage.Backend) *KVCredentialStore {
	return &KVCredentialStore{backend: backend}
}

func credentialKey(id []byte) string {
	return credentialKeyPrefix + base64.RawURLEncoding.EncodeToString(id)
}

// Save inserts a new credential, enforcing global identifier uniqueness
// under the store lock.
func (s *KVCredentialStore) Save(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey(cred.ID)
	exists, err := s.backend.Exists(key)
	if err != nil {
		return wrapStorage("check credential", err)
	}
	if exists {
		return ErrConflict
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return wrapStorage("encode credential", err)
	}
	if err := s.backend.Put(key, data); err != nil {
		return wrapStorage("put credential", err)
	}
	return nil
}

// GetByUserHandle retrieves all credentials owned by a handle.
func (s *KVCredentialStore) GetByUserHandle(ctx context.Context, handle string) ([]*Credential, error) {
	keys, err := s.backend.List(credentialKeyPrefix)
	if err != nil {
		return nil, wrapStorage("list credentials", err)
	}

	creds := make([]*Credential, 0, len(keys))
	for _, key := range keys {
		data, err := s.backend.Get(key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // deleted concurrently
			}
			return nil, wrapStorage("get credential", err)
		}
		var cred Credential
		if err := json.Unmarshal(data, &cred); err != nil {
			return nil, wrapStorage("decode credential", err)
		}
		if cred.UserHandle == handle {
			creds = append(creds, &cred)
		}
	}
	return creds, nil
}

// Find retrieves a credential by identifier across all users.
func (s *KVCredentialStore) Find(ctx context.Context, credentialID []byte) (*Credential, error) {
	data, err := s.backend.Get(credentialKey(credentialID))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrCredentialNotFound
		}
		return nil, wrapStorage("get credential", err)
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, wrapStorage("decode credential", err)
	}
	return &cred, nil
}

// Update persists changes to an existing credential.
func (s *KVCredentialStore) Update(ctx context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey(cred.ID)
	exists, err := s.backend.Exists(key)
	if err != nil {
		return wrapStorage("check credential", err)
	}
	if !exists {
		return ErrCredentialNotFound
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return wrapStorage("encode credential", err)
	}
	if err := s.backend.Put(key, data); err != nil {
		return wrapStorage("put credential", err)
	}
	return nil
}

// Delete removes a credential by identifier.
func (s *KVCredentialStore) Delete(ctx context.Context, credentialID []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := credentialKey(credentialID)
	exists, err := s.backend.Exists(key)
	if err != nil {
		return wrapStorage("check credential", err)
	}
	if !exists {
		return ErrCredentialNotFound
	}
	if err := s.backend.Delete(key); err != nil {
		return wrapStorage("delete credential", err)
	}
	return nil
}
