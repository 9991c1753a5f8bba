// Copyright (c) 2026 The authnd Authors
// SPDX-License-Identifier: MIT

package passkey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential(handle string, id []byte) *Credential {
	return &Credential{
		ID:         id,
		UserHandle: handle,
		PublicKey:  []byte{0xa5, 0x01, 0x02},
		SignCount:  0,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestMemoryUserStore_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	identity := NewIdentity("alice", "Alice")
	require.NoError(t, store.Create(ctx, identity))

	got, err := store.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, identity.ID, got.ID)
	assert.Equal(t, "Alice", got.DisplayName)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryUserStore_DuplicateHandle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	require.NoError(t, store.Create(ctx, NewIdentity("alice", "Alice")))
	err := store.Create(ctx, NewIdentity("alice", "Other Alice"))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryUserStore_NotFound(t *testing.T) {
	store := NewMemoryUserStore()

	_, err := store.GetByHandle(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestMemoryUserStore_Save(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryUserStore()

	identity := NewIdentity("alice", "Alice")
	require.NoError(t, store.Create(ctx, identity))

	identity.DisplayName = "Alice B."
	require.NoError(t, store.Save(ctx, identity))

	got, err := store.GetByHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice B.", got.DisplayName)
}

func TestMemoryCredentialStore_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	cred := testCredential("alice", []byte{1, 2, 3})
	require.NoError(t, store.Save(ctx, cred))

	got, err := store.Find(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserHandle)

	_, err = store.Find(ctx, []byte{9, 9, 9})
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestMemoryCredentialStore_DuplicateID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	require.NoError(t, store.Save(ctx, testCredential("alice", []byte{1, 2, 3})))

	// The identifier is unique across all users, not per user.
	err := store.Save(ctx, testCredential("bob", []byte{1, 2, 3}))
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryCredentialStore_GetByUserHandle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	require.NoError(t, store.Save(ctx, testCredential("alice", []byte{1})))
	require.NoError(t, store.Save(ctx, testCredential("alice", []byte{2})))
	require.NoError(t, store.Save(ctx, testCredential("bob", []byte{3})))

	creds, err := store.GetByUserHandle(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, creds, 2)

	// Unknown handles read as empty, not as an error.
	creds, err = store.GetByUserHandle(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, creds)
}

func TestMemoryCredentialStore_Update(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCredentialStore()

	cred := testCredential("alice", []byte{1, 2, 3})
	require.NoError(t, store.Save(ctx, cred))

	cred.SignCount = 7
	require.NoError(t, store.Update(ctx, cred))

	got, err := store.Find(ctx, []byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, uint32(7), got.SignCount)

	err = store.Update(ctx, testCredential("alice", []byte{9}))
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestMemoryCredentialStore_Delete(t *testing.T) {
	store := NewMemoryCredentialStore()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testCredential("alice", []byte{1})))
	require.NoError(t, store.Save(ctx, testCredential("alice", []byte{2})))

	require.NoError(t, store.Delete(ctx, []byte{1}))

	_, err := store.Find(ctx, []byte{1})
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	remaining, err := store.GetByUserHandle(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, []byte{2}, remaining[0].ID)

	err = store.Delete(ctx, []byte{1})
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}
