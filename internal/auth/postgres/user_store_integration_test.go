// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
)

func addUser(t *testing.T, s *postgres.UserStore, email string) *auth.User {
	t.Helper()
	ctx := context.Background()
	u, err := s.AddUser(ctx, email, "hash")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, u.ID.String())
	})
	return u
}

func TestUserStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := postgres.NewUserStore(testPool)

	created := addUser(t, s, "roundtrip@example.com")

	found, err := s.FindUserBy(ctx, auth.ByEmail("roundtrip@example.com"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "hash", found.HashedPassword)
	assert.False(t, found.HasSession())
	assert.False(t, found.ResetPending())

	require.NoError(t, s.UpdateUser(ctx, created.ID, auth.SetSessionID("sess-rt"), auth.SetResetToken("tok-rt")))

	bySession, err := s.FindUserBy(ctx, auth.BySessionID("sess-rt"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, bySession.ID)

	byToken, err := s.FindUserBy(ctx, auth.ByResetToken("tok-rt"))
	require.NoError(t, err)
	assert.Equal(t, created.ID, byToken.ID)

	require.NoError(t, s.UpdateUser(ctx, created.ID, auth.SetHashedPassword("newhash"), auth.ClearResetToken(), auth.ClearSessionID()))

	_, err = s.FindUserBy(ctx, auth.ByResetToken("tok-rt"))
	assert.ErrorIs(t, err, auth.ErrNotFound)
	_, err = s.FindUserBy(ctx, auth.BySessionID("sess-rt"))
	assert.ErrorIs(t, err, auth.ErrNotFound)

	final, err := s.FindUserBy(ctx, auth.ByEmail("roundtrip@example.com"))
	require.NoError(t, err)
	assert.Equal(t, "newhash", final.HashedPassword)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	s := postgres.NewUserStore(testPool)
	addUser(t, s, "dup@example.com")

	_, err := s.AddUser(context.Background(), "dup@example.com", "other")
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)
}

func TestUserStore_SessionIDIsUnique(t *testing.T) {
	ctx := context.Background()
	s := postgres.NewUserStore(testPool)
	a := addUser(t, s, "sess-a@example.com")
	b := addUser(t, s, "sess-b@example.com")

	require.NoError(t, s.UpdateUser(ctx, a.ID, auth.SetSessionID("shared-session")))
	err := s.UpdateUser(ctx, b.ID, auth.SetSessionID("shared-session"))
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrAlreadyExists)

	got, err := s.FindUserBy(ctx, auth.BySessionID("shared-session"))
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
}

func TestUserStore_EmailMatchIsExact(t *testing.T) {
	s := postgres.NewUserStore(testPool)
	addUser(t, s, "Exact@example.com")

	_, err := s.FindUserBy(context.Background(), auth.ByEmail("exact@example.com"))
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserStore_UpdateUnknownUser(t *testing.T) {
	s := postgres.NewUserStore(testPool)
	err := s.UpdateUser(context.Background(), ulid.Make(), auth.ClearSessionID())
	assert.ErrorIs(t, err, auth.ErrNotFound)
}

func TestUserStore_WorksUnderService(t *testing.T) {
	ctx := context.Background()
	s := postgres.NewUserStore(testPool)
	svc, err := auth.NewService(s, auth.NewArgon2idHasher())
	require.NoError(t, err)

	user, err := svc.RegisterUser(ctx, "svc@example.com", "hunter2")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = testPool.Exec(ctx, `DELETE FROM users WHERE id = $1`, user.ID.String())
	})

	assert.True(t, svc.ValidLogin(ctx, "svc@example.com", "hunter2"))

	sid, ok := svc.CreateSession(ctx, "svc@example.com")
	require.True(t, ok)
	got := svc.UserFromSessionID(ctx, sid)
	require.NotNil(t, got)
	assert.Equal(t, user.ID, got.ID)

	require.NoError(t, svc.DestroySession(ctx, user.ID))
	assert.Nil(t, svc.UserFromSessionID(ctx, sid))

	token, err := svc.ResetPasswordToken(ctx, "svc@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.UpdatePassword(ctx, token, "correct horse"))
	assert.ErrorIs(t, svc.UpdatePassword(ctx, token, "again"), auth.ErrInvalidValue)
	assert.True(t, svc.ValidLogin(ctx, "svc@example.com", "correct horse"))
	assert.False(t, svc.ValidLogin(ctx, "svc@example.com", "hunter2"))
}
