// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memstore provides an in-process auth.UserStore.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// UserStore keeps users in memory. It is safe for concurrent use.
// Returned users are copies; mutating them does not change stored state.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byEmail map[string]ulid.ULID
	now     func() time.Time
}

// New creates an empty UserStore.
func New() *UserStore {
	return &UserStore{
		byID:    make(map[ulid.ULID]*auth.User),
		byEmail: make(map[string]ulid.ULID),
		now:     time.Now,
	}
}

// FindUserBy returns the first user matching c.
func (s *UserStore) FindUserBy(_ context.Context, c auth.Criterion) (*auth.User, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if c.Column == auth.ColumnEmail {
		if id, ok := s.byEmail[c.Value]; ok {
			return clone(s.byID[id]), nil
		}
		return nil, notFound(c)
	}

	for _, u := range s.byID {
		if v := column(u, c.Column); v != nil && *v == c.Value {
			return clone(u), nil
		}
	}
	return nil, notFound(c)
}

// AddUser inserts a new user.
func (s *UserStore) AddUser(_ context.Context, email, hashedPassword string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return nil, oops.Code("USER_EMAIL_TAKEN").
			With("email", email).
			Wrap(auth.ErrAlreadyExists)
	}

	now := s.now().UTC()
	u := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	s.byID[u.ID] = u
	s.byEmail[email] = u.ID
	return clone(u), nil
}

// UpdateUser applies fields to the user with the given id. A session id or
// reset token already held by another user is rejected with
// auth.ErrAlreadyExists and nothing is written.
func (s *UserStore) UpdateUser(_ context.Context, id ulid.ULID, fields ...auth.Assignment) error {
	if err := auth.ValidateAssignments(fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}

	for _, f := range fields {
		if f.Value == nil || f.Column == auth.ColumnHashedPassword {
			continue
		}
		if owner, taken := s.holder(f.Column, *f.Value); taken && owner != id {
			return oops.Code("USER_VALUE_TAKEN").
				With("id", id.String()).
				With("column", string(f.Column)).
				Wrap(auth.ErrAlreadyExists)
		}
	}

	for _, f := range fields {
		switch f.Column {
		case auth.ColumnSessionID:
			u.SessionID = copyString(f.Value)
		case auth.ColumnResetToken:
			u.ResetToken = copyString(f.Value)
		case auth.ColumnHashedPassword:
			u.HashedPassword = *f.Value
		}
	}
	u.UpdatedAt = s.now().UTC()
	return nil
}

// Len returns the number of stored users.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// holder returns the id of the user whose unique column c holds value.
func (s *UserStore) holder(c auth.Column, value string) (ulid.ULID, bool) {
	for id, u := range s.byID {
		if v := column(u, c); v != nil && *v == value {
			return id, true
		}
	}
	return ulid.ULID{}, false
}

func column(u *auth.User, c auth.Column) *string {
	switch c {
	case auth.ColumnSessionID:
		return u.SessionID
	case auth.ColumnResetToken:
		return u.ResetToken
	default:
		return nil
	}
}

func notFound(c auth.Criterion) error {
	return oops.Code("USER_NOT_FOUND").
		With("column", string(c.Column)).
		Wrap(auth.ErrNotFound)
}

func clone(u *auth.User) *auth.User {
	cp := *u
	cp.SessionID = copyString(u.SessionID)
	cp.ResetToken = copyString(u.ResetToken)
	return &cp
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
