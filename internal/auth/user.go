// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User is one registered principal.
type User struct {
	ID             ulid.ULID
	Email          string
	HashedPassword string
	// SessionID is set while the user has an active session.
	SessionID *string
	// ResetToken is set while a password reset is in progress.
	ResetToken *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// HasSession reports whether the user currently has a session bound.
func (u *User) HasSession() bool {
	return u.SessionID != nil
}

// ResetPending reports whether a password reset is in progress.
func (u *User) ResetPending() bool {
	return u.ResetToken != nil
}

// Column names a user attribute that can be matched or written through a
// UserStore. The values are the storage column names.
type Column string

// Columns addressable by Criterion and Assignment.
const (
	ColumnEmail          Column = "email"
	ColumnSessionID      Column = "session_id"
	ColumnResetToken     Column = "reset_token"
	ColumnHashedPassword Column = "hashed_password"
)

// Criterion selects users by exact match on a single column.
type Criterion struct {
	Column Column
	Value  string
}

// ByEmail matches the user with the given email.
func ByEmail(email string) Criterion {
	return Criterion{Column: ColumnEmail, Value: email}
}

// BySessionID matches the user holding the given session id.
func BySessionID(sessionID string) Criterion {
	return Criterion{Column: ColumnSessionID, Value: sessionID}
}

// ByResetToken matches the user holding the given reset token.
func ByResetToken(token string) Criterion {
	return Criterion{Column: ColumnResetToken, Value: token}
}

// Validate checks that the criterion names a lookup column.
func (c Criterion) Validate() error {
	switch c.Column {
	case ColumnEmail, ColumnSessionID, ColumnResetToken:
		return nil
	default:
		return oops.Code("USER_INVALID_CRITERION").
			With("column", string(c.Column)).
			Errorf("users cannot be looked up by %q", c.Column)
	}
}

// Assignment writes a single column. A nil Value stores NULL.
type Assignment struct {
	Column Column
	Value  *string
}

// SetSessionID binds a session id to the user.
func SetSessionID(sessionID string) Assignment {
	return Assignment{Column: ColumnSessionID, Value: &sessionID}
}

// ClearSessionID removes the user's session id.
func ClearSessionID() Assignment {
	return Assignment{Column: ColumnSessionID}
}

// SetResetToken records a pending reset token.
func SetResetToken(token string) Assignment {
	return Assignment{Column: ColumnResetToken, Value: &token}
}

// ClearResetToken removes the pending reset token.
func ClearResetToken() Assignment {
	return Assignment{Column: ColumnResetToken}
}

// SetHashedPassword replaces the stored credential.
func SetHashedPassword(hash string) Assignment {
	return Assignment{Column: ColumnHashedPassword, Value: &hash}
}

// Validate checks that the assignment targets a writable column.
// The password hash column is never nullable.
func (a Assignment) Validate() error {
	switch a.Column {
	case ColumnSessionID, ColumnResetToken:
		return nil
	case ColumnHashedPassword:
		if a.Value == nil {
			return oops.Code("USER_INVALID_ASSIGNMENT").
				With("column", string(a.Column)).
				Errorf("hashed_password cannot be cleared")
		}
		return nil
	default:
		return oops.Code("USER_INVALID_ASSIGNMENT").
			With("column", string(a.Column)).
			Errorf("column %q is not writable", a.Column)
	}
}

// ValidateAssignments validates each assignment in order.
func ValidateAssignments(fields []Assignment) error {
	for _, f := range fields {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UserStore persists users. Implementations enforce email uniqueness and
// return errors that wrap ErrNotFound or ErrAlreadyExists where noted.
type UserStore interface {
	// FindUserBy returns the user matching c, or an error wrapping
	// ErrNotFound when none does.
	FindUserBy(ctx context.Context, c Criterion) (*User, error)

	// AddUser inserts a user with no session and no reset token and returns
	// the stored record. Returns an error wrapping ErrAlreadyExists when the
	// email is taken.
	AddUser(ctx context.Context, email, hashedPassword string) (*User, error)

	// UpdateUser applies fields to the user with the given id. No fields is
	// a no-op. Returns an error wrapping ErrNotFound when the id is unknown,
	// or ErrAlreadyExists when another user holds the session id or reset
	// token being set.
	UpdateUser(ctx context.Context, id ulid.ULID, fields ...Assignment) error
}
