// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements auth.UserStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
)

// poolIface is the subset of *pgxpool.Pool the store uses.
// pgxmock.PgxPoolIface satisfies it in unit tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `
	SELECT id, email, hashed_password, session_id, reset_token, created_at, updated_at
	FROM users
`

// UserStore implements auth.UserStore using PostgreSQL.
type UserStore struct {
	pool poolIface
	now  func() time.Time
}

// NewUserStore creates a new UserStore.
func NewUserStore(pool poolIface) *UserStore {
	return &UserStore{pool: pool, now: time.Now}
}

// FindUserBy retrieves the user matching c.
func (s *UserStore) FindUserBy(ctx context.Context, c auth.Criterion) (*auth.User, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	// c.Column is one of the validated lookup columns.
	row := s.pool.QueryRow(ctx, selectUser+`WHERE `+string(c.Column)+` = $1`, c.Value)

	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("column", string(c.Column)).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_FIND_FAILED").
			With("operation", "find user").
			With("column", string(c.Column)).
			Wrap(err)
	}
	return user, nil
}

// AddUser inserts a user with a fresh ULID.
func (s *UserStore) AddUser(ctx context.Context, email, hashedPassword string) (*auth.User, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	user := &auth.User{
		ID:             ulid.Make(),
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`,
		user.ID.String(),
		user.Email,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, oops.Code("USER_EMAIL_TAKEN").
				With("email", email).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrAlreadyExists)
		}
		return nil, oops.Code("USER_ADD_FAILED").
			With("operation", "insert user").
			With("email", email).
			Wrap(err)
	}
	return user, nil
}

// UpdateUser writes fields onto the user with the given id in one statement.
// When a column is assigned more than once the last assignment wins. A session
// id or reset token held by another user fails with auth.ErrAlreadyExists.
func (s *UserStore) UpdateUser(ctx context.Context, id ulid.ULID, fields ...auth.Assignment) error {
	if err := auth.ValidateAssignments(fields); err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}

	sql, args := buildUpdate(id, s.now().UTC(), fields)
	result, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_VALUE_TAKEN").
				With("id", id.String()).
				With("constraint", pgErr.ConstraintName).
				Wrap(auth.ErrAlreadyExists)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// buildUpdate renders the UPDATE statement for validated assignments.
// Columns keep the order of their first assignment.
func buildUpdate(id ulid.ULID, now time.Time, fields []auth.Assignment) (string, []any) {
	var order []auth.Column
	values := make(map[auth.Column]*string, len(fields))
	for _, f := range fields {
		if _, seen := values[f.Column]; !seen {
			order = append(order, f.Column)
		}
		values[f.Column] = f.Value
	}

	args := []any{id.String(), now}
	sets := make([]string, 0, len(order)+1)
	for _, col := range order {
		args = append(args, values[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = $2")

	return "UPDATE users SET " + strings.Join(sets, ", ") + " WHERE id = $1", args
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr string
		user  auth.User
	)

	err := row.Scan(
		&idStr,
		&user.Email,
		&user.HashedPassword,
		&user.SessionID,
		&user.ResetToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	user.ID = id

	return &user, nil
}

// Compile-time interface check.
var _ auth.UserStore = (*UserStore)(nil)
