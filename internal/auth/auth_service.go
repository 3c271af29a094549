// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/holomush/authd/internal/auth"

// Operation names used for metrics and spans.
const (
	OpRegisterUser       = "register_user"
	OpValidLogin         = "valid_login"
	OpCreateSession      = "create_session"
	OpUserFromSessionID  = "user_from_session_id"
	OpDestroySession     = "destroy_session"
	OpResetPasswordToken = "reset_password_token"
	OpUpdatePassword     = "update_password"
)

// Operation outcomes used for metrics.
const (
	OutcomeSuccess  = "success"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeNoop     = "noop"
	OutcomeError    = "error"
)

// Recorder receives one event per completed Service operation.
type Recorder interface {
	RecordAuthOperation(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordAuthOperation(string, string) {}

// Service implements registration, login validation, session binding and
// password reset on top of a UserStore.
type Service struct {
	users   UserStore
	hasher  PasswordHasher
	ids     IdentifierGenerator
	logger  *slog.Logger
	metrics Recorder
	tracer  trace.Tracer
	locks   *userLocks

	// dummyHash is verified against when a login names an unknown email so
	// that unknown and known users cost the same hasher work. It hashes a
	// random secret that is discarded.
	dummyHash string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. A nil logger is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIdentifierGenerator replaces the default UUID generator.
func WithIdentifierGenerator(ids IdentifierGenerator) Option {
	return func(s *Service) {
		if ids != nil {
			s.ids = ids
		}
	}
}

// WithMetrics sets the operation recorder.
func WithMetrics(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithTracer overrides the tracer taken from the global otel provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// NewService creates a Service.
// Returns an error if users or hasher is nil, or if hasher cannot hash.
func NewService(users UserStore, hasher PasswordHasher, opts ...Option) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("user store is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}

	s := &Service{
		users:   users,
		hasher:  hasher,
		ids:     UUIDGenerator{},
		logger:  slog.New(slog.DiscardHandler),
		metrics: nopRecorder{},
		tracer:  otel.Tracer(tracerName),
		locks:   newUserLocks(),
	}
	for _, opt := range opts {
		opt(s)
	}

	dummy, err := hasher.Hash(rand.Text())
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	s.dummyHash = dummy
	return s, nil
}

func (s *Service) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "auth."+op, trace.WithAttributes(attribute.String("auth.operation", op)))
}

func (s *Service) finish(span trace.Span, op, outcome string) {
	span.SetAttributes(attribute.String("auth.outcome", outcome))
	if outcome == OutcomeError {
		span.SetStatus(codes.Error, op+" failed")
	}
	span.End()
	s.metrics.RecordAuthOperation(op, outcome)
}

// RegisterUser stores a new user with the given credentials.
// Returns an error wrapping ErrAlreadyExists when the email is taken; the
// existing record is left untouched.
func (s *Service) RegisterUser(ctx context.Context, email, password string) (*User, error) {
	ctx, span := s.start(ctx, OpRegisterUser)
	outcome := OutcomeError
	defer func() { s.finish(span, OpRegisterUser, outcome) }()

	_, err := s.users.FindUserBy(ctx, ByEmail(email))
	switch {
	case err == nil:
		outcome = OutcomeConflict
		return nil, oops.Code("AUTH_USER_EXISTS").With("email", email).Wrap(ErrAlreadyExists)
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "find user by email").
			Wrap(err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := s.users.AddUser(ctx, email, hash)
	if errors.Is(err, ErrAlreadyExists) {
		// Lost a race with a concurrent registration of the same email.
		outcome = OutcomeConflict
		return nil, oops.Code("AUTH_USER_EXISTS").With("email", email).Wrap(ErrAlreadyExists)
	}
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "add user").
			Wrap(err)
	}

	outcome = OutcomeSuccess
	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return user, nil
}

// ValidLogin reports whether password is the current credential for email.
// Unknown emails, store failures and malformed hashes all report false.
func (s *Service) ValidLogin(ctx context.Context, email, password string) bool {
	ctx, span := s.start(ctx, OpValidLogin)
	outcome := OutcomeRejected
	defer func() { s.finish(span, OpValidLogin, outcome) }()

	target := s.dummyHash
	user, err := s.users.FindUserBy(ctx, ByEmail(email))
	switch {
	case err == nil:
		target = user.HashedPassword
	case !errors.Is(err, ErrNotFound):
		outcome = OutcomeError
		s.logger.WarnContext(ctx, "login lookup failed, rejecting",
			"operation", "find_user_by_email", "error", err)
	}

	ok, err := s.hasher.Verify(password, target)
	if user == nil {
		return false
	}
	if err != nil {
		s.logger.WarnContext(ctx, "stored hash could not be verified, rejecting",
			"operation", "verify_password", "user_id", user.ID.String(), "error", err)
		return false
	}
	if ok {
		outcome = OutcomeSuccess
	}
	return ok
}

// CreateSession binds a fresh session id to the user with the given email,
// replacing any previous one, and returns it. The bool is false when no
// session could be created for any reason.
func (s *Service) CreateSession(ctx context.Context, email string) (string, bool) {
	ctx, span := s.start(ctx, OpCreateSession)
	outcome := OutcomeRejected
	defer func() { s.finish(span, OpCreateSession, outcome) }()

	user, err := s.users.FindUserBy(ctx, ByEmail(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			outcome = OutcomeError
			s.logger.WarnContext(ctx, "session lookup failed, no session created",
				"operation", "find_user_by_email", "error", err)
		}
		return "", false
	}

	sessionID, err := s.ids.NewIdentifier()
	if err != nil {
		outcome = OutcomeError
		s.logger.ErrorContext(ctx, "session id generation failed",
			"operation", "new_identifier", "error", err)
		return "", false
	}

	if err := s.users.UpdateUser(ctx, user.ID, SetSessionID(sessionID)); err != nil {
		outcome = OutcomeError
		s.logger.WarnContext(ctx, "session could not be stored, no session created",
			"operation", "update_user", "user_id", user.ID.String(), "error", err)
		return "", false
	}

	outcome = OutcomeSuccess
	return sessionID, true
}

// UserFromSessionID returns the user bound to sessionID, or nil when the id
// is empty, unknown, or cannot be looked up.
func (s *Service) UserFromSessionID(ctx context.Context, sessionID string) *User {
	if sessionID == "" {
		s.metrics.RecordAuthOperation(OpUserFromSessionID, OutcomeNoop)
		return nil
	}

	ctx, span := s.start(ctx, OpUserFromSessionID)
	outcome := OutcomeRejected
	defer func() { s.finish(span, OpUserFromSessionID, outcome) }()

	user, err := s.users.FindUserBy(ctx, BySessionID(sessionID))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			outcome = OutcomeError
			s.logger.WarnContext(ctx, "session lookup failed, treating as absent",
				"operation", "find_user_by_session", "error", err)
		}
		return nil
	}

	outcome = OutcomeSuccess
	return user
}

// DestroySession clears the session bound to userID. A zero userID is a
// no-op. Store failures are returned.
func (s *Service) DestroySession(ctx context.Context, userID ulid.ULID) error {
	if userID.Compare(ulid.ULID{}) == 0 {
		s.metrics.RecordAuthOperation(OpDestroySession, OutcomeNoop)
		return nil
	}

	ctx, span := s.start(ctx, OpDestroySession)
	outcome := OutcomeError
	defer func() { s.finish(span, OpDestroySession, outcome) }()

	if err := s.users.UpdateUser(ctx, userID, ClearSessionID()); err != nil {
		return oops.Code("AUTH_SESSION_DESTROY_FAILED").
			With("operation", "update user").
			With("user_id", userID.String()).
			Wrap(err)
	}

	outcome = OutcomeSuccess
	return nil
}

// ResetPasswordToken starts a password reset for email and returns the token
// that UpdatePassword accepts. Any failure is reported as ErrInvalidValue.
func (s *Service) ResetPasswordToken(ctx context.Context, email string) (string, error) {
	ctx, span := s.start(ctx, OpResetPasswordToken)
	outcome := OutcomeRejected
	defer func() { s.finish(span, OpResetPasswordToken, outcome) }()

	user, err := s.users.FindUserBy(ctx, ByEmail(email))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			outcome = OutcomeError
			s.logger.WarnContext(ctx, "reset lookup failed, rejecting",
				"operation", "find_user_by_email", "error", err)
		}
		return "", errUserNotFound(email)
	}

	token, err := s.ids.NewIdentifier()
	if err != nil {
		outcome = OutcomeError
		s.logger.ErrorContext(ctx, "reset token generation failed",
			"operation", "new_identifier", "error", err)
		return "", errUserNotFound(email)
	}

	// Serialized with UpdatePassword so a redemption cannot clear this token.
	unlock := s.locks.lock(user.ID)
	err = s.users.UpdateUser(ctx, user.ID, SetResetToken(token))
	unlock()
	if err != nil {
		outcome = OutcomeError
		s.logger.WarnContext(ctx, "reset token could not be stored, rejecting",
			"operation", "update_user", "user_id", user.ID.String(), "error", err)
		return "", errUserNotFound(email)
	}

	outcome = OutcomeSuccess
	return token, nil
}

// UpdatePassword replaces the password of the user holding resetToken and
// consumes the token. Any failure, including a token that was already used,
// is reported as ErrInvalidValue.
func (s *Service) UpdatePassword(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		s.metrics.RecordAuthOperation(OpUpdatePassword, OutcomeRejected)
		return errInvalidResetToken()
	}

	ctx, span := s.start(ctx, OpUpdatePassword)
	outcome := OutcomeRejected
	defer func() { s.finish(span, OpUpdatePassword, outcome) }()

	user, err := s.users.FindUserBy(ctx, ByResetToken(resetToken))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			outcome = OutcomeError
			s.logger.WarnContext(ctx, "reset token lookup failed, rejecting",
				"operation", "find_user_by_reset_token", "error", err)
		}
		return errInvalidResetToken()
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.logger.WarnContext(ctx, "new password could not be hashed, rejecting",
			"operation", "hash_password", "user_id", user.ID.String(), "error", err)
		return errInvalidResetToken()
	}

	unlock := s.locks.lock(user.ID)
	defer unlock()

	// A concurrent redemption may have consumed the token since the first read.
	current, err := s.users.FindUserBy(ctx, ByResetToken(resetToken))
	if err != nil || current.ID != user.ID {
		return errInvalidResetToken()
	}

	if err := s.users.UpdateUser(ctx, user.ID, SetHashedPassword(hash), ClearResetToken()); err != nil {
		outcome = OutcomeError
		s.logger.WarnContext(ctx, "password could not be stored, rejecting",
			"operation", "update_user", "user_id", user.ID.String(), "error", err)
		return errInvalidResetToken()
	}

	outcome = OutcomeSuccess
	s.logger.InfoContext(ctx, "password updated", "user_id", user.ID.String())
	return nil
}

func errUserNotFound(email string) error {
	return oops.Code("AUTH_USER_NOT_FOUND").With("email", email).Wrap(ErrInvalidValue)
}

func errInvalidResetToken() error {
	return oops.Code("AUTH_INVALID_RESET_TOKEN").Wrap(ErrInvalidValue)
}
