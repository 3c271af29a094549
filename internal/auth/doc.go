// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth implements user registration, credential checks, session
// binding and password reset for authd.
//
// # Domain Types
//
// A User is owned by a UserStore. The service only holds the pointers a
// lookup returns for the duration of one call and never caches them.
// Stores are addressed through small value types:
//   - Criterion - exact-match lookup on email, session id or reset token
//   - Assignment - a single column write (session id, reset token, password hash)
//
// # Services
//
// Service coordinates a UserStore, a PasswordHasher and an
// IdentifierGenerator. It is constructed once with NewService and passed to
// the transports that need it; there is no package-level instance.
//
// Lookups in ValidLogin, CreateSession and UserFromSessionID fail closed:
// any store failure reads as "no such user". ResetPasswordToken and
// UpdatePassword report every failure as ErrInvalidValue.
package auth
