// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

// ErrNotFound is returned by a UserStore when no user matches a lookup or
// update. Service methods translate it and never return it to callers.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when registering an email that already
// belongs to a user.
var ErrAlreadyExists = errors.New("already exists")

// ErrInvalidValue is the single condition callers see when a password reset
// cannot proceed, whether the email is unknown or the reset token is stale.
var ErrInvalidValue = errors.New("invalid value")
