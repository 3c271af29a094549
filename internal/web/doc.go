// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web exposes the auth service over HTTP.
//
// Requests carry form-encoded fields and receive JSON bodies. The session is
// carried in the session_id cookie set by POST /sessions.
//
//	GET    /                 welcome message
//	POST   /users            register (email, password)
//	POST   /sessions         log in (email, password), sets session_id
//	DELETE /sessions         log out, redirects to /
//	GET    /profile          current user's email
//	POST   /reset_password   issue a reset token (email)
//	PUT    /reset_password   redeem a reset token (email, reset_token, new_password)
package web
