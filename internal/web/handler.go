// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/pkg/errutil"
)

// SessionCookie is the cookie that carries the session id.
const SessionCookie = "session_id"

// AuthService is the subset of *auth.Service the handlers call.
type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) (*auth.User, error)
	ValidLogin(ctx context.Context, email, password string) bool
	CreateSession(ctx context.Context, email string) (string, bool)
	UserFromSessionID(ctx context.Context, sessionID string) *auth.User
	DestroySession(ctx context.Context, userID ulid.ULID) error
	ResetPasswordToken(ctx context.Context, email string) (string, error)
	UpdatePassword(ctx context.Context, resetToken, newPassword string) error
}

// Handler serves the auth routes.
type Handler struct {
	svc    AuthService
	logger *slog.Logger
}

// NewHandler creates a Handler. A nil logger discards logs.
func NewHandler(svc AuthService, logger *slog.Logger) (*Handler, error) {
	if svc == nil {
		return nil, oops.Code("WEB_INVALID_CONFIG").Errorf("auth service is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{svc: svc, logger: logger}, nil
}

type emailMessage struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type emailOnly struct {
	Email string `json:"email"`
}

type resetTokenResponse struct {
	Email      string `json:"email"`
	ResetToken string `json:"reset_token"`
}

// Index handles GET /.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Bienvenue")
}

// RegisterUser handles POST /users.
func (h *Handler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")
	if email == "" || !r.PostForm.Has("password") {
		writeMessage(w, http.StatusBadRequest, "email and password are required")
		return
	}

	_, err := h.svc.RegisterUser(r.Context(), email, r.PostForm.Get("password"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, emailMessage{Email: email, Message: "user created"})
	case errors.Is(err, auth.ErrAlreadyExists):
		writeMessage(w, http.StatusBadRequest, "email already registered")
	default:
		h.internalError(w, r, "register user failed", err)
	}
}

// Login handles POST /sessions.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")

	if !h.svc.ValidLogin(r.Context(), email, r.PostForm.Get("password")) {
		writeStatus(w, http.StatusUnauthorized)
		return
	}

	sessionID, ok := h.svc.CreateSession(r.Context(), email)
	if !ok {
		writeStatus(w, http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, emailMessage{Email: email, Message: "logged in"})
}

// Logout handles DELETE /sessions.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		writeStatus(w, http.StatusForbidden)
		return
	}

	if err := h.svc.DestroySession(r.Context(), user.ID); err != nil {
		// The client is logged out either way; the stale id stays in the store.
		errutil.LogError(r.Context(), h.logger, "destroy session failed", err)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// Profile handles GET /profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(r)
	if user == nil {
		writeStatus(w, http.StatusForbidden)
		return
	}
	writeJSON(w, http.StatusOK, emailOnly{Email: user.Email})
}

// ResetPasswordToken handles POST /reset_password.
func (h *Handler) ResetPasswordToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")

	token, err := h.svc.ResetPasswordToken(r.Context(), email)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, resetTokenResponse{Email: email, ResetToken: token})
	case errors.Is(err, auth.ErrInvalidValue):
		writeStatus(w, http.StatusForbidden)
	default:
		h.internalError(w, r, "reset password token failed", err)
	}
}

// UpdatePassword handles PUT /reset_password.
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}
	email := r.PostForm.Get("email")

	err := h.svc.UpdatePassword(r.Context(), r.PostForm.Get("reset_token"), r.PostForm.Get("new_password"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, emailMessage{Email: email, Message: "Password updated"})
	case errors.Is(err, auth.ErrInvalidValue):
		writeStatus(w, http.StatusForbidden)
	default:
		h.internalError(w, r, "update password failed", err)
	}
}

func (h *Handler) currentUser(r *http.Request) *auth.User {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return nil
	}
	return h.svc.UserFromSessionID(r.Context(), cookie.Value)
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	errutil.LogError(r.Context(), h.logger, msg, err, "route", r.URL.Path)
	writeMessage(w, http.StatusInternalServerError, "internal error")
}
