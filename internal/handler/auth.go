// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for Quill's auth and blog routes.
package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/quill/internal/auth"
	"github.com/olegiv/quill/internal/middleware"
	"github.com/olegiv/quill/internal/model"
	"github.com/olegiv/quill/internal/render"
	"github.com/olegiv/quill/internal/service"
	"github.com/olegiv/quill/internal/store"
)

// SessionKeyUserID is the session key for storing the authenticated user ID.
const SessionKeyUserID = middleware.SessionKeyUserID

// AuthHandler handles authentication routes.
type AuthHandler struct {
	queries         *store.Queries
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	eventService    *service.EventService
	loginProtection *middleware.LoginProtection
	strongPasswords bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection, strongPasswords bool) *AuthHandler {
	return &AuthHandler{
		queries:         store.New(db),
		renderer:        renderer,
		sessionManager:  sm,
		eventService:    service.NewEventService(db),
		loginProtection: lp,
		strongPasswords: strongPasswords,
	}
}

// authFormData carries submitted values back to the form on validation errors.
type authFormData struct {
	Username string
}

// RegisterForm renders the registration page.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/register", render.TemplateData{
		Title: "Register",
		Data:  authFormData{},
	}); err != nil {
		logAndInternalError(w, "render register form", "error", err)
	}
}

// Register handles the registration form submission.
// Validation mirrors the account rules: username first, then uniqueness,
// then password presence, then the optional strength policy.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectRegister) {
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	clientIP := middleware.GetClientIP(r)

	if username == "" {
		flashError(w, r, h.renderer, redirectRegister, "Username is required.")
		return
	}

	exists, err := h.queries.UsernameExists(r.Context(), username)
	if err != nil {
		logAndInternalError(w, "username existence check", "error", err)
		return
	}
	if exists {
		flashError(w, r, h.renderer, redirectRegister, fmt.Sprintf("User %s is already registered.", username))
		return
	}

	if password == "" {
		flashError(w, r, h.renderer, redirectRegister, "Password is required.")
		return
	}

	if h.strongPasswords && !auth.IsStrongPassword(password) {
		flashError(w, r, h.renderer, redirectRegister, auth.StrongPasswordHint)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		logAndInternalError(w, "password hashing", "error", err)
		return
	}

	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		// The UNIQUE constraint is the authoritative duplicate guard: a
		// concurrent registration can slip past the pre-check above.
		if store.IsUniqueViolation(err) {
			flashError(w, r, h.renderer, redirectRegister, fmt.Sprintf("User %s is already registered.", username))
			return
		}
		logAndInternalError(w, "user creation", "error", err)
		return
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User registered", &user.ID, clientIP,
		service.UserAgentMetadata(r.UserAgent()))

	http.Redirect(w, r, redirectLogin, http.StatusSeeOther)
}

// LoginForm renders the login page.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID); userID > 0 {
		http.Redirect(w, r, RouteRoot, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/login", render.TemplateData{
		Title: "Log In",
		Data:  authFormData{},
	}); err != nil {
		logAndInternalError(w, "render login form", "error", err)
	}
}

// Login handles the login form submission.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectLogin) {
		return
	}

	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	clientIP := middleware.GetClientIP(r)

	// Check if account is locked
	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(username); locked {
			_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login attempt on locked account", nil, clientIP,
				map[string]any{"username": username})
			flashError(w, r, h.renderer, redirectLogin,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	user, err := h.queries.GetUserByUsername(r.Context(), username)
	if err != nil {
		// An infrastructure failure is not a credential failure: it must not
		// consume lockout budget or masquerade as a wrong username.
		if !errors.Is(err, sql.ErrNoRows) {
			logAndInternalError(w, "database error during login", "error", err)
			return
		}
		slog.Debug("login attempt for non-existent user", "username", username)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: user not found", nil, clientIP,
			map[string]any{"username": username})
		// Record failed attempt even for non-existent users
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(username); locked {
				flashError(w, r, h.renderer, redirectLogin,
					fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)))
				return
			}
		}
		flashError(w, r, h.renderer, redirectLogin, "Incorrect username.")
		return
	}

	valid, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil {
		slog.Error("password check error", "error", err)
		flashError(w, r, h.renderer, redirectLogin, "Incorrect password.")
		return
	}

	if !valid {
		slog.Debug("invalid password attempt", "username", username)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Login failed: invalid password", &user.ID, clientIP,
			map[string]any{"username": username})
		if h.loginProtection != nil {
			if locked, lockDuration := h.loginProtection.RecordFailedAttempt(username); locked {
				_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelWarning, "Account locked due to failed attempts", &user.ID, clientIP,
					map[string]any{"username": username, "duration": lockDuration.String()})
				flashError(w, r, h.renderer, redirectLogin,
					fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)))
				return
			}
		}
		flashError(w, r, h.renderer, redirectLogin, "Incorrect password.")
		return
	}

	// Clear failed attempts on successful login
	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(username)
	}

	// Re-hash password if it uses outdated parameters
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			if err := h.queries.UpdateUserPassword(r.Context(), store.UpdateUserPasswordParams{
				PasswordHash: newHash,
				ID:           user.ID,
			}); err != nil {
				slog.Error("failed to re-hash password", "error", err, "user_id", user.ID)
			} else {
				slog.Info("password re-hashed with updated parameters", "user_id", user.ID)
			}
		}
	}

	// Regenerate session ID to prevent session fixation
	if err := h.sessionManager.RenewToken(r.Context()); err != nil {
		logAndInternalError(w, "session renewal error", "error", err)
		return
	}

	h.sessionManager.Put(r.Context(), SessionKeyUserID, user.ID)

	slog.Info("user logged in", "user_id", user.ID, "username", user.Username)
	_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged in", &user.ID, clientIP,
		service.UserAgentMetadata(r.UserAgent()))

	http.Redirect(w, r, redirectIndex, http.StatusSeeOther)
}

// Logout handles user logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := h.sessionManager.GetInt64(r.Context(), SessionKeyUserID)

	// Log the event before destroying the session
	if userID > 0 {
		clientIP := middleware.GetClientIP(r)
		_ = h.eventService.LogAuthEvent(r.Context(), model.EventLevelInfo, "User logged out", &userID, clientIP, nil)
	}

	if err := h.sessionManager.Destroy(r.Context()); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user logged out", "user_id", userID)

	http.Redirect(w, r, redirectIndex, http.StatusSeeOther)
}

// formatDuration formats a duration into a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	hours := int(d.Hours())
	if hours == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", hours)
}
