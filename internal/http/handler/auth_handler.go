package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okhan/userauth/internal/http/middleware"
	"github.com/okhan/userauth/internal/http/response"
	"github.com/okhan/userauth/internal/observability"
	"github.com/okhan/userauth/internal/security"
	"github.com/okhan/userauth/internal/service"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authSvc    service.AuthServiceInterface
	cookieMgr  *security.CookieManager
	stateKey   string
	sessionTTL time.Duration
}

func NewAuthHandler(authSvc service.AuthServiceInterface, cookieMgr *security.CookieManager, stateKey string, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{authSvc: authSvc, cookieMgr: cookieMgr, stateKey: stateKey, sessionTTL: sessionTTL}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "register", status, time.Since(start))
	}()

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "failure"
		observability.RecordAuthAttempt(r.Context(), "register", "failure")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	user, err := h.authSvc.Register(req.Name, req.Email, req.Password)
	if err != nil && !errors.Is(err, service.ErrNotificationFailed) {
		status = "failure"
		observability.Audit(r, "auth.register.failed", "reason", reasonFor(err))
		observability.RecordAuthAttempt(r.Context(), "register", "failure")
		writeServiceError(w, r, err)
		return
	}
	if err != nil {
		// Account and token are committed; only the email failed to send.
		status = "failure"
		observability.Audit(r, "auth.register.notify_failed", "user_id", user.ID)
		observability.RecordAuthAttempt(r.Context(), "register", "failure")
		response.Error(w, r, http.StatusBadGateway, "NOTIFICATION_FAILED", "account created but verification email could not be sent", nil)
		return
	}
	observability.Audit(r, "auth.register.success", "user_id", user.ID)
	observability.RecordAuthAttempt(r.Context(), "register", "success")
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"user":    user,
		"message": "verification email sent",
	})
}

func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "verify", status, time.Since(start))
	}()

	token := chi.URLParam(r, "token")
	if err := h.authSvc.Verify(token); err != nil {
		status = "failure"
		observability.Audit(r, "auth.verify.failed", "reason", reasonFor(err))
		observability.RecordAuthAttempt(r.Context(), "verify", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.verify.success")
	observability.RecordAuthAttempt(r.Context(), "verify", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "verified"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "login", status, time.Since(start))
	}()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "failure"
		observability.RecordAuthAttempt(r.Context(), "login", "failure")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	result, err := h.authSvc.Login(req.Email, req.Password)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.login.failed", "reason", reasonFor(err))
		observability.RecordAuthAttempt(r.Context(), "login", "failure")
		writeServiceError(w, r, err)
		return
	}
	h.cookieMgr.SetSessionCookie(w, result.SessionToken, h.sessionTTL)
	observability.Audit(r, "auth.login.success", "user_id", result.User.ID, "provider", "local", "ip", clientIP(r))
	observability.RecordAuthAttempt(r.Context(), "login", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":       result.User,
		"token":      result.SessionToken,
		"expires_at": result.ExpiresAt,
	})
}

// Logout clears the session cookie. Sessions are stateless, so the token
// itself stays valid until expiry; there is nothing to revoke server-side.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "logout", "success", time.Since(start))
	}()

	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		observability.Audit(r, "auth.logout.success", "subject", claims.Subject)
	} else {
		observability.Audit(r, "auth.logout.success")
	}
	h.cookieMgr.ClearSessionCookie(w)
	observability.RecordAuthAttempt(r.Context(), "logout", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "forgot_password", status, time.Since(start))
	}()

	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.authSvc.ForgotPassword(req.Email); err != nil {
		status = "failure"
		observability.Audit(r, "auth.forgot_password.failed", "reason", reasonFor(err))
		observability.RecordAuthAttempt(r.Context(), "forgot_password", "failure")
		writeServiceError(w, r, err)
		return
	}
	// Identical response whether or not the address is registered.
	observability.Audit(r, "auth.forgot_password.accepted")
	observability.RecordAuthAttempt(r.Context(), "forgot_password", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{
		"message": "if the address is registered, a reset email has been sent",
	})
}

type resetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "reset_password", status, time.Since(start))
	}()

	token := chi.URLParam(r, "token")
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		status = "failure"
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	if err := h.authSvc.ResetPassword(token, req.Password, req.ConfirmPassword); err != nil {
		status = "failure"
		observability.Audit(r, "auth.reset_password.failed", "reason", reasonFor(err))
		observability.RecordAuthAttempt(r.Context(), "reset_password", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.reset_password.success")
	observability.RecordAuthAttempt(r.Context(), "reset_password", "success")
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "password_updated"})
}

func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "google_login", status, time.Since(start))
	}()

	state, err := security.NewRandomString(24)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.google.login.failed", "reason", "state_generation")
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "failed to generate oauth state", nil)
		return
	}
	redirect := h.authSvc.GoogleLoginURL(state)
	if redirect == "" {
		status = "failure"
		observability.Audit(r, "auth.google.login.failed", "reason", "disabled")
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "google sign-in is not enabled", nil)
		return
	}
	signed := security.SignState(state, h.stateKey)
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: signed, Path: "/api/v1/users/auth/google", HttpOnly: true, Secure: h.cookieMgr.Secure, SameSite: h.cookieMgr.SameSite, Domain: h.cookieMgr.Domain, MaxAge: 300})
	observability.Audit(r, "auth.google.login.redirect")
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := "success"
	defer func() {
		observability.RecordAuthRequestDuration(r.Context(), "google_callback", status, time.Since(start))
	}()

	queryState := r.URL.Query().Get("state")
	code := r.URL.Query().Get("code")
	if queryState == "" || code == "" {
		status = "failure"
		observability.Audit(r, "auth.google.callback.failed", "reason", "missing_code_or_state")
		observability.RecordAuthAttempt(r.Context(), "google_login", "failure")
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "missing state or code", nil)
		return
	}
	stateCookie := security.GetCookie(r, oauthStateCookie)
	state, ok := security.VerifySignedState(stateCookie, h.stateKey)
	if !ok || state != queryState {
		status = "failure"
		observability.Audit(r, "auth.google.callback.failed", "reason", "invalid_state")
		observability.RecordAuthAttempt(r.Context(), "google_login", "failure")
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid oauth state", nil)
		return
	}
	// Invalidate one-time state immediately after successful verification.
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/api/v1/users/auth/google", MaxAge: -1, HttpOnly: true, Secure: h.cookieMgr.Secure, SameSite: h.cookieMgr.SameSite, Domain: h.cookieMgr.Domain})

	result, err := h.authSvc.LoginWithGoogleCode(r.Context(), code)
	if err != nil {
		status = "failure"
		observability.Audit(r, "auth.google.callback.failed", "reason", "oauth_exchange", "error", err.Error())
		observability.RecordAuthAttempt(r.Context(), "google_login", "failure")
		response.Error(w, r, http.StatusUnauthorized, "OAUTH_FAILED", "google sign-in failed", nil)
		return
	}
	h.cookieMgr.SetSessionCookie(w, result.SessionToken, h.sessionTTL)
	observability.Audit(r, "auth.login.success", "user_id", result.User.ID, "provider", "google")
	observability.RecordAuthAttempt(r.Context(), "google_login", "success")
	response.JSON(w, r, http.StatusOK, map[string]any{
		"user":       result.User,
		"token":      result.SessionToken,
		"expires_at": result.ExpiresAt,
	})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.Error(w, r, http.StatusBadRequest, "VALIDATION_FAILED", err.Error(), nil)
	case errors.Is(err, service.ErrDuplicateAccount):
		response.Error(w, r, http.StatusConflict, "DUPLICATE_ACCOUNT", "an account with this email already exists", nil)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password", nil)
	case errors.Is(err, service.ErrUnverifiedAccount):
		response.Error(w, r, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "email verification required", nil)
	case errors.Is(err, service.ErrInvalidToken):
		response.Error(w, r, http.StatusBadRequest, "INVALID_TOKEN", "invalid verification token", nil)
	case errors.Is(err, service.ErrInvalidOrExpiredToken):
		response.Error(w, r, http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired reset token", nil)
	case errors.Is(err, service.ErrGoogleAuthDisabled):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", "google sign-in is not enabled", nil)
	case errors.Is(err, service.ErrNotificationFailed):
		response.Error(w, r, http.StatusBadGateway, "NOTIFICATION_FAILED", "email could not be sent", nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, service.ErrValidation):
		return "validation"
	case errors.Is(err, service.ErrDuplicateAccount):
		return "duplicate_account"
	case errors.Is(err, service.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, service.ErrUnverifiedAccount):
		return "unverified_account"
	case errors.Is(err, service.ErrInvalidToken), errors.Is(err, service.ErrInvalidOrExpiredToken):
		return "invalid_token"
	case errors.Is(err, service.ErrNotificationFailed):
		return "notification_failed"
	default:
		return "internal"
	}
}

func clientIP(r *http.Request) string {
	xff := r.Header.Get("X-Forwarded-For")
	if xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	return r.RemoteAddr
}
