package handler

import (
	"errors"
	"net/http"

	"github.com/msomdec/shift-clock/internal/domain"
	"github.com/msomdec/shift-clock/internal/service"
)

// AuthHandler handles authentication-related HTTP requests.
type AuthHandler struct {
	auth         *service.AuthService
	bind         *binder
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, bind *binder, cookieSecure bool) *AuthHandler {
	return &AuthHandler{auth: auth, bind: bind, cookieSecure: cookieSecure}
}

// HandleLogin processes a JSON login request.
// POST /api/auth/login
// Request:  {"email":"...","password":"..."}
// Response: {"user": {...}}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode login", err)
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		writeServiceError(w, r, "login user", err)
		return
	}

	h.setAuthCookie(w, token)
	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleRegister processes a JSON registration request and signs the new
// user in.
// POST /api/auth/register
// Request:  {"email":"...","password":"...","tz":"America/Los_Angeles"}
// Response: {"user": {...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode register", err)
		return
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password, req.TZ)
	if err != nil {
		writeServiceError(w, r, "register user", err)
		return
	}

	token, err := h.auth.IssueToken(user)
	if err != nil {
		writeServiceError(w, r, "issue token", err)
		return
	}

	h.setAuthCookie(w, token)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleLogout clears the auth cookie.
// POST /api/auth/logout
// Response: {"ok": true}
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleMe returns the currently authenticated user.
// GET /api/auth/me
// Response: {"user": {...}} or 401
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

// HandleUpdateMe changes the user's zone and reporting preferences.
// PATCH /api/auth/me
// Request:  {"tz":"...","search_default_range":"...","recent_logs_scope":"..."}
// Response: {"user": {...}}
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := h.bind.decode(r, &req); err != nil {
		writeServiceError(w, r, "decode settings", err)
		return
	}

	user, err := h.auth.UpdateSettings(r.Context(), UserFromContext(r.Context()), service.Settings{
		TZ:                 req.TZ,
		SearchDefaultRange: req.SearchDefaultRange,
		RecentLogsScope:    req.RecentLogsScope,
	})
	if err != nil {
		writeServiceError(w, r, "update settings", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": toUserDTO(user),
	})
}

func (h *AuthHandler) setAuthCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(service.TokenTTL.Seconds()),
	})
}
