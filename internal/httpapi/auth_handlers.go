package httpapi

import (
	"errors"
	"net/http"

	"venomous.dev/internal/audit"
	"venomous.dev/internal/auth"
	"venomous.dev/internal/obs"
)

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}

func userView(ident *auth.Identity, role auth.Role) userPayload {
	return userPayload{
		ID:    ident.ID,
		Email: ident.Email,
		Name:  ident.Name,
		Role:  role.String(),
	}
}

func (a *API) handleSignUp(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	signed, ident, role, err := a.svc.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.signup", map[string]any{
		"identity_id": ident.ID,
		"email":       ident.Email,
	})
	writeJSON(w, http.StatusCreated, sessionResponse{
		Token: signed,
		User:  userView(ident, role),
	})
}

func (a *API) handleSignIn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}

	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	signed, ident, role, err := a.svc.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrAccountLocked):
			obs.SigninAttempt("locked")
		case errors.Is(err, auth.ErrInvalidCredentials):
			obs.SigninAttempt("invalid")
		case errors.Is(err, auth.ErrAccountDisabled):
			obs.SigninAttempt("disabled")
		default:
			obs.SigninAttempt("error")
		}
		a.handleAuthError(w, r, err)
		return
	}

	obs.SigninAttempt("success")
	_ = audit.LogEvent(r.Context(), "auth.signin", map[string]any{
		"identity_id": ident.ID,
		"email":       ident.Email,
	})
	writeJSON(w, http.StatusOK, sessionResponse{
		Token: signed,
		User:  userView(ident, role),
	})
}

// handleLogout acknowledges the logout. Tokens are stateless; the
// client discards its copy and the server has nothing to revoke.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if id, ok := auth.IdentityIDFromContext(r.Context()); ok {
		_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
			"identity_id": id,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "logged_out",
	})
}

// handleAuthError maps auth-domain failures onto HTTP statuses. Locked
// accounts get 423 with the minutes remaining so clients can surface a
// retry hint.
func (a *API) handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var locked *auth.AccountLockedError
	switch {
	case errors.As(err, &locked):
		payload := map[string]any{
			"error":             "account temporarily locked",
			"remaining_minutes": locked.RemainingMinutes(),
		}
		if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
			payload["request_id"] = rid
		}
		writeJSON(w, http.StatusLocked, payload)
	case errors.Is(err, auth.ErrAccountLocked):
		writeError(w, r, http.StatusLocked, "account temporarily locked")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid email or password")
	case errors.Is(err, auth.ErrAccountDisabled):
		writeError(w, r, http.StatusForbidden, "account disabled")
	case errors.Is(err, auth.ErrAlreadyExists):
		writeError(w, r, http.StatusConflict, "account already exists")
	case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	default:
		obs.Error("auth handler failure", map[string]any{
			"path":  r.URL.Path,
			"error": err.Error(),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
