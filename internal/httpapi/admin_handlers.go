package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"venomous.dev/internal/audit"
	"venomous.dev/internal/auth"
)

type unlockRequest struct {
	IdentityID string `json:"identity_id,omitempty"`
	Email      string `json:"email,omitempty"`
}

// requireAdmin gates a handler on an authenticated identity whose role
// grants admin access. withAuth has already attached the identity when
// the bearer token verified.
func (a *API) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.IdentityIDFromContext(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		if !auth.RoleFromContext(r.Context()).IsAdmin() {
			writeError(w, r, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	}
}

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, offset := pageParams(r)
	users, err := a.svc.ListUsers(r.Context(), limit, offset)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	if users == nil {
		users = []*auth.Identity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": users,
	})
}

func (a *API) handleAdminUnlock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req unlockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var err error
	switch {
	case req.IdentityID != "":
		err = a.svc.AdminUnlock(r.Context(), req.IdentityID)
	case req.Email != "":
		err = a.svc.AdminUnlockByEmail(r.Context(), req.Email)
	default:
		writeError(w, r, http.StatusBadRequest, "identity_id or email is required")
		return
	}
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		a.handleAuthError(w, r, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "admin.account.unlock", map[string]any{
		"identity_id": req.IdentityID,
		"email":       req.Email,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "unlocked",
	})
}

// handleUserAction dispatches the per-user admin routes under
// /v1/admin/users/{id}/...
func (a *API) handleUserAction(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/admin/users/")
	id, action, ok := strings.Cut(rest, "/")
	if !ok || id == "" {
		http.NotFound(w, r)
		return
	}
	switch action {
	case "lock-status":
		a.handleLockStatus(w, r, id)
	case "reset-password":
		a.handleResetPassword(w, r, id)
	case "status":
		a.handleStatusUpdate(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// handleLockStatus serves GET /v1/admin/users/{id}/lock-status.
func (a *API) handleLockStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	state, err := a.svc.LockStatus(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		a.handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleResetPassword serves POST /v1/admin/users/{id}/reset-password.
// The temporary password is returned to the caller for out-of-band
// delivery; it is never logged.
func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	temp, err := a.svc.AdminResetPassword(r.Context(), id)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		a.handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.password.reset", map[string]any{
		"identity_id": id,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "password_reset",
		"temp_password": temp,
	})
}

type statusUpdateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// handleStatusUpdate serves PUT /v1/admin/users/{id}/status.
func (a *API) handleStatusUpdate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPut {
		methodNotAllowed(w, r, http.MethodPut)
		return
	}
	var req statusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.svc.AdminSetStatus(r.Context(), id, auth.Status(req.Status), req.Reason); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "account not found")
			return
		}
		a.handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user.status", map[string]any{
		"identity_id": id,
		"status":      req.Status,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     id,
		"status": req.Status,
	})
}

func (a *API) handleSecurityEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, offset := pageParams(r)
	events, err := a.svc.SecurityEvents(r.Context(), limit, offset)
	if err != nil {
		a.handleAuthError(w, r, err)
		return
	}
	if events == nil {
		events = []*auth.SecurityEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
	})
}

func pageParams(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	return limit, offset
}
