package httpapi

import (
	"net/http"

	"venomous.dev/internal/audit"
	"venomous.dev/internal/auth"
)

type profileUpdateRequest struct {
	Name string `json:"name"`
}

// handleProfile serves the authenticated identity's own record: GET
// returns the profile view, PUT renames the account.
func (a *API) handleProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := a.svc.Profile(r.Context(), id)
		if err != nil {
			a.handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, profile)
	case http.MethodPut:
		var req profileUpdateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		ident, err := a.svc.UpdateProfile(r.Context(), id, req.Name)
		if err != nil {
			a.handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "auth.profile.update", map[string]any{
			"identity_id": id,
		})
		writeJSON(w, http.StatusOK, map[string]any{
			"user": ident,
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}
