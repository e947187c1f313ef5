package httpapi

import (
	"errors"
	"net/http"
	"time"

	"venomous.dev/internal/obs"
	"venomous.dev/internal/token"
)

type tokenRequest struct {
	Token string `json:"token"`
}

// presentedToken takes the token from the JSON body, falling back to
// the Authorization header so authenticated clients can omit the body.
func presentedToken(w http.ResponseWriter, r *http.Request) (string, error) {
	var req tokenRequest
	if err := decodeJSON(w, r, &req); err == nil && req.Token != "" {
		return req.Token, nil
	}
	return extractBearerToken(r.Header.Get(authHeader))
}

func (a *API) handleTokenVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	signed, err := presentedToken(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	if _, err := a.svc.VerifyToken(r.Context(), signed); err != nil {
		obs.TokenOperation("verify", "rejected")
		writeJSON(w, http.StatusOK, map[string]any{"valid": false, "error": tokenErrMessage(err)})
		return
	}
	obs.TokenOperation("verify", "ok")
	writeJSON(w, http.StatusOK, map[string]any{"valid": true})
}

func (a *API) handleTokenInfo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	signed, err := presentedToken(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	info, err := a.svc.VerifyToken(r.Context(), signed)
	if err != nil {
		obs.TokenOperation("info", "rejected")
		a.handleTokenError(w, r, err)
		return
	}
	obs.TokenOperation("info", "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"user":       userView(info.Identity, info.Role),
		"issued_at":  info.IssuedAt.UTC().Format(time.RFC3339),
		"expires_at": info.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *API) handleTokenRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	signed, err := presentedToken(w, r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	fresh, expiresAt, err := a.svc.RefreshToken(r.Context(), signed)
	if err != nil {
		obs.TokenOperation("refresh", "rejected")
		a.handleTokenError(w, r, err)
		return
	}
	obs.TokenOperation("refresh", "ok")
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      fresh,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}

func (a *API) handleTokenError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		writeError(w, r, http.StatusUnauthorized, "token expired")
	case errors.Is(err, token.ErrInvalidToken):
		writeError(w, r, http.StatusUnauthorized, "invalid token")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func tokenErrMessage(err error) string {
	switch {
	case errors.Is(err, token.ErrTokenExpired):
		return "token expired"
	default:
		return "invalid token"
	}
}
