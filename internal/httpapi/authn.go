package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"venomous.dev/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

// withAuth verifies a presented bearer token and attaches the subject
// and role to the request context. Requests without a token pass
// through untouched; role-gated handlers reject them downstream. A
// token that is present but invalid is rejected here.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		header := r.Header.Get(authHeader)
		if strings.TrimSpace(header) == "" || isTokenPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		signed, err := extractBearerToken(header)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, err.Error())
			return
		}
		info, err := a.svc.VerifyToken(r.Context(), signed)
		if err != nil {
			writeError(w, r, http.StatusUnauthorized, "invalid token")
			return
		}

		ctx := auth.ContextWithIdentity(r.Context(), info.Identity.ID, info.Role)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// isTokenPath reports whether the endpoint takes the token as payload;
// those verify it themselves and report failures in their own format.
func isTokenPath(path string) bool {
	return strings.HasPrefix(path, "/v1/auth/token/")
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	signed := strings.TrimSpace(header[len(bearer):])
	if signed == "" {
		return "", errors.New("missing bearer token")
	}
	return signed, nil
}
