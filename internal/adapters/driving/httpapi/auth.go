package httpapi

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"
)

// APIToken derives the bearer token clients present for a server secret.
func APIToken(secret string) string {
	sum := sha256.Sum256([]byte(secret + ":pdfz-api-token"))
	return hex.EncodeToString(sum[:])
}

// requireToken rejects requests without the bearer token for secret.
func requireToken(secret string) func(http.Handler) http.Handler {
	want := []byte(APIToken(secret))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := bearerToken(r)
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="pdfz"`)
				writeJSON(w, http.StatusUnauthorized, errorBody{
					Error:   "unauthorized",
					Message: "missing or invalid bearer token",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
