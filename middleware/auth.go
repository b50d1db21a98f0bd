package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/competition-system/models"
)

// Authenticator verifies HS256 bearer tokens issued by the identity provider.
type Authenticator struct {
	secret []byte
	logger *slog.Logger
}

func NewAuthenticator(secret string, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{secret: []byte(secret), logger: logger}
}

func (a *Authenticator) parse(tokenString string) (models.Principal, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return models.Principal{}, err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return models.Principal{}, errors.New("invalid token claims")
	}
	return principalFromClaims(claims)
}

// Authenticate attaches the caller to the request context when a bearer token
// is present. Requests without a token pass through anonymously; a malformed
// or expired token is rejected.
func (a *Authenticator) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			reject(w, http.StatusUnauthorized, "authorization header must be a bearer token")
			return
		}

		principal, err := a.parse(tokenString)
		if err != nil {
			a.logger.Warn("rejected bearer token", slog.String("path", r.URL.Path), slog.Any("error", err))
			reject(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireAdmin answers 401 for anonymous callers and 403 for non-admins.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := PrincipalFromContext(r.Context())
		if err != nil {
			reject(w, http.StatusUnauthorized, "authentication required")
			return
		}
		if p.Role != models.RoleAdmin {
			reject(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func reject(w http.ResponseWriter, status int, message string) {
	kind := "unauthorized"
	if status == http.StatusForbidden {
		kind = "forbidden"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "kind": kind})
}
