package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v4"

	"github.com/Dosada05/competition-system/models"
)

type contextKey string

const principalContextKey contextKey = "principal"

const (
	jwtClaimUserID = "user_id"
	jwtClaimRole   = "role"
)

var ErrNoPrincipal = errors.New("no authenticated user in context")

func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func PrincipalFromContext(ctx context.Context) (models.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(models.Principal)
	if !ok {
		return models.Principal{}, ErrNoPrincipal
	}
	return p, nil
}

// GrantFromContext returns the admin grant of the caller. Anonymous callers
// and viewers get the zero grant, which every mutating service rejects.
func GrantFromContext(ctx context.Context) models.AdminGrant {
	p, err := PrincipalFromContext(ctx)
	if err != nil {
		return models.AdminGrant{}
	}
	grant, err := models.GrantAdmin(p)
	if err != nil {
		return models.AdminGrant{}
	}
	return grant
}

func principalFromClaims(claims jwt.MapClaims) (models.Principal, error) {
	userID, err := userIDFromClaims(claims)
	if err != nil {
		return models.Principal{}, err
	}

	roleClaim, ok := claims[jwtClaimRole]
	if !ok {
		return models.Principal{}, fmt.Errorf("missing '%s' claim in token", jwtClaimRole)
	}
	roleStr, ok := roleClaim.(string)
	if !ok {
		return models.Principal{}, fmt.Errorf("invalid type for '%s' claim: expected string, got %T", jwtClaimRole, roleClaim)
	}

	role := models.UserRole(roleStr)
	switch role {
	case models.RoleAdmin, models.RoleViewer:
		return models.Principal{UserID: userID, Role: role}, nil
	default:
		return models.Principal{}, fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
}

func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	userIDClaim, ok := claims[jwtClaimUserID]
	if !ok {
		return 0, fmt.Errorf("missing '%s' claim in token", jwtClaimUserID)
	}

	var userID int
	switch v := userIDClaim.(type) {
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("'%s' claim is not an integer: %f", jwtClaimUserID, v)
		}
		userID = int(v)
	case string:
		id, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid '%s' claim: %q", jwtClaimUserID, v)
		}
		userID = id
	default:
		return 0, fmt.Errorf("invalid type for '%s' claim: expected float64 or string, got %T", jwtClaimUserID, userIDClaim)
	}

	if userID <= 0 {
		return 0, fmt.Errorf("invalid user ID value in '%s' claim: %d", jwtClaimUserID, userID)
	}
	return userID, nil
}
