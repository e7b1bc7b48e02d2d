package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/bhojansetu/bhojansetu/internal/apperrors"
	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const principalKey = "principal"

// JWTAuthMiddleware resolves the bearer token to an existing user and stores
// the caller's principal in the context.
func JWTAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.Request)
		if token == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}

		principal, err := Authenticate(c, token)
		if err != nil {
			helpers.RespondWithAppError(c, GetServices(c).Log, err)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// Authenticate validates a token and loads the user it names. Errors are
// Authentication errors carrying the client-facing message.
func Authenticate(c *gin.Context, token string) (models.Principal, error) {
	svc := GetServices(c)
	claims, err := svc.Tokens.Parse(token)
	if err != nil {
		svc.Log.Debug("token rejected", zap.Error(err))
		return models.Principal{}, apperrors.Unauthenticated("Not authorized, token failed")
	}

	user, err := svc.Users.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return models.Principal{}, apperrors.Unauthenticated("Not authorized, user not found")
		}
		svc.Log.Error("load principal", zap.Error(err))
		return models.Principal{}, apperrors.Unauthenticated("Not authorized, token failed")
	}

	return models.Principal{ID: user.ID, Role: user.Role, Name: user.Name, Email: user.Email}, nil
}

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		if !principal.Role.In(roles...) {
			helpers.RespondWithError(c, http.StatusForbidden,
				fmt.Sprintf("User role (%s) is not authorized to access this route", principal.Role))
			return
		}
		c.Next()
	}
}

func GetPrincipal(c *gin.Context) (models.Principal, bool) {
	v, exists := c.Get(principalKey)
	if !exists {
		return models.Principal{}, false
	}
	p, ok := v.(models.Principal)
	return p, ok
}

// BearerToken extracts the token from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
