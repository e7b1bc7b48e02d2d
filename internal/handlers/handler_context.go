package handlers

import (
	"net/http"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/middleware"
	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// caller returns the authenticated principal and the service bundle, writing
// an error response when either is missing.
func caller(c *gin.Context) (models.Principal, *middleware.Services, bool) {
	svc, ok := servicesFrom(c)
	if !ok {
		return models.Principal{}, nil, false
	}
	principal, exists := middleware.GetPrincipal(c)
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized, no token")
		return models.Principal{}, nil, false
	}
	return principal, svc, true
}

func servicesFrom(c *gin.Context) (*middleware.Services, bool) {
	svc := middleware.GetServices(c)
	if svc == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Services not configured.")
		return nil, false
	}
	return svc, true
}

func pathID(c *gin.Context, name, message string) (uuid.UUID, bool) {
	id, ok := helpers.ParseID(c.Param(name))
	if !ok {
		helpers.RespondWithError(c, http.StatusBadRequest, message)
		return uuid.Nil, false
	}
	return id, true
}
