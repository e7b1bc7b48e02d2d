package middleware

import (
	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/bhojansetu/bhojansetu/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const servicesKey = "services"

// Services bundles what the handlers need from the application.
type Services struct {
	Donations *services.DonationService
	Chat      *services.ChatService
	Users     *services.UserService
	Contact   *services.ContactService
	Tokens    *helpers.TokenIssuer
	Hub       *realtime.Hub
	Log       *zap.Logger
}

func ServicesMiddleware(svc *Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(servicesKey, svc)
		c.Next()
	}
}

func GetServices(c *gin.Context) *Services {
	svc, exists := c.Get(servicesKey)
	if !exists {
		return nil
	}
	return svc.(*Services)
}
