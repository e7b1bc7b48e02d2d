package handlers

import (
	"net/http"
	"strings"

	"github.com/bhojansetu/bhojansetu/internal/helpers"
	"github.com/bhojansetu/bhojansetu/internal/middleware"
	"github.com/bhojansetu/bhojansetu/internal/realtime"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NewUpgrader accepts websocket handshakes from the given origins. An empty
// list allows any origin.
func NewUpgrader(origins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = struct{}{}
		}
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}
}

// ChatSocket authenticates the caller from ?token= or the bearer header and
// then serves the connection until it closes.
func ChatSocket(upgrader *websocket.Upgrader) gin.HandlerFunc {
	return func(c *gin.Context) {
		svc, ok := servicesFrom(c)
		if !ok {
			return
		}

		token := c.Query("token")
		if token == "" {
			token = middleware.BearerToken(c.Request)
		}
		if token == "" {
			helpers.RespondWithError(c, http.StatusUnauthorized, "Not authorized, no token")
			return
		}
		principal, err := middleware.Authenticate(c, token)
		if err != nil {
			helpers.RespondWithAppError(c, svc.Log, err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			svc.Log.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := realtime.NewClient(svc.Hub, conn, principal, svc.Chat.Authorize)
		client.Serve(c.Request.Context())
	}
}
