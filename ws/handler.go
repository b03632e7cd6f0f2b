package ws

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vnkhanh/e-cert-backend/models"
	"github.com/vnkhanh/e-cert-backend/services"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleUploadWebSocket streams upload progress to a university. Browsers
// cannot set headers on websocket requests, so the token comes as ?token=.
func HandleUploadWebSocket(hub *Hub, auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing token"})
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token, models.RoleUniversity)
		if err != nil {
			status := http.StatusUnauthorized
			if errors.Is(err, services.ErrForbidden) {
				status = http.StatusForbidden
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("WS hub: upgrade failed", "error", err)
			return
		}
		greeting, _ := json.Marshal(gin.H{"type": "connected", "message": "Connected to upload progress"})
		hub.Register(user.Email, conn, greeting)
		hub.log.Info("WS hub: upload listener connected", "email", user.Email)
	}
}
