package api

import (
	"net/http"

	"whatsapp-crm/internal/gateway"

	"github.com/gin-gonic/gin"
)

type GatewayHandler struct {
	Client *gateway.Client
}

func NewGatewayHandler(client *gateway.Client) *GatewayHandler {
	return &GatewayHandler{Client: client}
}

// Execute relays one gateway command. Success passes the upstream body
// through untouched with status 200; every failure, including upstream ones,
// becomes a 500 with {error, success: false}.
func (h *GatewayHandler) Execute(c *gin.Context) {
	var cmd gateway.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "success": false})
		return
	}

	body, err := h.Client.Execute(cmd)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "success": false})
		return
	}

	c.Data(http.StatusOK, "application/json", body)
}
