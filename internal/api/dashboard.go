package api

import (
	"net/http"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct{}

func NewDashboardHandler() *DashboardHandler {
	return &DashboardHandler{}
}

// GetStats returns aggregate counters for the dashboard header.
func (h *DashboardHandler) GetStats(c *gin.Context) {
	account := AccountID(c)

	var stats struct {
		Contacts         int64 `json:"contacts"`
		Conversations    int64 `json:"conversations"`
		UnreadMessages   int64 `json:"unread_messages"`
		ActiveFlows      int64 `json:"active_flows"`
		PendingScheduled int64 `json:"pending_scheduled"`
	}

	database.DB.Model(&models.Contact{}).Where("account_id = ?", account).Count(&stats.Contacts)
	database.DB.Model(&models.Conversation{}).Where("account_id = ?", account).Count(&stats.Conversations)
	database.DB.Model(&models.Conversation{}).Where("account_id = ?", account).
		Select("COALESCE(SUM(unread_count), 0)").Scan(&stats.UnreadMessages)
	database.DB.Model(&models.Flow{}).Where("account_id = ? AND active = ?", account, true).Count(&stats.ActiveFlows)
	database.DB.Model(&models.ScheduledMessage{}).Where("account_id = ? AND status = ?", account, "pending").Count(&stats.PendingScheduled)

	c.JSON(http.StatusOK, stats)
}
