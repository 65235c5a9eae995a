package api

import (
	"net/http"
	"time"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
)

type ScheduledHandler struct{}

func NewScheduledHandler() *ScheduledHandler {
	return &ScheduledHandler{}
}

func (h *ScheduledHandler) GetScheduled(c *gin.Context) {
	var scheduled []models.ScheduledMessage
	if err := database.DB.Where("account_id = ?", AccountID(c)).
		Order("scheduled_at ASC").
		Find(&scheduled).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if scheduled == nil {
		scheduled = []models.ScheduledMessage{}
	}
	c.JSON(http.StatusOK, scheduled)
}

type ScheduledRequest struct {
	InstanceName string    `json:"instance_name"`
	Recipient    string    `json:"recipient" binding:"required"`
	Content      string    `json:"content" binding:"required"`
	ScheduledAt  time.Time `json:"scheduled_at" binding:"required"`
	Recurrence   string    `json:"recurrence"`
}

func (h *ScheduledHandler) CreateScheduled(c *gin.Context) {
	var req ScheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recurrence, ok := normalizeRecurrence(req.Recurrence)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurrence: " + req.Recurrence})
		return
	}

	sm := models.ScheduledMessage{
		AccountID:    AccountID(c),
		InstanceName: req.InstanceName,
		Recipient:    req.Recipient,
		Content:      req.Content,
		ScheduledAt:  req.ScheduledAt,
		Recurrence:   recurrence,
		Status:       "pending",
	}

	if err := database.DB.Create(&sm).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sm)
}

func (h *ScheduledHandler) UpdateScheduled(c *gin.Context) {
	var req ScheduledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recurrence, ok := normalizeRecurrence(req.Recurrence)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recurrence: " + req.Recurrence})
		return
	}

	result := database.DB.Model(&models.ScheduledMessage{}).
		Where("id = ? AND account_id = ? AND status = ?", c.Param("id"), AccountID(c), "pending").
		Updates(map[string]any{
			"instance_name": req.InstanceName,
			"recipient":     req.Recipient,
			"content":       req.Content,
			"scheduled_at":  req.ScheduledAt,
			"recurrence":    recurrence,
		})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scheduled message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Scheduled message updated"})
}

func (h *ScheduledHandler) DeleteScheduled(c *gin.Context) {
	result := database.DB.Where("id = ? AND account_id = ?", c.Param("id"), AccountID(c)).
		Delete(&models.ScheduledMessage{})
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Scheduled message not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Scheduled message deleted"})
}

// normalizeRecurrence defaults an empty value to "none" and rejects anything
// outside the recognized set.
func normalizeRecurrence(recurrence string) (string, bool) {
	if recurrence == "" {
		return "none", true
	}
	switch recurrence {
	case "none", "daily", "weekly", "monthly":
		return recurrence, true
	}
	return "", false
}
