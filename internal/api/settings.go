package api

import (
	"errors"
	"net/http"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsHandler struct{}

func NewSettingsHandler() *SettingsHandler {
	return &SettingsHandler{}
}

// GetSettings returns the account's settings, or the defaults when nothing
// has been saved yet.
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	var settings models.UserSettings
	err := database.DB.Where("account_id = ?", AccountID(c)).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		settings = models.UserSettings{
			AccountID:     AccountID(c),
			Notifications: true,
			Plan:          "free",
		}
	} else if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}

type SettingsRequest struct {
	Notifications    bool   `json:"notifications"`
	WebhookURL       string `json:"webhook_url"`
	AutoReply        bool   `json:"auto_reply"`
	AutoReplyMessage string `json:"auto_reply_message"`
	Plan             string `json:"plan"`
}

// UpdateSettings upserts the account's single settings row.
func (h *SettingsHandler) UpdateSettings(c *gin.Context) {
	var req SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := models.UserSettings{
		AccountID:        AccountID(c),
		Notifications:    req.Notifications,
		WebhookURL:       req.WebhookURL,
		AutoReply:        req.AutoReply,
		AutoReplyMessage: req.AutoReplyMessage,
		Plan:             req.Plan,
	}
	if settings.Plan == "" {
		settings.Plan = "free"
	}

	err := database.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		UpdateAll: true,
	}).Create(&settings).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, settings)
}
