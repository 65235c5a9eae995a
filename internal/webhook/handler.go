package webhook

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"whatsapp-crm/internal/automation"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/gateway"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/store"
	"whatsapp-crm/internal/tracking"
	"whatsapp-crm/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type Handler struct {
	Engine  *automation.Engine
	Gateway *gateway.Client
	Hub     *ws.Hub
}

func NewHandler(engine *automation.Engine, gw *gateway.Client, hub *ws.Hub) *Handler {
	return &Handler{Engine: engine, Gateway: gw, Hub: hub}
}

// EventPayload is the Evolution API webhook envelope for messages.upsert.
type EventPayload struct {
	Event    string `json:"event"`
	Instance string `json:"instance"`
	Data     struct {
		Key struct {
			RemoteJid string `json:"remoteJid"`
			FromMe    bool   `json:"fromMe"`
			ID        string `json:"id"`
		} `json:"key"`
		PushName string `json:"pushName"`
		Message  struct {
			Conversation string `json:"conversation"`
			ExtendedText *struct {
				Text string `json:"text"`
			} `json:"extendedTextMessage"`
		} `json:"message"`
		MessageTimestamp int64 `json:"messageTimestamp"`
	} `json:"data"`
}

// HandleEvent ingests one gateway event: store the message, run automation,
// auto-reply, push to the open conversation view, fire tracking for brand-new
// conversations.
func (h *Handler) HandleEvent(c *gin.Context) {
	instanceName := c.Param("instanceName")

	var payload EventPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		log.Printf("Error binding webhook JSON: %v", err)
		c.Status(http.StatusBadRequest)
		return
	}

	if payload.Event != "messages.upsert" || payload.Data.Key.FromMe {
		c.Status(http.StatusOK)
		return
	}

	content := payload.Data.Message.Conversation
	if content == "" && payload.Data.Message.ExtendedText != nil {
		content = payload.Data.Message.ExtendedText.Text
	}
	if content == "" {
		c.Status(http.StatusOK)
		return
	}

	remoteJid := payload.Data.Key.RemoteJid
	phone := strings.SplitN(remoteJid, "@", 2)[0]
	ts := time.Unix(payload.Data.MessageTimestamp, 0).UTC()
	if payload.Data.MessageTimestamp == 0 {
		ts = time.Now().UTC()
	}

	accountID := c.GetHeader("X-Account-ID")
	if accountID == "" {
		accountID = "default"
	}

	log.Printf("Received message from %s on instance %s", phone, instanceName)

	res, err := store.IntakeIncoming(database.DB, accountID, instanceName, remoteJid, phone, payload.Data.PushName, content, ts)
	if err != nil {
		log.Printf("Error storing incoming message: %v", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	if h.Hub != nil {
		h.Hub.NotifyMessage(res.Message)
	}

	msg := automation.IncomingMessage{
		AccountID:    accountID,
		InstanceName: instanceName,
		RemoteJid:    remoteJid,
		Phone:        phone,
		Content:      content,
		FirstMessage: res.NewConversation,
	}

	go func() {
		fired := h.Engine.ProcessIncomingMessage(msg)
		if fired == 0 {
			h.autoReply(msg)
		}
	}()

	if res.NewConversation {
		h.fireTracking(accountID)
	}

	c.Status(http.StatusOK)
}

// autoReply answers with the account's configured message when no flow fired.
func (h *Handler) autoReply(msg automation.IncomingMessage) {
	var settings models.UserSettings
	err := database.DB.Where("account_id = ?", msg.AccountID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		log.Printf("Error loading settings for auto-reply: %v", err)
		return
	}
	if !settings.AutoReply || settings.AutoReplyMessage == "" {
		return
	}

	if err := h.Gateway.SendText(msg.InstanceName, msg.Phone, settings.AutoReplyMessage); err != nil {
		log.Printf("Error sending auto-reply to %s: %v", msg.Phone, err)
	}
}

func (h *Handler) fireTracking(accountID string) {
	var settings models.UserSettings
	if err := database.DB.Where("account_id = ?", accountID).First(&settings).Error; err != nil {
		return
	}
	if settings.WebhookURL == "" {
		return
	}
	tracking.FireWebhook(settings.WebhookURL, "conversation_started", accountID)
}
