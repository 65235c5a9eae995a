package api

import (
	"net/http"
	"strconv"

	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/gateway"
	"whatsapp-crm/internal/models"
	"whatsapp-crm/internal/store"
	"whatsapp-crm/internal/ws"

	"github.com/gin-gonic/gin"
)

type ConversationHandler struct {
	Gateway *gateway.Client
	Hub     *ws.Hub
}

func NewConversationHandler(gw *gateway.Client, hub *ws.Hub) *ConversationHandler {
	return &ConversationHandler{Gateway: gw, Hub: hub}
}

// ConversationView is a conversation with its contact resolved at read time.
// The contact is null when it has been deleted since.
type ConversationView struct {
	models.Conversation
	Contact *models.Contact `json:"contact"`
}

// GetConversations lists the account's conversations, most recent activity
// first. Ties on last_message_at break by id descending so paging is stable.
func (h *ConversationHandler) GetConversations(c *gin.Context) {
	var conversations []models.Conversation
	if err := database.DB.Where("account_id = ?", AccountID(c)).
		Order("last_message_at DESC, id DESC").
		Find(&conversations).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]ConversationView, 0, len(conversations))
	for _, conv := range conversations {
		view := ConversationView{Conversation: conv}
		var contact models.Contact
		if err := database.DB.First(&contact, conv.ContactID).Error; err == nil {
			view.Contact = &contact
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, views)
}

// GetMessages lists a conversation's messages chronologically.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	conv, ok := h.findConversation(c)
	if !ok {
		return
	}

	var messages []models.Message
	if err := database.DB.Where("conversation_id = ?", conv.ID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if messages == nil {
		messages = []models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

type SendRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage sends an outgoing message through the gateway and appends it to
// the conversation together with the summary update.
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	conv, ok := h.findConversation(c)
	if !ok {
		return
	}

	var req SendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var contact models.Contact
	if err := database.DB.First(&contact, conv.ContactID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact for conversation not found"})
		return
	}

	if err := h.Gateway.SendText(conv.InstanceName, contact.Phone, req.Content); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send message: " + err.Error()})
		return
	}

	msg, err := store.AppendOutgoing(database.DB, conv.ID, req.Content)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if h.Hub != nil {
		h.Hub.NotifyMessage(msg)
	}

	c.JSON(http.StatusOK, msg)
}

// MarkRead zeroes a conversation's unread counter.
func (h *ConversationHandler) MarkRead(c *gin.Context) {
	conv, ok := h.findConversation(c)
	if !ok {
		return
	}

	if err := database.DB.Model(conv).Update("unread_count", 0).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Conversation marked read"})
}

func (h *ConversationHandler) findConversation(c *gin.Context) (*models.Conversation, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation id"})
		return nil, false
	}

	var conv models.Conversation
	if err := database.DB.Where("id = ? AND account_id = ?", id, AccountID(c)).
		First(&conv).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return nil, false
	}
	return &conv, true
}
