package api

import (
	"net/http"

	"whatsapp-crm/internal/automation"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FlowHandler struct {
	Engine *automation.Engine
}

func NewFlowHandler(engine *automation.Engine) *FlowHandler {
	return &FlowHandler{Engine: engine}
}

// GetFlows returns the account's flows, newest first, actions in pipeline
// order.
func (h *FlowHandler) GetFlows(c *gin.Context) {
	var flows []models.Flow
	err := database.DB.Preload("Actions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Where("account_id = ?", AccountID(c)).
		Order("created_at DESC").
		Find(&flows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if flows == nil {
		flows = []models.Flow{}
	}
	c.JSON(http.StatusOK, flows)
}

type FlowRequest struct {
	Name         string                   `json:"name" binding:"required"`
	TriggerKind  string                   `json:"trigger_kind" binding:"required"`
	TriggerValue string                   `json:"trigger_value"`
	Actions      []automation.ActionInput `json:"actions" binding:"required"`
}

func (h *FlowHandler) CreateFlow(c *gin.Context) {
	var req FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := automation.ValidateTrigger(req.TriggerKind, req.TriggerValue); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actions, err := automation.BuildActions(req.Actions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flow := models.Flow{
		ID:           uuid.NewString(),
		AccountID:    AccountID(c),
		Name:         req.Name,
		TriggerKind:  req.TriggerKind,
		TriggerValue: req.TriggerValue,
		Active:       true,
		Actions:      actions,
	}

	if err := database.DB.Create(&flow).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, flow)
}

func (h *FlowHandler) UpdateFlow(c *gin.Context) {
	flow, ok := h.findFlow(c)
	if !ok {
		return
	}

	var req FlowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := automation.ValidateTrigger(req.TriggerKind, req.TriggerValue); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	actions, err := automation.BuildActions(req.Actions)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(flow).Updates(map[string]any{
			"name":          req.Name,
			"trigger_kind":  req.TriggerKind,
			"trigger_value": req.TriggerValue,
		}).Error; err != nil {
			return err
		}
		if err := tx.Where("flow_id = ?", flow.ID).Delete(&models.FlowAction{}).Error; err != nil {
			return err
		}
		for i := range actions {
			actions[i].FlowID = flow.ID
		}
		return tx.Create(&actions).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Flow updated"})
}

func (h *FlowHandler) DeleteFlow(c *gin.Context) {
	flow, ok := h.findFlow(c)
	if !ok {
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("flow_id = ?", flow.ID).Delete(&models.FlowAction{}).Error; err != nil {
			return err
		}
		return tx.Delete(flow).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Flow deleted"})
}

// ToggleFlow flips the active flag and nothing else.
func (h *FlowHandler) ToggleFlow(c *gin.Context) {
	flow, ok := h.findFlow(c)
	if !ok {
		return
	}

	newState := !flow.Active
	if err := database.DB.Model(flow).Update("active", newState).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": flow.ID, "active": newState})
}

type FireRequest struct {
	InstanceName string `json:"instance_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
}

// FireFlow runs a webhook-triggered flow against one recipient. This is the
// inbound side of the webhook trigger kind: external systems call it instead
// of the message pipeline.
func (h *FlowHandler) FireFlow(c *gin.Context) {
	flow, ok := h.findFlow(c)
	if !ok {
		return
	}

	if flow.TriggerKind != automation.TriggerWebhook {
		c.JSON(http.StatusBadRequest, gin.H{"error": "flow is not webhook-triggered"})
		return
	}
	if !flow.Active {
		c.JSON(http.StatusConflict, gin.H{"error": "flow is inactive"})
		return
	}

	var req FireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := database.DB.Preload("Actions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).First(flow, "id = ?", flow.ID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.Engine.Execute(*flow, automation.IncomingMessage{
		AccountID:    flow.AccountID,
		InstanceName: req.InstanceName,
		RemoteJid:    req.Phone,
		Phone:        req.Phone,
	})

	c.JSON(http.StatusOK, gin.H{"status": "Flow fired"})
}

func (h *FlowHandler) findFlow(c *gin.Context) (*models.Flow, bool) {
	var flow models.Flow
	if err := database.DB.Where("id = ? AND account_id = ?", c.Param("id"), AccountID(c)).
		First(&flow).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Flow not found"})
		return nil, false
	}
	return &flow, true
}
