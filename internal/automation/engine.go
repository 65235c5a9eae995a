package automation

import (
	"log"
	"strings"

	"whatsapp-crm/internal/gateway"
	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

// Match modes for messages that hit more than one active flow.
const (
	MatchFirst = "first"
	MatchAll   = "all"
)

type Engine struct {
	DB        *gorm.DB
	Gateway   *gateway.Client
	MatchMode string
}

func NewEngine(db *gorm.DB, gw *gateway.Client, matchMode string) *Engine {
	if matchMode != MatchAll {
		matchMode = MatchFirst
	}
	return &Engine{DB: db, Gateway: gw, MatchMode: matchMode}
}

// IncomingMessage is what the webhook hands the engine.
type IncomingMessage struct {
	AccountID    string
	InstanceName string
	RemoteJid    string
	Phone        string
	Content      string
	FirstMessage bool // true when this opened a new conversation
}

// ProcessIncomingMessage evaluates active flows against one incoming message
// and executes the actions of whichever match. Returns the number of flows
// that fired.
func (e *Engine) ProcessIncomingMessage(msg IncomingMessage) int {
	var flows []models.Flow
	err := e.DB.Preload("Actions", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).
		Where("account_id = ? AND active = ?", msg.AccountID, true).
		Order("created_at DESC").
		Find(&flows).Error
	if err != nil {
		log.Printf("Error fetching flows: %v", err)
		return 0
	}

	fired := 0
	for _, flow := range flows {
		if !e.matches(flow, msg) {
			continue
		}
		log.Printf("Flow '%s' matched for message from %s", flow.Name, msg.RemoteJid)
		e.Execute(flow, msg)
		fired++

		if e.MatchMode == MatchFirst {
			break
		}
	}

	return fired
}

// matches decides whether one flow's trigger fires for the message.
// Schedule and webhook triggers never fire here.
func (e *Engine) matches(flow models.Flow, msg IncomingMessage) bool {
	switch flow.TriggerKind {
	case TriggerKeyword:
		body := strings.ToLower(strings.TrimSpace(msg.Content))
		keyword := strings.ToLower(strings.TrimSpace(flow.TriggerValue))
		return keyword != "" && strings.Contains(body, keyword)
	case TriggerFirstMessage:
		return msg.FirstMessage
	default:
		return false
	}
}

// Execute runs a flow's actions in position order and records the outcome.
func (e *Engine) Execute(flow models.Flow, msg IncomingMessage) {
	for _, action := range flow.Actions {
		var err error
		switch action.Kind {
		case ActionSendMessage:
			content := strings.ReplaceAll(action.Content, "{{message}}", msg.Content)
			err = e.Gateway.SendText(msg.InstanceName, msg.Phone, content)
		default:
			// Unknown kinds are rejected at write time; a row that still
			// carries one is skipped rather than aborting the pipeline.
			log.Printf("Skipping unknown action kind %s in flow %s", action.Kind, flow.ID)
			continue
		}

		if err != nil {
			log.Printf("Error executing action for flow %s: %v", flow.Name, err)
			e.logExecution(flow, msg, action.Kind, false, err.Error())
			return
		}
		e.logExecution(flow, msg, action.Kind, true, "")
	}
}

func (e *Engine) logExecution(flow models.Flow, msg IncomingMessage, actionTaken string, success bool, errorMsg string) {
	e.DB.Create(&models.FlowExecution{
		FlowID:       flow.ID,
		AccountID:    flow.AccountID,
		RemoteJid:    msg.RemoteJid,
		TriggerKind:  flow.TriggerKind,
		ActionTaken:  actionTaken,
		Success:      success,
		ErrorMessage: errorMsg,
	})
}
