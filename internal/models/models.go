package models

import (
	"time"
)

// Contact represents a WhatsApp counterpart
type Contact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	AccountID string    `gorm:"type:varchar(64);not null;index" json:"account_id"`
	Name      string    `gorm:"type:varchar(255)" json:"name"`
	Phone     string    `gorm:"type:varchar(50);not null;index" json:"phone"`
	Email     string    `gorm:"type:varchar(255)" json:"email"`
	Tags      string    `gorm:"type:text" json:"tags"` // JSON array of strings
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Conversation represents a thread with one contact
type Conversation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	AccountID     string    `gorm:"type:varchar(64);not null;index" json:"account_id"`
	ContactID     uint      `gorm:"index" json:"contact_id"`
	InstanceName  string    `gorm:"type:varchar(255)" json:"instance_name"`
	RemoteJid     string    `gorm:"type:varchar(255);index" json:"remote_jid"`
	LastMessage   string    `gorm:"type:text" json:"last_message"`
	LastMessageAt time.Time `gorm:"index" json:"last_message_at"`
	UnreadCount   int       `gorm:"default:0" json:"unread_count"`
	Status        string    `gorm:"type:varchar(20);default:'open'" json:"status"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Message represents one exchanged message
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"index;not null" json:"conversation_id"`
	Content        string    `gorm:"type:text" json:"content"`
	Direction      string    `gorm:"type:varchar(10);not null" json:"direction"` // incoming, outgoing
	Status         string    `gorm:"type:varchar(20)" json:"status"`             // sent, delivered, read, failed
	Timestamp      time.Time `gorm:"index" json:"timestamp"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

// Flow represents an automation rule: one trigger plus an ordered action list
type Flow struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AccountID    string       `gorm:"type:varchar(64);not null;index" json:"account_id"`
	Name         string       `gorm:"type:varchar(255);not null" json:"name"`
	TriggerKind  string       `gorm:"type:varchar(50);not null" json:"trigger_kind"` // keyword, first_message, schedule, webhook
	TriggerValue string       `gorm:"type:text" json:"trigger_value"`
	// No column default: gorm would drop an explicit false from the INSERT.
	Active       bool         `json:"active"`
	Actions      []FlowAction `gorm:"foreignKey:FlowID;constraint:OnDelete:CASCADE;" json:"actions"`
	CreatedAt    time.Time    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Flow) TableName() string {
	return "flows"
}

// FlowAction is one step of a flow's action pipeline
type FlowAction struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	FlowID   string `gorm:"index;type:varchar(36)" json:"flow_id"`
	Position int    `gorm:"not null" json:"position"`
	Kind     string `gorm:"type:varchar(50);not null" json:"kind"` // send_message
	Content  string `gorm:"type:text" json:"content"`
}

func (FlowAction) TableName() string {
	return "flow_actions"
}

// FlowExecution is a log entry for one flow run against an incoming message
type FlowExecution struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	FlowID       string    `gorm:"type:varchar(36);index" json:"flow_id"`
	AccountID    string    `gorm:"type:varchar(64)" json:"account_id"`
	RemoteJid    string    `gorm:"type:varchar(255)" json:"remote_jid"`
	TriggerKind  string    `gorm:"type:varchar(50)" json:"trigger_kind"`
	ActionTaken  string    `gorm:"type:text" json:"action_taken"`
	Success      bool      `json:"success"`
	ErrorMessage string    `gorm:"type:text" json:"error_message"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (FlowExecution) TableName() string {
	return "flow_executions"
}

// ScheduledMessage represents a message queued for future delivery
type ScheduledMessage struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	AccountID    string     `gorm:"type:varchar(64);not null;index" json:"account_id"`
	InstanceName string     `gorm:"type:varchar(255)" json:"instance_name"`
	Recipient    string     `gorm:"type:varchar(50);not null" json:"recipient"`
	Content      string     `gorm:"type:text" json:"content"`
	ScheduledAt  time.Time  `gorm:"not null;index" json:"scheduled_at"`
	Recurrence   string     `gorm:"type:varchar(20);default:'none'" json:"recurrence"` // none, daily, weekly, monthly
	Status       string     `gorm:"type:varchar(20);default:'pending'" json:"status"`  // pending, sent, failed
	SentAt       *time.Time `json:"sent_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (ScheduledMessage) TableName() string {
	return "scheduled_messages"
}

// UserSettings holds per-account preferences, one row per account
type UserSettings struct {
	AccountID        string    `gorm:"primaryKey;type:varchar(64)" json:"account_id"`
	Notifications    bool      `json:"notifications"`
	WebhookURL       string    `gorm:"type:text" json:"webhook_url"`
	AutoReply        bool      `gorm:"default:false" json:"auto_reply"`
	AutoReplyMessage string    `gorm:"type:text" json:"auto_reply_message"`
	Plan             string    `gorm:"type:varchar(20);default:'free'" json:"plan"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}
