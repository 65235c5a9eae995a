package store

import (
	"errors"
	"time"

	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

// AppendOutgoing inserts an outgoing message and updates the parent
// conversation's last-message summary in one transaction, so readers never
// observe the message without the summary or vice versa.
func AppendOutgoing(db *gorm.DB, conversationID uint, content string) (*models.Message, error) {
	msg := &models.Message{
		ConversationID: conversationID,
		Content:        content,
		Direction:      "outgoing",
		Status:         "sent",
		Timestamp:      time.Now().UTC(),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var conv models.Conversation
		if err := tx.First(&conv, conversationID).Error; err != nil {
			return err
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		return tx.Model(&conv).Updates(map[string]any{
			"last_message":    msg.Content,
			"last_message_at": msg.Timestamp,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// IntakeResult is what an incoming-message intake produced.
type IntakeResult struct {
	Message         *models.Message
	Conversation    *models.Conversation
	NewConversation bool
}

// IntakeIncoming stores an incoming message: upserts the contact, finds or
// creates the conversation for the sender, inserts the message and bumps the
// conversation's summary and unread count. All writes share one transaction.
func IntakeIncoming(db *gorm.DB, accountID, instanceName, remoteJid, phone, pushName, content string, ts time.Time) (*IntakeResult, error) {
	res := &IntakeResult{}

	err := db.Transaction(func(tx *gorm.DB) error {
		var contact models.Contact
		err := tx.Where("account_id = ? AND phone = ?", accountID, phone).First(&contact).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			contact = models.Contact{
				AccountID: accountID,
				Name:      pushName,
				Phone:     phone,
				Tags:      "[]",
			}
			if err := tx.Create(&contact).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		} else if contact.Name == "" && pushName != "" {
			if err := tx.Model(&contact).Update("name", pushName).Error; err != nil {
				return err
			}
		}

		var conv models.Conversation
		err = tx.Where("account_id = ? AND remote_jid = ?", accountID, remoteJid).First(&conv).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			conv = models.Conversation{
				AccountID:    accountID,
				ContactID:    contact.ID,
				InstanceName: instanceName,
				RemoteJid:    remoteJid,
				Status:       "open",
			}
			if err := tx.Create(&conv).Error; err != nil {
				return err
			}
			res.NewConversation = true
		} else if err != nil {
			return err
		}

		msg := &models.Message{
			ConversationID: conv.ID,
			Content:        content,
			Direction:      "incoming",
			Status:         "delivered",
			Timestamp:      ts,
		}
		if err := tx.Create(msg).Error; err != nil {
			return err
		}

		if err := tx.Model(&conv).Updates(map[string]any{
			"last_message":    msg.Content,
			"last_message_at": msg.Timestamp,
			"unread_count":    gorm.Expr("unread_count + 1"),
		}).Error; err != nil {
			return err
		}

		res.Message = msg
		res.Conversation = &conv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
