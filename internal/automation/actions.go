package automation

import (
	"fmt"
	"strings"

	"whatsapp-crm/internal/models"
)

// Trigger kinds a flow can carry.
const (
	TriggerKeyword      = "keyword"
	TriggerFirstMessage = "first_message"
	TriggerSchedule     = "schedule"
	TriggerWebhook      = "webhook"
)

// Action kinds. The set is closed: anything else is rejected when the flow
// is written, not when a message arrives.
const (
	ActionSendMessage = "send_message"
)

// ActionInput is the wire shape of one action in a create/update request.
type ActionInput struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// ValidateTrigger checks a trigger kind/value pair at write time.
func ValidateTrigger(kind, value string) error {
	switch kind {
	case TriggerKeyword:
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("keyword trigger requires a non-empty trigger value")
		}
	case TriggerFirstMessage, TriggerSchedule, TriggerWebhook:
		// no value required
	default:
		return fmt.Errorf("unknown trigger kind: %s", kind)
	}
	return nil
}

// BuildActions validates action inputs and converts them to ordered rows.
func BuildActions(inputs []ActionInput) ([]models.FlowAction, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("a flow requires at least one action")
	}

	actions := make([]models.FlowAction, 0, len(inputs))
	for i, in := range inputs {
		switch in.Kind {
		case ActionSendMessage:
			if in.Content == "" {
				return nil, fmt.Errorf("action %d: send_message requires content", i)
			}
		default:
			return nil, fmt.Errorf("action %d: unknown action kind: %s", i, in.Kind)
		}
		actions = append(actions, models.FlowAction{
			Position: i,
			Kind:     in.Kind,
			Content:  in.Content,
		})
	}
	return actions, nil
}
