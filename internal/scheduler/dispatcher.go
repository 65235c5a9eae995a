package scheduler

import (
	"log"
	"time"

	"whatsapp-crm/internal/gateway"
	"whatsapp-crm/internal/models"

	"gorm.io/gorm"
)

// Dispatcher polls for due scheduled messages and sends them through the
// gateway. Recurring messages advance to their next occurrence after each
// attempt; one-off messages end up sent or failed.
type Dispatcher struct {
	DB      *gorm.DB
	Gateway *gateway.Client
	Period  time.Duration
}

func NewDispatcher(db *gorm.DB, gw *gateway.Client, period time.Duration) *Dispatcher {
	return &Dispatcher{DB: db, Gateway: gw, Period: period}
}

// Run blocks, ticking at the configured period. Meant to be started in its
// own goroutine from main.
func (d *Dispatcher) Run() {
	ticker := time.NewTicker(d.Period)
	defer ticker.Stop()
	for range ticker.C {
		d.DispatchDue(time.Now())
	}
}

// DispatchDue sends every pending message whose scheduled time has passed.
// Returns the number of delivery attempts made.
func (d *Dispatcher) DispatchDue(now time.Time) int {
	var due []models.ScheduledMessage
	err := d.DB.Where("status = ? AND scheduled_at <= ?", "pending", now).
		Order("scheduled_at ASC").
		Find(&due).Error
	if err != nil {
		log.Printf("Error fetching due scheduled messages: %v", err)
		return 0
	}

	for i := range due {
		d.dispatch(&due[i], now)
	}
	return len(due)
}

func (d *Dispatcher) dispatch(sm *models.ScheduledMessage, now time.Time) {
	sendErr := d.Gateway.SendText(sm.InstanceName, sm.Recipient, sm.Content)

	updates := map[string]any{}
	if sendErr != nil {
		log.Printf("Scheduled message %d failed: %v", sm.ID, sendErr)
		updates["status"] = "failed"
	} else {
		sentAt := now.UTC()
		updates["status"] = "sent"
		updates["sent_at"] = &sentAt
	}

	// A recurring message returns to pending at its next occurrence even
	// after a failed attempt, so one miss does not stall the series.
	if next, ok := NextOccurrence(sm.ScheduledAt, sm.Recurrence); ok {
		updates["status"] = "pending"
		updates["scheduled_at"] = next
	}

	if err := d.DB.Model(sm).Updates(updates).Error; err != nil {
		log.Printf("Error updating scheduled message %d: %v", sm.ID, err)
	}
}

// NextOccurrence advances a schedule by one recurrence step from the
// previous scheduled time, preserving its original wall-clock time.
func NextOccurrence(prev time.Time, recurrence string) (time.Time, bool) {
	switch recurrence {
	case "daily":
		return prev.AddDate(0, 0, 1), true
	case "weekly":
		return prev.AddDate(0, 0, 7), true
	case "monthly":
		return prev.AddDate(0, 1, 0), true
	default:
		return time.Time{}, false
	}
}
