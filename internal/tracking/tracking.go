package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const maxRetries = 5

var baseDelay = 500 * time.Millisecond

// Event is a conversion event posted to the account's tracking webhook.
type Event struct {
	Name       string `json:"event"`
	AccountID  string `json:"account_id"`
	OccurredAt string `json:"occurred_at"`
}

// Fire attempts fn once immediately, then up to maxRetries more times with a
// linearly increasing delay. Success stops the schedule; exhaustion logs a
// warning and nothing else. Errors never reach the caller.
func Fire(name string, fn func() error) {
	if fn() == nil {
		return
	}
	for attempt := 1; attempt <= maxRetries; attempt++ {
		time.Sleep(time.Duration(attempt) * baseDelay)
		if fn() == nil {
			return
		}
	}
	log.Printf("Warning: tracking event %q failed after %d attempts", name, maxRetries+1)
}

// FireWebhook posts an event to the given URL in the background using the
// retry schedule above.
func FireWebhook(url, eventName, accountID string) {
	ev := Event{
		Name:       eventName,
		AccountID:  accountID,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}

	go Fire(eventName, func() error {
		resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("tracking endpoint returned %d", resp.StatusCode)
		}
		return nil
	})
}
