package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"whatsapp-crm/internal/config"
)

// Command is the abstract instruction the dashboard sends at the gateway:
// a discriminated action plus the instance it targets and an optional payload.
type Command struct {
	Action       string         `json:"action"`
	InstanceName string         `json:"instanceName"`
	Data         map[string]any `json:"data,omitempty"`
}

// Recognized actions.
const (
	ActionCreateInstance = "create-instance"
	ActionGetQRCode      = "get-qrcode"
	ActionGetStatus      = "get-status"
	ActionLogout         = "logout"
	ActionDeleteInstance = "delete-instance"
	ActionSendMessage    = "send-message"
	ActionFetchContacts  = "fetch-contacts"
	ActionFetchMessages  = "fetch-messages"
	ActionListInstances  = "list-instances"
)

// ErrMissingConfig is returned before any network call when the upstream
// base URL or API key is not configured.
var ErrMissingConfig = fmt.Errorf("gateway not configured: EVOLUTION_API_URL and EVOLUTION_API_KEY are required")

// UnknownActionError is returned before any network call for an action
// outside the recognized set.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action: %s", e.Action)
}

// UpstreamError carries the upstream's own message when it sent one,
// otherwise a generic status-code message.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("gateway request failed with status %d", e.StatusCode)
}

// Request is the derived target for one command.
type Request struct {
	Method string
	Path   string
	Body   any
}

type Client struct {
	Config     *config.Config
	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		Config:     cfg,
		HTTPClient: &http.Client{},
	}
}

// Resolve maps a command to its fixed method/path/body. It performs no I/O.
func Resolve(cmd Command) (Request, error) {
	data := cmd.Data
	if data == nil {
		data = map[string]any{}
	}

	switch cmd.Action {
	case ActionCreateInstance:
		return Request{
			Method: http.MethodPost,
			Path:   "/instance/create",
			Body: map[string]any{
				"instanceName": cmd.InstanceName,
				"qrcode":       true,
				"integration":  "WHATSAPP-BAILEYS",
			},
		}, nil
	case ActionGetQRCode:
		return Request{Method: http.MethodGet, Path: "/instance/connect/" + cmd.InstanceName}, nil
	case ActionGetStatus:
		return Request{Method: http.MethodGet, Path: "/instance/connectionState/" + cmd.InstanceName}, nil
	case ActionLogout:
		return Request{Method: http.MethodDelete, Path: "/instance/logout/" + cmd.InstanceName}, nil
	case ActionDeleteInstance:
		return Request{Method: http.MethodDelete, Path: "/instance/delete/" + cmd.InstanceName}, nil
	case ActionSendMessage:
		phone, _ := data["phone"].(string)
		message, _ := data["message"].(string)
		if phone == "" || message == "" {
			return Request{}, fmt.Errorf("send-message requires data.phone and data.message")
		}
		return Request{
			Method: http.MethodPost,
			Path:   "/message/sendText/" + cmd.InstanceName,
			Body: map[string]any{
				"number": phone,
				"text":   message,
			},
		}, nil
	case ActionFetchContacts:
		return Request{
			Method: http.MethodPost,
			Path:   "/chat/findContacts/" + cmd.InstanceName,
			Body:   map[string]any{},
		}, nil
	case ActionFetchMessages:
		return Request{
			Method: http.MethodPost,
			Path:   "/chat/findMessages/" + cmd.InstanceName,
			Body: map[string]any{
				"where": map[string]any{
					"key": map[string]any{"remoteJid": data["remoteJid"]},
				},
			},
		}, nil
	case ActionListInstances:
		return Request{Method: http.MethodGet, Path: "/instance/fetchInstances"}, nil
	default:
		return Request{}, &UnknownActionError{Action: cmd.Action}
	}
}

// Execute resolves a command, forwards it upstream and returns the raw
// response body. The body is passed through unmodified; no caching, no retry.
func (c *Client) Execute(cmd Command) (json.RawMessage, error) {
	if c.Config.GatewayBaseURL == "" || c.Config.GatewayAPIKey == "" {
		return nil, ErrMissingConfig
	}

	req, err := Resolve(cmd)
	if err != nil {
		return nil, err
	}

	url := c.Config.GatewayBaseURL + req.Path
	log.Printf("Gateway command %s -> %s %s", cmd.Action, req.Method, url)
	body, err := c.sendRequest(req.Method, url, req.Body)
	if err != nil {
		return nil, err
	}

	return json.RawMessage(body), nil
}

// SendText is the convenience used by the automation engine, the scheduler
// and the auto-reply path.
func (c *Client) SendText(instanceName, phone, text string) error {
	_, err := c.Execute(Command{
		Action:       ActionSendMessage,
		InstanceName: instanceName,
		Data:         map[string]any{"phone": phone, "message": text},
	})
	return err
}

func (c *Client) sendRequest(method, url string, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("apikey", c.Config.GatewayAPIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Message: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	// Non-sensitive fields only: never the key, never the body.
	log.Printf("Gateway %s %s -> %d", method, url, resp.StatusCode)

	if resp.StatusCode >= 400 {
		return nil, &UpstreamError{
			StatusCode: resp.StatusCode,
			Message:    upstreamMessage(respBody),
		}
	}

	return respBody, nil
}

// upstreamMessage pulls the gateway's own error message out of a failed
// response body when one is present.
func upstreamMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Message != "" {
		return parsed.Message
	}
	return parsed.Error
}
