package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"whatsapp-crm/internal/config"
)

func TestResolve_ActionMapping(t *testing.T) {
	tests := []struct {
		name       string
		cmd        Command
		wantMethod string
		wantPath   string
		wantBody   map[string]any
	}{
		{
			name:       "create-instance",
			cmd:        Command{Action: ActionCreateInstance, InstanceName: "shop"},
			wantMethod: http.MethodPost,
			wantPath:   "/instance/create",
			wantBody: map[string]any{
				"instanceName": "shop",
				"qrcode":       true,
				"integration":  "WHATSAPP-BAILEYS",
			},
		},
		{
			name:       "get-qrcode",
			cmd:        Command{Action: ActionGetQRCode, InstanceName: "shop"},
			wantMethod: http.MethodGet,
			wantPath:   "/instance/connect/shop",
		},
		{
			name:       "get-status",
			cmd:        Command{Action: ActionGetStatus, InstanceName: "shop"},
			wantMethod: http.MethodGet,
			wantPath:   "/instance/connectionState/shop",
		},
		{
			name:       "logout",
			cmd:        Command{Action: ActionLogout, InstanceName: "shop"},
			wantMethod: http.MethodDelete,
			wantPath:   "/instance/logout/shop",
		},
		{
			name:       "delete-instance",
			cmd:        Command{Action: ActionDeleteInstance, InstanceName: "shop"},
			wantMethod: http.MethodDelete,
			wantPath:   "/instance/delete/shop",
		},
		{
			name: "send-message",
			cmd: Command{
				Action:       ActionSendMessage,
				InstanceName: "x",
				Data:         map[string]any{"phone": "5511999999999", "message": "hi"},
			},
			wantMethod: http.MethodPost,
			wantPath:   "/message/sendText/x",
			wantBody:   map[string]any{"number": "5511999999999", "text": "hi"},
		},
		{
			name:       "fetch-contacts",
			cmd:        Command{Action: ActionFetchContacts, InstanceName: "shop"},
			wantMethod: http.MethodPost,
			wantPath:   "/chat/findContacts/shop",
			wantBody:   map[string]any{},
		},
		{
			name: "fetch-messages",
			cmd: Command{
				Action:       ActionFetchMessages,
				InstanceName: "shop",
				Data:         map[string]any{"remoteJid": "5511@s.whatsapp.net"},
			},
			wantMethod: http.MethodPost,
			wantPath:   "/chat/findMessages/shop",
			wantBody: map[string]any{
				"where": map[string]any{
					"key": map[string]any{"remoteJid": "5511@s.whatsapp.net"},
				},
			},
		},
		{
			name:       "list-instances",
			cmd:        Command{Action: ActionListInstances, InstanceName: "shop"},
			wantMethod: http.MethodGet,
			wantPath:   "/instance/fetchInstances",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Resolve(tt.cmd)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, req.Method)
			assert.Equal(t, tt.wantPath, req.Path)
			if tt.wantBody == nil {
				assert.Nil(t, req.Body)
			} else {
				assert.Equal(t, tt.wantBody, normalize(t, req.Body))
			}
		})
	}
}

// normalize round-trips through JSON so map[string]any literals compare
// against the wire shape.
func normalize(t *testing.T, body any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestResolve_UnknownAction(t *testing.T) {
	_, err := Resolve(Command{Action: "reboot-universe", InstanceName: "shop"})
	require.Error(t, err)

	var unknownErr *UnknownActionError
	require.ErrorAs(t, err, &unknownErr)
	assert.Contains(t, err.Error(), "reboot-universe")
}

func TestResolve_SendMessageRequiresPayload(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
	}{
		{"nil data", nil},
		{"missing phone", map[string]any{"message": "hi"}},
		{"missing message", map[string]any{"phone": "551199"}},
		{"empty values", map[string]any{"phone": "", "message": ""}},
		{"non-string values", map[string]any{"phone": 551199, "message": true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(Command{Action: ActionSendMessage, InstanceName: "shop", Data: tt.data})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "data.phone")
		})
	}
}

func TestExecute_IncompleteSendNeverCallsUpstream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewClient(&config.Config{GatewayBaseURL: srv.URL, GatewayAPIKey: "secret"})
	_, err := client.Execute(Command{Action: ActionSendMessage, InstanceName: "shop"})

	require.Error(t, err)
	assert.Zero(t, calls)
}

func TestExecute_MissingConfigNeverCallsUpstream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{"missing url", &config.Config{GatewayAPIKey: "secret"}},
		{"missing key", &config.Config{GatewayBaseURL: srv.URL}},
		{"missing both", &config.Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewClient(tt.cfg)
			_, err := client.Execute(Command{Action: ActionGetStatus, InstanceName: "shop"})
			assert.ErrorIs(t, err, ErrMissingConfig)
		})
	}

	assert.Zero(t, calls, "no network call may be made without configuration")
}

func TestExecute_UnknownActionNeverCallsUpstream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	client := NewClient(&config.Config{GatewayBaseURL: srv.URL, GatewayAPIKey: "secret"})
	_, err := client.Execute(Command{Action: "nope", InstanceName: "shop"})

	var unknownErr *UnknownActionError
	require.ErrorAs(t, err, &unknownErr)
	assert.Zero(t, calls)
}

func TestExecute_PassthroughSuccess(t *testing.T) {
	upstream := `{"instance":{"instanceName":"shop","state":"open"}}`
	var gotPath, gotMethod, gotKey string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotKey = r.Header.Get("apikey")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(upstream))
	}))
	defer srv.Close()

	client := NewClient(&config.Config{GatewayBaseURL: srv.URL, GatewayAPIKey: "secret"})
	body, err := client.Execute(Command{
		Action:       ActionSendMessage,
		InstanceName: "shop",
		Data:         map[string]any{"phone": "551199", "message": "hello"},
	})
	require.NoError(t, err)

	assert.Equal(t, upstream, string(body), "response must pass through unmodified")
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/message/sendText/shop", gotPath)
	assert.Equal(t, "secret", gotKey)
	assert.JSONEq(t, `{"number":"551199","text":"hello"}`, string(gotBody))
}

func TestExecute_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "upstream message field surfaced",
			status:  http.StatusBadRequest,
			body:    `{"message":"instance already exists"}`,
			wantMsg: "instance already exists",
		},
		{
			name:    "upstream error field surfaced",
			status:  http.StatusUnauthorized,
			body:    `{"error":"invalid api key"}`,
			wantMsg: "invalid api key",
		},
		{
			name:    "generic message when body has none",
			status:  http.StatusBadGateway,
			body:    `not json`,
			wantMsg: "gateway request failed with status 502",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			client := NewClient(&config.Config{GatewayBaseURL: srv.URL, GatewayAPIKey: "secret"})
			_, err := client.Execute(Command{Action: ActionGetStatus, InstanceName: "shop"})
			require.Error(t, err)

			var upErr *UpstreamError
			require.ErrorAs(t, err, &upErr)
			assert.Equal(t, tt.wantMsg, upErr.Error())
		})
	}
}

func TestExecute_NetworkErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	client := NewClient(&config.Config{GatewayBaseURL: srv.URL, GatewayAPIKey: "secret"})
	_, err := client.Execute(Command{Action: ActionListInstances})

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
}
