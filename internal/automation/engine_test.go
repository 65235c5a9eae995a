package automation

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/gateway"
	"whatsapp-crm/internal/models"
)

type sentMessage struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

type fakeGateway struct {
	srv *httptest.Server
	mu  sync.Mutex
	got []sentMessage
}

func newFakeGateway(t *testing.T) *fakeGateway {
	t.Helper()
	fg := &fakeGateway{}
	fg.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var msg sentMessage
		_ = json.Unmarshal(body, &msg)
		fg.mu.Lock()
		fg.got = append(fg.got, msg)
		fg.mu.Unlock()
		w.Write([]byte(`{"status":"PENDING"}`))
	}))
	t.Cleanup(fg.srv.Close)
	return fg
}

func (fg *fakeGateway) sent() []sentMessage {
	fg.mu.Lock()
	defer fg.mu.Unlock()
	return append([]sentMessage(nil), fg.got...)
}

func setupEngine(t *testing.T, matchMode string) (*Engine, *fakeGateway, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	fg := newFakeGateway(t)
	client := gateway.NewClient(&config.Config{GatewayBaseURL: fg.srv.URL, GatewayAPIKey: "secret"})
	return NewEngine(db, client, matchMode), fg, db
}

func createFlow(t *testing.T, db *gorm.DB, name, kind, value string, active bool, createdAt time.Time, reply string) models.Flow {
	t.Helper()
	flow := models.Flow{
		ID:           name,
		AccountID:    "acct-1",
		Name:         name,
		TriggerKind:  kind,
		TriggerValue: value,
		Active:       active,
		Actions:      []models.FlowAction{{Position: 0, Kind: ActionSendMessage, Content: reply}},
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(&flow).Error)
	return flow
}

func incoming(content string, first bool) IncomingMessage {
	return IncomingMessage{
		AccountID:    "acct-1",
		InstanceName: "shop",
		RemoteJid:    "551199@s.whatsapp.net",
		Phone:        "551199",
		Content:      content,
		FirstMessage: first,
	}
}

func TestEngine_KeywordMatching(t *testing.T) {
	tests := []struct {
		name      string
		keyword   string
		content   string
		wantFired int
	}{
		{"exact word", "price", "price", 1},
		{"case insensitive", "PRICE", "what is the price?", 1},
		{"substring", "cat", "catalog please", 1},
		{"surrounding whitespace", "price", "  price  ", 1},
		{"no match", "price", "hello there", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, fg, db := setupEngine(t, MatchFirst)
			createFlow(t, db, "f1", TriggerKeyword, tt.keyword, true, time.Now(), "our prices: ...")

			fired := engine.ProcessIncomingMessage(incoming(tt.content, false))
			assert.Equal(t, tt.wantFired, fired)
			assert.Len(t, fg.sent(), tt.wantFired)
		})
	}
}

func TestEngine_FirstMessageTrigger(t *testing.T) {
	engine, fg, db := setupEngine(t, MatchFirst)
	createFlow(t, db, "welcome", TriggerFirstMessage, "", true, time.Now(), "welcome!")

	assert.Equal(t, 1, engine.ProcessIncomingMessage(incoming("hi", true)))
	assert.Equal(t, 0, engine.ProcessIncomingMessage(incoming("hi again", false)))
	require.Len(t, fg.sent(), 1)
	assert.Equal(t, sentMessage{Number: "551199", Text: "welcome!"}, fg.sent()[0])
}

func TestEngine_InactiveAndForeignFlowsNeverFire(t *testing.T) {
	engine, fg, db := setupEngine(t, MatchAll)
	createFlow(t, db, "off", TriggerKeyword, "price", false, time.Now(), "ignored")

	other := createFlow(t, db, "other-account", TriggerKeyword, "price", true, time.Now(), "ignored")
	require.NoError(t, db.Model(&other).Update("account_id", "acct-2").Error)

	assert.Equal(t, 0, engine.ProcessIncomingMessage(incoming("price", false)))
	assert.Empty(t, fg.sent())
}

func TestEngine_ScheduleAndWebhookTriggersIgnoreMessages(t *testing.T) {
	engine, fg, db := setupEngine(t, MatchAll)
	createFlow(t, db, "cron", TriggerSchedule, "", true, time.Now(), "ignored")
	createFlow(t, db, "hook", TriggerWebhook, "", true, time.Now(), "ignored")

	assert.Equal(t, 0, engine.ProcessIncomingMessage(incoming("anything", true)))
	assert.Empty(t, fg.sent())
}

func TestEngine_MatchModeFirst(t *testing.T) {
	engine, fg, db := setupEngine(t, MatchFirst)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	createFlow(t, db, "older", TriggerKeyword, "help", true, base, "from older")
	createFlow(t, db, "newer", TriggerKeyword, "help", true, base.Add(time.Hour), "from newer")

	assert.Equal(t, 1, engine.ProcessIncomingMessage(incoming("help", false)))
	require.Len(t, fg.sent(), 1)
	assert.Equal(t, "from newer", fg.sent()[0].Text, "first match is the most recently created flow")
}

func TestEngine_MatchModeAll(t *testing.T) {
	engine, fg, db := setupEngine(t, MatchAll)
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	createFlow(t, db, "older", TriggerKeyword, "help", true, base, "from older")
	createFlow(t, db, "newer", TriggerKeyword, "help", true, base.Add(time.Hour), "from newer")

	assert.Equal(t, 2, engine.ProcessIncomingMessage(incoming("help", false)))
	require.Len(t, fg.sent(), 2)
	assert.Equal(t, "from newer", fg.sent()[0].Text)
	assert.Equal(t, "from older", fg.sent()[1].Text)
}

func TestEngine_TemplateVariableAndExecutionLog(t *testing.T) {
	engine, fg, db := setupEngine(t, MatchFirst)
	createFlow(t, db, "echo", TriggerKeyword, "echo", true, time.Now(), "you said: {{message}}")

	engine.ProcessIncomingMessage(incoming("echo hello", false))
	require.Len(t, fg.sent(), 1)
	assert.Equal(t, "you said: echo hello", fg.sent()[0].Text)

	var logs []models.FlowExecution
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "echo", logs[0].FlowID)
	assert.True(t, logs[0].Success)
	assert.Equal(t, ActionSendMessage, logs[0].ActionTaken)
}

func TestEngine_FailedSendIsLogged(t *testing.T) {
	engine, _, db := setupEngine(t, MatchFirst)
	// Point the client at a dead server.
	engine.Gateway = gateway.NewClient(&config.Config{GatewayBaseURL: "http://127.0.0.1:1", GatewayAPIKey: "secret"})
	createFlow(t, db, "broken", TriggerKeyword, "hi", true, time.Now(), "reply")

	engine.ProcessIncomingMessage(incoming("hi", false))

	var logs []models.FlowExecution
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.False(t, logs[0].Success)
	assert.NotEmpty(t, logs[0].ErrorMessage)
}
