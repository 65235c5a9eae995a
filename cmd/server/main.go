package main

import (
	"log"
	"whatsapp-crm/internal/api"
	"whatsapp-crm/internal/automation"
	"whatsapp-crm/internal/config"
	"whatsapp-crm/internal/database"
	"whatsapp-crm/internal/gateway"
	"whatsapp-crm/internal/scheduler"
	"whatsapp-crm/internal/webhook"
	"whatsapp-crm/internal/ws"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()
	database.InitDB(cfg)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Account-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	hub := ws.NewHub()
	go hub.Run()

	gatewayClient := gateway.NewClient(cfg)
	engine := automation.NewEngine(database.DB, gatewayClient, cfg.MatchMode)
	webhookHandler := webhook.NewHandler(engine, gatewayClient, hub)

	dispatcher := scheduler.NewDispatcher(database.DB, gatewayClient, cfg.SchedulerPeriod)
	go dispatcher.Run()

	gatewayHandler := api.NewGatewayHandler(gatewayClient)
	contactHandler := api.NewContactHandler()
	conversationHandler := api.NewConversationHandler(gatewayClient, hub)
	flowHandler := api.NewFlowHandler(engine)
	scheduledHandler := api.NewScheduledHandler()
	settingsHandler := api.NewSettingsHandler()
	dashboardHandler := api.NewDashboardHandler()

	// Gateway Event Intake
	r.POST("/webhook/:instanceName", webhookHandler.HandleEvent)

	// Realtime
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	// Dashboard API Routes
	apiGroup := r.Group("/api")
	apiGroup.Use(api.TenantMiddleware())
	{
		// Gateway Command Proxy
		apiGroup.POST("/gateway", gatewayHandler.Execute)

		// CRM Routes
		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.PUT("/contacts/:id", contactHandler.UpdateContact)
		apiGroup.DELETE("/contacts/:id", contactHandler.DeleteContact)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)

		// Conversation Routes
		apiGroup.GET("/conversations", conversationHandler.GetConversations)
		apiGroup.GET("/conversations/:id/messages", conversationHandler.GetMessages)
		apiGroup.POST("/conversations/:id/messages", conversationHandler.SendMessage)
		apiGroup.POST("/conversations/:id/read", conversationHandler.MarkRead)

		// Automation Flow Routes
		apiGroup.GET("/flows", flowHandler.GetFlows)
		apiGroup.POST("/flows", flowHandler.CreateFlow)
		apiGroup.PUT("/flows/:id", flowHandler.UpdateFlow)
		apiGroup.DELETE("/flows/:id", flowHandler.DeleteFlow)
		apiGroup.POST("/flows/:id/toggle", flowHandler.ToggleFlow)
		apiGroup.POST("/flows/:id/fire", flowHandler.FireFlow)

		// Scheduled Message Routes
		apiGroup.GET("/scheduled", scheduledHandler.GetScheduled)
		apiGroup.POST("/scheduled", scheduledHandler.CreateScheduled)
		apiGroup.PUT("/scheduled/:id", scheduledHandler.UpdateScheduled)
		apiGroup.DELETE("/scheduled/:id", scheduledHandler.DeleteScheduled)

		// Settings Routes
		apiGroup.GET("/settings", settingsHandler.GetSettings)
		apiGroup.PUT("/settings", settingsHandler.UpdateSettings)

		// Dashboard
		apiGroup.GET("/dashboard/stats", dashboardHandler.GetStats)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
