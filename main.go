package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"municipal-sentinel/config"
	"municipal-sentinel/database"
	"municipal-sentinel/gemini"
	"municipal-sentinel/handlers"
	"municipal-sentinel/metrics"
	"municipal-sentinel/middleware"
	"municipal-sentinel/oracle"
	"municipal-sentinel/rabbitmq"
	"municipal-sentinel/service"
	"municipal-sentinel/store"
	"municipal-sentinel/store/memstore"
	"municipal-sentinel/stuboracle"
)

func main() {
	// Load .env if present; real deployments configure through the environment.
	godotenv.Load()

	cfg := config.Load()

	if lvl, err := log.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	// Initialize the report store
	var reportStore store.Store
	if cfg.StoreBackend == "memory" {
		log.Warn("Using in-memory report store, reports will not survive a restart")
		reportStore = memstore.New()
	} else {
		db, err := database.NewDatabase(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		if err := db.EnsureReportsTable(context.Background()); err != nil {
			log.Fatalf("Failed to ensure reports table: %v", err)
		}
		reportStore = db
	}

	// Initialize the oracles
	var classifier oracle.Classifier
	var prioritizer oracle.Prioritizer
	if cfg.GeminiAPIKey == "" {
		log.Warn("GEMINI_API_KEY not set, using the deterministic stub oracle")
		stub := stuboracle.NewClient()
		classifier, prioritizer = stub, stub
	} else {
		client := gemini.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.OracleTimeout)
		classifier, prioritizer = client, client
		log.Infof("Oracle provider=%s model=%s", client.SourceName(), cfg.GeminiModel)
	}

	// Initialize the dispatch publisher
	var publisher *rabbitmq.Publisher
	if cfg.AMQPURL != "" {
		var err error
		publisher, err = rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
		if err != nil {
			log.Errorf("Failed to initialize RabbitMQ publisher: %v", err)
			// Continue without publisher - triage still works
			publisher = nil
		} else {
			defer publisher.Close()
		}
	}

	metrics.Register()

	triage := service.New(cfg, reportStore, classifier, prioritizer, publisher)
	h := handlers.NewHandlers(reportStore, triage)

	// Setup HTTP server
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowOrigins:     []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API routes
	api := router.Group("/api/v3")
	{
		api.GET("/health", h.HealthCheck)
		api.POST("/report", h.SubmitReport)
		api.POST("/update_status", middleware.RequireToken(cfg), h.UpdateStatus)
		api.GET("/reports", h.GetReports)
		api.GET("/reports/filtered", h.GetFilteredReports)
		api.GET("/stats", h.GetStats)
		api.GET("/leaderboard", h.GetLeaderboard)
		api.GET("/map", h.GetMap)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Infof("Starting HTTP server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Info("Server exited")
}
