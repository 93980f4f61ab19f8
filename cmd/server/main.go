package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/TaCeiN/max-task-mvp/internal/auth"
	"github.com/TaCeiN/max-task-mvp/internal/database"
	"github.com/TaCeiN/max-task-mvp/internal/handlers"
	"github.com/TaCeiN/max-task-mvp/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// messageLifetime reads how long a delivered notification stays in the chat
// before auto-retraction. Defaults to 12 hours.
func messageLifetime() time.Duration {
	raw := os.Getenv("NOTIFICATION_DELETE_AFTER_SECONDS")
	if raw == "" {
		return 43200 * time.Second
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		log.Printf("Invalid NOTIFICATION_DELETE_AFTER_SECONDS %q, using default", raw)
		return 43200 * time.Second
	}
	return time.Duration(seconds) * time.Second
}

func main() {
	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	if err := database.InitDB(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Notification engine: bot transport, message tracking, deadline scanner
	bot := services.NewBotService()
	tracker := services.NewMessageTracker(bot, messageLifetime())
	worker := services.NewNotificationWorker(database.GetDB(), bot, tracker)
	worker.Start()

	// Initialize Gin router
	router := gin.Default()

	// Configure trusted proxies
	router.SetTrustedProxies([]string{"127.0.0.1"})

	// The mini-app is served from the messenger's webview origin
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsConfig))

	// Basic routes
	router.GET("/", handlers.HomeHandler)
	router.GET("/health", handlers.HealthHandler)

	// Auth routes (no auth required)
	router.POST("/auth/register", handlers.Register)
	router.POST("/auth/login", handlers.Login)
	router.POST("/auth/webapp-init", handlers.WebAppInit)

	// Bot platform webhook (no auth required)
	router.POST("/webhook", handlers.NewWebhookHandler(tracker))

	// Protected routes (auth required)
	protected := router.Group("/api")
	protected.Use(auth.AuthMiddleware())
	{
		protected.GET("/auth/me", handlers.GetCurrentUser)

		protected.GET("/settings", handlers.GetSettings)
		protected.PUT("/settings", handlers.UpdateSettings)

		protected.GET("/folders", handlers.ListFolders)
		protected.POST("/folders", handlers.CreateFolder)
		protected.PATCH("/folders/:folder_id", handlers.UpdateFolder)
		protected.DELETE("/folders/:folder_id", handlers.DeleteFolder)

		protected.GET("/notes", handlers.ListNotes)
		protected.POST("/notes", handlers.CreateNote)
		protected.GET("/notes/search", handlers.SearchNotes)
		protected.GET("/notes/favorite", handlers.GetFavorite)
		protected.GET("/notes/:note_id", handlers.GetNote)
		protected.PATCH("/notes/:note_id", handlers.UpdateNote)
		protected.DELETE("/notes/:note_id", handlers.DeleteNote)
		protected.POST("/notes/:note_id/favorite", handlers.ToggleFavorite)
		protected.GET("/notes/:note_id/deadline", handlers.GetNoteDeadline)

		protected.GET("/tags", handlers.ListTags)

		protected.GET("/tasks", handlers.ListTasks)
		protected.POST("/tasks", handlers.CreateTask)
		protected.PATCH("/tasks/:task_id", handlers.UpdateTask)
		protected.DELETE("/tasks/:task_id", handlers.DeleteTask)

		protected.GET("/deadlines", handlers.ListDeadlines)
		protected.POST("/deadlines", handlers.CreateDeadline)
		protected.PATCH("/deadlines/:deadline_id", handlers.UpdateDeadline)
		protected.DELETE("/deadlines/:deadline_id", handlers.DeleteDeadline)
		protected.POST("/deadlines/:deadline_id/notifications/toggle", handlers.ToggleNotifications)
		protected.POST("/deadlines/:deadline_id/notifications/test", handlers.NewTestNotificationHandler(bot, tracker))
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Server starting on port %s...", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	// Stop the scanner before the HTTP server so an in-flight tick finishes
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down...")

	worker.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Forced shutdown:", err)
	}
	log.Println("Server stopped")
}
