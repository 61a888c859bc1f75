/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the Jira timesheet bot for Mattermost.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env (development) and parse command-line flags
  2. Read required settings from the environment
  3. Initialize SQLite store and credential vault
  4. Connect to Mattermost, restore persisted sessions
  5. Start the status HTTP server and the websocket event loop

COMMAND-LINE FLAGS:
  -db           SQLite database path (default: timesheet.db)
                Use ":memory:" for an ephemeral database
  -status-port  Status HTTP server port (default: 8080)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Cancel the websocket event loop
  2. Drain the status server (10s timeout)
  3. Close the database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./bot -db="./data/timesheet.db"

  # Run the status API on another port
  ./bot -status-port=9090

SEE ALSO:
  - config/config.go: Environment variables
  - bot/bot.go: Conversation engine
  - api/server.go: Status router
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/relay/timesheet-bot/api"
	"github.com/relay/timesheet-bot/auth"
	"github.com/relay/timesheet-bot/bot"
	"github.com/relay/timesheet-bot/config"
	"github.com/relay/timesheet-bot/jira"
	"github.com/relay/timesheet-bot/mattermost"
	"github.com/relay/timesheet-bot/store/sqlite"
)

func main() {
	// Flags
	dbPath := flag.String("db", "timesheet.db", "SQLite database path")
	statusPort := flag.Int("status-port", 8080, "Status HTTP server port")
	flag.Parse()

	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	vault, err := auth.NewVault(store, cfg.BotSecret)
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}

	// Connect to Mattermost
	chat, err := mattermost.NewClient(cfg.MattermostURL, cfg.MattermostToken)
	if err != nil {
		log.Fatalf("Failed to connect to Mattermost: %v", err)
	}

	source := func(email, apiToken string) (bot.WorklogSource, error) {
		return jira.NewClient(cfg.JiraURL, email, apiToken)
	}
	engine := bot.New(chat, store, vault, source)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := engine.Restore(ctx); err != nil {
		log.Printf("Warning: failed to restore sessions: %v", err)
	}

	// Status server
	statusServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", *statusPort),
		Handler:      api.NewRouter(api.NewHandler(store)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Printf("📊 Status API on http://localhost:%d/api/status", *statusPort)
		if err := statusServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Status server failed: %v", err)
		}
	}()

	// Event loop
	go func() {
		log.Printf("🤖 %s listening for direct messages", cfg.BotName)
		err := chat.Listen(ctx, func(userID, channelID, message string) {
			engine.HandlePost(ctx, bot.Post{
				UserID:    userID,
				ChannelID: channelID,
				Message:   message,
			})
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("Event loop failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := statusServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Status server forced to shutdown: %v", err)
	}

	log.Println("Bot stopped")
}
