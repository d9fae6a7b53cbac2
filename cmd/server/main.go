package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ignite/participant-importer/internal/api"
	"github.com/ignite/participant-importer/internal/config"
	"github.com/ignite/participant-importer/internal/history"
	"github.com/ignite/participant-importer/internal/platform"
	"github.com/ignite/participant-importer/internal/wizard"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func extractHost(dsn string) string {
	at := strings.Index(dsn, "@")
	if at < 0 {
		return "(unknown)"
	}
	rest := dsn[at+1:]
	slash := strings.Index(rest, "/")
	if slash >= 0 {
		rest = rest[:slash]
	}
	return rest
}

func main() {
	log.Println("Participant Importer API (cmd/server/main.go)")

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Platform.BaseURL == "" {
		log.Fatal("platform base_url is required (config or PLATFORM_BASE_URL)")
	}
	if os.Getenv("DATABASE_URL") != "" {
		log.Println("[config] DATABASE_URL env override active")
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to Redis, the wizard session store. Sessions cannot exist
	// without it.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatalf("Redis connection failed (%s): %v", cfg.Redis.Addr, err)
	}
	pingCancel()
	log.Printf("Redis connected: %s", cfg.Redis.Addr)

	// Optional import history database
	var historyStore *history.Store
	if cfg.Database.Enabled && cfg.Database.URL != "" {
		dbURL := cfg.Database.URL
		if !strings.Contains(dbURL, "connect_timeout") {
			sep := "?"
			if strings.Contains(dbURL, "?") {
				sep = "&"
			}
			dbURL += sep + "connect_timeout=5"
		}
		log.Printf("DB URL host portion: ...@%s/...", extractHost(dbURL))

		db, err := sql.Open("postgres", dbURL)
		if err != nil {
			log.Printf("Warning: Failed to open history database: %v — history disabled", err)
		} else {
			db.SetMaxOpenConns(5)
			db.SetMaxIdleConns(2)
			db.SetConnMaxLifetime(5 * time.Minute)

			pingCtx, pingCancel := context.WithTimeout(ctx, 3*time.Second)
			if err := db.PingContext(pingCtx); err != nil {
				pingCancel()
				log.Printf("Warning: History database ping failed: %v — history disabled", err)
				db.Close()
			} else {
				pingCancel()
				historyStore = history.New(db)
				log.Println("Import history database connected")
			}
		}
	} else {
		log.Println("Import history database not configured — runs will not be recorded")
	}

	// Assessment platform client and wizard service
	platformClient := platform.NewClient(cfg.Platform)
	wizardService := wizard.NewService(redisClient, platformClient, historyStore)

	handlers := api.NewHandlers(wizardService, historyStore, cfg.Upload.MaxBytes)
	router := api.SetupRoutes(handlers)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("All services initialized — server is ready")

	<-done
	log.Println("Shutting down...")

	// Cancel background tasks
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	redisClient.Close()
	log.Println("Server stopped")
}
